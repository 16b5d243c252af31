/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/numaproj/adclick/pkg/events"
	"github.com/numaproj/adclick/pkg/metrics"
)

// runEmitter merges the partition reports and forwards the records of every finalized window to the sink. It is the
// only goroutine touching the emitter.
func (e *Engine) runEmitter(ctx context.Context) error {
	log := e.opts.logger.With("component", "emitter")
	for {
		select {
		case <-ctx.Done():
			if n := e.emitter.Pending(); n > 0 {
				log.Infow("Discarding the windows not finalized", zap.Int("windows", n))
			}
			return nil
		case r := <-e.reports:
			if r.barrier != nil {
				// a flush sends one barrier through every partition, it completes with the last of them
				e.barrierAcks[r.barrier]++
				if e.barrierAcks[r.barrier] == len(e.partitions) {
					delete(e.barrierAcks, r.barrier)
					close(r.barrier)
				}
				continue
			}
			results, err := e.emitter.Report(r.Report)
			if err != nil {
				return fmt.Errorf("failed to merge the report of partition %d, %w", r.Partition, err)
			}
			if len(results) == 0 {
				continue
			}
			e.account(results)
			log.Debugw("Finalized windows", zap.Int("results", len(results)), zap.String("horizon", e.emitter.Horizon().String()))
			if err := e.forwarder.Forward(ctx, results); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				// the records are counted as dropped by the forwarder, the job carries on with the next windows
				log.Errorw("Failed to forward results", zap.Int("results", len(results)), zap.Error(err))
			}
		}
	}
}

func (e *Engine) account(results []events.Result) {
	var last int64
	for i, r := range results {
		if i == 0 || r.Window() != last {
			metrics.ClosedWindowsCount.Inc()
			e.stats.closedWindows.Inc()
			last = r.Window()
		}
		metrics.EmittedResultsCount.WithLabelValues(string(r.Kind())).Inc()
		e.stats.emitted.Inc()
	}
}
