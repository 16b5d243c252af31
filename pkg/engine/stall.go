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
	"time"

	"go.uber.org/zap"

	"github.com/numaproj/adclick/pkg/events"
	"github.com/numaproj/adclick/pkg/metrics"
)

// runStallDetector publishes the staleness of the stream watermarks on every tick and logs a WatermarkStallFault
// once per stall. It never closes windows.
func (e *Engine) runStallDetector(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.Watermark.TickInterval)
	defer ticker.Stop()
	stalled := make(map[events.Stream]bool, len(events.Streams))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.checkStalls(stalled)
		}
	}
}

func (e *Engine) checkStalls(stalled map[events.Stream]bool) {
	for _, s := range events.Streams {
		staleness := e.tracker.Staleness(s)
		metrics.WatermarkStaleness.WithLabelValues(s.String()).Set(staleness.Seconds())
		switch {
		case staleness >= e.cfg.Watermark.StallThreshold && !stalled[s]:
			stalled[s] = true
			e.stats.stalls.Inc()
			e.opts.logger.Warnw("WatermarkStallFault: stream watermark is not advancing, windows stay open until it does",
				zap.String("stream", s.String()),
				zap.String("watermark", e.tracker.Stream(s).String()),
				zap.Duration("staleness", staleness))
		case staleness < e.cfg.Watermark.StallThreshold && stalled[s]:
			stalled[s] = false
			e.opts.logger.Infow("Stream watermark is advancing again", zap.String("stream", s.String()))
		}
	}
}
