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

// Package forward writes the result records to a sink, retrying the failed records with an exponential backoff.
package forward

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/numaproj/adclick/pkg/config"
	"github.com/numaproj/adclick/pkg/events"
	"github.com/numaproj/adclick/pkg/metrics"
	"github.com/numaproj/adclick/pkg/sinks"
)

// Forwarder forwards the result records to a sink.
type Forwarder struct {
	sink    sinks.Sink
	backoff wait.Backoff
	opts    *options
}

// NewForwarder returns a forwarder retrying as configured. Zero retry steps retries at a fixed interval until the
// context is done.
func NewForwarder(sink sinks.Sink, retry config.RetryConfig, opts ...Option) (*Forwarder, error) {
	dOpts := DefaultOptions()
	for _, o := range opts {
		if err := o(dOpts); err != nil {
			return nil, err
		}
	}
	backoff := wait.Backoff{
		Duration: retry.Duration,
		Factor:   retry.Factor,
		Jitter:   retry.Jitter,
		Steps:    retry.Steps,
	}
	if retry.Steps == 0 {
		backoff.Steps = math.MaxInt
		backoff.Factor = 1
	}
	return &Forwarder{
		sink:    sink,
		backoff: backoff,
		opts:    dOpts,
	}, nil
}

// Forward writes the results, it blocks until every record is written, the retries are exhausted or ctx is done.
func (f *Forwarder) Forward(ctx context.Context, results []events.Result) error {
	if len(results) == 0 {
		return nil
	}
	name := f.sink.Name()
	pending := results
	attempt := 0

	err := wait.ExponentialBackoffWithContext(ctx, f.backoff, func(ctx context.Context) (bool, error) {
		attempt++
		start := time.Now()
		errs := f.sink.Write(ctx, pending)
		metrics.SinkWriteProcessingTime.WithLabelValues(name).Observe(float64(time.Since(start).Microseconds()))

		var failed []events.Result
		for i, r := range pending {
			if i < len(errs) && errs[i] != nil {
				failed = append(failed, r)
			}
		}
		metrics.SinkWriteCount.WithLabelValues(name).Add(float64(len(pending) - len(failed)))
		if len(failed) == 0 {
			return true, nil
		}
		metrics.SinkWriteErrorCount.WithLabelValues(name).Add(float64(len(failed)))
		f.opts.logger.Errorw("Failed to write results, retrying",
			zap.String("sink", name),
			zap.Any("errors", errorArrayToMap(errs)),
			zap.Int("failed", len(failed)),
			zap.Int("attempt", attempt))
		// retry only the failed records
		pending = failed
		return false, nil
	})
	if err != nil {
		metrics.SinkDropCount.WithLabelValues(name).Add(float64(len(pending)))
		f.opts.logger.Errorw("Giving up on results", zap.String("sink", name), zap.Int("dropped", len(pending)),
			zap.Int("attempts", attempt), zap.Error(err))
		return fmt.Errorf("failed to write %d results to %s after %d attempts, %w", len(pending), name, attempt, err)
	}
	return nil
}

// Close closes the sink.
func (f *Forwarder) Close() error {
	return f.sink.Close()
}

// errorArrayToMap summarizes an error array to map
func errorArrayToMap(errs []error) map[string]int64 {
	result := make(map[string]int64)
	for _, err := range errs {
		if err != nil {
			result[err.Error()]++
		}
	}
	return result
}
