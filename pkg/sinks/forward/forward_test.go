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

package forward

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/numaproj/adclick/pkg/config"
	"github.com/numaproj/adclick/pkg/events"
	"github.com/numaproj/adclick/pkg/metrics"
)

// flakySink fails every record of the configured campaigns for a number of writes.
type flakySink struct {
	name     string
	failFor  map[string]int
	lock     sync.Mutex
	writes   int
	written  []events.Result
	attempts [][]events.Result
}

func (s *flakySink) Name() string { return s.name }

func (s *flakySink) Write(_ context.Context, results []events.Result) []error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.writes++
	s.attempts = append(s.attempts, results)
	errs := make([]error, len(results))
	for i, r := range results {
		if n := s.failFor[r.Key()]; n > 0 {
			s.failFor[r.Key()] = n - 1
			errs[i] = errors.New("broker not available")
			continue
		}
		s.written = append(s.written, r)
	}
	return errs
}

func (s *flakySink) Close() error { return nil }

var fastRetry = config.RetryConfig{Steps: 5, Duration: time.Millisecond, Factor: 1.5, Jitter: 0.1}

func TestForwarder_RetriesOnlyFailedRecords(t *testing.T) {
	sink := &flakySink{name: "flaky-retry", failFor: map[string]int{"C2": 2}}
	f, err := NewForwarder(sink, fastRetry, WithLogger(zap.NewNop().Sugar()))
	require.NoError(t, err)

	results := []events.Result{
		events.CtrResult{WindowStart: 0, CampaignID: "C1", Ctr: 0.5},
		events.CtrResult{WindowStart: 0, CampaignID: "C2", Ctr: 0.1},
	}
	require.NoError(t, f.Forward(context.Background(), results))
	assert.Equal(t, 3, sink.writes)
	assert.Len(t, sink.attempts[1], 1)
	assert.Equal(t, "C2", sink.attempts[1][0].Key())
	assert.ElementsMatch(t, results, sink.written)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.SinkWriteErrorCount.WithLabelValues("flaky-retry")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.SinkWriteCount.WithLabelValues("flaky-retry")))
}

func TestForwarder_GivesUp(t *testing.T) {
	sink := &flakySink{name: "flaky-give-up", failFor: map[string]int{"C1": 100}}
	f, err := NewForwarder(sink, config.RetryConfig{Steps: 3, Duration: time.Millisecond, Factor: 1}, WithLogger(zap.NewNop().Sugar()))
	require.NoError(t, err)

	err = f.Forward(context.Background(), []events.Result{events.CtrResult{CampaignID: "C1"}})
	assert.Error(t, err)
	assert.Equal(t, 3, sink.writes)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SinkDropCount.WithLabelValues("flaky-give-up")))
}

func TestForwarder_RetriesUntilShutdown(t *testing.T) {
	sink := &flakySink{name: "flaky-shutdown", failFor: map[string]int{"C1": 1 << 30}}
	f, err := NewForwarder(sink, config.RetryConfig{Steps: 0, Duration: time.Millisecond, Factor: 2}, WithLogger(zap.NewNop().Sugar()))
	require.NoError(t, err)
	assert.Equal(t, float64(1), f.backoff.Factor)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = f.Forward(ctx, []events.Result{events.CtrResult{CampaignID: "C1"}})
	assert.Error(t, err)
	sink.lock.Lock()
	defer sink.lock.Unlock()
	assert.Greater(t, sink.writes, 1)
}

func TestForwarder_Empty(t *testing.T) {
	sink := &flakySink{name: "flaky-empty"}
	f, err := NewForwarder(sink, fastRetry)
	require.NoError(t, err)
	assert.NoError(t, f.Forward(context.Background(), nil))
	assert.Equal(t, 0, sink.writes)
	assert.NoError(t, f.Close())
}
