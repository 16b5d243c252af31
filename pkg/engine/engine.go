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

// Package engine runs the analytics job. Events are ingested in a single serialized step that advances the stream
// watermarks, drops late events and routes the rest by impression id to a fixed set of partition workers. Whenever
// the combined watermark crosses a window end it is broadcast in-band to every partition, so that the windows a
// partition closes depend only on the order of the input. The partials of the closed windows are merged by a single
// emit loop and the finalized records are forwarded to the sink.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/numaproj/adclick/pkg/aggregate"
	"github.com/numaproj/adclick/pkg/config"
	"github.com/numaproj/adclick/pkg/emitter"
	"github.com/numaproj/adclick/pkg/events"
	"github.com/numaproj/adclick/pkg/metrics"
	"github.com/numaproj/adclick/pkg/shuffle"
	"github.com/numaproj/adclick/pkg/sinks"
	"github.com/numaproj/adclick/pkg/sinks/forward"
	"github.com/numaproj/adclick/pkg/sources/sourcer"
	"github.com/numaproj/adclick/pkg/watermark"
	"github.com/numaproj/adclick/pkg/window"
)

// ErrStopped is returned by the operations invoked on an engine that has stopped running.
var ErrStopped = errors.New("engine is stopped")

// Stats is a snapshot of the engine counters.
type Stats struct {
	Ingested             int64
	Late                 int64
	Malformed            int64
	DuplicateImpressions int64
	MatchedClicks        int64
	DuplicateClicks      int64
	UnknownClicks        int64
	ExpiredClicks        int64
	ClosedWindows        int64
	Emitted              int64
	Stalls               int64
}

type stats struct {
	ingested             atomic.Int64
	late                 atomic.Int64
	malformed            atomic.Int64
	duplicateImpressions atomic.Int64
	matchedClicks        atomic.Int64
	duplicateClicks      atomic.Int64
	unknownClicks        atomic.Int64
	expiredClicks        atomic.Int64
	closedWindows        atomic.Int64
	emitted              atomic.Int64
	stalls               atomic.Int64
}

// Engine is one analytics job. The lifecycle is NewEngine, Run, then Stop or the cancellation of the Run context.
type Engine struct {
	cfg        *config.JobConfig
	opts       *options
	assigner   *window.Fixed
	tracker    *watermark.Tracker
	shuffle    *shuffle.Shuffle
	partitions []*partition
	source     sourcer.Source
	forwarder  *forward.Forwarder

	// emitter and barrierAcks belong to the emit loop
	emitter     *emitter.Emitter
	barrierAcks map[chan struct{}]int
	reports     chan report

	// lock serializes the ingestion, the order events and watermarks are routed in is the order they are applied
	lock          sync.Mutex
	lastBroadcast watermark.Watermark

	started  atomic.Bool
	running  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
	stats    stats
}

// NewEngine returns an engine reading from src and writing to sink. src may be nil, the events are then supplied
// through Ingest and IngestPayload.
func NewEngine(cfg *config.JobConfig, src sourcer.Source, sink sinks.Sink, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, fmt.Errorf("a sink is required")
	}
	dOpts := DefaultOptions()
	for _, o := range opts {
		if err := o(dOpts); err != nil {
			return nil, err
		}
	}
	forwarder, err := forward.NewForwarder(sink, cfg.Sink.Retry, forward.WithLogger(dOpts.logger))
	if err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:           cfg,
		opts:          dOpts,
		assigner:      window.NewFixed(cfg.Window.Size),
		tracker:       watermark.NewTracker(cfg.Window.AllowedLateness, watermark.WithClock(dOpts.clock)),
		shuffle:       shuffle.NewShuffle(cfg.Partitions),
		source:        src,
		forwarder:     forwarder,
		emitter:       emitter.NewEmitter(cfg.Partitions),
		barrierAcks:   make(map[chan struct{}]int),
		reports:       make(chan report, cfg.Partitions),
		lastBroadcast: watermark.InitialWatermark,
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
	}
	for i := 0; i < cfg.Partitions; i++ {
		agg, err := aggregate.NewAggregator(cfg.Window.Size, cfg.Join.ExpiredCacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create the aggregator of partition %d, %w", i, err)
		}
		e.partitions = append(e.partitions, newPartition(i, agg, dOpts.partitionBufferSize))
	}
	return e, nil
}

// Run starts the partition workers, the emit loop, the stall detector and the source, and blocks until ctx is
// canceled, Stop is called or one of them fails. The windows not finalized by then are discarded. The source and
// the sink are closed before Run returns.
func (e *Engine) Run(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return fmt.Errorf("engine can only be run once")
	}
	defer close(e.done)
	log := e.opts.logger

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-e.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	log.Infow("Starting engine",
		zap.Duration("windowSize", e.cfg.Window.Size),
		zap.Duration("allowedLateness", e.cfg.Window.AllowedLateness),
		zap.Int("partitions", len(e.partitions)))
	g, gCtx := errgroup.WithContext(ctx)
	for _, p := range e.partitions {
		p := p
		g.Go(func() error {
			return e.runPartition(gCtx, p)
		})
	}
	g.Go(func() error {
		return e.runEmitter(gCtx)
	})
	g.Go(func() error {
		return e.runStallDetector(gCtx)
	})
	if e.source != nil {
		g.Go(func() error {
			if err := e.source.Start(gCtx, e.IngestPayload); err != nil {
				return fmt.Errorf("source %s failed, %w", e.source.Name(), err)
			}
			return nil
		})
	}
	e.running.Store(true)
	err := g.Wait()
	e.running.Store(false)
	if err != nil {
		log.Errorw("Engine failed", zap.Error(err))
	}
	err = multierr.Append(err, e.close())
	log.Info("Engine stopped")
	return err
}

// Stop stops a running engine, Run returns once everything is shut down.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
	})
}

func (e *Engine) close() error {
	var err error
	if e.source != nil {
		err = multierr.Append(err, e.source.Close())
	}
	return multierr.Append(err, e.forwarder.Close())
}

// IsHealthy reports an error unless the engine is running.
func (e *Engine) IsHealthy(_ context.Context) error {
	if !e.running.Load() {
		return fmt.Errorf("engine is not running")
	}
	return nil
}

// IngestPayload decodes a payload read from a stream and ingests it. A malformed payload is counted and skipped.
func (e *Engine) IngestPayload(ctx context.Context, stream events.Stream, payload []byte, partition int32) {
	ev, err := events.Decode(stream, payload)
	if err != nil {
		e.stats.malformed.Inc()
		metrics.MalformedEventsCount.WithLabelValues(stream.String()).Inc()
		e.opts.logger.Warnw("Skipping malformed event", zap.String("stream", stream.String()), zap.Int32("partition", partition), zap.Error(err))
		return
	}
	ev.Partition = partition
	if err := e.Ingest(ctx, ev); err != nil && ctx.Err() == nil && !errors.Is(err, ErrStopped) {
		e.opts.logger.Errorw("Failed to ingest event", zap.String("event", ev.String()), zap.Error(err))
	}
}

// Ingest observes the event time, broadcasts the combined watermark if it crossed a window end, drops the event if
// its window is already closed and otherwise routes it to the partition owning its impression id.
func (e *Engine) Ingest(ctx context.Context, ev events.Event) error {
	if err := validate(ev); err != nil {
		return err
	}
	select {
	case <-e.done:
		return ErrStopped
	default:
	}

	e.lock.Lock()
	defer e.lock.Unlock()

	e.stats.ingested.Inc()
	metrics.EventsReadCount.WithLabelValues(ev.Stream.String()).Inc()
	if wm := e.tracker.Observe(ev.Stream, ev.EventTime()); wm != watermark.InitialWatermark {
		metrics.StreamWatermark.WithLabelValues(ev.Stream.String()).Set(float64(wm.UnixMilli()))
	}
	if combined := e.tracker.Combined(); e.crossed(combined) {
		if err := e.broadcast(ctx, combined); err != nil {
			return err
		}
	}

	if w := e.assigner.Assign(ev.EventTime()); w.ClosedBy(e.lastBroadcast.UnixMilli()) {
		e.stats.late.Inc()
		metrics.DroppedEventsCount.WithLabelValues(ev.Stream.String(), metrics.ReasonLate).Inc()
		e.opts.logger.Warnw("Dropping late event", zap.String("event", ev.String()), zap.String("window", w.String()),
			zap.String("watermark", e.lastBroadcast.String()))
		return nil
	}
	return e.send(ctx, e.partitions[e.shuffle.Partition(ev.ImpressionID())], message{event: &ev})
}

func validate(ev events.Event) error {
	switch {
	case ev.Stream == events.StreamImpressions && ev.Impression != nil && ev.Click == nil:
		return nil
	case ev.Stream == events.StreamClicks && ev.Click != nil && ev.Impression == nil:
		return nil
	default:
		return fmt.Errorf("%w: event of stream %q does not carry exactly its own payload", events.ErrMalformedEvent, ev.Stream)
	}
}

// crossed reports whether a window end lies in (lastBroadcast, combined].
func (e *Engine) crossed(combined watermark.Watermark) bool {
	if combined == watermark.InitialWatermark || !combined.After(e.lastBroadcast) {
		return false
	}
	return e.assigner.Assign(combined.UnixMilli()).Start > e.lastBroadcast.UnixMilli()
}

func (e *Engine) broadcast(ctx context.Context, wm watermark.Watermark) error {
	for _, p := range e.partitions {
		if err := e.send(ctx, p, message{watermark: wm}); err != nil {
			return err
		}
	}
	e.opts.logger.Debugw("Broadcast watermark", zap.String("watermark", wm.String()))
	e.lastBroadcast = wm
	return nil
}

func (e *Engine) send(ctx context.Context, p *partition, m message) error {
	select {
	case p.input <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrStopped
	}
}

// Flush blocks until every event ingested before the call has been applied and the records of the windows it
// finalized have been forwarded to the sink. Open windows stay open.
func (e *Engine) Flush(ctx context.Context) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	barrier := make(chan struct{})
	for _, p := range e.partitions {
		if err := e.send(ctx, p, message{barrier: barrier}); err != nil {
			return err
		}
	}
	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrStopped
	}
}

// Watermark returns the last watermark broadcast to the partitions, every window ending at or before it is closed.
func (e *Engine) Watermark() watermark.Watermark {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.lastBroadcast
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Ingested:             e.stats.ingested.Load(),
		Late:                 e.stats.late.Load(),
		Malformed:            e.stats.malformed.Load(),
		DuplicateImpressions: e.stats.duplicateImpressions.Load(),
		MatchedClicks:        e.stats.matchedClicks.Load(),
		DuplicateClicks:      e.stats.duplicateClicks.Load(),
		UnknownClicks:        e.stats.unknownClicks.Load(),
		ExpiredClicks:        e.stats.expiredClicks.Load(),
		ClosedWindows:        e.stats.closedWindows.Load(),
		Emitted:              e.stats.emitted.Load(),
		Stalls:               e.stats.stalls.Load(),
	}
}
