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
	"strconv"

	"go.uber.org/zap"

	"github.com/numaproj/adclick/pkg/aggregate"
	"github.com/numaproj/adclick/pkg/emitter"
	"github.com/numaproj/adclick/pkg/events"
	"github.com/numaproj/adclick/pkg/join"
	"github.com/numaproj/adclick/pkg/metrics"
	"github.com/numaproj/adclick/pkg/watermark"
)

// message is what a partition worker reads, in order: an event, a watermark or a flush barrier.
type message struct {
	event     *events.Event
	watermark watermark.Watermark
	barrier   chan struct{}
}

// report is a partition report handed to the emit loop. A report carrying a barrier is acknowledged once every
// report before it has been emitted.
type report struct {
	emitter.Report
	barrier chan struct{}
}

// partition owns the state of the keys routed to it. Only its worker goroutine touches the aggregator.
type partition struct {
	index      int
	label      string
	aggregator *aggregate.Aggregator
	input      chan message
}

func newPartition(index int, agg *aggregate.Aggregator, bufferSize int) *partition {
	return &partition{
		index:      index,
		label:      strconv.Itoa(index),
		aggregator: agg,
		input:      make(chan message, bufferSize),
	}
}

// runPartition processes the messages of a partition until ctx is done, the state left is discarded.
func (e *Engine) runPartition(ctx context.Context, p *partition) error {
	log := e.opts.logger.With("partition", p.index)
	log.Info("Starting partition worker")
	defer log.Info("Partition worker stopped")
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-p.input:
			switch {
			case m.event != nil:
				e.apply(p, m.event, log)
			case m.barrier != nil:
				if err := e.sendReport(ctx, report{Report: emitter.Report{Partition: p.index, Watermark: watermark.InitialWatermark}, barrier: m.barrier}); err != nil {
					return nil
				}
			default:
				partials := p.aggregator.Close(m.watermark.UnixMilli())
				metrics.OpenWindows.WithLabelValues(p.label).Set(float64(p.aggregator.OpenWindows()))
				metrics.PendingImpressions.WithLabelValues(p.label).Set(float64(p.aggregator.Pending()))
				if len(partials) > 0 {
					log.Debugw("Closed windows", zap.Int("windows", len(partials)), zap.String("watermark", m.watermark.String()))
				}
				if err := e.sendReport(ctx, report{Report: emitter.Report{Partition: p.index, Watermark: m.watermark, Partials: partials}}); err != nil {
					return nil
				}
			}
		}
	}
}

func (e *Engine) apply(p *partition, ev *events.Event, log *zap.SugaredLogger) {
	switch ev.Stream {
	case events.StreamImpressions:
		if !p.aggregator.OnImpression(*ev.Impression) {
			e.stats.duplicateImpressions.Inc()
			metrics.DroppedEventsCount.WithLabelValues(events.StreamImpressions.String(), metrics.ReasonDuplicateImpression).Inc()
			log.Debugw("Duplicate impression", zap.String("impressionID", ev.Impression.ImpressionID))
			return
		}
		metrics.PendingImpressions.WithLabelValues(p.label).Set(float64(p.aggregator.Pending()))
	case events.StreamClicks:
		switch result := p.aggregator.OnClick(*ev.Click); result {
		case join.Matched:
			e.stats.matchedClicks.Inc()
			metrics.MatchedClicksCount.Inc()
		case join.Duplicate:
			e.stats.duplicateClicks.Inc()
			metrics.UnmatchedClicksCount.WithLabelValues(metrics.ReasonDuplicateClick).Inc()
		case join.Unknown:
			e.stats.unknownClicks.Inc()
			metrics.UnmatchedClicksCount.WithLabelValues(metrics.ReasonUnknown).Inc()
			log.Debugw("Click of an unknown impression", zap.String("clickID", ev.Click.ClickID), zap.String("impressionID", ev.Click.ImpressionID))
		case join.Expired:
			e.stats.expiredClicks.Inc()
			metrics.UnmatchedClicksCount.WithLabelValues(metrics.ReasonExpired).Inc()
			log.Debugw("Click of an impression whose window is closed", zap.String("clickID", ev.Click.ClickID), zap.String("impressionID", ev.Click.ImpressionID))
		}
	}
}

func (e *Engine) sendReport(ctx context.Context, r report) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case e.reports <- r:
		return nil
	}
}
