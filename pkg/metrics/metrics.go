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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "adclick"

	LabelVersion   = "version"
	LabelPlatform  = "platform"
	LabelStream    = "stream"
	LabelReason    = "reason"
	LabelSink      = "sink"
	LabelPartition = "partition"
	LabelKind      = "kind"
)

// Drop and unmatched reasons.
const (
	ReasonLate                = "late"
	ReasonDuplicateImpression = "duplicate_impression"
	ReasonDuplicateClick      = "duplicate"
	ReasonUnknown             = "unknown"
	ReasonExpired             = "expired"
)

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "build_info",
		Help:      "A metric with a constant value '1', labeled by the binary version and platform",
	}, []string{LabelVersion, LabelPlatform})
)

// Ingestion metrics
var (
	// EventsReadCount is the number of events accepted by the engine.
	EventsReadCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "events",
		Name:      "read_total",
		Help:      "Total number of events ingested",
	}, []string{LabelStream})

	// MalformedEventsCount is the number of payloads that could not be decoded into an event.
	MalformedEventsCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "events",
		Name:      "malformed_total",
		Help:      "Total number of malformed events skipped",
	}, []string{LabelStream})

	// DroppedEventsCount is the number of events dropped, late events or re-delivered impressions.
	DroppedEventsCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "events",
		Name:      "dropped_total",
		Help:      "Total number of events dropped",
	}, []string{LabelStream, LabelReason})
)

// Join metrics
var (
	// MatchedClicksCount is the number of clicks joined to their impression.
	MatchedClicksCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "join",
		Name:      "matched_clicks_total",
		Help:      "Total number of clicks matched to a buffered impression",
	})

	// UnmatchedClicksCount is the number of clicks that did not contribute to a CTR, by reason.
	UnmatchedClicksCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "join",
		Name:      "unmatched_clicks_total",
		Help:      "Total number of clicks without a matching impression",
	}, []string{LabelReason})

	// PendingImpressions is the number of impressions buffered for the join.
	PendingImpressions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: "join",
		Name:      "pending_impressions",
		Help:      "Number of impressions buffered for the join",
	}, []string{LabelPartition})
)

// Watermark and window metrics
var (
	// StreamWatermark is the watermark of a stream in epoch milliseconds.
	StreamWatermark = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: "watermark",
		Name:      "stream_ms",
		Help:      "Watermark of the input stream in epoch milliseconds",
	}, []string{LabelStream})

	// WatermarkStaleness is the time since the watermark of a stream last advanced.
	WatermarkStaleness = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: "watermark",
		Name:      "staleness_seconds",
		Help:      "Seconds since the watermark of the input stream last advanced",
	}, []string{LabelStream})

	// OpenWindows is the number of windows holding state in a partition.
	OpenWindows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: "window",
		Name:      "open",
		Help:      "Number of windows holding state",
	}, []string{LabelPartition})

	// ClosedWindowsCount is the number of finalized windows.
	ClosedWindowsCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "window",
		Name:      "closed_total",
		Help:      "Total number of windows finalized and emitted",
	})

	// EmittedResultsCount is the number of result records emitted, by kind.
	EmittedResultsCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "window",
		Name:      "emitted_results_total",
		Help:      "Total number of result records emitted",
	}, []string{LabelKind})
)

// Sink metrics
var (
	// SinkWriteCount is the number of records written to a sink.
	SinkWriteCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "sink",
		Name:      "write_total",
		Help:      "Total number of records written to the sink",
	}, []string{LabelSink})

	// SinkWriteErrorCount is the number of failed record writes, retried or not.
	SinkWriteErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "sink",
		Name:      "write_error_total",
		Help:      "Total number of record write errors",
	}, []string{LabelSink})

	// SinkDropCount is the number of records given up on after the retries were exhausted.
	SinkDropCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "sink",
		Name:      "drop_total",
		Help:      "Total number of records dropped after the retries were exhausted",
	}, []string{LabelSink})

	// SinkWriteProcessingTime is a histogram to observe the sink write latency.
	SinkWriteProcessingTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: "sink",
		Name:      "write_processing_time",
		Help:      "Processing times of sink writes (100 microseconds to 20 minutes)",
		Buckets:   prometheus.ExponentialBucketsRange(100, 60000000*20, 10),
	}, []string{LabelSink})
)
