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

package watermark

import (
	"math"
	"sync"
	"time"

	"github.com/numaproj/adclick/pkg/events"
)

type streamProgress struct {
	maxSeen     int64
	watermark   Watermark
	lastAdvance time.Time
}

// Tracker keeps the watermark of every input stream. It is safe for concurrent use, but observing is expected to be
// done by a single goroutine to keep the watermark progression deterministic.
type Tracker struct {
	lateness int64
	clock    func() time.Time
	streams  map[events.Stream]*streamProgress
	lock     sync.RWMutex
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithClock sets the wall clock used to record when a watermark last advanced.
func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) {
		t.clock = clock
	}
}

// NewTracker returns a tracker of the impressions and the clicks streams with the given allowed lateness.
func NewTracker(lateness time.Duration, opts ...Option) *Tracker {
	t := &Tracker{
		lateness: lateness.Milliseconds(),
		clock:    time.Now,
		streams:  make(map[events.Stream]*streamProgress, len(events.Streams)),
	}
	for _, opt := range opts {
		opt(t)
	}
	now := t.clock()
	for _, s := range events.Streams {
		t.streams[s] = &streamProgress{maxSeen: math.MinInt64, watermark: InitialWatermark, lastAdvance: now}
	}
	return t
}

// Observe records the event time seen on the stream and returns the stream watermark, which never regresses.
func (t *Tracker) Observe(stream events.Stream, eventTime int64) Watermark {
	t.lock.Lock()
	defer t.lock.Unlock()

	p, ok := t.streams[stream]
	if !ok {
		return InitialWatermark
	}
	if eventTime > p.maxSeen {
		p.maxSeen = eventTime
		p.watermark = FromEventTime(eventTime, t.lateness)
		p.lastAdvance = t.clock()
	}
	return p.watermark
}

// Combined returns the minimum of the stream watermarks.
func (t *Tracker) Combined() Watermark {
	t.lock.RLock()
	defer t.lock.RUnlock()

	combined := Watermark(math.MaxInt64)
	for _, p := range t.streams {
		combined = Min(combined, p.watermark)
	}
	return combined
}

// Stream returns the watermark of a single stream.
func (t *Tracker) Stream(stream events.Stream) Watermark {
	t.lock.RLock()
	defer t.lock.RUnlock()

	if p, ok := t.streams[stream]; ok {
		return p.watermark
	}
	return InitialWatermark
}

// LastAdvance returns the wall clock time the stream watermark last moved, or the creation time of the tracker if it
// never did.
func (t *Tracker) LastAdvance(stream events.Stream) time.Time {
	t.lock.RLock()
	defer t.lock.RUnlock()

	if p, ok := t.streams[stream]; ok {
		return p.lastAdvance
	}
	return time.Time{}
}

// Staleness returns how long the stream watermark has not advanced.
func (t *Tracker) Staleness(stream events.Stream) time.Duration {
	return t.clock().Sub(t.LastAdvance(stream))
}
