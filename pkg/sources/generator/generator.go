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

// Package generator produces synthetic impressions and clicks for local runs and load tests.
//
// Every tick emits RPU impressions whose event time lags the wall clock by up to OutOfOrder. Each impression is
// clicked with probability ClickRatio, the click carries an event time up to ClickDelay after its impression and is
// emitted by the first later tick at or after that time.
package generator

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/numaproj/adclick/pkg/config"
	"github.com/numaproj/adclick/pkg/events"
	"github.com/numaproj/adclick/pkg/shared/logging"
	"github.com/numaproj/adclick/pkg/sources/sourcer"
)

var browsers = []string{"chrome", "firefox", "safari", "edge"}

type message struct {
	stream  events.Stream
	payload []byte
}

type Generator struct {
	cfg    config.GeneratorSource
	rnd    *rand.Rand
	clock  func() time.Time
	logger *zap.SugaredLogger
	// clicks waiting for their event time, ascending by event time
	pending []events.Click
}

type Option func(*Generator) error

// WithLogger is used to return logger information
func WithLogger(l *zap.SugaredLogger) Option {
	return func(g *Generator) error {
		g.logger = l
		return nil
	}
}

// WithClock replaces the wall clock the event times are derived from.
func WithClock(clock func() time.Time) Option {
	return func(g *Generator) error {
		g.clock = clock
		return nil
	}
}

// NewGenerator returns a generator, a zero Seed seeds it from the wall clock.
func NewGenerator(cfg config.GeneratorSource, opts ...Option) (*Generator, error) {
	if cfg.RPU <= 0 || cfg.Duration <= 0 {
		return nil, fmt.Errorf("generator requires a positive rpu and duration")
	}
	if cfg.Campaigns <= 0 || cfg.Devices <= 0 || cfg.Users <= 0 {
		return nil, fmt.Errorf("generator requires positive campaigns, devices and users")
	}
	if cfg.OutOfOrder < 0 || cfg.ClickDelay < 0 {
		return nil, fmt.Errorf("generator requires a non-negative outOfOrder and clickDelay")
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g := &Generator{
		cfg:    cfg,
		rnd:    rand.New(rand.NewSource(seed)),
		clock:  time.Now,
		logger: logging.NewLogger(),
	}
	for _, o := range opts {
		if err := o(g); err != nil {
			return nil, err
		}
	}
	g.logger = g.logger.With("sourceType", "generator")
	return g, nil
}

func (g *Generator) Name() string {
	return "generator"
}

// Start generates on every tick until ctx is canceled.
func (g *Generator) Start(ctx context.Context, h sourcer.Handler) error {
	g.logger.Infow("Starting generator", zap.Int("rpu", g.cfg.RPU), zap.Duration("duration", g.cfg.Duration))
	ticker := time.NewTicker(g.cfg.Duration)
	defer ticker.Stop()
	for {
		for _, m := range g.tick(g.clock()) {
			h(ctx, m.stream, m.payload, 0)
		}
		select {
		case <-ctx.Done():
			g.logger.Info("Generator stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (g *Generator) Close() error {
	return nil
}

// tick returns the clicks due at now followed by the impressions of one tick.
func (g *Generator) tick(now time.Time) []message {
	nowMs := now.UnixMilli()
	msgs := make([]message, 0, g.cfg.RPU)
	due := 0
	for due < len(g.pending) && g.pending[due].EventTime <= nowMs {
		msgs = append(msgs, g.encode(events.StreamClicks, g.pending[due]))
		due++
	}
	g.pending = g.pending[due:]
	for i := 0; i < g.cfg.RPU; i++ {
		imp := g.impression(nowMs)
		msgs = append(msgs, g.encode(events.StreamImpressions, imp))
		if g.rnd.Float64() < g.cfg.ClickRatio {
			g.schedule(events.Click{
				ClickID:      g.newID(),
				ImpressionID: imp.ImpressionID,
				UserID:       imp.UserID,
				EventTime:    imp.EventTime + g.rnd.Int63n(g.cfg.ClickDelay.Milliseconds()+1),
			})
		}
	}
	return msgs
}

func (g *Generator) impression(nowMs int64) events.Impression {
	return events.Impression{
		ImpressionID: g.newID(),
		UserID:       fmt.Sprintf("user-%d", g.rnd.Intn(g.cfg.Users)),
		CampaignID:   fmt.Sprintf("campaign-%d", g.rnd.Intn(g.cfg.Campaigns)),
		AdID:         fmt.Sprintf("ad-%d", g.rnd.Intn(10)),
		DeviceType:   fmt.Sprintf("device-%d", g.rnd.Intn(g.cfg.Devices)),
		Browser:      browsers[g.rnd.Intn(len(browsers))],
		EventTime:    nowMs - g.rnd.Int63n(g.cfg.OutOfOrder.Milliseconds()+1),
		Cost:         float64(g.rnd.Intn(100)) / 100,
	}
}

// newID draws the id from the seeded source, runs with the same seed generate the same ids.
func (g *Generator) newID() string {
	id, err := uuid.NewRandomFromReader(g.rnd)
	if err != nil {
		// reading from a math/rand source never fails
		panic(err)
	}
	return id.String()
}

func (g *Generator) schedule(c events.Click) {
	i := sort.Search(len(g.pending), func(i int) bool {
		return g.pending[i].EventTime > c.EventTime
	})
	g.pending = append(g.pending, events.Click{})
	copy(g.pending[i+1:], g.pending[i:])
	g.pending[i] = c
}

func (g *Generator) encode(stream events.Stream, v any) message {
	payload, err := events.Encode(v)
	if err != nil {
		// the event types always encode
		panic(err)
	}
	return message{stream: stream, payload: payload}
}
