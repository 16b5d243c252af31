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

// Package aggregate maintains the incremental per window aggregates of a partition: the impression and matched click
// counts of every campaign, and the impression count and distinct users of every device type.
package aggregate

import (
	"time"

	"github.com/numaproj/adclick/pkg/events"
	"github.com/numaproj/adclick/pkg/join"
	"github.com/numaproj/adclick/pkg/state"
	"github.com/numaproj/adclick/pkg/window"
)

// Aggregator is the aggregation engine of one partition. It is driven by a single goroutine.
type Aggregator struct {
	assigner  *window.Fixed
	campaigns *state.Store[string, *CampaignWindowState]
	devices   *state.Store[string, *DeviceWindowState]
	buffer    *join.Buffer
}

// NewAggregator returns an aggregator of windows of the given size.
func NewAggregator(windowSize time.Duration, expiredCacheSize int) (*Aggregator, error) {
	buffer, err := join.NewBuffer(expiredCacheSize)
	if err != nil {
		return nil, err
	}
	return &Aggregator{
		assigner:  window.NewFixed(windowSize),
		campaigns: state.NewStore[string, *CampaignWindowState](newCampaignWindowState),
		devices:   state.NewStore[string, *DeviceWindowState](newDeviceWindowState),
		buffer:    buffer,
	}, nil
}

// OnImpression counts the impression in its campaign and device window and buffers it for the join. A re-delivered
// impression id is ignored and false is returned.
func (a *Aggregator) OnImpression(imp events.Impression) bool {
	w := a.assigner.Assign(imp.EventTime)
	if !a.buffer.Put(imp.ImpressionID, join.PendingImpression{CampaignID: imp.CampaignID, Window: w}) {
		return false
	}
	a.campaigns.Update(w, imp.CampaignID, func(s *CampaignWindowState) *CampaignWindowState {
		s.ImpressionCount++
		return s
	})
	a.devices.Update(w, imp.DeviceType, func(s *DeviceWindowState) *DeviceWindowState {
		s.ImpressionCount++
		s.Users.Add(imp.UserID)
		return s
	})
	return true
}

// OnClick joins the click against the buffered impressions. The click is accounted in the window of its impression.
func (a *Aggregator) OnClick(click events.Click) join.MatchResult {
	p, result := a.buffer.Match(click.ImpressionID)
	if result == join.Matched {
		a.campaigns.Update(p.Window, p.CampaignID, func(s *CampaignWindowState) *CampaignWindowState {
			s.MatchedClickCount++
			return s
		})
	}
	return result
}

// Close releases every window closed by the watermark and returns their partials in ascending window order.
func (a *Aggregator) Close(wm int64) []*Partial {
	campaigns := a.campaigns.RemoveWindows(wm)
	devices := a.devices.RemoveWindows(wm)
	a.buffer.Evict(wm)

	partials := make(map[window.Window]*Partial, len(campaigns))
	result := make([]*Partial, 0, len(campaigns))
	for _, c := range campaigns {
		p := NewPartial(c.Window)
		p.Campaigns = c.Entries
		partials[c.Window] = p
		result = append(result, p)
	}
	for _, d := range devices {
		p, ok := partials[d.Window]
		if !ok {
			p = NewPartial(d.Window)
			result = append(result, p)
		}
		p.Devices = d.Entries
	}
	return result
}

// OpenWindows returns the number of windows holding state.
func (a *Aggregator) OpenWindows() int {
	return len(a.campaigns.Windows())
}

// Pending returns the number of impressions buffered for the join.
func (a *Aggregator) Pending() int {
	return a.buffer.Len()
}
