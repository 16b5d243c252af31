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

package aggregate

import (
	"github.com/numaproj/adclick/pkg/window"
)

// UserSet is the exact set of distinct user ids seen for a device type in a window.
type UserSet map[string]struct{}

func (s UserSet) Add(userID string) {
	s[userID] = struct{}{}
}

func (s UserSet) Len() int {
	return len(s)
}

// Merge adds every user of o to s.
func (s UserSet) Merge(o UserSet) {
	for u := range o {
		s[u] = struct{}{}
	}
}

// CampaignWindowState is the state of a campaign in a window. MatchedClickCount never exceeds ImpressionCount.
type CampaignWindowState struct {
	ImpressionCount   int64
	MatchedClickCount int64
}

func newCampaignWindowState() *CampaignWindowState {
	return &CampaignWindowState{}
}

// Ctr returns the ratio of the matched clicks to the impressions, 0 without impressions.
func (s *CampaignWindowState) Ctr() float64 {
	if s.ImpressionCount == 0 {
		return 0
	}
	return float64(s.MatchedClickCount) / float64(s.ImpressionCount)
}

// DeviceWindowState is the state of a device type in a window.
type DeviceWindowState struct {
	ImpressionCount int64
	Users           UserSet
}

func newDeviceWindowState() *DeviceWindowState {
	return &DeviceWindowState{Users: make(UserSet)}
}

// Partial is the state a single partition holds for a closed window. The partials of every partition are merged into
// the final aggregate of the window.
type Partial struct {
	Window    window.Window
	Campaigns map[string]*CampaignWindowState
	Devices   map[string]*DeviceWindowState
}

// NewPartial returns an empty partial of the window.
func NewPartial(w window.Window) *Partial {
	return &Partial{
		Window:    w,
		Campaigns: make(map[string]*CampaignWindowState),
		Devices:   make(map[string]*DeviceWindowState),
	}
}

// Merge adds the counts of o to p and unions the user sets. Both partials must be of the same window.
func (p *Partial) Merge(o *Partial) {
	for id, c := range o.Campaigns {
		cur, ok := p.Campaigns[id]
		if !ok {
			cur = newCampaignWindowState()
			p.Campaigns[id] = cur
		}
		cur.ImpressionCount += c.ImpressionCount
		cur.MatchedClickCount += c.MatchedClickCount
	}
	for device, d := range o.Devices {
		cur, ok := p.Devices[device]
		if !ok {
			cur = newDeviceWindowState()
			p.Devices[device] = cur
		}
		cur.ImpressionCount += d.ImpressionCount
		cur.Users.Merge(d.Users)
	}
}
