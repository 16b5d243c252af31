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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numaproj/adclick/pkg/events"
	"github.com/numaproj/adclick/pkg/join"
	"github.com/numaproj/adclick/pkg/window"
)

func impression(id, campaign, device, user string, t int64) events.Impression {
	return events.Impression{ImpressionID: id, CampaignID: campaign, DeviceType: device, UserID: user, EventTime: t}
}

func click(impressionID string, t int64) events.Click {
	return events.Click{ClickID: "c-" + impressionID, ImpressionID: impressionID, EventTime: t}
}

func newAggregator(t *testing.T) *Aggregator {
	a, err := NewAggregator(time.Minute, 100)
	require.NoError(t, err)
	return a
}

func TestAggregator_Ctr(t *testing.T) {
	a := newAggregator(t)
	assert.True(t, a.OnImpression(impression("i-1", "C1", "mobile", "u-1", 0)))
	assert.True(t, a.OnImpression(impression("i-2", "C1", "mobile", "u-2", 10000)))
	assert.True(t, a.OnImpression(impression("i-3", "C1", "desktop", "u-1", 20000)))
	assert.Equal(t, join.Matched, a.OnClick(click("i-1", 15000)))
	assert.Equal(t, join.Matched, a.OnClick(click("i-2", 25000)))
	assert.Equal(t, 3, a.Pending())

	partials := a.Close(60000)
	require.Len(t, partials, 1)
	p := partials[0]
	assert.Equal(t, window.Window{Start: 0, End: 60000}, p.Window)
	assert.Equal(t, int64(3), p.Campaigns["C1"].ImpressionCount)
	assert.Equal(t, int64(2), p.Campaigns["C1"].MatchedClickCount)
	assert.InDelta(t, 0.6667, p.Campaigns["C1"].Ctr(), 0.0001)
	assert.Equal(t, int64(2), p.Devices["mobile"].ImpressionCount)
	assert.Equal(t, 2, p.Devices["mobile"].Users.Len())
	assert.Equal(t, 1, p.Devices["desktop"].Users.Len())
	assert.Equal(t, 0, a.Pending())
	assert.Equal(t, 0, a.OpenWindows())
}

func TestAggregator_DuplicateEvents(t *testing.T) {
	a := newAggregator(t)
	assert.True(t, a.OnImpression(impression("i-1", "C1", "tv", "u-1", 1000)))
	assert.False(t, a.OnImpression(impression("i-1", "C1", "tv", "u-1", 1000)))
	assert.Equal(t, join.Matched, a.OnClick(click("i-1", 2000)))
	assert.Equal(t, join.Duplicate, a.OnClick(click("i-1", 3000)))

	p := a.Close(60000)[0]
	assert.Equal(t, int64(1), p.Campaigns["C1"].ImpressionCount)
	assert.Equal(t, int64(1), p.Campaigns["C1"].MatchedClickCount)
	assert.Equal(t, int64(1), p.Devices["tv"].ImpressionCount)
}

func TestAggregator_UnmatchedClicks(t *testing.T) {
	a := newAggregator(t)
	assert.Equal(t, join.Unknown, a.OnClick(click("i-typo", 30000)))
	a.OnImpression(impression("i-1", "C1", "tv", "u-1", 1000))
	a.Close(60000)
	assert.Equal(t, join.Expired, a.OnClick(click("i-1", 65000)))
}

func TestAggregator_ClickUsesImpressionWindow(t *testing.T) {
	a := newAggregator(t)
	a.OnImpression(impression("i-1", "C1", "tv", "u-1", 59900))
	assert.Equal(t, join.Matched, a.OnClick(click("i-1", 61000)))
	assert.Equal(t, 1, a.OpenWindows())

	p := a.Close(60000)
	require.Len(t, p, 1)
	assert.Equal(t, int64(1), p[0].Campaigns["C1"].MatchedClickCount)
}

func TestAggregator_CloseOrder(t *testing.T) {
	a := newAggregator(t)
	a.OnImpression(impression("i-3", "C1", "tv", "u-1", 130000))
	a.OnImpression(impression("i-1", "C1", "tv", "u-1", 10000))
	a.OnImpression(impression("i-2", "C2", "tv", "u-1", 70000))

	partials := a.Close(120000)
	require.Len(t, partials, 2)
	assert.Equal(t, int64(0), partials[0].Window.Start)
	assert.Equal(t, int64(60000), partials[1].Window.Start)
	assert.Contains(t, partials[1].Campaigns, "C2")
	assert.Equal(t, 1, a.OpenWindows())
	assert.Empty(t, a.Close(120000))
}

func TestPartial_Merge(t *testing.T) {
	w := window.Window{Start: 0, End: 60000}
	p1 := NewPartial(w)
	p1.Campaigns["C1"] = &CampaignWindowState{ImpressionCount: 2, MatchedClickCount: 1}
	p1.Devices["mobile"] = &DeviceWindowState{ImpressionCount: 2, Users: UserSet{"u-1": {}, "u-2": {}}}
	p2 := NewPartial(w)
	p2.Campaigns["C1"] = &CampaignWindowState{ImpressionCount: 1, MatchedClickCount: 1}
	p2.Campaigns["C2"] = &CampaignWindowState{ImpressionCount: 4}
	p2.Devices["mobile"] = &DeviceWindowState{ImpressionCount: 1, Users: UserSet{"u-2": {}, "u-3": {}}}

	merged := NewPartial(w)
	merged.Merge(p1)
	merged.Merge(p2)
	assert.Equal(t, int64(3), merged.Campaigns["C1"].ImpressionCount)
	assert.Equal(t, int64(2), merged.Campaigns["C1"].MatchedClickCount)
	assert.Equal(t, int64(4), merged.Campaigns["C2"].ImpressionCount)
	assert.Equal(t, float64(0), merged.Campaigns["C2"].Ctr())
	assert.Equal(t, int64(3), merged.Devices["mobile"].ImpressionCount)
	assert.Equal(t, 3, merged.Devices["mobile"].Users.Len())
	// the merged partials are not aliased
	assert.Equal(t, int64(2), p1.Campaigns["C1"].ImpressionCount)
}

func TestCampaignWindowState_Ctr(t *testing.T) {
	assert.Equal(t, float64(0), (&CampaignWindowState{}).Ctr())
	assert.Equal(t, 0.25, (&CampaignWindowState{ImpressionCount: 4, MatchedClickCount: 1}).Ctr())
}
