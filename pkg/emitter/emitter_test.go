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

package emitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numaproj/adclick/pkg/aggregate"
	"github.com/numaproj/adclick/pkg/events"
	"github.com/numaproj/adclick/pkg/watermark"
	"github.com/numaproj/adclick/pkg/window"
)

var (
	w0 = window.Window{Start: 0, End: 60000}
	w1 = window.Window{Start: 60000, End: 120000}
)

func partial(w window.Window, campaign string, impressions, clicks int64, device string, users ...string) *aggregate.Partial {
	p := aggregate.NewPartial(w)
	p.Campaigns[campaign] = &aggregate.CampaignWindowState{ImpressionCount: impressions, MatchedClickCount: clicks}
	set := make(aggregate.UserSet)
	for _, u := range users {
		set.Add(u)
	}
	p.Devices[device] = &aggregate.DeviceWindowState{ImpressionCount: impressions, Users: set}
	return p
}

func TestEmitter_WaitsForEveryPartition(t *testing.T) {
	e := NewEmitter(2)
	results, err := e.Report(Report{Partition: 0, Watermark: 60000, Partials: []*aggregate.Partial{partial(w0, "C1", 2, 1, "mobile", "u-1", "u-2")}})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 1, e.Pending())
	assert.Equal(t, watermark.InitialWatermark, e.Horizon())

	results, err = e.Report(Report{Partition: 1, Watermark: 60000, Partials: []*aggregate.Partial{partial(w0, "C1", 1, 1, "mobile", "u-2", "u-3")}})
	require.NoError(t, err)
	assert.Equal(t, []events.Result{
		events.CtrResult{WindowStart: 0, CampaignID: "C1", Ctr: 2.0 / 3.0},
		events.EngagementResult{WindowStart: 0, DeviceType: "mobile", ImpressionCount: 3, UniqueUserCount: 3},
	}, results)
	assert.Equal(t, watermark.Watermark(60000), e.Horizon())
	assert.Equal(t, 0, e.Pending())
}

func TestEmitter_AscendingWindows(t *testing.T) {
	e := NewEmitter(1)
	results, err := e.Report(Report{Partition: 0, Watermark: 125000, Partials: []*aggregate.Partial{
		partial(w0, "C2", 1, 0, "tv", "u-1"),
		partial(w1, "C1", 1, 1, "tv", "u-1"),
	}})
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, int64(0), results[0].Window())
	assert.Equal(t, int64(0), results[1].Window())
	assert.Equal(t, int64(60000), results[2].Window())
	assert.Equal(t, events.ResultKindEngagement, results[3].Kind())
}

func TestEmitter_NeverReopens(t *testing.T) {
	e := NewEmitter(1)
	_, err := e.Report(Report{Partition: 0, Watermark: 60000, Partials: []*aggregate.Partial{partial(w0, "C1", 1, 0, "tv", "u-1")}})
	require.NoError(t, err)
	_, err = e.Report(Report{Partition: 0, Watermark: 70000, Partials: []*aggregate.Partial{partial(w0, "C1", 1, 0, "tv", "u-1")}})
	assert.Error(t, err)
	// a watermark going back is ignored
	results, err := e.Report(Report{Partition: 0, Watermark: 1000})
	assert.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, watermark.Watermark(60000), e.Horizon())
}

func TestEmitter_UnknownPartition(t *testing.T) {
	e := NewEmitter(2)
	_, err := e.Report(Report{Partition: 2, Watermark: 1})
	assert.Error(t, err)
}

func TestFinalize(t *testing.T) {
	p := aggregate.NewPartial(w1)
	p.Campaigns["C2"] = &aggregate.CampaignWindowState{ImpressionCount: 4, MatchedClickCount: 1}
	p.Campaigns["C1"] = &aggregate.CampaignWindowState{ImpressionCount: 2}
	p.Campaigns["C0"] = &aggregate.CampaignWindowState{}
	p.Devices["tv"] = &aggregate.DeviceWindowState{ImpressionCount: 1, Users: aggregate.UserSet{"u-1": {}}}
	p.Devices["desktop"] = &aggregate.DeviceWindowState{ImpressionCount: 5, Users: aggregate.UserSet{"u-1": {}, "u-2": {}}}

	assert.Equal(t, []events.Result{
		events.CtrResult{WindowStart: 60000, CampaignID: "C1", Ctr: 0},
		events.CtrResult{WindowStart: 60000, CampaignID: "C2", Ctr: 0.25},
		events.EngagementResult{WindowStart: 60000, DeviceType: "desktop", ImpressionCount: 5, UniqueUserCount: 2},
		events.EngagementResult{WindowStart: 60000, DeviceType: "tv", ImpressionCount: 1, UniqueUserCount: 1},
	}, Finalize(p))
}
