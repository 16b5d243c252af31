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

// Package emitter finalizes the windows closed by the watermark and turns their aggregates into result records.
//
// Every partition reports the watermark it has processed along with the partial aggregates of the windows that
// watermark closed. A window is finalized once every partition has reported a watermark at or past its end: the
// partials of all the partitions are merged, the records are produced and the window is released. Windows at or
// before the finalized horizon can never reopen.
package emitter

import (
	"fmt"
	"sort"

	"github.com/numaproj/adclick/pkg/aggregate"
	"github.com/numaproj/adclick/pkg/events"
	"github.com/numaproj/adclick/pkg/watermark"
	"github.com/numaproj/adclick/pkg/window"
)

// Report is the progress of a partition.
type Report struct {
	Partition int
	Watermark watermark.Watermark
	Partials  []*aggregate.Partial
}

// Emitter merges the partition reports. It is driven by a single goroutine.
type Emitter struct {
	watermarks []watermark.Watermark
	pending    map[window.Window]*aggregate.Partial
	order      *window.SortedList
	horizon    watermark.Watermark
}

// NewEmitter returns an emitter expecting reports of the given number of partitions.
func NewEmitter(partitions int) *Emitter {
	watermarks := make([]watermark.Watermark, partitions)
	for i := range watermarks {
		watermarks[i] = watermark.InitialWatermark
	}
	return &Emitter{
		watermarks: watermarks,
		pending:    make(map[window.Window]*aggregate.Partial),
		order:      window.NewSortedList(),
		horizon:    watermark.InitialWatermark,
	}
}

// Report records the progress of a partition and returns the records of every window it completed, in ascending
// window order.
func (e *Emitter) Report(r Report) ([]events.Result, error) {
	if r.Partition < 0 || r.Partition >= len(e.watermarks) {
		return nil, fmt.Errorf("report of unknown partition %d", r.Partition)
	}
	if r.Watermark.After(e.watermarks[r.Partition]) {
		e.watermarks[r.Partition] = r.Watermark
	}
	for _, p := range r.Partials {
		if p.Window.ClosedBy(e.horizon.UnixMilli()) {
			return nil, fmt.Errorf("partition %d reported window %s behind the emitted horizon %s", r.Partition, p.Window, e.horizon)
		}
		merged, ok := e.pending[p.Window]
		if !ok {
			merged = aggregate.NewPartial(p.Window)
			e.pending[p.Window] = merged
			e.order.InsertIfNotPresent(p.Window)
		}
		merged.Merge(p)
	}

	low := e.watermarks[0]
	for _, wm := range e.watermarks[1:] {
		low = watermark.Min(low, wm)
	}
	if !low.After(e.horizon) {
		return nil, nil
	}
	e.horizon = low

	var results []events.Result
	for _, w := range e.order.RemoveWindows(low.UnixMilli()) {
		results = append(results, Finalize(e.pending[w])...)
		delete(e.pending, w)
	}
	return results, nil
}

// Horizon returns the watermark up to which every window has been finalized.
func (e *Emitter) Horizon() watermark.Watermark {
	return e.horizon
}

// Pending returns the number of windows waiting on a partition.
func (e *Emitter) Pending() int {
	return e.order.Len()
}

// Finalize builds the records of a merged window: the CTR of every campaign sorted by campaign id, then the
// engagement of every device type sorted by device type. Keys without impressions produce no record.
func Finalize(p *aggregate.Partial) []events.Result {
	campaigns := make([]string, 0, len(p.Campaigns))
	for id, c := range p.Campaigns {
		if c.ImpressionCount > 0 {
			campaigns = append(campaigns, id)
		}
	}
	sort.Strings(campaigns)
	devices := make([]string, 0, len(p.Devices))
	for device, d := range p.Devices {
		if d.ImpressionCount > 0 {
			devices = append(devices, device)
		}
	}
	sort.Strings(devices)

	results := make([]events.Result, 0, len(campaigns)+len(devices))
	for _, id := range campaigns {
		results = append(results, events.CtrResult{
			WindowStart: p.Window.Start,
			CampaignID:  id,
			Ctr:         p.Campaigns[id].Ctr(),
		})
	}
	for _, device := range devices {
		d := p.Devices[device]
		results = append(results, events.EngagementResult{
			WindowStart:     p.Window.Start,
			DeviceType:      device,
			ImpressionCount: d.ImpressionCount,
			UniqueUserCount: int64(d.Users.Len()),
		})
	}
	return results
}
