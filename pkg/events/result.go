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

package events

import (
	"fmt"

	"github.com/goccy/go-json"
)

// ResultKind identifies the output stream a result is written to.
type ResultKind string

const (
	ResultKindCtr        ResultKind = "campaign-ctr"
	ResultKindEngagement ResultKind = "device-engagement"
)

// Result is a record emitted once per finalized window and key.
type Result interface {
	Kind() ResultKind
	// Key is the grouping key of the record, the campaign id or the device type.
	Key() string
	// Window returns the start of the window in epoch milliseconds.
	Window() int64
}

// CtrResult is the click-through rate of a campaign in a window.
type CtrResult struct {
	WindowStart int64   `json:"window_start"`
	CampaignID  string  `json:"campaign_id"`
	Ctr         float64 `json:"ctr"`
}

func (r CtrResult) Kind() ResultKind { return ResultKindCtr }
func (r CtrResult) Key() string      { return r.CampaignID }
func (r CtrResult) Window() int64    { return r.WindowStart }

func (r CtrResult) String() string {
	return fmt.Sprintf("CtrResult{window_start=%d, campaign_id=%s, ctr=%.4f}", r.WindowStart, r.CampaignID, r.Ctr)
}

// EngagementResult is the impression count and the number of distinct users of a device type in a window.
type EngagementResult struct {
	WindowStart     int64  `json:"window_start"`
	DeviceType      string `json:"device_type"`
	ImpressionCount int64  `json:"impression_count"`
	UniqueUserCount int64  `json:"unique_user_count"`
}

func (r EngagementResult) Kind() ResultKind { return ResultKindEngagement }
func (r EngagementResult) Key() string      { return r.DeviceType }
func (r EngagementResult) Window() int64    { return r.WindowStart }

func (r EngagementResult) String() string {
	return fmt.Sprintf("EngagementResult{window_start=%d, device_type=%s, impression_count=%d, unique_user_count=%d}",
		r.WindowStart, r.DeviceType, r.ImpressionCount, r.UniqueUserCount)
}

// EncodeResult returns the JSON payload of a result.
func EncodeResult(r Result) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s result, %w", r.Kind(), err)
	}
	return b, nil
}
