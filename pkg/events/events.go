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

// Package events defines the input events, impressions and clicks, their JSON wire format and the result records
// produced for every finalized window.
package events

import (
	"errors"
	"fmt"
)

// Stream identifies one of the two input streams.
type Stream string

const (
	StreamImpressions Stream = "impressions"
	StreamClicks      Stream = "clicks"
)

// Streams lists the input streams in a stable order.
var Streams = []Stream{StreamImpressions, StreamClicks}

func (s Stream) String() string {
	return string(s)
}

// Valid reports whether s is a known stream.
func (s Stream) Valid() bool {
	return s == StreamImpressions || s == StreamClicks
}

// ErrMalformedEvent is returned for a payload that cannot be parsed into an event or misses a required field.
var ErrMalformedEvent = errors.New("malformed event")

// Impression is an ad served to a user. EventTime is in epoch milliseconds.
type Impression struct {
	ImpressionID string  `json:"impression_id"`
	UserID       string  `json:"user_id"`
	CampaignID   string  `json:"campaign_id"`
	AdID         string  `json:"ad_id"`
	DeviceType   string  `json:"device_type"`
	Browser      string  `json:"browser"`
	EventTime    int64   `json:"event_timestamp"`
	Cost         float64 `json:"cost"`
}

// Click is a click on a served ad, correlated to its impression by ImpressionID.
type Click struct {
	ClickID      string `json:"click_id"`
	ImpressionID string `json:"impression_id"`
	UserID       string `json:"user_id"`
	EventTime    int64  `json:"event_timestamp"`
}

// Event is either an impression or a click, as read from a partition of its stream.
type Event struct {
	Stream     Stream
	Impression *Impression
	Click      *Click
	// Partition is the transport partition the event was read from, if any.
	Partition int32
}

// NewImpressionEvent wraps an impression.
func NewImpressionEvent(imp Impression) Event {
	return Event{Stream: StreamImpressions, Impression: &imp}
}

// NewClickEvent wraps a click.
func NewClickEvent(click Click) Event {
	return Event{Stream: StreamClicks, Click: &click}
}

// EventTime returns the event time of the event in epoch milliseconds.
func (e Event) EventTime() int64 {
	if e.Click != nil {
		return e.Click.EventTime
	}
	return e.Impression.EventTime
}

// ImpressionID returns the correlation id of the event.
func (e Event) ImpressionID() string {
	if e.Click != nil {
		return e.Click.ImpressionID
	}
	return e.Impression.ImpressionID
}

func (e Event) String() string {
	if e.Click != nil {
		return fmt.Sprintf("click(id=%s, impression=%s, t=%d)", e.Click.ClickID, e.Click.ImpressionID, e.Click.EventTime)
	}
	return fmt.Sprintf("impression(id=%s, campaign=%s, device=%s, t=%d)", e.Impression.ImpressionID,
		e.Impression.CampaignID, e.Impression.DeviceType, e.Impression.EventTime)
}
