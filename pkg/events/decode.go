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
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/goccy/go-json"
)

type impressionPayload struct {
	ImpressionID   string          `json:"impression_id"`
	UserID         string          `json:"user_id"`
	CampaignID     string          `json:"campaign_id"`
	AdID           string          `json:"ad_id"`
	DeviceType     string          `json:"device_type"`
	Browser        string          `json:"browser"`
	EventTimestamp json.RawMessage `json:"event_timestamp"`
	Cost           float64         `json:"cost"`
}

type clickPayload struct {
	ClickID        string          `json:"click_id"`
	ImpressionID   string          `json:"impression_id"`
	UserID         string          `json:"user_id"`
	EventTimestamp json.RawMessage `json:"event_timestamp"`
}

// Decode parses the JSON payload read from the given stream. Every failure wraps ErrMalformedEvent.
func Decode(stream Stream, payload []byte) (Event, error) {
	switch stream {
	case StreamImpressions:
		imp, err := DecodeImpression(payload)
		if err != nil {
			return Event{}, err
		}
		return NewImpressionEvent(imp), nil
	case StreamClicks:
		click, err := DecodeClick(payload)
		if err != nil {
			return Event{}, err
		}
		return NewClickEvent(click), nil
	default:
		return Event{}, fmt.Errorf("%w: unknown stream %q", ErrMalformedEvent, stream)
	}
}

// DecodeImpression parses an impression, impression_id, user_id, campaign_id, device_type and event_timestamp are
// required.
func DecodeImpression(payload []byte) (Impression, error) {
	var p impressionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Impression{}, fmt.Errorf("%w: %s", ErrMalformedEvent, err)
	}
	switch {
	case p.ImpressionID == "":
		return Impression{}, fmt.Errorf("%w: missing impression_id", ErrMalformedEvent)
	case p.UserID == "":
		return Impression{}, fmt.Errorf("%w: missing user_id", ErrMalformedEvent)
	case p.CampaignID == "":
		return Impression{}, fmt.Errorf("%w: missing campaign_id", ErrMalformedEvent)
	case p.DeviceType == "":
		return Impression{}, fmt.Errorf("%w: missing device_type", ErrMalformedEvent)
	}
	ts, err := ParseTimestamp(p.EventTimestamp)
	if err != nil {
		return Impression{}, err
	}
	return Impression{
		ImpressionID: p.ImpressionID,
		UserID:       p.UserID,
		CampaignID:   p.CampaignID,
		AdID:         p.AdID,
		DeviceType:   p.DeviceType,
		Browser:      p.Browser,
		EventTime:    ts,
		Cost:         p.Cost,
	}, nil
}

// DecodeClick parses a click, impression_id and event_timestamp are required.
func DecodeClick(payload []byte) (Click, error) {
	var p clickPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Click{}, fmt.Errorf("%w: %s", ErrMalformedEvent, err)
	}
	if p.ImpressionID == "" {
		return Click{}, fmt.Errorf("%w: missing impression_id", ErrMalformedEvent)
	}
	ts, err := ParseTimestamp(p.EventTimestamp)
	if err != nil {
		return Click{}, err
	}
	return Click{
		ClickID:      p.ClickID,
		ImpressionID: p.ImpressionID,
		UserID:       p.UserID,
		EventTime:    ts,
	}, nil
}

// ParseTimestamp converts a raw event_timestamp into epoch milliseconds. It accepts a JSON number of epoch
// milliseconds, or a string holding either epoch milliseconds or a date such as an ISO-8601 instant. Dates without a
// zone are read as UTC.
func ParseTimestamp(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("%w: missing event_timestamp", ErrMalformedEvent)
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("%w: event_timestamp, %s", ErrMalformedEvent, err)
		}
		s = strings.TrimSpace(s)
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return ms, nil
		}
		t, err := dateparse.ParseIn(s, time.UTC)
		if err != nil {
			return 0, fmt.Errorf("%w: event_timestamp %q, %s", ErrMalformedEvent, s, err)
		}
		return t.UnixMilli(), nil
	}
	if ms, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
		return ms, nil
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: event_timestamp %s is not a number", ErrMalformedEvent, raw)
	}
	return int64(math.Floor(f)), nil
}

// Encode returns the JSON encoding of an impression or a click, used by the producers of test and demo data.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}
