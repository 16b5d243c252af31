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

// Package watermark tracks the event time progress of the input streams.
//
// The watermark of a stream is the maximum event time seen on it minus the allowed lateness, it asserts that no event
// older than the watermark is expected anymore. The combined watermark is the minimum of the stream watermarks, so
// windows advance only as fast as the slower stream and a click is never joined against a window that may still be
// missing its impressions.
package watermark

import (
	"math"
	"time"
)

// Watermark is a monotonically increasing event time in epoch milliseconds.
type Watermark int64

// InitialWatermark is the watermark of a stream that has not seen any event yet.
const InitialWatermark = Watermark(math.MinInt64)

func (w Watermark) String() string {
	if w == InitialWatermark {
		return "-inf"
	}
	return time.UnixMilli(int64(w)).UTC().Format(time.RFC3339Nano)
}

func (w Watermark) UnixMilli() int64 {
	return int64(w)
}

func (w Watermark) After(compare Watermark) bool {
	return w > compare
}

// Min returns the smaller of the watermarks.
func Min(a, b Watermark) Watermark {
	if a < b {
		return a
	}
	return b
}

// FromEventTime returns the watermark derived from the max event time seen and the allowed lateness.
func FromEventTime(maxSeen int64, lateness int64) Watermark {
	if maxSeen < math.MinInt64+lateness {
		return InitialWatermark
	}
	return Watermark(maxSeen - lateness)
}
