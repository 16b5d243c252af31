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

package window

import (
	"fmt"
	"time"
)

// Window is the [Start, End) event time interval, in epoch milliseconds.
type Window struct {
	Start int64
	End   int64
}

func (w Window) String() string {
	return fmt.Sprintf("%d-%d", w.Start, w.End)
}

// Contains reports whether the event time falls in the window.
func (w Window) Contains(eventTime int64) bool {
	return eventTime >= w.Start && eventTime < w.End
}

// ClosedBy reports whether the watermark has reached the end of the window.
func (w Window) ClosedBy(wm int64) bool {
	return w.End <= wm
}

// Fixed assigns fixed size tumbling windows.
type Fixed struct {
	// Length is the length of the window in milliseconds.
	Length int64
}

// NewFixed returns a Fixed assigner, length is truncated to milliseconds.
func NewFixed(length time.Duration) *Fixed {
	return &Fixed{Length: length.Milliseconds()}
}

// Assign returns the window the event time belongs to.
func (f *Fixed) Assign(eventTime int64) Window {
	start := eventTime - eventTime%f.Length
	// floor for the negative event times, where % rounds toward zero
	if eventTime%f.Length < 0 {
		start -= f.Length
	}
	return Window{Start: start, End: start + f.Length}
}
