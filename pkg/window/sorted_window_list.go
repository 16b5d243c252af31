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
	"sort"
	"sync"
)

// SortedList is a thread safe list of windows sorted by start time, the earliest window at the head.
type SortedList struct {
	windows []Window
	lock    sync.RWMutex
}

// NewSortedList returns an empty SortedList.
func NewSortedList() *SortedList {
	return &SortedList{
		windows: make([]Window, 0),
	}
}

// InsertIfNotPresent inserts the window at its position, it returns true if the window was already present.
func (s *SortedList) InsertIfNotPresent(w Window) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	index := sort.Search(len(s.windows), func(i int) bool {
		return s.windows[i].Start >= w.Start
	})
	if index < len(s.windows) && s.windows[index] == w {
		return true
	}

	s.windows = append(s.windows, Window{})
	copy(s.windows[index+1:], s.windows[index:])
	s.windows[index] = w
	return false
}

// Contains reports whether the window is in the list.
func (s *SortedList) Contains(w Window) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	index := sort.Search(len(s.windows), func(i int) bool {
		return s.windows[i].Start >= w.Start
	})
	return index < len(s.windows) && s.windows[index] == w
}

// Delete deletes the window from the list, it returns false if the window was not present.
func (s *SortedList) Delete(w Window) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	index := sort.Search(len(s.windows), func(i int) bool {
		return s.windows[i].Start >= w.Start
	})
	if index == len(s.windows) || s.windows[index] != w {
		return false
	}
	s.windows = append(s.windows[:index], s.windows[index+1:]...)
	return true
}

// RemoveWindows removes and returns, in ascending order, the windows closed by the watermark (End <= wm).
func (s *SortedList) RemoveWindows(wm int64) []Window {
	s.lock.Lock()
	defer s.lock.Unlock()

	index := sort.Search(len(s.windows), func(i int) bool {
		return s.windows[i].End > wm
	})

	removed := make([]Window, index)
	copy(removed, s.windows[:index])
	s.windows = s.windows[index:]
	return removed
}

// Len returns the number of windows in the list.
func (s *SortedList) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.windows)
}

// Items returns a copy of the windows.
func (s *SortedList) Items() []Window {
	s.lock.RLock()
	defer s.lock.RUnlock()

	items := make([]Window, len(s.windows))
	copy(items, s.windows)
	return items
}
