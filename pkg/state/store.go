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

// Package state holds the per window and per key aggregation state.
//
// A Store is owned by exactly one partition worker, every key of the store is only ever read and mutated by that
// worker, so the store does not lock.
package state

import (
	"github.com/numaproj/adclick/pkg/window"
)

// Store is a keyed state store grouped by window.
type Store[K comparable, V any] struct {
	newFn   func() V
	windows map[window.Window]map[K]V
	order   *window.SortedList
	size    int
}

// Closed is the released state of a window.
type Closed[K comparable, V any] struct {
	Window  window.Window
	Entries map[K]V
}

// NewStore returns an empty store, newFn creates the zero state of a key on first access.
func NewStore[K comparable, V any](newFn func() V) *Store[K, V] {
	return &Store[K, V]{
		newFn:   newFn,
		windows: make(map[window.Window]map[K]V),
		order:   window.NewSortedList(),
	}
}

// GetOrCreate returns the state of the key in the window, creating it if absent.
func (s *Store[K, V]) GetOrCreate(w window.Window, key K) V {
	keys, ok := s.windows[w]
	if !ok {
		keys = make(map[K]V)
		s.windows[w] = keys
		s.order.InsertIfNotPresent(w)
	}
	v, ok := keys[key]
	if !ok {
		v = s.newFn()
		keys[key] = v
		s.size++
	}
	return v
}

// Get returns the state of the key in the window without creating it.
func (s *Store[K, V]) Get(w window.Window, key K) (V, bool) {
	v, ok := s.windows[w][key]
	return v, ok
}

// Update replaces the state of the key with the result of fn applied to its current, possibly newly created, state.
func (s *Store[K, V]) Update(w window.Window, key K, fn func(V) V) V {
	v := fn(s.GetOrCreate(w, key))
	s.windows[w][key] = v
	return v
}

// Remove deletes the state of the key, and the window once it has no key left.
func (s *Store[K, V]) Remove(w window.Window, key K) {
	keys, ok := s.windows[w]
	if !ok {
		return
	}
	if _, ok := keys[key]; !ok {
		return
	}
	delete(keys, key)
	s.size--
	if len(keys) == 0 {
		delete(s.windows, w)
		s.order.Delete(w)
	}
}

// RemoveWindow releases and returns every key of the window.
func (s *Store[K, V]) RemoveWindow(w window.Window) map[K]V {
	keys, ok := s.windows[w]
	if !ok {
		return nil
	}
	delete(s.windows, w)
	s.order.Delete(w)
	s.size -= len(keys)
	return keys
}

// RemoveWindows releases, in ascending window order, every window closed by the watermark.
func (s *Store[K, V]) RemoveWindows(wm int64) []Closed[K, V] {
	closed := s.order.RemoveWindows(wm)
	result := make([]Closed[K, V], 0, len(closed))
	for _, w := range closed {
		result = append(result, Closed[K, V]{Window: w, Entries: s.RemoveWindow(w)})
	}
	return result
}

// Windows returns the windows holding state, in ascending order.
func (s *Store[K, V]) Windows() []window.Window {
	return s.order.Items()
}

// Len returns the number of keys over all the windows.
func (s *Store[K, V]) Len() int {
	return s.size
}
