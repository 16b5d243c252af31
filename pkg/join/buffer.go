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

// Package join buffers impressions by impression id so that clicks arriving later can be matched against them.
//
// An impression stays in the buffer until the watermark closes its window, matched or not. A click matches an
// impression at most once, further clicks for the same impression are reported as duplicates. Ids of evicted
// impressions are remembered in a bounded LRU cache to tell a click that arrived past the lateness horizon apart from a
// click for an impression that was never seen.
package join

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/numaproj/adclick/pkg/window"
)

// PendingImpression is a buffered impression waiting for its click.
type PendingImpression struct {
	CampaignID string
	Window     window.Window
	Matched    bool
}

// MatchResult is the outcome of looking a click up in the buffer.
type MatchResult int

const (
	// Matched is the first click of a buffered impression.
	Matched MatchResult = iota
	// Duplicate is a click of an impression that has already been matched.
	Duplicate
	// Unknown is a click of an impression that has never been buffered.
	Unknown
	// Expired is a click of an impression that was evicted when its window closed.
	Expired
)

func (r MatchResult) String() string {
	switch r {
	case Matched:
		return "matched"
	case Duplicate:
		return "duplicate"
	case Unknown:
		return "unknown"
	case Expired:
		return "expired"
	default:
		return fmt.Sprintf("MatchResult(%d)", int(r))
	}
}

// Buffer is the join buffer of a single partition, it is not safe for concurrent use.
type Buffer struct {
	pending  map[string]*PendingImpression
	byWindow map[window.Window][]string
	order    *window.SortedList
	expired  *lru.Cache[string, struct{}]
}

// NewBuffer returns an empty buffer remembering up to expiredCacheSize evicted impression ids.
func NewBuffer(expiredCacheSize int) (*Buffer, error) {
	expired, err := lru.New[string, struct{}](expiredCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create the expired impressions cache, %w", err)
	}
	return &Buffer{
		pending:  make(map[string]*PendingImpression),
		byWindow: make(map[window.Window][]string),
		order:    window.NewSortedList(),
		expired:  expired,
	}, nil
}

// Put buffers the impression, it returns false and leaves the buffer untouched if the id is already buffered.
func (b *Buffer) Put(impressionID string, p PendingImpression) bool {
	if _, ok := b.pending[impressionID]; ok {
		return false
	}
	b.pending[impressionID] = &p
	b.byWindow[p.Window] = append(b.byWindow[p.Window], impressionID)
	b.order.InsertIfNotPresent(p.Window)
	return true
}

// Match looks the impression of a click up and flags it as matched on the first match.
func (b *Buffer) Match(impressionID string) (PendingImpression, MatchResult) {
	p, ok := b.pending[impressionID]
	if !ok {
		if b.expired.Contains(impressionID) {
			return PendingImpression{}, Expired
		}
		return PendingImpression{}, Unknown
	}
	if p.Matched {
		return *p, Duplicate
	}
	p.Matched = true
	return *p, Matched
}

// Evict drops every impression whose window is closed by the watermark and returns how many were dropped.
func (b *Buffer) Evict(wm int64) int {
	evicted := 0
	for _, w := range b.order.RemoveWindows(wm) {
		for _, id := range b.byWindow[w] {
			delete(b.pending, id)
			b.expired.Add(id, struct{}{})
			evicted++
		}
		delete(b.byWindow, w)
	}
	return evicted
}

// Len returns the number of buffered impressions.
func (b *Buffer) Len() int {
	return len(b.pending)
}
