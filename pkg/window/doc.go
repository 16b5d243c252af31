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

// Package window assigns events to event-time windows and keeps track of the windows that are still open.
//
// Windows are tumbling (fixed): non-overlapping, contiguous and aligned to the epoch, so every event belongs to
// exactly one window. A window is identified by its [Start, End) interval in epoch milliseconds. Assignment is left
// inclusive and right exclusive, an event on a boundary falls in the window to the right of the boundary.
//
// A window is closed once the watermark reaches its end, i.e. End <= watermark. Watermark is the lower bound of the
// event times that may still arrive, so a closed window will not receive any further data and can be materialized.
package window
