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

package sourcer

import (
	"context"
	"io"

	"github.com/numaproj/adclick/pkg/events"
)

// Handler receives every raw payload read by a source, tagged with its stream. partition is the transport partition
// the payload was read from, 0 where the transport has none. A Handler may be invoked from several goroutines.
type Handler func(ctx context.Context, stream events.Stream, payload []byte, partition int32)

// Source reads the impressions and the clicks streams.
type Source interface {
	io.Closer
	// Name returns the name of the source.
	Name() string
	// Start delivers payloads to h until ctx is canceled or the source fails. It returns nil on cancellation.
	Start(ctx context.Context, h Handler) error
}
