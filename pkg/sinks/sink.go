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

// Package sinks delivers the result records to the output streams.
package sinks

import (
	"context"

	"github.com/numaproj/adclick/pkg/events"
)

// Sink writes result records. Write returns one error per record, nil for the records that were written, so that
// only the failed records are retried.
type Sink interface {
	// Name returns the name of the sink, used as the metrics label.
	Name() string
	Write(ctx context.Context, results []events.Result) []error
	Close() error
}
