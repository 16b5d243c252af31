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

package blackhole

import (
	"context"

	"github.com/numaproj/adclick/pkg/events"
)

// Blackhole is a sink to emulate /dev/null
type Blackhole struct{}

// NewBlackhole returns a new Blackhole sink.
func NewBlackhole() *Blackhole {
	return &Blackhole{}
}

// Name returns the name.
func (b *Blackhole) Name() string {
	return "blackhole"
}

// Write writes to the blackhole.
func (b *Blackhole) Write(_ context.Context, results []events.Result) []error {
	return make([]error, len(results))
}

func (b *Blackhole) Close() error {
	return nil
}
