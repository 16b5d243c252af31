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

package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/numaproj/adclick/pkg/shared/logging"
)

const defaultPartitionBufferSize = 1024

type options struct {
	// logger is used to pass the logger variable
	logger *zap.SugaredLogger
	// clock drives the watermark staleness, the wall clock by default
	clock func() time.Time
	// partitionBufferSize is the capacity of the channel feeding each partition worker
	partitionBufferSize int
}

type Option func(*options) error

func DefaultOptions() *options {
	return &options{
		logger:              logging.NewLogger(),
		clock:               time.Now,
		partitionBufferSize: defaultPartitionBufferSize,
	}
}

// WithLogger is used to return logger information
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) error {
		o.logger = l
		return nil
	}
}

// WithClock sets the clock the watermark staleness is measured with.
func WithClock(clock func() time.Time) Option {
	return func(o *options) error {
		o.clock = clock
		return nil
	}
}

// WithPartitionBufferSize sets the capacity of the channel feeding each partition worker. Ingest blocks once it is
// full.
func WithPartitionBufferSize(size int) Option {
	return func(o *options) error {
		o.partitionBufferSize = size
		return nil
	}
}
