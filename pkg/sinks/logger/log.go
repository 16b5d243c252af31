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

package logger

import (
	"context"

	"go.uber.org/zap"

	"github.com/numaproj/adclick/pkg/events"
	"github.com/numaproj/adclick/pkg/shared/logging"
)

// ToLog prints every result as one structured log line.
type ToLog struct {
	logger *zap.SugaredLogger
}

type Option func(*ToLog)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(t *ToLog) {
		t.logger = l
	}
}

// NewToLog returns ToLog type.
func NewToLog(opts ...Option) *ToLog {
	t := new(ToLog)
	for _, o := range opts {
		o(t)
	}
	if t.logger == nil {
		t.logger = logging.NewLogger()
	}
	t.logger = t.logger.With("sinkType", "log")
	return t
}

// Name returns the name.
func (t *ToLog) Name() string {
	return "log"
}

// Write writes to the log.
func (t *ToLog) Write(_ context.Context, results []events.Result) []error {
	for _, r := range results {
		payload, err := events.EncodeResult(r)
		if err != nil {
			t.logger.Errorw("Failed to encode result", zap.Error(err))
			continue
		}
		t.logger.Infow("Result", "kind", r.Kind(), "key", r.Key(), "windowStart", r.Window(), "payload", string(payload))
	}
	return make([]error, len(results))
}

func (t *ToLog) Close() error {
	return nil
}
