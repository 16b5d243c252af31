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

package redis

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/numaproj/adclick/pkg/config"
	"github.com/numaproj/adclick/pkg/events"
	redisclient "github.com/numaproj/adclick/pkg/shared/clients/redis"
	"github.com/numaproj/adclick/pkg/shared/logging"
)

// ToRedis appends the results to the CTR and the engagement redis streams.
type ToRedis struct {
	client  *redisclient.RedisClient
	streams map[events.ResultKind]string
	maxLen  int64
	logger  *zap.SugaredLogger
}

type Option func(*ToRedis) error

func WithLogger(log *zap.SugaredLogger) Option {
	return func(t *ToRedis) error {
		t.logger = log
		return nil
	}
}

// NewToRedis returns ToRedis type, it fails if the server cannot be reached.
func NewToRedis(ctx context.Context, cfg config.RedisSink, opts ...Option) (*ToRedis, error) {
	toRedis := &ToRedis{
		client: redisclient.NewRedisClientFromConfig(cfg),
		streams: map[events.ResultKind]string{
			events.ResultKindCtr:        cfg.CtrStream,
			events.ResultKindEngagement: cfg.EngagementStream,
		},
		maxLen: cfg.MaxLen,
	}
	for _, o := range opts {
		if err := o(toRedis); err != nil {
			return nil, err
		}
	}
	if toRedis.logger == nil {
		toRedis.logger = logging.NewLogger()
	}
	toRedis.logger = toRedis.logger.With("sinkType", "redis")
	if err := toRedis.client.IsHealthy(ctx); err != nil {
		_ = toRedis.client.Close()
		return nil, err
	}
	return toRedis, nil
}

// Name returns the name.
func (tr *ToRedis) Name() string {
	return "redis"
}

// Write appends every result to the stream of its kind, as a "key" and a JSON "payload" field.
func (tr *ToRedis) Write(ctx context.Context, results []events.Result) []error {
	errs := make([]error, len(results))
	entries := make([]redisclient.StreamEntry, 0, len(results))
	indexes := make([]int, 0, len(results))
	for idx, r := range results {
		stream, ok := tr.streams[r.Kind()]
		if !ok {
			errs[idx] = fmt.Errorf("no stream for %s results", r.Kind())
			continue
		}
		payload, err := events.EncodeResult(r)
		if err != nil {
			errs[idx] = err
			continue
		}
		entries = append(entries, redisclient.StreamEntry{
			Stream: stream,
			Values: map[string]interface{}{
				"key":     r.Key(),
				"payload": string(payload),
			},
		})
		indexes = append(indexes, idx)
	}
	if len(entries) == 0 {
		return errs
	}
	for i, err := range tr.client.XAddAll(ctx, entries, tr.maxLen) {
		if err != nil {
			tr.logger.Errorw("XADD failed", zap.String("stream", entries[i].Stream), zap.Error(err))
		}
		errs[indexes[i]] = err
	}
	return errs
}

// IsHealthy checks the connection to redis.
func (tr *ToRedis) IsHealthy(ctx context.Context) error {
	return tr.client.IsHealthy(ctx)
}

func (tr *ToRedis) Close() error {
	tr.logger.Info("Closing redis client...")
	return tr.client.Close()
}
