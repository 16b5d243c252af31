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

// Package redis wraps the go-redis universal client, which talks to a single node, a sentinel setup or a cluster
// depending on the addresses it is given.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/numaproj/adclick/pkg/config"
)

// EnvTestRedisAddr is the address of the redis server the integration tests run against, they are skipped without it.
const EnvTestRedisAddr = "ADCLICK_TEST_REDIS_ADDR"

// RedisClient datatype to hold redis client attributes.
type RedisClient struct {
	Client redis.UniversalClient
}

// NewRedisClient returns a new Redis Client.
func NewRedisClient(options *redis.UniversalOptions) *RedisClient {
	client := new(RedisClient)
	client.Client = redis.NewUniversalClient(options)
	return client
}

// NewRedisClientFromConfig returns a client of the configured redis sink.
func NewRedisClientFromConfig(cfg config.RedisSink) *RedisClient {
	return NewRedisClient(&redis.UniversalOptions{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// StreamEntry is an entry appended to a stream.
type StreamEntry struct {
	Stream string
	Values map[string]interface{}
}

// XAddAll appends the entries in one pipeline round trip and returns the error of every entry. With a positive maxLen
// the streams are trimmed to approximately that many entries.
func (cl *RedisClient) XAddAll(ctx context.Context, entries []StreamEntry, maxLen int64) []error {
	errs := make([]error, len(entries))
	pipe := cl.Client.Pipeline()
	cmds := make([]*redis.StringCmd, len(entries))
	for i, e := range entries {
		args := &redis.XAddArgs{
			Stream: e.Stream,
			Values: e.Values,
		}
		if maxLen > 0 {
			args.MaxLen = maxLen
			args.Approx = true
		}
		cmds[i] = pipe.XAdd(ctx, args)
	}
	// a failed round trip is not always set on the commands
	_, execErr := pipe.Exec(ctx)
	for i, cmd := range cmds {
		if errs[i] = cmd.Err(); errs[i] == nil {
			errs[i] = execErr
		}
	}
	return errs
}

// StreamLength returns the number of entries of the stream.
func (cl *RedisClient) StreamLength(ctx context.Context, stream string) (int64, error) {
	return cl.Client.XLen(ctx, stream).Result()
}

// DeleteKeys deletes redis keys
func (cl *RedisClient) DeleteKeys(ctx context.Context, keys ...string) error {
	return cl.Client.Del(ctx, keys...).Err()
}

// IsHealthy pings the server.
func (cl *RedisClient) IsHealthy(ctx context.Context) error {
	if err := cl.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis, %w", err)
	}
	return nil
}

// Close closes the client.
func (cl *RedisClient) Close() error {
	return cl.Client.Close()
}
