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
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) *RedisClient {
	t.Helper()
	addr := os.Getenv(EnvTestRedisAddr)
	if addr == "" {
		t.SkipNow()
	}
	return NewRedisClient(&redis.UniversalOptions{Addrs: []string{addr}})
}

func TestRedisClient_XAddAll(t *testing.T) {
	client := testClient(t)
	ctx := context.TODO()
	stream := "adclick-test-xadd"
	defer func() {
		assert.NoError(t, client.DeleteKeys(ctx, stream))
		assert.NoError(t, client.Close())
	}()
	require.NoError(t, client.IsHealthy(ctx))

	errs := client.XAddAll(ctx, []StreamEntry{
		{Stream: stream, Values: map[string]interface{}{"key": "C1", "payload": "{}"}},
		{Stream: stream, Values: map[string]interface{}{"key": "C2", "payload": "{}"}},
	}, 0)
	assert.Equal(t, []error{nil, nil}, errs)
	n, err := client.StreamLength(ctx, stream)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRedisClient_Unreachable(t *testing.T) {
	client := NewRedisClient(&redis.UniversalOptions{Addrs: []string{"127.0.0.1:1"}, MaxRetries: -1})
	defer func() { _ = client.Close() }()
	ctx := context.TODO()
	assert.Error(t, client.IsHealthy(ctx))
	errs := client.XAddAll(ctx, []StreamEntry{{Stream: "s", Values: map[string]interface{}{"k": "v"}}}, 10)
	require.Len(t, errs, 1)
	assert.Error(t, errs[0])
}
