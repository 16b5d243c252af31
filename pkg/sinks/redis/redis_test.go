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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/numaproj/adclick/pkg/config"
	"github.com/numaproj/adclick/pkg/events"
	redisclient "github.com/numaproj/adclick/pkg/shared/clients/redis"
)

func TestToRedis_Write(t *testing.T) {
	addr := os.Getenv(redisclient.EnvTestRedisAddr)
	if addr == "" {
		t.SkipNow()
	}
	ctx := context.TODO()
	cfg := config.RedisSink{
		Addrs:            []string{addr},
		CtrStream:        "adclick-test-ctr",
		EngagementStream: "adclick-test-engagement",
		MaxLen:           100,
	}
	tr, err := NewToRedis(ctx, cfg, WithLogger(zap.NewNop().Sugar()))
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, tr.client.DeleteKeys(ctx, cfg.CtrStream, cfg.EngagementStream))
		assert.NoError(t, tr.Close())
	}()

	errs := tr.Write(ctx, []events.Result{
		events.CtrResult{WindowStart: 0, CampaignID: "C1", Ctr: 0.5},
		events.EngagementResult{WindowStart: 0, DeviceType: "tv", ImpressionCount: 1, UniqueUserCount: 1},
		events.CtrResult{WindowStart: 0, CampaignID: "C2", Ctr: 1},
	})
	assert.Equal(t, []error{nil, nil, nil}, errs)

	n, err := tr.client.StreamLength(ctx, cfg.CtrStream)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	n, err = tr.client.StreamLength(ctx, cfg.EngagementStream)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestNewToRedis_Unreachable(t *testing.T) {
	_, err := NewToRedis(context.TODO(), config.RedisSink{Addrs: []string{"127.0.0.1:1"}}, WithLogger(zap.NewNop().Sugar()))
	assert.Error(t, err)
}
