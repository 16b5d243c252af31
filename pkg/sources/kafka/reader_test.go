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

package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/numaproj/adclick/pkg/config"
	"github.com/numaproj/adclick/pkg/events"
)

func testSourceConfig() config.KafkaSource {
	return config.KafkaSource{
		Brokers:          []string{"127.0.0.1:1"},
		ImpressionsTopic: "ad-impressions",
		ClicksTopic:      "ad-clicks",
		ConsumerGroup:    "test-group",
	}
}

func TestNewKafkaSource(t *testing.T) {
	ks, err := NewKafkaSource(testSourceConfig(), WithLogger(zap.NewNop().Sugar()))
	require.NoError(t, err)
	assert.Equal(t, "kafka", ks.Name())
	assert.Equal(t, "test-group", ks.groupName)
	assert.Equal(t, map[string]events.Stream{"ad-impressions": events.StreamImpressions, "ad-clicks": events.StreamClicks}, ks.topics)
	assert.True(t, ks.config.Consumer.Return.Errors)
	// closing a source that never started is a no-op
	assert.NoError(t, ks.Close())

	ks, err = NewKafkaSource(testSourceConfig(), WithGroupName("other"))
	require.NoError(t, err)
	assert.Equal(t, "other", ks.groupName)
}

func TestNewKafkaSource_Errors(t *testing.T) {
	cfg := testSourceConfig()
	cfg.ClicksTopic = cfg.ImpressionsTopic
	_, err := NewKafkaSource(cfg)
	assert.Error(t, err)

	cfg = testSourceConfig()
	cfg.Config = "consumer:\n  fetch:\n    min: -1\n"
	_, err = NewKafkaSource(cfg)
	assert.Error(t, err)

	cfg = testSourceConfig()
	cfg.SASL = config.SASL{Mechanism: "OAUTHBEARER"}
	_, err = NewKafkaSource(cfg)
	assert.Error(t, err)
}

func TestKafkaSource_StartUnreachable(t *testing.T) {
	cfg := testSourceConfig()
	cfg.Config = "metadata:\n  retry:\n    max: 0\n"
	ks, err := NewKafkaSource(cfg, WithLogger(zap.NewNop().Sugar()))
	require.NoError(t, err)
	err = ks.Start(context.Background(), func(context.Context, events.Stream, []byte, int32) {})
	assert.Error(t, err)
	assert.NoError(t, ks.Close())
}
