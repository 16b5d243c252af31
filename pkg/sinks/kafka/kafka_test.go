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
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/numaproj/adclick/pkg/events"
)

func newToKafka(producer sarama.SyncProducer) *ToKafka {
	return &ToKafka{
		producer: producer,
		topics: map[events.ResultKind]string{
			events.ResultKindCtr:        "campaign-ctr-results",
			events.ResultKindEngagement: "device-engagement-results",
		},
		log: zap.NewNop().Sugar(),
	}
}

var results = []events.Result{
	events.CtrResult{WindowStart: 0, CampaignID: "C1", Ctr: 0.5},
	events.EngagementResult{WindowStart: 0, DeviceType: "mobile", ImpressionCount: 2, UniqueUserCount: 1},
}

func TestToKafka_toMessages(t *testing.T) {
	tk := newToKafka(nil)
	messages, errs := tk.toMessages(results)
	require.Len(t, messages, 2)
	assert.Equal(t, []error{nil, nil}, errs)

	assert.Equal(t, "campaign-ctr-results", messages[0].Topic)
	key, err := messages[0].Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "C1", string(key))
	value, err := messages[0].Value.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"window_start":0,"campaign_id":"C1","ctr":0.5}`, string(value))

	assert.Equal(t, "device-engagement-results", messages[1].Topic)
	key, err = messages[1].Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "mobile", string(key))
	assert.Equal(t, 1, messages[1].Metadata)
}

func TestWriteSuccessToKafka(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		return nil
	})
	producer.ExpectSendMessageAndSucceed()
	tk := newToKafka(producer)
	errs := tk.Write(context.Background(), results)
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.NoError(t, tk.Close())
}

func TestWriteFailureToKafka(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndSucceed()
	producer.ExpectSendMessageAndFail(errors.New("leader not available"))
	tk := newToKafka(producer)
	errs := tk.Write(context.Background(), results)
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.EqualError(t, err, "leader not available")
	}
	assert.NoError(t, tk.Close())
}

func TestKeyPartitioner(t *testing.T) {
	p := keyPartitioner("campaign-ctr-results")
	assert.True(t, p.RequiresConsistency())
	msg := &sarama.ProducerMessage{Key: sarama.StringEncoder("C1")}
	first, err := p.Partition(msg, 12)
	require.NoError(t, err)
	assert.True(t, first >= 0 && first < 12)
	for i := 0; i < 5; i++ {
		again, err := p.Partition(&sarama.ProducerMessage{Key: sarama.StringEncoder("C1")}, 12)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
