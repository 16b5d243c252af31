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
	"fmt"

	"github.com/IBM/sarama"
	"github.com/spaolacci/murmur3"
	"go.uber.org/zap"

	"github.com/numaproj/adclick/pkg/config"
	"github.com/numaproj/adclick/pkg/events"
	"github.com/numaproj/adclick/pkg/shared/logging"
	"github.com/numaproj/adclick/pkg/shared/util"
)

// keyPartitioner places every record of a key on the same topic partition.
var keyPartitioner = sarama.NewCustomHashPartitioner(murmur3.New32)

// ToKafka produces the results to the CTR and the engagement topics, keyed by campaign id and device type.
type ToKafka struct {
	producer sarama.SyncProducer
	topics   map[events.ResultKind]string
	log      *zap.SugaredLogger
}

type Option func(*ToKafka) error

func WithLogger(log *zap.SugaredLogger) Option {
	return func(t *ToKafka) error {
		t.log = log
		return nil
	}
}

// NewToKafka returns ToKafka type.
func NewToKafka(cfg config.KafkaSink, opts ...Option) (*ToKafka, error) {
	toKafka := new(ToKafka)
	//apply options for kafka sink
	for _, o := range opts {
		if err := o(toKafka); err != nil {
			return nil, err
		}
	}

	//set default logger
	if toKafka.log == nil {
		toKafka.log = logging.NewLogger()
	}
	toKafka.log = toKafka.log.With("sinkType", "kafka").With("ctrTopic", cfg.CtrTopic).With("engagementTopic", cfg.EngagementTopic)
	toKafka.topics = map[events.ResultKind]string{
		events.ResultKindCtr:        cfg.CtrTopic,
		events.ResultKindEngagement: cfg.EngagementTopic,
	}

	sc, err := util.NewSaramaConfig(cfg.Config, cfg.TLS, cfg.SASL)
	if err != nil {
		return nil, err
	}
	sc.Producer.Partitioner = keyPartitioner
	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer. %w", err)
	}
	toKafka.producer = producer
	return toKafka, nil
}

// Name returns the name.
func (tk *ToKafka) Name() string {
	return "kafka"
}

func (tk *ToKafka) toMessages(results []events.Result) ([]*sarama.ProducerMessage, []error) {
	errs := make([]error, len(results))
	messages := make([]*sarama.ProducerMessage, 0, len(results))
	for idx, r := range results {
		topic, ok := tk.topics[r.Kind()]
		if !ok {
			errs[idx] = fmt.Errorf("no topic for %s results", r.Kind())
			continue
		}
		payload, err := events.EncodeResult(r)
		if err != nil {
			errs[idx] = err
			continue
		}
		messages = append(messages, &sarama.ProducerMessage{
			Topic:    topic,
			Key:      sarama.StringEncoder(r.Key()),
			Value:    sarama.ByteEncoder(payload),
			Metadata: idx,
		})
	}
	return messages, errs
}

// Write sends the results in order and returns the error of every record that was not acknowledged.
func (tk *ToKafka) Write(_ context.Context, results []events.Result) []error {
	messages, errs := tk.toMessages(results)
	if len(messages) == 0 {
		return errs
	}
	err := tk.producer.SendMessages(messages)
	if err == nil {
		return errs
	}
	var producerErrs sarama.ProducerErrors
	if errors.As(err, &producerErrs) {
		for _, pe := range producerErrs {
			if idx, ok := pe.Msg.Metadata.(int); ok {
				errs[idx] = pe.Err
			}
		}
		tk.log.Errorw("SendMessages failed", zap.Int("failed", len(producerErrs)), zap.Error(err))
		return errs
	}
	tk.log.Errorw("SendMessages failed", zap.Error(err))
	for _, m := range messages {
		errs[m.Metadata.(int)] = err
	}
	return errs
}

func (tk *ToKafka) Close() error {
	tk.log.Info("Closing kafka producer...")
	return tk.producer.Close()
}
