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
	"sync"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/numaproj/adclick/pkg/config"
	"github.com/numaproj/adclick/pkg/events"
	"github.com/numaproj/adclick/pkg/shared/logging"
	sharedutil "github.com/numaproj/adclick/pkg/shared/util"
	"github.com/numaproj/adclick/pkg/sources/sourcer"
)

type KafkaSource struct {
	// group name of the consumer group
	groupName string
	// kafka brokers
	brokers []string
	// topics to consume, mapped to the stream they carry
	topics map[string]events.Stream
	// sarama config for kafka consumer group
	config *sarama.Config
	// consumer group, created by Start
	group sarama.ConsumerGroup
	// handler for a kafka consumer group
	handler *consumerHandler
	logger  *zap.SugaredLogger
	lock    sync.Mutex
}

type Option func(*KafkaSource) error

// WithLogger is used to return logger information
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *KafkaSource) error {
		o.logger = l
		return nil
	}
}

// WithGroupName is used to set the group name
func WithGroupName(gn string) Option {
	return func(o *KafkaSource) error {
		o.groupName = gn
		return nil
	}
}

// NewKafkaSource returns a KafkaSource reading both streams through one consumer group.
func NewKafkaSource(cfg config.KafkaSource, opts ...Option) (*KafkaSource, error) {
	if cfg.ImpressionsTopic == cfg.ClicksTopic {
		return nil, fmt.Errorf("impressions and clicks topics must differ, both are %q", cfg.ClicksTopic)
	}
	kafkaSource := &KafkaSource{
		groupName: cfg.ConsumerGroup,
		brokers:   cfg.Brokers,
		topics: map[string]events.Stream{
			cfg.ImpressionsTopic: events.StreamImpressions,
			cfg.ClicksTopic:      events.StreamClicks,
		},
		logger: logging.NewLogger(), // default logger
	}
	for _, o := range opts {
		if err := o(kafkaSource); err != nil {
			return nil, err
		}
	}
	kafkaSource.logger = kafkaSource.logger.With("sourceType", "kafka").With("group", kafkaSource.groupName)

	sc, err := sharedutil.NewSaramaConfig(cfg.Config, cfg.TLS, cfg.SASL)
	if err != nil {
		return nil, fmt.Errorf("error reading kafka source config, %w", err)
	}
	sarama.Logger = zap.NewStdLog(kafkaSource.logger.Desugar())
	// return errors from the underlying kafka client using the Errors channel
	sc.Consumer.Return.Errors = true
	kafkaSource.config = sc
	return kafkaSource, nil
}

func (r *KafkaSource) Name() string {
	return "kafka"
}

// Start joins the consumer group and blocks until ctx is canceled or the group fails.
func (r *KafkaSource) Start(ctx context.Context, h sourcer.Handler) error {
	group, err := sarama.NewConsumerGroup(r.brokers, r.groupName, r.config)
	if err != nil {
		return fmt.Errorf("failed to create kafka consumer group, %w", err)
	}
	r.lock.Lock()
	r.group = group
	r.handler = newConsumerHandler(r.topics, h, r.logger)
	r.lock.Unlock()

	go func() {
		for err := range group.Errors() {
			r.logger.Errorw("Kafka consumer group error", zap.Error(err))
		}
	}()

	topics := make([]string, 0, len(r.topics))
	for t := range r.topics {
		topics = append(topics, t)
	}
	r.logger.Infow("Starting kafka consumer group", zap.Strings("topics", topics))
	for {
		// Consume returns on every rebalance, it has to be called again to rejoin the group.
		if err := group.Consume(ctx, topics, r.handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return fmt.Errorf("failed to consume from kafka, %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (r *KafkaSource) Close() error {
	r.logger.Info("Closing kafka reader...")
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.group == nil {
		return nil
	}
	err := r.group.Close()
	r.group = nil
	if err != nil {
		return fmt.Errorf("failed to close kafka consumer group, %w", err)
	}
	r.logger.Info("Kafka reader closed")
	return nil
}
