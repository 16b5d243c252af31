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

package nats

import (
	"context"
	"fmt"

	natslib "github.com/nats-io/nats.go"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/numaproj/adclick/pkg/config"
	"github.com/numaproj/adclick/pkg/events"
	natsclient "github.com/numaproj/adclick/pkg/shared/clients/nats"
	"github.com/numaproj/adclick/pkg/shared/logging"
	"github.com/numaproj/adclick/pkg/sources/sourcer"
)

// NatsSource reads both streams from NATS core subjects through queue subscriptions.
type NatsSource struct {
	logger   *zap.SugaredLogger
	client   *natsclient.Client
	subjects map[events.Stream]string
	queue    string
	subs     []*natslib.Subscription
}

type Option func(*NatsSource) error

// WithLogger is used to return logger information
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *NatsSource) error {
		o.logger = l
		return nil
	}
}

// New connects to the nats server, subscriptions are made by Start.
func New(ctx context.Context, cfg config.NatsSource, opts ...Option) (*NatsSource, error) {
	n := &NatsSource{
		logger: logging.FromContext(ctx),
		subjects: map[events.Stream]string{
			events.StreamImpressions: cfg.ImpressionsSubject,
			events.StreamClicks:      cfg.ClicksSubject,
		},
		queue: cfg.Queue,
	}
	for _, o := range opts {
		if err := o(n); err != nil {
			return nil, err
		}
	}
	n.logger = n.logger.With("sourceType", "nats")

	n.logger.Info("Connecting to nats service...")
	client, err := natsclient.NewNATSClient(logging.WithLogger(ctx, n.logger), cfg)
	if err != nil {
		return nil, err
	}
	n.client = client
	return n, nil
}

func (n *NatsSource) Name() string {
	return "nats"
}

// Start subscribes to both subjects and blocks until ctx is canceled.
func (n *NatsSource) Start(ctx context.Context, h sourcer.Handler) error {
	for _, stream := range events.Streams {
		stream := stream
		subject := n.subjects[stream]
		sub, err := n.client.QueueSubscribe(subject, n.queue, func(msg *natslib.Msg) {
			h(ctx, stream, msg.Data, 0)
		})
		if err != nil {
			n.unsubscribe()
			return fmt.Errorf("failed to QueueSubscribe %q, %w", subject, err)
		}
		n.subs = append(n.subs, sub)
		n.logger.Infow("Subscribed", zap.String("stream", stream.String()), zap.String("subject", subject), zap.String("queue", n.queue))
	}
	if err := n.client.Flush(); err != nil {
		n.unsubscribe()
		return fmt.Errorf("failed to register the subscriptions, %w", err)
	}
	<-ctx.Done()
	return n.unsubscribe()
}

func (n *NatsSource) unsubscribe() error {
	var err error
	for _, sub := range n.subs {
		err = multierr.Append(err, sub.Unsubscribe())
	}
	n.subs = nil
	return err
}

func (n *NatsSource) Close() error {
	n.logger.Info("Shutting down nats source server...")
	n.client.Close()
	n.logger.Info("Nats source server shutdown")
	return nil
}
