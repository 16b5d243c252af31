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
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/numaproj/adclick/pkg/config"
	"github.com/numaproj/adclick/pkg/shared/logging"
	sharedutil "github.com/numaproj/adclick/pkg/shared/util"
)

// Client is a client for NATS server shared by the subscriptions of one source.
type Client struct {
	nc  *nats.Conn
	log *zap.SugaredLogger
}

// NewNATSClient Create a new NATS client
func NewNATSClient(ctx context.Context, cfg config.NatsSource, natsOptions ...nats.Option) (*Client, error) {
	log := logging.FromContext(ctx)
	opts := []nats.Option{
		// if max reconnects is set to -1, it will try to reconnect forever
		nats.MaxReconnects(-1),
		nats.ReconnectWait(3 * time.Second),
		nats.PingInterval(3 * time.Second),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Errorw("Nats default: error occurred for subscription", zap.Error(err))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("Nats default: connection closed")
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Errorw("Nats default: disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("Nats default: reconnected")
		}),
		// If the server doesn't respond to 2 pings we will reconnect
		nats.MaxPingsOutstanding(2),
		nats.LameDuckModeHandler(func(nc *nats.Conn) {
			log.Info("Nats default: entering lame duck mode to avoid reconnect storm")
		}),
	}

	switch {
	case cfg.User != "" && cfg.Password != "":
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	case cfg.Token != "":
		opts = append(opts, nats.Token(cfg.Token))
	}
	if c, err := sharedutil.GetTLSConfig(cfg.TLS); err != nil {
		return nil, err
	} else if c != nil {
		opts = append(opts, nats.Secure(c))
	}

	opts = append(opts, natsOptions...)
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats url=%s: %w", cfg.URL, err)
	}
	return &Client{nc: nc, log: log}, nil
}

// QueueSubscribe subscribes cb to subject as a member of the queue group, so that the replicas of a job share the
// subject instead of each receiving every message.
func (c *Client) QueueSubscribe(subject, queue string, cb nats.MsgHandler) (*nats.Subscription, error) {
	return c.nc.QueueSubscribe(subject, queue, cb)
}

// Flush round trips to the server so that the subscriptions made so far are registered.
func (c *Client) Flush() error {
	return c.nc.Flush()
}

// Close closes the NATS client
func (c *Client) Close() {
	c.nc.Close()
}

// NewTestClient creates a new NATS client for testing
// only use this for testing
func NewTestClient(t *testing.T, url string) *Client {
	t.Helper()
	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("failed to connect to %s, %v", url, err)
	}
	return &Client{nc: nc, log: logging.NewLogger()}
}

// Publish publishes data to subject, used by tests to feed a subscription.
func (c *Client) Publish(subject string, data []byte) error {
	return c.nc.Publish(subject, data)
}
