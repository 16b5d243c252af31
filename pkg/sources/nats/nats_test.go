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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/numaproj/adclick/pkg/config"
	"github.com/numaproj/adclick/pkg/events"
	natsclient "github.com/numaproj/adclick/pkg/shared/clients/nats"
	natstest "github.com/numaproj/adclick/pkg/shared/clients/nats/test"
)

type collector struct {
	lock sync.Mutex
	got  map[events.Stream][]string
}

func (c *collector) handle(_ context.Context, s events.Stream, p []byte, _ int32) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.got[s] = append(c.got[s], string(p))
}

func (c *collector) count(s events.Stream) int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.got[s])
}

func testConfig(url string) config.NatsSource {
	return config.NatsSource{
		URL:                url,
		ImpressionsSubject: "ad-impressions",
		ClicksSubject:      "ad-clicks",
		Queue:              "test-queue",
	}
}

func Test_Start(t *testing.T) {
	server := natstest.RunNatsServer(t)
	defer server.Shutdown()

	ns, err := New(context.Background(), testConfig(server.ClientURL()), WithLogger(zap.NewNop().Sugar()))
	require.NoError(t, err)
	assert.Equal(t, "nats", ns.Name())
	defer func() { _ = ns.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	c := &collector{got: map[events.Stream][]string{}}
	done := make(chan error)
	go func() {
		done <- ns.Start(ctx, c.handle)
	}()

	publisher := natsclient.NewTestClient(t, server.ClientURL())
	defer publisher.Close()
	// publish until the subscriptions are registered, messages published before are not delivered
	assert.Eventually(t, func() bool {
		_ = publisher.Publish("ad-impressions", []byte("i"))
		_ = publisher.Publish("ad-clicks", []byte("c"))
		return c.count(events.StreamImpressions) > 0 && c.count(events.StreamClicks) > 0
	}, 5*time.Second, 50*time.Millisecond)

	c.lock.Lock()
	for _, p := range c.got[events.StreamImpressions] {
		assert.Equal(t, "i", p)
	}
	for _, p := range c.got[events.StreamClicks] {
		assert.Equal(t, "c", p)
	}
	c.lock.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancellation")
	}
}

func Test_Multiple(t *testing.T) {
	server := natstest.RunNatsServer(t)
	defer server.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var (
		collectors []*collector
		sources    []*NatsSource
	)
	for i := 0; i < 2; i++ {
		ns, err := New(context.Background(), testConfig(server.ClientURL()), WithLogger(zap.NewNop().Sugar()))
		require.NoError(t, err)
		c := &collector{got: map[events.Stream][]string{}}
		go func() { _ = ns.Start(ctx, c.handle) }()
		collectors = append(collectors, c)
		sources = append(sources, ns)
	}
	defer func() {
		for _, s := range sources {
			_ = s.Close()
		}
	}()

	publisher := natsclient.NewTestClient(t, server.ClientURL())
	defer publisher.Close()
	// wait for both members of the queue group
	assert.Eventually(t, func() bool {
		return server.NumSubscriptions() >= 4
	}, 5*time.Second, 10*time.Millisecond)
	for i := 0; i < 10; i++ {
		assert.NoError(t, publisher.Publish("ad-impressions", []byte("i")))
	}
	// the queue group delivers each message to exactly one member
	assert.Eventually(t, func() bool {
		return collectors[0].count(events.StreamImpressions)+collectors[1].count(events.StreamImpressions) == 10
	}, 5*time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool {
		return collectors[0].count(events.StreamImpressions)+collectors[1].count(events.StreamImpressions) > 10
	}, 200*time.Millisecond, 20*time.Millisecond)
}

func Test_ConnectFailure(t *testing.T) {
	_, err := New(context.Background(), testConfig("nats://127.0.0.1:1"))
	assert.Error(t, err)
}
