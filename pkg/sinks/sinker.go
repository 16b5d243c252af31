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

package sinks

import (
	"context"
	"fmt"

	"github.com/numaproj/adclick/pkg/config"
	"github.com/numaproj/adclick/pkg/shared/logging"
	"github.com/numaproj/adclick/pkg/sinks/blackhole"
	kafkasink "github.com/numaproj/adclick/pkg/sinks/kafka"
	logsink "github.com/numaproj/adclick/pkg/sinks/logger"
	redissink "github.com/numaproj/adclick/pkg/sinks/redis"
)

// NewSink returns the sink configured by cfg.
func NewSink(ctx context.Context, cfg config.SinkConfig) (Sink, error) {
	log := logging.FromContext(ctx)
	switch cfg.Type {
	case config.SinkTypeKafka:
		return kafkasink.NewToKafka(cfg.Kafka, kafkasink.WithLogger(log))
	case config.SinkTypeRedis:
		return redissink.NewToRedis(ctx, cfg.Redis, redissink.WithLogger(log))
	case config.SinkTypeLog:
		return logsink.NewToLog(logsink.WithLogger(log)), nil
	case config.SinkTypeBlackhole:
		return blackhole.NewBlackhole(), nil
	default:
		return nil, fmt.Errorf("unsupported sink type %q", cfg.Type)
	}
}
