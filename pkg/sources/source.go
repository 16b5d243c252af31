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

package sources

import (
	"context"
	"fmt"

	"github.com/numaproj/adclick/pkg/config"
	"github.com/numaproj/adclick/pkg/shared/logging"
	"github.com/numaproj/adclick/pkg/sources/generator"
	"github.com/numaproj/adclick/pkg/sources/kafka"
	"github.com/numaproj/adclick/pkg/sources/nats"
	"github.com/numaproj/adclick/pkg/sources/sourcer"
)

// NewSource returns the source configured by cfg.
func NewSource(ctx context.Context, cfg config.SourceConfig) (sourcer.Source, error) {
	log := logging.FromContext(ctx)
	switch cfg.Type {
	case config.SourceTypeKafka:
		return kafka.NewKafkaSource(cfg.Kafka, kafka.WithLogger(log))
	case config.SourceTypeNats:
		return nats.New(ctx, cfg.Nats, nats.WithLogger(log))
	case config.SourceTypeGenerator:
		return generator.NewGenerator(cfg.Generator, generator.WithLogger(log))
	default:
		return nil, fmt.Errorf("unsupported source type %q", cfg.Type)
	}
}
