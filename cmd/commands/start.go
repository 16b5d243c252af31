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

package commands

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"sigs.k8s.io/controller-runtime/pkg/manager/signals"

	"github.com/numaproj/adclick"
	"github.com/numaproj/adclick/pkg/config"
	"github.com/numaproj/adclick/pkg/engine"
	"github.com/numaproj/adclick/pkg/metrics"
	"github.com/numaproj/adclick/pkg/shared/logging"
	"github.com/numaproj/adclick/pkg/shared/util"
	"github.com/numaproj/adclick/pkg/sinks"
	"github.com/numaproj/adclick/pkg/sources"
)

// EnvConfigFile is the default of the --config flag.
const EnvConfigFile = "ADCLICK_CONFIG_FILE"

// flagKeys maps the flags of the start command to the configuration keys they override.
var flagKeys = map[string]string{
	"source":     "source.type",
	"sink":       "sink.type",
	"partitions": "partitions",
}

func NewStartCommand() *cobra.Command {
	var configFile string

	command := &cobra.Command{
		Use:   "start",
		Short: "Start the analytics job",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := config.NewViper()
			for flag, key := range flagKeys {
				if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return fmt.Errorf("failed to bind flag %q, %w", flag, err)
				}
			}
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}

			log := logging.NewLogger().Named("adclick")
			version := adclick.GetVersion()
			log.Infow("Starting adclick", "version", version)
			metrics.BuildInfo.WithLabelValues(version.Version, version.Platform).Set(1)
			if configFile != "" {
				watchConfig(v, log)
			}
			ctx := logging.WithLogger(signals.SetupSignalHandler(), log)
			return run(ctx, cfg)
		},
	}
	command.Flags().StringVar(&configFile, "config", util.LookupEnvStringOr(EnvConfigFile, ""), "Path to a YAML configuration file")
	command.Flags().String("source", string(config.SourceTypeKafka), "Source type, one of kafka, nats or generator")
	command.Flags().String("sink", string(config.SinkTypeKafka), "Sink type, one of kafka, redis, log or blackhole")
	command.Flags().Int("partitions", config.DefaultPartitions, "Number of partition workers")
	return command
}

// watchConfig logs the changes of the configuration file, they only apply after a restart.
func watchConfig(v *viper.Viper, log *zap.SugaredLogger) {
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Warnw("Configuration file changed, restart the job to apply it", zap.String("file", e.Name), zap.String("op", e.Op.String()))
	})
	v.WatchConfig()
}

func run(ctx context.Context, cfg *config.JobConfig) error {
	log := logging.FromContext(ctx)

	src, err := sources.NewSource(ctx, cfg.Source)
	if err != nil {
		return fmt.Errorf("failed to create source, %w", err)
	}
	sink, err := sinks.NewSink(ctx, cfg.Sink)
	if err != nil {
		return multierr.Append(fmt.Errorf("failed to create sink, %w", err), src.Close())
	}
	e, err := engine.NewEngine(cfg, src, sink, engine.WithLogger(log))
	if err != nil {
		return multierr.Combine(err, src.Close(), sink.Close())
	}

	healthCheckers := []metrics.HealthChecker{e}
	if hc, ok := sink.(metrics.HealthChecker); ok {
		healthCheckers = append(healthCheckers, hc)
	}
	ms := metrics.NewMetricsServer(metrics.NewMetricsOptions(ctx, cfg.Metrics, healthCheckers)...)
	shutdown, err := ms.Start(ctx)
	if err != nil {
		return multierr.Combine(fmt.Errorf("failed to start metrics server, %w", err), src.Close(), sink.Close())
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Errorw("Failed to shut down the metrics server", zap.Error(err))
		}
	}()

	log.Infow("Running",
		zap.String("source", string(cfg.Source.Type)),
		zap.String("sink", string(cfg.Sink.Type)),
		zap.Int("metricsPort", cfg.Metrics.Port))
	return e.Run(ctx)
}
