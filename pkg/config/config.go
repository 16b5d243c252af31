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

// Package config holds the job configuration. Values are resolved by viper from, in order of precedence, command
// line flags, ADCLICK_* environment variables, an optional YAML file and the defaults below.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix is the prefix of every environment variable read by the job, e.g. ADCLICK_WINDOW_SIZE.
	EnvPrefix = "ADCLICK"

	DefaultWindowSize       = 60 * time.Second
	DefaultAllowedLateness  = 5 * time.Second
	DefaultPartitions       = 4
	DefaultMetricsPort      = 2469
	DefaultTickInterval     = time.Second
	DefaultStallThreshold   = time.Minute
	DefaultExpiredCacheSize = 100000

	DefaultKafkaBroker           = "kafka:9092"
	DefaultImpressionsTopic      = "ad-impressions"
	DefaultClicksTopic           = "ad-clicks"
	DefaultConsumerGroup         = "adclick-analytics"
	DefaultCtrTopic              = "campaign-ctr-results"
	DefaultEngagementTopic       = "device-engagement-results"
	DefaultNatsQueue             = "adclick-analytics"
	DefaultRedisCtrStream        = "campaign-ctr-results"
	DefaultRedisEngagementStream = "device-engagement-results"
	DefaultSinkRetryDuration     = time.Second
	DefaultSinkRetryFactor       = 1.5
	DefaultSinkRetryJitter       = 0.1
	DefaultGeneratorRPU          = 5
	DefaultGeneratorDuration     = time.Second
	DefaultGeneratorCampaigns    = 3
	DefaultGeneratorDevices      = 3
	DefaultGeneratorUsers        = 100
	DefaultGeneratorClickRatio   = 0.1
	DefaultGeneratorOutOfOrder   = 2 * time.Second
	DefaultGeneratorClickDelay   = 3 * time.Second
)

type SourceType string

const (
	SourceTypeKafka     SourceType = "kafka"
	SourceTypeNats      SourceType = "nats"
	SourceTypeGenerator SourceType = "generator"
)

type SinkType string

const (
	SinkTypeKafka     SinkType = "kafka"
	SinkTypeRedis     SinkType = "redis"
	SinkTypeLog       SinkType = "log"
	SinkTypeBlackhole SinkType = "blackhole"
)

// JobConfig is the complete configuration of one analytics job.
type JobConfig struct {
	Window     WindowConfig    `mapstructure:"window"`
	Partitions int             `mapstructure:"partitions"`
	Watermark  WatermarkConfig `mapstructure:"watermark"`
	Join       JoinConfig      `mapstructure:"join"`
	Source     SourceConfig    `mapstructure:"source"`
	Sink       SinkConfig      `mapstructure:"sink"`
	Metrics    MetricsConfig   `mapstructure:"metrics"`
}

type WindowConfig struct {
	// Size is the length of the tumbling window.
	Size time.Duration `mapstructure:"size"`
	// AllowedLateness is subtracted from the max event time seen on a stream to derive its watermark.
	AllowedLateness time.Duration `mapstructure:"allowedLateness"`
}

type WatermarkConfig struct {
	// TickInterval is how often the staleness of the stream watermarks is evaluated.
	TickInterval time.Duration `mapstructure:"tickInterval"`
	// StallThreshold is how long a stream watermark may stay put before it is reported as stalled.
	StallThreshold time.Duration `mapstructure:"stallThreshold"`
}

type JoinConfig struct {
	// ExpiredCacheSize bounds the number of evicted impression ids remembered per partition, used to tell
	// clicks that arrived past the horizon apart from clicks for impressions that were never seen.
	ExpiredCacheSize int `mapstructure:"expiredCacheSize"`
}

type TLS struct {
	InsecureSkipVerify bool   `mapstructure:"insecureSkipVerify"`
	CACertFile         string `mapstructure:"caCertFile"`
	CertFile           string `mapstructure:"certFile"`
	KeyFile            string `mapstructure:"keyFile"`
}

// Enabled reports whether any TLS setting has been supplied.
func (t TLS) Enabled() bool {
	return t.InsecureSkipVerify || t.CACertFile != "" || t.CertFile != "" || t.KeyFile != ""
}

type SASLMechanism string

const (
	SASLNone        SASLMechanism = ""
	SASLPlain       SASLMechanism = "PLAIN"
	SASLScramSHA256 SASLMechanism = "SCRAM-SHA-256"
	SASLScramSHA512 SASLMechanism = "SCRAM-SHA-512"
)

type SASL struct {
	Mechanism SASLMechanism `mapstructure:"mechanism"`
	User      string        `mapstructure:"user"`
	Password  string        `mapstructure:"password"`
}

type KafkaSource struct {
	Brokers          []string `mapstructure:"brokers"`
	ImpressionsTopic string   `mapstructure:"impressionsTopic"`
	ClicksTopic      string   `mapstructure:"clicksTopic"`
	ConsumerGroup    string   `mapstructure:"consumerGroup"`
	// Config is a sarama config in YAML.
	Config string `mapstructure:"config"`
	TLS    TLS    `mapstructure:"tls"`
	SASL   SASL   `mapstructure:"sasl"`
}

type NatsSource struct {
	URL                string `mapstructure:"url"`
	ImpressionsSubject string `mapstructure:"impressionsSubject"`
	ClicksSubject      string `mapstructure:"clicksSubject"`
	Queue              string `mapstructure:"queue"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	Token              string `mapstructure:"token"`
	TLS                TLS    `mapstructure:"tls"`
}

type GeneratorSource struct {
	// RPU is the number of impressions generated per tick.
	RPU      int           `mapstructure:"rpu"`
	Duration time.Duration `mapstructure:"duration"`
	// Campaigns, Devices and Users bound the cardinality of the generated keys.
	Campaigns  int     `mapstructure:"campaigns"`
	Devices    int     `mapstructure:"devices"`
	Users      int     `mapstructure:"users"`
	ClickRatio float64 `mapstructure:"clickRatio"`
	// OutOfOrder is the maximum amount the event time of a generated event lags the wall clock.
	OutOfOrder time.Duration `mapstructure:"outOfOrder"`
	// ClickDelay is the maximum delay between an impression and its click.
	ClickDelay time.Duration `mapstructure:"clickDelay"`
	Seed       int64         `mapstructure:"seed"`
}

type SourceConfig struct {
	Type      SourceType      `mapstructure:"type"`
	Kafka     KafkaSource     `mapstructure:"kafka"`
	Nats      NatsSource      `mapstructure:"nats"`
	Generator GeneratorSource `mapstructure:"generator"`
}

type KafkaSink struct {
	Brokers         []string `mapstructure:"brokers"`
	CtrTopic        string   `mapstructure:"ctrTopic"`
	EngagementTopic string   `mapstructure:"engagementTopic"`
	Config          string   `mapstructure:"config"`
	TLS             TLS      `mapstructure:"tls"`
	SASL            SASL     `mapstructure:"sasl"`
}

type RedisSink struct {
	Addrs            []string `mapstructure:"addrs"`
	Username         string   `mapstructure:"username"`
	Password         string   `mapstructure:"password"`
	DB               int      `mapstructure:"db"`
	CtrStream        string   `mapstructure:"ctrStream"`
	EngagementStream string   `mapstructure:"engagementStream"`
	// MaxLen caps the streams with an approximate MAXLEN, 0 means unbounded.
	MaxLen int64 `mapstructure:"maxLen"`
}

// RetryConfig is the exponential backoff used when a sink write fails.
type RetryConfig struct {
	// Steps is the number of attempts, 0 retries until shutdown.
	Steps    int           `mapstructure:"steps"`
	Duration time.Duration `mapstructure:"duration"`
	Factor   float64       `mapstructure:"factor"`
	Jitter   float64       `mapstructure:"jitter"`
}

type SinkConfig struct {
	Type  SinkType    `mapstructure:"type"`
	Kafka KafkaSink   `mapstructure:"kafka"`
	Redis RedisSink   `mapstructure:"redis"`
	Retry RetryConfig `mapstructure:"retry"`
}

type MetricsConfig struct {
	Port int  `mapstructure:"port"`
	TLS  bool `mapstructure:"tls"`
}

// NewViper returns a viper instance bound to the ADCLICK_ environment with all the defaults registered.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// SetDefaults registers the default of every key. Registering every key is also what makes AutomaticEnv work with
// Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("window.size", DefaultWindowSize)
	v.SetDefault("window.allowedLateness", DefaultAllowedLateness)
	v.SetDefault("partitions", DefaultPartitions)
	v.SetDefault("watermark.tickInterval", DefaultTickInterval)
	v.SetDefault("watermark.stallThreshold", DefaultStallThreshold)
	v.SetDefault("join.expiredCacheSize", DefaultExpiredCacheSize)

	v.SetDefault("source.type", string(SourceTypeKafka))
	v.SetDefault("source.kafka.brokers", []string{DefaultKafkaBroker})
	v.SetDefault("source.kafka.impressionsTopic", DefaultImpressionsTopic)
	v.SetDefault("source.kafka.clicksTopic", DefaultClicksTopic)
	v.SetDefault("source.kafka.consumerGroup", DefaultConsumerGroup)
	v.SetDefault("source.kafka.config", "")
	v.SetDefault("source.kafka.tls.insecureSkipVerify", false)
	v.SetDefault("source.kafka.tls.caCertFile", "")
	v.SetDefault("source.kafka.tls.certFile", "")
	v.SetDefault("source.kafka.tls.keyFile", "")
	v.SetDefault("source.kafka.sasl.mechanism", string(SASLNone))
	v.SetDefault("source.kafka.sasl.user", "")
	v.SetDefault("source.kafka.sasl.password", "")
	v.SetDefault("source.nats.url", "nats://localhost:4222")
	v.SetDefault("source.nats.impressionsSubject", DefaultImpressionsTopic)
	v.SetDefault("source.nats.clicksSubject", DefaultClicksTopic)
	v.SetDefault("source.nats.queue", DefaultNatsQueue)
	v.SetDefault("source.nats.user", "")
	v.SetDefault("source.nats.password", "")
	v.SetDefault("source.nats.token", "")
	v.SetDefault("source.nats.tls.insecureSkipVerify", false)
	v.SetDefault("source.nats.tls.caCertFile", "")
	v.SetDefault("source.nats.tls.certFile", "")
	v.SetDefault("source.nats.tls.keyFile", "")
	v.SetDefault("source.generator.rpu", DefaultGeneratorRPU)
	v.SetDefault("source.generator.duration", DefaultGeneratorDuration)
	v.SetDefault("source.generator.campaigns", DefaultGeneratorCampaigns)
	v.SetDefault("source.generator.devices", DefaultGeneratorDevices)
	v.SetDefault("source.generator.users", DefaultGeneratorUsers)
	v.SetDefault("source.generator.clickRatio", DefaultGeneratorClickRatio)
	v.SetDefault("source.generator.outOfOrder", DefaultGeneratorOutOfOrder)
	v.SetDefault("source.generator.clickDelay", DefaultGeneratorClickDelay)
	v.SetDefault("source.generator.seed", int64(0))

	v.SetDefault("sink.type", string(SinkTypeKafka))
	v.SetDefault("sink.kafka.brokers", []string{DefaultKafkaBroker})
	v.SetDefault("sink.kafka.ctrTopic", DefaultCtrTopic)
	v.SetDefault("sink.kafka.engagementTopic", DefaultEngagementTopic)
	v.SetDefault("sink.kafka.config", "")
	v.SetDefault("sink.kafka.tls.insecureSkipVerify", false)
	v.SetDefault("sink.kafka.tls.caCertFile", "")
	v.SetDefault("sink.kafka.tls.certFile", "")
	v.SetDefault("sink.kafka.tls.keyFile", "")
	v.SetDefault("sink.kafka.sasl.mechanism", string(SASLNone))
	v.SetDefault("sink.kafka.sasl.user", "")
	v.SetDefault("sink.kafka.sasl.password", "")
	v.SetDefault("sink.redis.addrs", []string{"localhost:6379"})
	v.SetDefault("sink.redis.username", "")
	v.SetDefault("sink.redis.password", "")
	v.SetDefault("sink.redis.db", 0)
	v.SetDefault("sink.redis.ctrStream", DefaultRedisCtrStream)
	v.SetDefault("sink.redis.engagementStream", DefaultRedisEngagementStream)
	v.SetDefault("sink.redis.maxLen", int64(0))
	v.SetDefault("sink.retry.steps", 0)
	v.SetDefault("sink.retry.duration", DefaultSinkRetryDuration)
	v.SetDefault("sink.retry.factor", DefaultSinkRetryFactor)
	v.SetDefault("sink.retry.jitter", DefaultSinkRetryJitter)

	v.SetDefault("metrics.port", DefaultMetricsPort)
	v.SetDefault("metrics.tls", false)
}

// Load reads the optional config file into v and decodes the result into a validated JobConfig.
func Load(v *viper.Viper, file string) (*JobConfig, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q, %w", file, err)
		}
	}
	cfg := &JobConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration made of the defaults only.
func Default() *JobConfig {
	cfg, err := Load(NewViper(), "")
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate checks the configuration for values the engine cannot run with.
func (c *JobConfig) Validate() error {
	if c.Window.Size <= 0 {
		return fmt.Errorf("window size must be positive, got %s", c.Window.Size)
	}
	if c.Window.Size%time.Millisecond != 0 {
		return fmt.Errorf("window size must be a whole number of milliseconds, got %s", c.Window.Size)
	}
	if c.Window.AllowedLateness < 0 {
		return fmt.Errorf("allowed lateness must not be negative, got %s", c.Window.AllowedLateness)
	}
	if c.Partitions <= 0 {
		return fmt.Errorf("partitions must be positive, got %d", c.Partitions)
	}
	if c.Watermark.TickInterval <= 0 {
		return fmt.Errorf("watermark tick interval must be positive, got %s", c.Watermark.TickInterval)
	}
	if c.Join.ExpiredCacheSize <= 0 {
		return fmt.Errorf("join expired cache size must be positive, got %d", c.Join.ExpiredCacheSize)
	}
	switch c.Source.Type {
	case SourceTypeKafka:
		if len(c.Source.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka source requires at least one broker")
		}
		if c.Source.Kafka.ImpressionsTopic == "" || c.Source.Kafka.ClicksTopic == "" {
			return fmt.Errorf("kafka source requires both the impressions and the clicks topic")
		}
		if err := c.Source.Kafka.SASL.validate(); err != nil {
			return err
		}
	case SourceTypeNats:
		if c.Source.Nats.URL == "" {
			return fmt.Errorf("nats source requires a url")
		}
		if c.Source.Nats.ImpressionsSubject == "" || c.Source.Nats.ClicksSubject == "" {
			return fmt.Errorf("nats source requires both the impressions and the clicks subject")
		}
	case SourceTypeGenerator:
		if c.Source.Generator.RPU <= 0 || c.Source.Generator.Duration <= 0 {
			return fmt.Errorf("generator source requires a positive rpu and duration")
		}
		if c.Source.Generator.Campaigns <= 0 || c.Source.Generator.Devices <= 0 || c.Source.Generator.Users <= 0 {
			return fmt.Errorf("generator source requires positive campaigns, devices and users")
		}
		if c.Source.Generator.ClickRatio < 0 || c.Source.Generator.ClickRatio > 1 {
			return fmt.Errorf("generator click ratio must be within [0, 1], got %v", c.Source.Generator.ClickRatio)
		}
		if c.Source.Generator.OutOfOrder < 0 || c.Source.Generator.ClickDelay < 0 {
			return fmt.Errorf("generator outOfOrder and clickDelay must not be negative")
		}
	default:
		return fmt.Errorf("unsupported source type %q", c.Source.Type)
	}
	switch c.Sink.Type {
	case SinkTypeKafka:
		if len(c.Sink.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka sink requires at least one broker")
		}
		if c.Sink.Kafka.CtrTopic == "" || c.Sink.Kafka.EngagementTopic == "" {
			return fmt.Errorf("kafka sink requires both the ctr and the engagement topic")
		}
		if err := c.Sink.Kafka.SASL.validate(); err != nil {
			return err
		}
	case SinkTypeRedis:
		if len(c.Sink.Redis.Addrs) == 0 {
			return fmt.Errorf("redis sink requires at least one address")
		}
	case SinkTypeLog, SinkTypeBlackhole:
	default:
		return fmt.Errorf("unsupported sink type %q", c.Sink.Type)
	}
	if c.Sink.Retry.Steps < 0 {
		return fmt.Errorf("sink retry steps must not be negative, got %d", c.Sink.Retry.Steps)
	}
	if c.Sink.Retry.Duration <= 0 {
		return fmt.Errorf("sink retry duration must be positive, got %s", c.Sink.Retry.Duration)
	}
	return nil
}

func (s SASL) validate() error {
	switch s.Mechanism {
	case SASLNone:
		return nil
	case SASLPlain, SASLScramSHA256, SASLScramSHA512:
		if s.User == "" {
			return fmt.Errorf("sasl mechanism %s requires a user", s.Mechanism)
		}
		return nil
	default:
		return fmt.Errorf("unsupported sasl mechanism %q", s.Mechanism)
	}
}
