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

package metrics

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/numaproj/adclick/pkg/config"
	"github.com/numaproj/adclick/pkg/shared/logging"
	sharedtls "github.com/numaproj/adclick/pkg/shared/tls"
	"github.com/numaproj/adclick/pkg/shared/util"
)

const (
	// EnvHealthCheckDisabled disables the health check executors of the readiness probe.
	EnvHealthCheckDisabled = "ADCLICK_HEALTH_CHECK_DISABLED"
	// EnvHealthCheckTimeout bounds a single health check, defaults to 30s.
	EnvHealthCheckTimeout = "ADCLICK_HEALTH_CHECK_TIMEOUT"
)

// metricsServer runs an HTTP server to:
// 1. Expose metrics;
// 2. Serve the liveness and readiness endpoints
type metricsServer struct {
	port      int
	enableTLS bool
	// Functions that health check executes
	healthCheckExecutors []func() error
}

type Option func(*metricsServer)

// WithPort sets the listening port
func WithPort(port int) Option {
	return func(m *metricsServer) {
		m.port = port
	}
}

// WithTLS serves over HTTPS with a self-signed certificate
func WithTLS(enable bool) Option {
	return func(m *metricsServer) {
		m.enableTLS = enable
	}
}

// WithHealthCheckExecutor appends a health check executor
func WithHealthCheckExecutor(f func() error) Option {
	return func(m *metricsServer) {
		m.healthCheckExecutors = append(m.healthCheckExecutors, f)
	}
}

// NewMetricsOptions returns a metrics option list.
func NewMetricsOptions(ctx context.Context, cfg config.MetricsConfig, healthCheckers []HealthChecker) []Option {
	metricsOpts := []Option{
		WithPort(cfg.Port),
		WithTLS(cfg.TLS),
	}

	if !util.LookupEnvBoolOr(EnvHealthCheckDisabled, false) {
		timeout := util.LookupEnvDurationOr(EnvHealthCheckTimeout, 30*time.Second)
		for _, hc := range healthCheckers {
			hc := hc
			metricsOpts = append(metricsOpts, WithHealthCheckExecutor(func() error {
				cctx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()
				return hc.IsHealthy(cctx)
			}))
		}
	}
	return metricsOpts
}

// NewMetricsServer returns a Prometheus metrics server instance.
func NewMetricsServer(opts ...Option) *metricsServer {
	m := new(metricsServer)
	m.port = config.DefaultMetricsPort
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Handler returns the handler serving the metrics and the probes.
func (ms *metricsServer) Handler(ctx context.Context) http.Handler {
	log := logging.FromContext(ctx)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		for _, ex := range ms.healthCheckExecutors {
			if err := ex(); err != nil {
				log.Errorw("Failed to execute health check", zap.Error(err))
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

// Start function starts the HTTP(S) service to expose metrics, it returns a shutdown function and an error if any
func (ms *metricsServer) Start(ctx context.Context) (func(ctx context.Context) error, error) {
	log := logging.FromContext(ctx)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", ms.port),
		Handler:           ms.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if ms.enableTLS {
		log.Info("Generating self-signed certificate")
		cer, err := sharedtls.GenerateX509KeyPair()
		if err != nil {
			return nil, fmt.Errorf("failed to generate cert: %w", err)
		}
		httpServer.TLSConfig = &tls.Config{Certificates: []tls.Certificate{*cer}, MinVersion: tls.VersionTLS12}
	}
	ln, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", httpServer.Addr, err)
	}

	go func() {
		var err error
		if ms.enableTLS {
			log.Infow("Starting metrics HTTPS server", zap.Int("port", ms.port))
			err = httpServer.ServeTLS(ln, "", "")
		} else {
			log.Infow("Starting metrics HTTP server", zap.Int("port", ms.port))
			err = httpServer.Serve(ln)
		}
		if err != nil && err != http.ErrServerClosed {
			log.Errorw("Metrics server stopped unexpectedly", zap.Error(err))
		}
		log.Info("Metrics server shutdown")
	}()
	return httpServer.Shutdown, nil
}
