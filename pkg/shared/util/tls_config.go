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

package util

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/numaproj/adclick/pkg/config"
)

// GetTLSConfig builds a tls.Config from the file based TLS settings, nil if none is configured.
func GetTLSConfig(cfg config.TLS) (*tls.Config, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	if len(cfg.CertFile)+len(cfg.KeyFile) > 0 && len(cfg.CertFile)*len(cfg.KeyFile) == 0 {
		// Only one of certFile and keyFile is configured
		return nil, fmt.Errorf("invalid tls config, both certFile and keyFile need to be configured")
	}

	c := &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}
	if len(cfg.CACertFile) > 0 {
		caCert, err := os.ReadFile(cfg.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read ca cert file %s, %w", cfg.CACertFile, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("no certificate found in ca cert file %s", cfg.CACertFile)
		}
		c.RootCAs = pool
	}

	if len(cfg.CertFile) > 0 && len(cfg.KeyFile) > 0 {
		clientCert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client cert key pair (%s, %s), %w", cfg.CertFile, cfg.KeyFile, err)
		}
		c.Certificates = []tls.Certificate{clientCert}
	}
	return c, nil
}
