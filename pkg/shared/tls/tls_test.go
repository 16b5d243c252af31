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

package tls

import (
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	certBytes, privKey, err := generate([]string{"localhost", "127.0.0.1"})
	require.NoError(t, err)
	assert.NotNil(t, privKey)
	cert, err := x509.ParseCertificate(certBytes)
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost"}, cert.DNSNames)
	assert.Len(t, cert.IPAddresses, 1)
	assert.Equal(t, []string{"adclick"}, cert.Subject.Organization)
	assert.LessOrEqual(t, int64(time.Since(cert.NotBefore)), int64(10*time.Second))
}

func TestGeneratePEM(t *testing.T) {
	certPEM, keyPEM, err := GeneratePEM("metrics.adclick.svc")
	require.NoError(t, err)
	block, _ := pem.Decode(certPEM)
	require.NotNil(t, block)
	assert.Equal(t, "CERTIFICATE", block.Type)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	assert.Equal(t, []string{"metrics.adclick.svc"}, cert.DNSNames)

	block, _ = pem.Decode(keyPEM)
	require.NotNil(t, block)
	assert.Equal(t, "EC PRIVATE KEY", block.Type)
}

func TestGenerateX509KeyPair(t *testing.T) {
	cert, err := GenerateX509KeyPair()
	assert.NoError(t, err)
	assert.NotNil(t, cert)
	assert.Len(t, cert.Certificate, 1)
}
