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
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"

	"github.com/numaproj/adclick/pkg/config"
)

func TestApplySASL(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		sc := sarama.NewConfig()
		assert.NoError(t, ApplySASL(sc, config.SASL{}))
		assert.False(t, sc.Net.SASL.Enable)
	})

	t.Run("plain", func(t *testing.T) {
		sc := sarama.NewConfig()
		assert.NoError(t, ApplySASL(sc, config.SASL{Mechanism: config.SASLPlain, User: "u", Password: "p"}))
		assert.True(t, sc.Net.SASL.Enable)
		assert.Equal(t, sarama.SASLMechanism(sarama.SASLTypePlaintext), sc.Net.SASL.Mechanism)
		assert.Equal(t, "u", sc.Net.SASL.User)
		assert.Equal(t, "p", sc.Net.SASL.Password)
	})

	t.Run("scram", func(t *testing.T) {
		sc := sarama.NewConfig()
		assert.NoError(t, ApplySASL(sc, config.SASL{Mechanism: config.SASLScramSHA512, User: "u", Password: "p"}))
		assert.Equal(t, sarama.SASLMechanism(sarama.SASLTypeSCRAMSHA512), sc.Net.SASL.Mechanism)
		client := sc.Net.SASL.SCRAMClientGeneratorFunc()
		assert.NoError(t, client.Begin("u", "p", ""))
		assert.False(t, client.Done())
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, ApplySASL(sarama.NewConfig(), config.SASL{Mechanism: "GSSAPI"}))
	})
}
