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
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLookupEnvStringOr(t *testing.T) {
	assert.Equal(t, "fallback", LookupEnvStringOr("ADCLICK_TEST_UNSET_STRING", "fallback"))
	t.Setenv("ADCLICK_TEST_STRING", "value")
	assert.Equal(t, "value", LookupEnvStringOr("ADCLICK_TEST_STRING", "fallback"))
}

func TestLookupEnvBoolOr(t *testing.T) {
	assert.True(t, LookupEnvBoolOr("ADCLICK_TEST_UNSET_BOOL", true))
	t.Setenv("ADCLICK_TEST_BOOL", "false")
	assert.False(t, LookupEnvBoolOr("ADCLICK_TEST_BOOL", true))
	t.Setenv("ADCLICK_TEST_BOOL", "nope")
	assert.Panics(t, func() { LookupEnvBoolOr("ADCLICK_TEST_BOOL", true) })
}

func TestLookupEnvDurationOr(t *testing.T) {
	_ = os.Unsetenv("ADCLICK_TEST_DURATION")
	assert.Equal(t, time.Second, LookupEnvDurationOr("ADCLICK_TEST_DURATION", time.Second))
	t.Setenv("ADCLICK_TEST_DURATION", "90s")
	assert.Equal(t, 90*time.Second, LookupEnvDurationOr("ADCLICK_TEST_DURATION", time.Second))
}
