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

package blackhole

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/numaproj/adclick/pkg/events"
)

func TestBlackhole_Write(t *testing.T) {
	b := NewBlackhole()
	assert.Equal(t, "blackhole", b.Name())
	errs := b.Write(context.Background(), []events.Result{
		events.CtrResult{WindowStart: 0, CampaignID: "c1", Ctr: 1},
	})
	assert.Equal(t, []error{nil}, errs)
	assert.NoError(t, b.Close())
}
