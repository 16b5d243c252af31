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

package adclick

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersion_String(t *testing.T) {
	v := Version{
		Version:      "0.3.0",
		BuildDate:    "2024-02-01T08:30:00Z",
		GitCommit:    "9f8e7d6c5b4a",
		GitTag:       "v0.3.0",
		GitTreeState: "clean",
		GoVersion:    "go1.22.1",
		Compiler:     "gc",
		Platform:     "linux/arm64",
	}
	assert.Equal(t, "Version: 0.3.0, BuildDate: 2024-02-01T08:30:00Z, GitCommit: 9f8e7d6c5b4a, GitTag: v0.3.0, GitTreeState: clean, GoVersion: go1.22.1, Compiler: gc, Platform: linux/arm64", v.String())
}

func TestGetVersion(t *testing.T) {
	tests := []struct {
		name      string
		commit    string
		tag       string
		treeState string
		want      string
	}{
		{name: "clean tagged build", commit: "9f8e7d6c5b4a", tag: "v0.3.0", treeState: "clean", want: "v0.3.0"},
		{name: "dirty tree", commit: "9f8e7d6c5b4a", tag: "v0.3.0", treeState: "dirty", want: "latest+9f8e7d6.dirty"},
		{name: "untagged clean tree", commit: "9f8e7d6c5b4a", treeState: "clean", want: "latest+9f8e7d6"},
		{name: "unknown commit", treeState: "clean", want: "latest+unknown"},
	}
	defer func(v, c, tag, s string) {
		version, gitCommit, gitTag, gitTreeState = v, c, tag, s
	}(version, gitCommit, gitTag, gitTreeState)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version = "latest"
			gitCommit, gitTag, gitTreeState = tt.commit, tt.tag, tt.treeState
			assert.Equal(t, tt.want, GetVersion().Version)
		})
	}
}

func TestGetVersion_Runtime(t *testing.T) {
	v := GetVersion()
	assert.Equal(t, runtime.Version(), v.GoVersion)
	assert.Equal(t, runtime.Compiler, v.Compiler)
	assert.Equal(t, fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH), v.Platform)
}
