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

// Package nats wraps a NATS core connection with the reconnect and logging behavior shared by the nats source.
//
// Function NewNATSClient(ctx, cfg, natsOptions...) connects to cfg.URL with the configured credentials and TLS.
// Function NewTestClient(t, url) connects without any of those and is only used for testing.

package nats
