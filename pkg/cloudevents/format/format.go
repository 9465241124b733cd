/*
Copyright 2023 The Funchost Authors.

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

package format

import (
	"github.com/funchost/funchost/pkg/cloudevents"
)

// Format encodes and decodes CloudEvents in one structured wire format,
// identified by the content type subtype suffix (e.g. "json" for
// application/cloudevents+json). Implementations must be stateless and
// safe for concurrent use.
type Format interface {

	// Name returns the format name used in content type suffixes
	Name() string

	// DecodeEvent decodes a single event from a structured mode body
	DecodeEvent(body []byte) (cloudevents.Event, error)

	// EncodeEvent encodes a single event into a structured mode body
	EncodeEvent(event cloudevents.Event) ([]byte, error)

	// DecodeBatch decodes a batched mode body. The result is always a
	// slice, a one element body included.
	DecodeBatch(body []byte) ([]cloudevents.Event, error)

	// EncodeBatch encodes events into a batched mode body
	EncodeBatch(events []cloudevents.Event) ([]byte, error)
}
