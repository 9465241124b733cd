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

package functions

import (
	"context"
	"net/http"
	"time"

	"github.com/funchost/funchost/pkg/cloudevents"
	"github.com/funchost/funchost/pkg/registry"

	"github.com/google/uuid"
	"github.com/nuclio/errors"
)

// CloudEventHandler is a user function invoked with one decoded
// CloudEvent. The returned value, if any, is serialized into the HTTP
// response.
type CloudEventHandler func(ctx context.Context, event cloudevents.Event) (interface{}, error)

// HTTPHandler is a user function served raw HTTP, bypassing event
// decoding entirely
type HTTPHandler func(responseWriter http.ResponseWriter, request *http.Request)

// Registry holds named user functions. Functions register at process
// startup (typically from init or main, before the server starts);
// registering the same name again overrides the earlier registration.
type Registry struct {
	cloudEventHandlers *registry.Registry
	httpHandlers       *registry.Registry
}

func NewRegistry() *Registry {
	return &Registry{
		cloudEventHandlers: registry.NewRegistry("cloudevent function"),
		httpHandlers:       registry.NewRegistry("http function"),
	}
}

// RegisterCloudEvent registers an event-triggered function under a name
func (r *Registry) RegisterCloudEvent(name string, handler CloudEventHandler) {
	r.cloudEventHandlers.Register(name, handler)
}

// RegisterHTTP registers a raw HTTP function under a name
func (r *Registry) RegisterHTTP(name string, handler HTTPHandler) {
	r.httpHandlers.Register(name, handler)
}

// GetCloudEvent returns the newest event-triggered function registered
// under a name
func (r *Registry) GetCloudEvent(name string) (CloudEventHandler, error) {
	registrees, err := r.cloudEventHandlers.Get(name)
	if err != nil {
		return nil, errors.Wrapf(err, "No cloudevent function named %q", name)
	}

	return registrees[0].(CloudEventHandler), nil
}

// GetHTTP returns the newest raw HTTP function registered under a name
func (r *Registry) GetHTTP(name string) (HTTPHandler, error) {
	registrees, err := r.httpHandlers.Get(name)
	if err != nil {
		return nil, errors.Wrapf(err, "No http function named %q", name)
	}

	return registrees[0].(HTTPHandler), nil
}

// DefaultRegistry is the process-wide registry. Binaries built on the
// framework typically register into it from init and let the server
// pick their function up by handler name.
var DefaultRegistry = NewRegistry()

// RegisterCloudEvent registers an event-triggered function in the
// default registry
func RegisterCloudEvent(name string, handler CloudEventHandler) {
	DefaultRegistry.RegisterCloudEvent(name, handler)
}

// RegisterHTTP registers a raw HTTP function in the default registry
func RegisterHTTP(name string, handler HTTPHandler) {
	DefaultRegistry.RegisterHTTP(name, handler)
}

// NewEvent builds an outbound V1 CloudEvent with a generated id and the
// current time, for functions and tests that emit events themselves
func NewEvent(eventType string, source string, data interface{}) (cloudevents.Event, error) {
	attributes := map[string]interface{}{
		cloudevents.AttributeSpecVersion: cloudevents.SpecVersionV1,
		cloudevents.AttributeID:          uuid.New().String(),
		cloudevents.AttributeSource:      source,
		cloudevents.AttributeType:        eventType,
		cloudevents.AttributeTime:        time.Now().UTC(),
	}

	if data != nil {
		attributes[cloudevents.AttributeData] = data
	}

	return cloudevents.New(attributes)
}
