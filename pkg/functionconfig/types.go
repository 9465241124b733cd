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

package functionconfig

import (
	"github.com/mitchellh/mapstructure"
	"github.com/nuclio/errors"
)

// FunctionKind selects how the wrapped user function is invoked
const (
	FunctionKindCloudEvent = "cloudevent"
	FunctionKindHTTP       = "http"
)

// Meta identifies a function
type Meta struct {
	Name      string            `json:"name,omitempty"`
	Namespace string            `json:"namespace,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// Spec holds the runtime settings of a wrapped function
type Spec struct {

	// Handler is the registered name of the user function to invoke
	Handler string `json:"handler,omitempty"`

	// Kind is one of the FunctionKind values; defaults to cloudevent
	Kind string `json:"kind,omitempty"`

	// LoggerLevel is debug / info / warn / error
	LoggerLevel string `json:"loggerLevel,omitempty"`

	HTTP        HTTP        `json:"http,omitempty"`
	HealthCheck HealthCheck `json:"healthCheck,omitempty"`
}

// HTTP configures the function server
type HTTP struct {
	ListenAddress string `json:"listenAddress,omitempty"`

	// CORS holds loosely-typed cross origin settings, decoded on demand
	CORS map[string]interface{} `json:"cors,omitempty"`
}

// CORS is the typed form of the HTTP.CORS attribute map
type CORS struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowedOrigins"`
	AllowedMethods   []string `mapstructure:"allowedMethods"`
	AllowedHeaders   []string `mapstructure:"allowedHeaders"`
	AllowCredentials bool     `mapstructure:"allowCredentials"`
	MaxAge           int      `mapstructure:"maxAge"`
}

// HealthCheck configures the healthcheck / metrics listener
type HealthCheck struct {
	Enabled       *bool  `json:"enabled,omitempty"`
	ListenAddress string `json:"listenAddress,omitempty"`
}

// Config is a single function configuration
type Config struct {
	Meta Meta `json:"metadata,omitempty"`
	Spec Spec `json:"spec,omitempty"`
}

// NewConfig returns a config with defaults applied
func NewConfig() *Config {
	healthCheckEnabled := true

	return &Config{
		Spec: Spec{
			Kind:        FunctionKindCloudEvent,
			LoggerLevel: "info",
			HTTP: HTTP{
				ListenAddress: ":8080",
			},
			HealthCheck: HealthCheck{
				Enabled:       &healthCheckEnabled,
				ListenAddress: ":8082",
			},
		},
	}
}

// GetCORS decodes the loose CORS attribute map into its typed form
func (h *HTTP) GetCORS() (*CORS, error) {
	cors := &CORS{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Content-Length"},
	}

	if h.CORS == nil {
		return cors, nil
	}

	if err := mapstructure.Decode(h.CORS, cors); err != nil {
		return nil, errors.Wrap(err, "Failed to decode CORS attributes")
	}

	return cors, nil
}
