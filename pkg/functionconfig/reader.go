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
	"io"
	"os"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	"sigs.k8s.io/yaml"
)

// Reader reads a function configuration from yaml
type Reader struct {
	logger logger.Logger
}

func NewReader(parentLogger logger.Logger) *Reader {
	return &Reader{
		logger: parentLogger.GetChild("functionconfig"),
	}
}

// Read unmarshals yaml from a reader over the given config, leaving
// defaults in place for fields the yaml does not set
func (r *Reader) Read(reader io.Reader, config *Config) error {
	configBytes, err := io.ReadAll(reader)
	if err != nil {
		return errors.Wrap(err, "Failed to read configuration")
	}

	if err := yaml.Unmarshal(configBytes, config); err != nil {
		return errors.Wrap(err, "Failed to parse configuration yaml")
	}

	if config.Spec.Handler == "" {
		return errors.New("Configuration must name a function handler")
	}

	r.logger.DebugWith("Read configuration",
		"name", config.Meta.Name,
		"handler", config.Spec.Handler,
		"kind", config.Spec.Kind)

	return nil
}

// ReadFile reads a function configuration file
func (r *Reader) ReadFile(configurationPath string, config *Config) error {
	configurationFile, err := os.Open(configurationPath)
	if err != nil {
		return errors.Wrapf(err, "Failed to open configuration file at %s", configurationPath)
	}

	defer configurationFile.Close() // nolint: errcheck

	return r.Read(configurationFile, config)
}
