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

package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/funchost/funchost/pkg/cloudevents"
	"github.com/funchost/funchost/pkg/functionconfig"
	"github.com/funchost/funchost/pkg/functions"
	"github.com/funchost/funchost/pkg/server"
	"github.com/funchost/funchost/pkg/server/healthcheck"
	"github.com/funchost/funchost/pkg/version"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	"github.com/nuclio/zap"
)

const builtinSinkHandler = "events-sink"

// Funchost hosts a single user function behind the event server, plus
// a healthcheck side listener
type Funchost struct {
	logger            logger.Logger
	configuration     *functionconfig.Config
	server            *server.Server
	healthcheckServer *healthcheck.Server
}

// NewFunchost reads the configuration (defaults when no path is given)
// and wires the servers. Functions are looked up in the process-wide
// default registry; when no handler is configured, a built-in sink that
// logs and echoes event attributes is served instead.
func NewFunchost(parentLogger logger.Logger,
	configurationPath string,
	listenAddress string,
	verbose bool) (*Funchost, error) {

	configuration := functionconfig.NewConfig()

	if configurationPath != "" {
		reader := functionconfig.NewReader(parentLogger)
		if err := reader.ReadFile(configurationPath, configuration); err != nil {
			return nil, errors.Wrap(err, "Failed to read configuration")
		}
	}

	if listenAddress != "" {
		configuration.Spec.HTTP.ListenAddress = listenAddress
	}

	if verbose {
		configuration.Spec.LoggerLevel = "debug"
	}

	// the servers log at the configured level, which may differ from the
	// command-line logger's
	runtimeLogger, err := createRuntimeLogger(configuration.Spec.LoggerLevel)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create runtime logger")
	}

	funchost := &Funchost{
		logger:        runtimeLogger,
		configuration: configuration,
	}

	if configuration.Spec.Handler == "" {
		funchost.registerBuiltinSink()
		configuration.Spec.Handler = builtinSinkHandler
	}

	eventServer, err := server.NewServer(runtimeLogger, configuration, functions.DefaultRegistry)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create server")
	}

	funchost.server = eventServer

	funchost.healthcheckServer, err = healthcheck.NewServer(runtimeLogger,
		eventServer,
		eventServer.MetricsRegistry(),
		&configuration.Spec.HealthCheck)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create healthcheck server")
	}

	return funchost, nil
}

// Start serves until the process receives SIGINT or SIGTERM, then
// drains and returns
func (f *Funchost) Start() error {
	f.logger.InfoWith("Starting",
		"version", version.Get(),
		"handler", f.configuration.Spec.Handler)

	if err := f.healthcheckServer.Start(); err != nil {
		return errors.Wrap(err, "Failed to start healthcheck server")
	}

	if err := f.server.Start(); err != nil {
		return errors.Wrap(err, "Failed to start server")
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-signals

	f.logger.InfoWith("Shutting down", "signal", receivedSignal.String())

	shutdownContext, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return f.server.Stop(shutdownContext)
}

func createRuntimeLogger(levelName string) (logger.Logger, error) {
	var loggerLevel nucliozap.Level

	switch levelName {
	case "debug":
		loggerLevel = nucliozap.DebugLevel
	case "warn":
		loggerLevel = nucliozap.WarnLevel
	case "error":
		loggerLevel = nucliozap.ErrorLevel
	default:
		loggerLevel = nucliozap.InfoLevel
	}

	loggerInstance, err := nucliozap.NewNuclioZapCmd("funchost", loggerLevel)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create logger")
	}

	return loggerInstance, nil
}

// the sink accepts any event, logs it and echoes its attributes back,
// which makes a bare funchost binary usable as a local event target
func (f *Funchost) registerBuiltinSink() {
	sinkLogger := f.logger.GetChild(builtinSinkHandler)

	functions.RegisterCloudEvent(builtinSinkHandler,
		func(ctx context.Context, event cloudevents.Event) (interface{}, error) {
			sinkLogger.InfoWith("Received event",
				"id", event.ID(),
				"source", event.SourceString(),
				"type", event.Type())

			return event.Attributes(), nil
		})
}
