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

package healthcheck

import (
	"net/http"

	"github.com/funchost/funchost/pkg/functionconfig"
	"github.com/funchost/funchost/pkg/status"

	"github.com/heptiolabs/healthcheck"
	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves liveness, readiness and metrics on a side listener,
// separate from the function traffic
type Server struct {
	Enabled        bool
	ListenAddress  string
	Logger         logger.Logger
	StatusProvider status.Provider
	Handler        healthcheck.Handler

	metricsRegistry *prometheus.Registry
}

func NewServer(parentLogger logger.Logger,
	statusProvider status.Provider,
	metricsRegistry *prometheus.Registry,
	configuration *functionconfig.HealthCheck) (*Server, error) {

	if configuration.Enabled == nil {
		return nil, errors.New("Enabled must carry a value")
	}

	server := &Server{
		Enabled:         *configuration.Enabled,
		ListenAddress:   configuration.ListenAddress,
		Logger:          parentLogger.GetChild("healthcheck.server"),
		StatusProvider:  statusProvider,
		metricsRegistry: metricsRegistry,
	}

	// surface check results as gauges on the same metrics registry
	server.Handler = healthcheck.NewMetricsHandler(metricsRegistry, "funchost")

	return server, nil
}

func (s *Server) Start() error {

	// if we're disabled, simply log and do nothing
	if !s.Enabled {
		s.Logger.Debug("Disabled, not listening")
		return nil
	}

	// readiness tracks the server's own status
	s.Handler.AddReadinessCheck("server_readiness", func() error {
		if s.StatusProvider.GetStatus() != status.Ready {
			return errors.New("Server not ready yet")
		}

		return nil
	})

	s.Handler.AddLivenessCheck("server_liveness", func() error {
		return nil
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/live", s.Handler.LiveEndpoint)
	mux.HandleFunc("/ready", s.Handler.ReadyEndpoint)
	mux.Handle("/metrics", promhttp.HandlerFor(s.metricsRegistry, promhttp.HandlerOpts{}))

	go http.ListenAndServe(s.ListenAddress, mux) // nolint: errcheck

	s.Logger.InfoWith("Listening", "listenAddress", s.ListenAddress)
	return nil
}
