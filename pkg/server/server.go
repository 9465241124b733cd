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

package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/funchost/funchost/pkg/cloudevents"
	"github.com/funchost/funchost/pkg/cloudevents/cehttp"
	"github.com/funchost/funchost/pkg/contenttype"
	"github.com/funchost/funchost/pkg/functionconfig"
	"github.com/funchost/funchost/pkg/functions"
	"github.com/funchost/funchost/pkg/legacyevents"
	"github.com/funchost/funchost/pkg/status"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
)

// Server wraps a single user function in an HTTP server. Inbound requests
// are decoded through a strategy chain - CloudEvents binary/structured/
// batched first, then legacy event conversion - and the resulting event
// is handed to the user function. Decode failures are request-scoped and
// map to client errors; they never take the process down.
type Server struct {
	status.Holder

	logger          logger.Logger
	configuration   *functionconfig.Config
	binding         *cehttp.Binding
	legacyConverter *legacyevents.Converter
	functions       *functions.Registry
	metrics         *metrics
	metricsRegistry *prometheus.Registry
	httpServer      *http.Server
}

func NewServer(parentLogger logger.Logger,
	configuration *functionconfig.Config,
	functionRegistry *functions.Registry) (*Server, error) {

	serverLogger := parentLogger.GetChild("server")

	metricsRegistry := prometheus.NewRegistry()
	serverMetrics, err := newMetrics(metricsRegistry)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create metrics")
	}

	server := &Server{
		logger:          serverLogger,
		configuration:   configuration,
		binding:         cehttp.NewBinding(serverLogger),
		legacyConverter: legacyevents.NewConverter(serverLogger),
		functions:       functionRegistry,
		metrics:         serverMetrics,
		metricsRegistry: metricsRegistry,
	}

	router, err := server.createRouter()
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create router")
	}

	server.httpServer = &http.Server{
		Addr:    configuration.Spec.HTTP.ListenAddress,
		Handler: router,
	}

	return server, nil
}

// Binding returns the CloudEvents HTTP binding, e.g. for registering
// additional formats before Start
func (s *Server) Binding() *cehttp.Binding {
	return s.binding
}

// MetricsRegistry returns the registry the server's counters live in
func (s *Server) MetricsRegistry() *prometheus.Registry {
	return s.metricsRegistry
}

// Start begins serving in the background and marks the server ready
func (s *Server) Start() error {
	listener := s.httpServer

	go func() {
		if err := listener.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.ErrorWith("Server failed", "err", err.Error())
			s.SetStatus(status.Error)
		}
	}()

	s.SetStatus(status.Ready)
	s.logger.InfoWith("Listening",
		"listenAddress", s.configuration.Spec.HTTP.ListenAddress,
		"handler", s.configuration.Spec.Handler,
		"kind", s.configuration.Spec.Kind)

	return nil
}

// Stop shuts the server down, draining in-flight requests
func (s *Server) Stop(ctx context.Context) error {
	s.SetStatus(status.Stopped)
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) createRouter() (chi.Router, error) {
	router := chi.NewRouter()

	corsConfiguration, err := s.configuration.Spec.HTTP.GetCORS()
	if err != nil {
		return nil, err
	}

	if corsConfiguration.Enabled {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   corsConfiguration.AllowedOrigins,
			AllowedMethods:   corsConfiguration.AllowedMethods,
			AllowedHeaders:   corsConfiguration.AllowedHeaders,
			AllowCredentials: corsConfiguration.AllowCredentials,
			MaxAge:           corsConfiguration.MaxAge,
		}))
	}

	switch s.configuration.Spec.Kind {
	case functionconfig.FunctionKindHTTP:
		handler, err := s.functions.GetHTTP(s.configuration.Spec.Handler)
		if err != nil {
			return nil, err
		}

		router.HandleFunc("/*", http.HandlerFunc(handler))

	case functionconfig.FunctionKindCloudEvent, "":
		if _, err := s.functions.GetCloudEvent(s.configuration.Spec.Handler); err != nil {
			return nil, err
		}

		router.Post("/*", s.handleEventRequest)

	default:
		return nil, errors.Errorf("Unknown function kind: %s", s.configuration.Spec.Kind)
	}

	return router, nil
}

func (s *Server) handleEventRequest(responseWriter http.ResponseWriter, request *http.Request) {
	requestID := xid.New().String()

	body, err := io.ReadAll(request.Body)
	if err != nil {
		s.writeError(responseWriter, http.StatusBadRequest, "Failed to read request body")
		s.metrics.observe(outcomeDecodeError)
		return
	}

	event, decodeErr := s.decodeRequest(request.Header.Get("Content-Type"), request.Header, body)
	if decodeErr != nil {
		s.logger.DebugWith("Failed to decode request",
			"requestID", requestID,
			"err", decodeErr.message)
		s.writeError(responseWriter, http.StatusBadRequest, decodeErr.message)
		s.metrics.observe(outcomeDecodeError)
		return
	}

	handler, err := s.functions.GetCloudEvent(s.configuration.Spec.Handler)
	if err != nil {
		s.writeError(responseWriter, http.StatusInternalServerError, "Function not found")
		s.metrics.observe(outcomeHandlerError)
		return
	}

	result, err := handler(request.Context(), event)
	if err != nil {
		s.logger.WarnWith("Function returned an error",
			"requestID", requestID,
			"eventID", event.ID(),
			"err", err.Error())
		s.writeError(responseWriter, http.StatusInternalServerError, "Function failed")
		s.metrics.observe(outcomeHandlerError)
		return
	}

	s.metrics.observe(outcomeSuccess)
	s.writeResult(responseWriter, result)
}

// decodeError is a request-scoped decode failure with a client-safe
// message
type decodeError struct {
	message string
}

// decodeRequest runs the decode strategy chain: the CloudEvents binding
// first, then legacy conversion; only when every strategy declines does
// it report a definitive failure. A decoded batch is a definitive failure
// too - user functions accept one event at a time.
func (s *Server) decodeRequest(rawContentType string,
	headers http.Header,
	body []byte) (cloudevents.Event, *decodeError) {

	event, batch, err := s.binding.Decode(rawContentType, headers, body)

	switch {
	case err == nil && batch != nil:
		return nil, &decodeError{message: "Batched CloudEvents are not supported"}

	case err == nil:
		return event, nil

	case cloudevents.IsNotCloudEvent(err):

		// not a CloudEvent - try the legacy format before giving up
		if legacyEvent, recognized := s.legacyConverter.Convert(body, contenttype.Parse(rawContentType)); recognized {
			return legacyEvent, nil
		}

		return nil, &decodeError{message: "Unrecognized event format"}

	default:
		return nil, &decodeError{message: err.Error()}
	}
}

func (s *Server) writeError(responseWriter http.ResponseWriter, statusCode int, message string) {
	responseWriter.Header().Set("Content-Type", "application/json")
	responseWriter.WriteHeader(statusCode)
	json.NewEncoder(responseWriter).Encode(map[string]string{"error": message}) // nolint: errcheck
}

func (s *Server) writeResult(responseWriter http.ResponseWriter, result interface{}) {
	switch typedResult := result.(type) {
	case nil:
		responseWriter.WriteHeader(http.StatusNoContent)
	case []byte:
		responseWriter.Write(typedResult) // nolint: errcheck
	case string:
		responseWriter.Write([]byte(typedResult)) // nolint: errcheck
	default:
		responseWriter.Header().Set("Content-Type", "application/json")
		json.NewEncoder(responseWriter).Encode(typedResult) // nolint: errcheck
	}
}
