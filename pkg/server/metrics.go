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
	"github.com/nuclio/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// invocation outcomes used as the metric label
const (
	outcomeSuccess      = "success"
	outcomeDecodeError  = "decode_error"
	outcomeHandlerError = "handler_error"
)

type metrics struct {
	eventsProcessed *prometheus.CounterVec
}

func newMetrics(registry *prometheus.Registry) (*metrics, error) {
	newMetrics := &metrics{
		eventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "funchost",
			Name:      "events_processed_total",
			Help:      "Number of processed event requests, by outcome",
		}, []string{"outcome"}),
	}

	if err := registry.Register(newMetrics.eventsProcessed); err != nil {
		return nil, errors.Wrap(err, "Failed to register events processed counter")
	}

	return newMetrics, nil
}

func (m *metrics) observe(outcome string) {
	m.eventsProcessed.WithLabelValues(outcome).Inc()
}
