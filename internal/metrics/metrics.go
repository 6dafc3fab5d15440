package metrics

/*
censub — find subdomains through Censys certificate search
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry           = prometheus.NewRegistry()
	defaultRegisterer  = promauto.With(registry)
	metricsInitialized sync.Once
	metricsEnabled     bool
	metricsServer      *http.Server
)

// Metrics contains all the Prometheus metrics for a run
type Metrics struct {
	// Search metrics
	SearchRequestDuration *prometheus.HistogramVec
	SearchRequestsTotal   *prometheus.CounterVec
	SearchErrorsTotal     *prometheus.CounterVec
	SearchRateLimitDelay  prometheus.Histogram
	SearchRecordsTotal    prometheus.Counter

	// Subdomain metrics
	SubdomainsExtracted prometheus.Gauge
	SubdomainsKept      prometheus.Gauge
	SubdomainsDropped   *prometheus.CounterVec

	// Output metrics
	OutputWriteErrors  *prometheus.CounterVec
	OutputBytesWritten *prometheus.CounterVec

	// Resolution metrics
	ResolutionsTotal   *prometheus.CounterVec
	ResolutionDuration *prometheus.HistogramVec
}

var globalMetrics *Metrics
var metricsOnce sync.Once

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = newMetrics()
	})
	return globalMetrics
}

// EnableMetrics enables metrics collection
func EnableMetrics() {
	metricsEnabled = true
}

// IsMetricsEnabled returns whether metrics collection is enabled
func IsMetricsEnabled() bool {
	return metricsEnabled
}

// Registry exposes the registry the metrics are registered with.
func Registry() *prometheus.Registry {
	return registry
}

func newMetrics() *Metrics {
	buckets := []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}

	return &Metrics{
		SearchRequestDuration: defaultRegisterer.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "censub_search_request_duration_seconds",
				Help:    "Time spent on Censys search requests",
				Buckets: buckets,
			},
			[]string{"status"},
		),
		SearchRequestsTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "censub_search_requests_total",
				Help: "Total number of Censys search page requests",
			},
			[]string{"status"},
		),
		SearchErrorsTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "censub_search_errors_total",
				Help: "Total number of failed Censys searches",
			},
			[]string{"error_type"},
		),
		SearchRateLimitDelay: defaultRegisterer.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "censub_search_rate_limit_delay_seconds",
				Help:    "Time spent waiting for the page request limiter",
				Buckets: buckets,
			},
		),
		SearchRecordsTotal: defaultRegisterer.NewCounter(
			prometheus.CounterOpts{
				Name: "censub_search_records_total",
				Help: "Total number of certificate records returned by the search",
			},
		),

		SubdomainsExtracted: defaultRegisterer.NewGauge(
			prometheus.GaugeOpts{
				Name: "censub_subdomains_extracted",
				Help: "Unique names extracted from certificate records",
			},
		),
		SubdomainsKept: defaultRegisterer.NewGauge(
			prometheus.GaugeOpts{
				Name: "censub_subdomains_kept",
				Help: "Names left after filtering",
			},
		),
		SubdomainsDropped: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "censub_subdomains_dropped_total",
				Help: "Names removed by the filter",
			},
			[]string{"reason"},
		),

		OutputWriteErrors: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "censub_output_write_errors_total",
				Help: "Total number of failed writes to output files",
			},
			[]string{"file"},
		),
		OutputBytesWritten: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "censub_output_bytes_written_total",
				Help: "Total number of bytes written to output files",
			},
			[]string{"file"},
		),

		ResolutionsTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "censub_resolutions_total",
				Help: "Total number of name lookups",
			},
			[]string{"backend", "status"},
		),
		ResolutionDuration: defaultRegisterer.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "censub_resolution_duration_seconds",
				Help:    "Time spent per name lookup",
				Buckets: buckets,
			},
			[]string{"backend"},
		),
	}
}

// StartMetricsServer starts an HTTP server to expose Prometheus metrics.
// The listener is bound before returning so address errors surface to the caller.
func StartMetricsServer(addr string) error {
	if !metricsEnabled {
		return nil
	}

	var startErr error
	metricsInitialized.Do(func() {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			startErr = err
			return
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

		metricsServer = &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			log.Printf("Starting metrics server on %s", ln.Addr())
			if err := metricsServer.Serve(ln); err != nil && err != http.ErrServerClosed {
				log.Printf("Metrics server error: %v", err)
			}
		}()
	})

	return startErr
}

// ShutdownMetricsServer gracefully shuts down the metrics server
func ShutdownMetricsServer(ctx context.Context) error {
	if metricsServer != nil {
		log.Println("Shutting down metrics server...")
		return metricsServer.Shutdown(ctx)
	}
	return nil
}

// WriteTextfile writes every registered metric to path in the Prometheus text
// format, for a node_exporter textfile collector. The file is written to a
// temporary name and renamed, so collectors never read a partial file.
func WriteTextfile(path string) error {
	GetMetrics()
	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

// MeasureDuration is a helper to measure the duration of a function
func MeasureDuration(histogram prometheus.Observer) func() {
	if !metricsEnabled {
		return func() {}
	}

	start := time.Now()
	return func() {
		histogram.Observe(time.Since(start).Seconds())
	}
}

// RecordSearchRequest counts one page request and its latency.
func (m *Metrics) RecordSearchRequest(status string, elapsed time.Duration) {
	if !metricsEnabled {
		return
	}
	m.SearchRequestsTotal.WithLabelValues(status).Inc()
	m.SearchRequestDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

// RecordSearchError counts a search that ended in an error of errorType.
func (m *Metrics) RecordSearchError(errorType string) {
	if !metricsEnabled {
		return
	}
	m.SearchErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordFilter records the sizes seen before and after filtering.
func (m *Metrics) RecordFilter(extracted, kept, wildcard, offDomain int) {
	if !metricsEnabled {
		return
	}
	m.SubdomainsExtracted.Set(float64(extracted))
	m.SubdomainsKept.Set(float64(kept))
	m.SubdomainsDropped.WithLabelValues("wildcard").Add(float64(wildcard))
	m.SubdomainsDropped.WithLabelValues("off_domain").Add(float64(offDomain))
}

// RecordWrite records a write of n bytes to file, or a failure when err is non-nil.
func (m *Metrics) RecordWrite(file string, n int, err error) {
	if !metricsEnabled {
		return
	}
	if err != nil {
		m.OutputWriteErrors.WithLabelValues(file).Inc()
		return
	}
	m.OutputBytesWritten.WithLabelValues(file).Add(float64(n))
}

// RecordResolution counts a lookup outcome for backend.
func (m *Metrics) RecordResolution(backend string, ok bool, elapsed time.Duration) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if !ok {
		status = "failure"
	}
	m.ResolutionsTotal.WithLabelValues(backend, status).Inc()
	m.ResolutionDuration.WithLabelValues(backend).Observe(elapsed.Seconds())
}
