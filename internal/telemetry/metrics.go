package telemetry

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	dependenciesParsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dementor_dependencies_parsed_total",
		Help: "Total number of canonical dependencies extracted",
	})

	parseErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dementor_parse_errors_total",
		Help: "Total number of unreadable manifest files",
	}, []string{"parser"})

	findingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dementor_findings_total",
		Help: "Total number of vulnerability findings",
	}, []string{"severity"})

	lookupRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dementor_lookup_retries_total",
		Help: "Total number of retried advisory lookups",
	})

	lookupsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dementor_lookups_in_flight",
		Help: "Advisory source queries currently in flight",
	})

	unitsScanned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dementor_units_scanned_total",
		Help: "Scan units processed, labelled by final status",
	}, []string{"status"})
)

// TrackDependenciesParsed records n extracted dependencies.
func TrackDependenciesParsed(n int) {
	dependenciesParsed.Add(float64(n))
}

// TrackParseError records an unreadable manifest for the given parser.
func TrackParseError(parser string) {
	parseErrors.WithLabelValues(parser).Inc()
}

// TrackFinding records one finding with its normalized severity.
func TrackFinding(severity string) {
	findingsTotal.WithLabelValues(severity).Inc()
}

// TrackLookupRetry records one retried advisory lookup.
func TrackLookupRetry() {
	lookupRetries.Inc()
}

// LookupStarted and LookupFinished bracket an in-flight advisory query.
func LookupStarted()  { lookupsInFlight.Inc() }
func LookupFinished() { lookupsInFlight.Dec() }

// TrackUnitScanned records a completed scan unit by status.
func TrackUnitScanned(status string) {
	unitsScanned.WithLabelValues(status).Inc()
}

// StartMetricsServer starts a HTTP server exposing Prometheus metrics.
func StartMetricsServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}
