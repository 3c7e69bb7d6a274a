package metrics

import (
	"strings"
	"time"
)

// Outcome labels shared by backend and screen metrics.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeInvalid = "invalid"
	OutcomeStale   = "stale"
)

// BackendCall records one round trip to the REST backend.
func BackendCall(method, tag, outcome string, duration time.Duration) {
	op := OperationKind(tag)
	BackendCallsTotal.WithLabelValues(method, op, outcome).Inc()
	BackendCallDuration.WithLabelValues(method, op).Observe(duration.Seconds())
}

// ScreenOperation records the terminal outcome of a screen operation.
func ScreenOperation(entity, operation, outcome string) {
	ScreenOperationsTotal.WithLabelValues(entity, operation, outcome).Inc()
}

// OperationKind reduces an operation tag such as "createBanque" to its verb
// ("create") to keep label cardinality bounded.
func OperationKind(tag string) string {
	for _, verb := range []string{"load", "search", "create", "update", "delete", "report", "export"} {
		if strings.HasPrefix(tag, verb) {
			return verb
		}
	}
	if tag == "" {
		return "none"
	}
	return "other"
}

// Export modes.
const (
	ExportInline = "inline"
	ExportJob    = "job"
)

// ExportGenerated records a rendered export.
func ExportGenerated(entity, format, mode string) {
	ExportsGenerated.WithLabelValues(entity, format, mode).Inc()
}

// ReportDownloaded records a proxied backend report; status is an outcome label.
func ReportDownloaded(entity, status string) {
	ReportsDownloaded.WithLabelValues(entity, status).Inc()
}
