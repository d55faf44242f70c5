package importer

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var documentsNormalized = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "importer",
		Name:      "documents_normalized_total",
		Help:      "Metadata sidecars processed, by format and outcome.",
	},
	[]string{"format", "outcome"},
)

// outcome labels
const (
	outcomeOK              = "ok"
	outcomeParseError      = "parse_error"
	outcomeValidationError = "validation_error"
	outcomeError           = "error"
)

func observeNormalization(format Format, err error) {
	documentsNormalized.WithLabelValues(string(format), outcomeLabel(err)).Inc()
}

func outcomeLabel(err error) string {
	var parseErr *ParseError
	var validationErr *ValidationError
	switch {
	case err == nil:
		return outcomeOK
	case errors.As(err, &parseErr):
		return outcomeParseError
	case errors.As(err, &validationErr):
		return outcomeValidationError
	default:
		return outcomeError
	}
}
