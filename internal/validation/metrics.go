package validation

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ordergate/internal/intent"
)

var (
	validationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordergate_validation_runs_total",
		Help: "Validation passes by intent action and outcome.",
	}, []string{"action", "valid"})

	validationRisk = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ordergate_validation_risk_score",
		Help:    "Risk score distribution per validation pass.",
		Buckets: []float64{0, 10, 25, 50, 70, 90, 100},
	}, []string{"action"})
)

func observeValidation(action intent.ActionKind, res *Result) {
	validationRuns.WithLabelValues(string(action), strconv.FormatBool(res.IsValid)).Inc()
	validationRisk.WithLabelValues(string(action)).Observe(float64(res.RiskScore))
}
