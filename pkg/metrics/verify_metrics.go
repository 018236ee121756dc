package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type VerifyInterceptorOptions struct {
	Action     string
	Mode       string
	ResultOf   func(error) string
	TargetFunc func() (bool, error)
}

func (o VerifyInterceptorOptions) GetTargetFunc() func() (bool, error) {
	return o.TargetFunc
}

var (
	verificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "permit_verifications_total",
		Help: "Total number of permit verifications by outcome",
	}, []string{"result", "action", "mode"})

	verificationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "permit_verification_duration_seconds",
		Help:    "Permit verification duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to ~0.4s
	}, []string{"action"})

	// VerifyInterceptor wraps a full verification pass and records the
	// failed check (or "accepted") as the result label.
	VerifyInterceptor = InterceptorFactory(
		func(opt *VerifyInterceptorOptions) *prometheus.Timer {
			return prometheus.NewTimer(verificationDuration.WithLabelValues(opt.Action))
		},
		func(opt *VerifyInterceptorOptions, state *prometheus.Timer, err error) {
			if state != nil {
				state.ObserveDuration()
			}
			result := "accepted"
			if err != nil {
				result = "rejected"
				if opt.ResultOf != nil {
					result = opt.ResultOf(err)
				}
			}
			verificationsTotal.WithLabelValues(result, opt.Action, opt.Mode).Inc()
		},
	)
)

// RecordVerification counts an outcome that never reached the timed
// pipeline, such as a failed decode
func RecordVerification(result, action, mode string) {
	verificationsTotal.WithLabelValues(result, action, mode).Inc()
}

func init() {
	prometheus.MustRegister(verificationsTotal)
	prometheus.MustRegister(verificationDuration)
}
