// Package metrics exposes Prometheus instruments for the round engine.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quizzz"

// Recorder holds the collectors. A nil Recorder records nothing.
type Recorder struct {
	playsStarted   *prometheus.CounterVec
	playsSubmitted *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	opDuration     *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		playsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plays_started_total",
			Help:      "Start-round calls that returned a quiz, split by whether a play was created.",
		}, []string{"created"}),
		playsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plays_submitted_total",
			Help:      "Submitted plays by number of correct answers.",
		}, []string{"result"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_errors_total",
			Help:      "Failed operations by error code.",
		}, []string{"operation", "code"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of service operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	reg.MustRegister(r.playsStarted, r.playsSubmitted, r.rejections, r.opDuration)
	return r
}

func (r *Recorder) PlayStarted(created bool) {
	if r == nil {
		return
	}
	r.playsStarted.WithLabelValues(strconv.FormatBool(created)).Inc()
}

func (r *Recorder) PlaySubmitted(result int) {
	if r == nil {
		return
	}
	r.playsSubmitted.WithLabelValues(strconv.Itoa(result)).Inc()
}

// OperationFailed counts a failed operation under its stable error code.
func (r *Recorder) OperationFailed(op, code string) {
	if r == nil {
		return
	}
	r.rejections.WithLabelValues(op, code).Inc()
}

func (r *Recorder) ObserveOperation(op string, d time.Duration) {
	if r == nil {
		return
	}
	r.opDuration.WithLabelValues(op).Observe(d.Seconds())
}
