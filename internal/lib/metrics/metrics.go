package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "recorder"

const (
	ResultOK      = "ok"
	ResultFailure = "failure"

	ReasonMaxInstances = "max_instances"
	ReasonPoolBusy     = "pool_busy"
)

type Metrics struct {
	Captures       *prometheus.CounterVec
	Encodes        *prometheus.CounterVec
	EncodesRunning prometheus.Gauge
	SkippedTicks   *prometheus.CounterVec
	Notifications  *prometheus.CounterVec
	BufferedFrames *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Captures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captures_total",
			Help:      "Capture job invocations by camera and result.",
		}, []string{"camera_id", "result"}),
		Encodes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encodes_total",
			Help:      "Finished encode tasks by camera and result.",
		}, []string{"camera_id", "result"}),
		EncodesRunning: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "encodes_running",
			Help:      "Encode tasks currently in flight.",
		}),
		SkippedTicks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_ticks_total",
			Help:      "Scheduler ticks dropped by job and reason.",
		}, []string{"job_id", "reason"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Monitoring pushes by status and result.",
		}, []string{"status", "result"}),
		BufferedFrames: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffered_frames",
			Help:      "Frames waiting in video snippet buffers.",
		}, []string{"camera_id"}),
	}
}

// NewNop returns metrics registered on a private registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
