// Package metrics defines the Prometheus collectors exported by the API and
// the reminder runner, and the handler serving them.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// API metrics
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskr_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskr_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Task metrics
	TasksCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskr_tasks_created_total",
			Help: "Total number of tasks created",
		},
	)

	FilesUploaded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskr_files_uploaded_total",
			Help: "Total number of files attached to tasks",
		},
	)

	// Reminder metrics
	RemindersScheduled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskr_reminders_scheduled_total",
			Help: "Total number of reminders registered with the scheduler",
		},
	)

	RemindersDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskr_reminders_dispatched_total",
			Help: "Total number of reminder deliveries by result (sent, failed)",
		},
		[]string{"result"},
	)

	RemindersReset = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskr_reminders_reset_total",
			Help: "Total number of stuck reminders returned to pending",
		},
	)

	ReminderDispatchLag = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "taskr_reminder_dispatch_lag_seconds",
			Help:    "Delay between a reminder's fire time and its delivery attempt",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 300, 900},
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(TasksCreated)
	prometheus.MustRegister(FilesUploaded)
	prometheus.MustRegister(RemindersScheduled)
	prometheus.MustRegister(RemindersDispatched)
	prometheus.MustRegister(RemindersReset)
	prometheus.MustRegister(ReminderDispatchLag)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures an operation's duration for a histogram.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDurationVec records the elapsed time on h with the given labels.
func (t *Timer) ObserveDurationVec(h *prometheus.HistogramVec, labels ...string) {
	h.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}
