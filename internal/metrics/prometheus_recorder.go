package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stipple"

// PrometheusRecorder implements Recorder on a private Prometheus registry.
type PrometheusRecorder struct {
	reg             *prom.Registry
	taskDuration    *prom.HistogramVec
	taskResults     *prom.CounterVec
	watchTriggers   *prom.CounterVec
	reloadClients   prom.Gauge
	reloadBroadcast *prom.CounterVec
}

// NewPrometheusRecorder creates the collectors and registers them on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}

	pr := &PrometheusRecorder{
		reg: reg,
		taskDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of individual task runs",
			Buckets:   prom.DefBuckets,
		}, []string{"task"}),
		taskResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "task_results_total",
			Help:      "Task runs by outcome",
		}, []string{"task", "result"}),
		watchTriggers: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "watch_triggers_total",
			Help:      "Watch binding triggers by queue outcome",
		}, []string{"binding", "outcome"}),
		reloadClients: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "livereload_clients",
			Help:      "Connected live-reload clients",
		}),
		reloadBroadcast: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "livereload_events_total",
			Help:      "Live-reload events broadcast by kind",
		}, []string{"kind"}),
	}

	reg.MustRegister(pr.taskDuration, pr.taskResults, pr.watchTriggers, pr.reloadClients, pr.reloadBroadcast)

	return pr
}

func (p *PrometheusRecorder) ObserveTaskDuration(task string, d time.Duration) {
	if p == nil {
		return
	}
	p.taskDuration.WithLabelValues(task).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncTaskResult(task string, result ResultLabel) {
	if p == nil {
		return
	}
	p.taskResults.WithLabelValues(task, string(result)).Inc()
}

func (p *PrometheusRecorder) IncWatchTrigger(binding string, outcome string) {
	if p == nil {
		return
	}
	p.watchTriggers.WithLabelValues(binding, outcome).Inc()
}

func (p *PrometheusRecorder) SetLiveReloadClients(n int) {
	if p == nil {
		return
	}
	p.reloadClients.Set(float64(n))
}

func (p *PrometheusRecorder) IncLiveReloadEvent(kind string) {
	if p == nil {
		return
	}
	p.reloadBroadcast.WithLabelValues(kind).Inc()
}

// Handler serves the recorder's registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
