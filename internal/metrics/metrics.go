// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tamzrod/fieldbus-bridge/internal/device"
	"github.com/tamzrod/fieldbus-bridge/internal/state"
)

const namespace = "bridge"

// Metrics collects bridge counters on its own registry. It is a
// device.Observer and a poller cycle hook.
type Metrics struct {
	reg *prometheus.Registry

	cycles   *prometheus.CounterVec
	reads    *prometheus.CounterVec
	update   *prometheus.HistogramVec
	commands *prometheus.CounterVec
	patches  *prometheus.CounterVec
	fields   *prometheus.GaugeVec
	health   *prometheus.GaugeVec
}

var _ device.Observer = (*Metrics)(nil)

// New registers every collector, plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Poll ticks, by outcome.",
		}, []string{"result"}),
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "group_reads_total",
			Help:      "Register group and probe reads.",
		}, []string{"device", "group", "result"}),
		update: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_duration_seconds",
			Help:      "Time taken by one device update.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"device"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "POST commands handled.",
		}, []string{"device", "command", "status"}),
		patches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patches_total",
			Help:      "PATCH requests handled.",
		}, []string{"device", "status"}),
		fields: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "field_value",
			Help:      "Last published value of a device field; absent while unavailable.",
		}, []string{"device", "field"}),
		health: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "group_health",
			Help:      "Last read health per group: 1 OK, 2 fault.",
		}, []string{"device", "group"}),
	}

	m.reg.MustRegister(
		m.cycles, m.reads, m.update, m.commands, m.patches, m.fields, m.health,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// PollCycle counts one poller tick.
func (m *Metrics) PollCycle(_ time.Duration, err error) {
	m.cycles.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) ObserveRead(dev, group string, err error) {
	m.reads.WithLabelValues(dev, group, outcome(err)).Inc()
}

func (m *Metrics) ObserveCycle(dev string, took time.Duration, snap *state.Snapshot) {
	m.update.WithLabelValues(dev).Observe(took.Seconds())

	for _, f := range snap.Fields() {
		v := snap.Get(f)
		if x, ok := v.Float(); ok {
			m.fields.WithLabelValues(dev, f).Set(x)
			continue
		}
		if b, ok := v.Bool(); ok {
			if b {
				m.fields.WithLabelValues(dev, f).Set(1)
			} else {
				m.fields.WithLabelValues(dev, f).Set(0)
			}
			continue
		}
		m.fields.DeleteLabelValues(dev, f)
	}
	for g, st := range snap.Groups() {
		m.health.WithLabelValues(dev, g).Set(float64(st.Health))
	}
}

func (m *Metrics) ObserveCommand(dev, name, status string) {
	m.commands.WithLabelValues(dev, name, status).Inc()
}

func (m *Metrics) ObservePatch(dev, status string) {
	m.patches.WithLabelValues(dev, status).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
