package metrics

import (
	"net/http"

	"github.com/DoyleJ11/coach-draft/internal/engine"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the draft instruments on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	commands        *prometheus.CounterVec
	turns           *prometheus.CounterVec
	draftsCompleted prometheus.Counter
	wsClients       prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coachdraft_commands_total",
			Help: "Draft commands handled, by command type and result.",
		}, []string{"command", "result"}),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coachdraft_turns_total",
			Help: "Resolved turns by kind (pick, pass, skip, undo).",
		}, []string{"kind"}),
		draftsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coachdraft_drafts_completed_total",
			Help: "Drafts that reached the complete phase.",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coachdraft_ws_clients",
			Help: "Connected WebSocket clients.",
		}),
	}
	m.registry.MustRegister(
		m.commands, m.turns, m.draftsCompleted, m.wsClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordCommand counts one command; err is the engine's validation result.
func (m *Metrics) RecordCommand(cmd engine.CommandType, err error) {
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	m.commands.WithLabelValues(string(cmd), result).Inc()
}

func (m *Metrics) RecordEvents(events []engine.Event) {
	for _, e := range events {
		switch e.Type {
		case engine.EvtPlayersPicked:
			m.turns.WithLabelValues("pick").Inc()
		case engine.EvtTurnPassed:
			m.turns.WithLabelValues("pass").Inc()
		case engine.EvtTurnSkipped:
			m.turns.WithLabelValues("skip").Inc()
		case engine.EvtTurnUndone:
			m.turns.WithLabelValues("undo").Inc()
		case engine.EvtDraftCompleted:
			m.draftsCompleted.Inc()
		}
	}
}

func (m *Metrics) ClientConnected()    { m.wsClients.Inc() }
func (m *Metrics) ClientDisconnected() { m.wsClients.Dec() }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
