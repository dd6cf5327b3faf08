package document

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts document loads and saves by result.
type Metrics struct {
	Loads *prometheus.CounterVec
	Saves *prometheus.CounterVec
}

// NewMetrics registers the document counters on reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "satchel",
			Subsystem: "document",
			Name:      "loads_total",
			Help:      "Document loads by result (ok, missing, malformed, error).",
		}, []string{"result"}),
		Saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "satchel",
			Subsystem: "document",
			Name:      "saves_total",
			Help:      "Document saves by result (ok, error).",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.Loads, m.Saves)
	}
	return m
}

func (m *Metrics) load(result string) {
	if m != nil {
		m.Loads.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) save(result string) {
	if m != nil {
		m.Saves.WithLabelValues(result).Inc()
	}
}

// Summary gathers every counter from g as "name{label=value,...}" keys.
func Summary(g prometheus.Gatherer) (map[string]float64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	out := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			c := m.GetCounter()
			if c == nil {
				continue
			}
			name := mf.GetName()
			if labels := m.GetLabel(); len(labels) > 0 {
				parts := make([]string, 0, len(labels))
				for _, lp := range labels {
					parts = append(parts, lp.GetName()+"="+lp.GetValue())
				}
				name += "{" + strings.Join(parts, ",") + "}"
			}
			out[name] = c.GetValue()
		}
	}
	return out, nil
}

// LogSummary writes the gathered counters to logger as one record.
func LogSummary(logger *slog.Logger, g prometheus.Gatherer) {
	counters, err := Summary(g)
	if err != nil {
		logger.Warn("document metrics", "err", err)
		return
	}
	names := make([]string, 0, len(counters))
	for name := range counters {
		names = append(names, name)
	}
	sort.Strings(names)
	args := make([]any, 0, len(names))
	for _, name := range names {
		args = append(args, slog.Float64(name, counters[name]))
	}
	logger.Info("document metrics", args...)
}
