// Package metrics keeps named counter, summary and gauge families in a private
// Prometheus registry. Families are created on first use; the label keys of the
// first call fix the family's label set.
package metrics

import (
	"bytes"
	"net/http"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

type families struct {
	reg       *prometheus.Registry
	counters  map[string]*prometheus.CounterVec
	summaries map[string]*prometheus.SummaryVec
	gauges    map[string]*prometheus.GaugeVec
}

var (
	mu  sync.Mutex
	cur = newFamilies()
)

func newFamilies() *families {
	return &families{
		reg:       prometheus.NewRegistry(),
		counters:  map[string]*prometheus.CounterVec{},
		summaries: map[string]*prometheus.SummaryVec{},
		gauges:    map[string]*prometheus.GaugeVec{},
	}
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Inc adds 1 to the counter family name.
func Inc(name string, labels map[string]string) { Add(name, labels, 1) }

// Add adds v to the counter family name.
func Add(name string, labels map[string]string, v float64) {
	mu.Lock()
	defer mu.Unlock()
	vec, ok := cur.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: name}, labelNames(labels))
		if err := cur.reg.Register(vec); err != nil {
			return
		}
		cur.counters[name] = vec
	}
	if c, err := vec.GetMetricWith(prometheus.Labels(labels)); err == nil {
		c.Add(v)
	}
}

// ObserveSummary records v in the summary family name.
func ObserveSummary(name string, labels map[string]string, v float64) {
	mu.Lock()
	defer mu.Unlock()
	vec, ok := cur.summaries[name]
	if !ok {
		vec = prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       name,
			Help:       name,
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, labelNames(labels))
		if err := cur.reg.Register(vec); err != nil {
			return
		}
		cur.summaries[name] = vec
	}
	if o, err := vec.GetMetricWith(prometheus.Labels(labels)); err == nil {
		o.Observe(v)
	}
}

func gauge(name string, labels map[string]string) prometheus.Gauge {
	vec, ok := cur.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: name}, labelNames(labels))
		if err := cur.reg.Register(vec); err != nil {
			return nil
		}
		cur.gauges[name] = vec
	}
	g, err := vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		return nil
	}
	return g
}

// SetGauge sets the gauge family name to v.
func SetGauge(name string, labels map[string]string, v int64) {
	mu.Lock()
	defer mu.Unlock()
	if g := gauge(name, labels); g != nil {
		g.Set(float64(v))
	}
}

// AddGauge adds delta to the gauge family name.
func AddGauge(name string, labels map[string]string, delta int64) {
	mu.Lock()
	defer mu.Unlock()
	if g := gauge(name, labels); g != nil {
		g.Add(float64(delta))
	}
}

// DumpProm renders every family in the Prometheus text format.
func DumpProm() string {
	mu.Lock()
	reg := cur.reg
	mu.Unlock()
	mfs, err := reg.Gather()
	if err != nil {
		return ""
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return buf.String()
		}
	}
	return buf.String()
}

// Handler serves the current registry.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		reg := cur.reg
		mu.Unlock()
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

// Reset drops every family. Tests call it before asserting on DumpProm.
func Reset() {
	mu.Lock()
	cur = newFamilies()
	mu.Unlock()
}
