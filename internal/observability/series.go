package observability

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Hand-rolled Prometheus text exposition. Counters and gauges share one
// labelled float store; histograms keep cumulative buckets per label set.

type family struct {
	name   string
	help   string
	kind   string
	labels []string

	mu     sync.RWMutex
	series map[string]float64
}

func newFamily(kind, name, help string, labels []string) *family {
	return &family{name: name, help: help, kind: kind, labels: labels, series: map[string]float64{}}
}

func (f *family) apply(op func(cur float64) float64, values []string) {
	key := labelSet(f.labels, values)
	f.mu.Lock()
	f.series[key] = op(f.series[key])
	f.mu.Unlock()
}

func (f *family) get(values []string) float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.series[labelSet(f.labels, values)]
}

func (f *family) WritePrometheus(w io.Writer) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if err := writeHeader(w, f.name, f.help, f.kind); err != nil {
		return err
	}
	for _, k := range sortedKeys(f.series) {
		if _, err := fmt.Fprintf(w, "%s%s %s\n", f.name, k, formatFloat(f.series[k])); err != nil {
			return err
		}
	}
	return nil
}

type CounterVec struct{ *family }

func NewCounterVec(name, help string, labels []string) *CounterVec {
	return &CounterVec{newFamily("counter", name, help, labels)}
}

func (c *CounterVec) Inc(values ...string) { c.Add(1, values...) }

// Add ignores negative deltas; counters only go up.
func (c *CounterVec) Add(d float64, values ...string) {
	if c == nil || d < 0 {
		return
	}
	c.apply(func(cur float64) float64 { return cur + d }, values)
}

func (c *CounterVec) Value(values ...string) float64 {
	if c == nil {
		return 0
	}
	return c.get(values)
}

func (c *CounterVec) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	return c.family.WritePrometheus(w)
}

type GaugeVec struct{ *family }

func NewGaugeVec(name, help string, labels []string) *GaugeVec {
	return &GaugeVec{newFamily("gauge", name, help, labels)}
}

func (g *GaugeVec) Set(v float64, values ...string) {
	if g == nil {
		return
	}
	g.apply(func(float64) float64 { return v }, values)
}

func (g *GaugeVec) Value(values ...string) float64 {
	if g == nil {
		return 0
	}
	return g.get(values)
}

func (g *GaugeVec) WritePrometheus(w io.Writer) error {
	if g == nil {
		return nil
	}
	return g.family.WritePrometheus(w)
}

// Gauge is an unlabelled GaugeVec.
type Gauge struct{ *family }

func NewGauge(name, help string) *Gauge {
	return &Gauge{newFamily("gauge", name, help, nil)}
}

func (g *Gauge) Set(v float64) {
	if g == nil {
		return
	}
	g.apply(func(float64) float64 { return v }, nil)
}

func (g *Gauge) Inc() { g.add(1) }
func (g *Gauge) Dec() { g.add(-1) }

func (g *Gauge) add(d float64) {
	if g == nil {
		return
	}
	g.apply(func(cur float64) float64 { return cur + d }, nil)
}

func (g *Gauge) Value() float64 {
	if g == nil {
		return 0
	}
	return g.get(nil)
}

func (g *Gauge) WritePrometheus(w io.Writer) error {
	if g == nil {
		return nil
	}
	return g.family.WritePrometheus(w)
}

var defaultBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

type HistogramVec struct {
	name    string
	help    string
	labels  []string
	buckets []float64

	mu     sync.RWMutex
	series map[string]*histogram
}

// histogram counts are cumulative: counts[i] is observations <= buckets[i].
type histogram struct {
	counts []uint64
	sum    float64
	total  uint64
}

func NewHistogramVec(name, help string, labels []string, buckets []float64) *HistogramVec {
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}
	sorted := append([]float64(nil), buckets...)
	sort.Float64s(sorted)
	return &HistogramVec{name: name, help: help, labels: labels, buckets: sorted, series: map[string]*histogram{}}
}

func (h *HistogramVec) Observe(v float64, values ...string) {
	if h == nil {
		return
	}
	key := labelSet(h.labels, values)
	h.mu.Lock()
	defer h.mu.Unlock()
	hist := h.series[key]
	if hist == nil {
		hist = &histogram{counts: make([]uint64, len(h.buckets))}
		h.series[key] = hist
	}
	hist.sum += v
	hist.total++
	for i := sort.SearchFloat64s(h.buckets, v); i < len(h.buckets); i++ {
		hist.counts[i]++
	}
}

// Count returns how many observations a label set has seen.
func (h *HistogramVec) Count(values ...string) uint64 {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if hist := h.series[labelSet(h.labels, values)]; hist != nil {
		return hist.total
	}
	return 0
}

func (h *HistogramVec) WritePrometheus(w io.Writer) error {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if err := writeHeader(w, h.name, h.help, "histogram"); err != nil {
		return err
	}
	for _, k := range sortedKeys(h.series) {
		hist := h.series[k]
		for i, b := range h.buckets {
			if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", h.name, withLe(k, formatFloat(b)), hist.counts[i]); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", h.name, withLe(k, "+Inf"), hist.total); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s_sum%s %s\n%s_count%s %d\n", h.name, k, formatFloat(hist.sum), h.name, k, hist.total); err != nil {
			return err
		}
	}
	return nil
}

func writeHeader(w io.Writer, name, help, kind string) error {
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
	return err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// labelSet renders {a="x",b="y"}; missing or empty values become "unknown".
func labelSet(names, values []string) string {
	if len(names) == 0 {
		return ""
	}
	pairs := make([]string, len(names))
	for i, n := range names {
		v := "unknown"
		if i < len(values) && values[i] != "" {
			v = values[i]
		}
		pairs[i] = n + `="` + labelEscaper.Replace(v) + `"`
	}
	return "{" + strings.Join(pairs, ",") + "}"
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func withLe(labels, le string) string {
	le = `le="` + labelEscaper.Replace(le) + `"`
	if labels == "" {
		return "{" + le + "}"
	}
	return strings.TrimSuffix(labels, "}") + "," + le + "}"
}
