// Package metrics tracks request counters for the gateway. Derived values
// (success rate, average latency, top codes) are computed at read time,
// never stored.
package metrics

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CodeUsage is one entry of the top-codes ranking.
type CodeUsage struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// Snapshot is a point-in-time view of the collected metrics.
type Snapshot struct {
	TotalRequests      int         `json:"totalRequests"`
	SuccessfulRequests int         `json:"successfulRequests"`
	SuccessRate        float64     `json:"successRate"`
	AvgResponseTimeMs  float64     `json:"avgResponseTime"`
	TopCodes           []CodeUsage `json:"topCodes"`
}

// Collector accumulates USSD request metrics and mirrors them into a
// Prometheus registry.
type Collector struct {
	mu         sync.Mutex
	total      int
	successful int
	latencies  []time.Duration
	codeUsage  map[string]int

	registry *prometheus.Registry
	reqCnt   *prometheus.CounterVec
	reqDur   prometheus.Histogram
	inflight prometheus.Gauge
}

// NewCollector creates a collector with its own Prometheus registry under
// the given namespace.
func NewCollector(namespace string) *Collector {
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	reqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "ussd_requests_total"}, []string{"code", "status"})
	reqDur := prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "ussd_request_duration_seconds"})
	inflight := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "ussd_requests_inflight"})
	r.MustRegister(reqCnt, reqDur, inflight)

	return &Collector{
		codeUsage: make(map[string]int),
		registry:  r,
		reqCnt:    reqCnt,
		reqDur:    reqDur,
		inflight:  inflight,
	}
}

// RequestStarted records a dial attempt for code.
func (c *Collector) RequestStarted(code string) {
	c.mu.Lock()
	c.total++
	c.codeUsage[code]++
	c.mu.Unlock()

	c.inflight.Inc()
}

// RequestSucceeded records a successful response and its latency.
func (c *Collector) RequestSucceeded(code string, latency time.Duration) {
	c.mu.Lock()
	c.successful++
	c.latencies = append(c.latencies, latency)
	c.mu.Unlock()

	c.reqCnt.WithLabelValues(code, "success").Inc()
	c.reqDur.Observe(latency.Seconds())
	c.inflight.Dec()
}

// RequestFailed records a failed request.
func (c *Collector) RequestFailed(code string) {
	c.reqCnt.WithLabelValues(code, "failure").Inc()
	c.inflight.Dec()
}

// RequestCancelled settles a tracked request that ended without a network
// outcome, keeping the inflight gauge balanced.
func (c *Collector) RequestCancelled(code string) {
	c.reqCnt.WithLabelValues(code, "cancelled").Inc()
	c.inflight.Dec()
}

// ResponseReceived records a successful response that no tracked request was
// waiting for: a network push, or a reply arriving after its request timed
// out. There is no start time, so no latency sample is taken.
func (c *Collector) ResponseReceived(code string) {
	c.mu.Lock()
	c.total++
	c.successful++
	if code != "" {
		c.codeUsage[code]++
	}
	c.mu.Unlock()

	c.reqCnt.WithLabelValues(code, "success").Inc()
}

// Snapshot derives the current metric values. topN caps the code ranking;
// topN <= 0 uses 10.
func (c *Collector) Snapshot(topN int) Snapshot {
	if topN <= 0 {
		topN = 10
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		TotalRequests:      c.total,
		SuccessfulRequests: c.successful,
	}
	if c.total > 0 {
		snap.SuccessRate = float64(c.successful) / float64(c.total)
	}
	if len(c.latencies) > 0 {
		var sum time.Duration
		for _, l := range c.latencies {
			sum += l
		}
		snap.AvgResponseTimeMs = float64(sum.Milliseconds()) / float64(len(c.latencies))
	}

	snap.TopCodes = make([]CodeUsage, 0, len(c.codeUsage))
	for code, count := range c.codeUsage {
		snap.TopCodes = append(snap.TopCodes, CodeUsage{Code: code, Count: count})
	}
	sort.Slice(snap.TopCodes, func(i, j int) bool {
		if snap.TopCodes[i].Count != snap.TopCodes[j].Count {
			return snap.TopCodes[i].Count > snap.TopCodes[j].Count
		}
		return snap.TopCodes[i].Code < snap.TopCodes[j].Code
	})
	if len(snap.TopCodes) > topN {
		snap.TopCodes = snap.TopCodes[:topN]
	}
	return snap
}

// Reset zeroes the running counters. The Prometheus registry is untouched.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total = 0
	c.successful = 0
	c.latencies = nil
	c.codeUsage = make(map[string]int)
}

// Handler serves the Prometheus exposition endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
