package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/triesync/client/metrics"
)

// registrySnapshotCollector walks metrics.DefaultRegistry on every scrape
// and re-exposes it as Prometheus gauges. The internal registry stays
// dependency-free (see metrics/registry.go); this is the only place in the
// repository that couples it to Prometheus.
type registrySnapshotCollector struct {
	reg *metrics.Registry
}

func (c *registrySnapshotCollector) Describe(ch chan<- *prometheus.Desc) {
	// Dynamic metric set: nothing to describe up front.
}

func (c *registrySnapshotCollector) Collect(ch chan<- prometheus.Metric) {
	for name, v := range c.reg.Snapshot() {
		switch val := v.(type) {
		case int64:
			ch <- prometheus.MustNewConstMetric(
				prometheus.NewDesc(sanitizeMetricName(name), name, nil, nil),
				prometheus.GaugeValue, float64(val),
			)
		case map[string]interface{}:
			for field, fv := range val {
				fval, ok := fv.(float64)
				if !ok {
					continue
				}
				ch <- prometheus.MustNewConstMetric(
					prometheus.NewDesc(sanitizeMetricName(name+"_"+field), name+" "+field, nil, nil),
					prometheus.GaugeValue, fval,
				)
			}
		}
	}
}

func sanitizeMetricName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}

// serveMetrics starts a blocking HTTP server exposing metrics.DefaultRegistry
// at /metrics in Prometheus text format.
func serveMetrics(addr string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(&registrySnapshotCollector{reg: metrics.DefaultRegistry})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return http.ListenAndServe(addr, mux)
}
