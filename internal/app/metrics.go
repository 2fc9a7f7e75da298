package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/odyssey-erp/odyssey-authz/internal/observability"
)

// NewMetrics builds the metrics registry with Go runtime and process collectors
// plus an info gauge naming the configured store.
func NewMetrics(cfg *Config) (*observability.Metrics, error) {
	metrics := observability.NewMetrics()
	store := ""
	if cfg != nil {
		store = cfg.Store
	}
	info := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "odyssey_authz_store_info",
		Help: "Store backend used for role lookups.",
	}, []string{"store"})
	info.WithLabelValues(store).Set(1)

	reg := metrics.Registerer()
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		info,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return metrics, nil
}
