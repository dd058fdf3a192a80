package catalog

import "github.com/prometheus/client_golang/prometheus"

const labelOp = "op"

type Metrics struct {
	Records prometheus.GaugeFunc
	Tags    prometheus.GaugeFunc
	Ops     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer, c *Catalog) *Metrics {
	m := &Metrics{
		Records: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "catalog_records",
				Help: "Records in the primary index",
			},
			func() float64 { return float64(c.Len()) },
		),
		Tags: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "catalog_tags",
				Help: "Distinct tags in the tag index",
			},
			func() float64 { return float64(c.TagLen()) },
		),
		Ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_operations_total",
				Help: "Catalog operations served",
			},
			[]string{labelOp},
		),
	}

	reg.MustRegister(m.Records, m.Tags, m.Ops)
	return m
}

func (m *Metrics) observe(op string) {
	if m == nil {
		return
	}
	m.Ops.WithLabelValues(op).Inc()
}
