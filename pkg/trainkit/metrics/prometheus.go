package metrics

import (
	"context"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusSink exposes the latest recorded values for scraping.
type PrometheusSink struct {
	reg       *prom.Registry
	value     *prom.GaugeVec
	step      *prom.GaugeVec
	histogram *prom.GaugeVec
	records   *prom.CounterVec
}

// NewPrometheusSink constructs and registers the sink's collectors on reg.
// A nil reg gets a fresh registry.
func NewPrometheusSink(reg *prom.Registry) *PrometheusSink {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	p := &PrometheusSink{
		reg: reg,
		value: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "trainkit",
			Name:      "metric_value",
			Help:      "Latest recorded scalar value by tag and sub-tag",
		}, []string{"tag", "sub_tag"}),
		step: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "trainkit",
			Name:      "metric_step",
			Help:      "Step of the latest recorded item by tag",
		}, []string{"tag"}),
		histogram: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "trainkit",
			Name:      "histogram_summary",
			Help:      "Summary statistics of the latest histogram item by tag",
		}, []string{"tag", "stat"}),
		records: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "trainkit",
			Name:      "records_total",
			Help:      "Recorded items by sink operation",
		}, []string{"op"}),
	}
	reg.MustRegister(p.value, p.step, p.histogram, p.records)
	return p
}

// Registry returns the registry the collectors are registered on.
func (p *PrometheusSink) Registry() *prom.Registry {
	return p.reg
}

// Handler returns an http.Handler that serves the sink's registry.
func (p *PrometheusSink) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (p *PrometheusSink) observe(op Operation, tag string, step int) error {
	p.records.WithLabelValues(string(op)).Inc()
	p.step.WithLabelValues(tag).Set(float64(step))
	return nil
}

// AddScalar implements Sink.
func (p *PrometheusSink) AddScalar(_ context.Context, tag string, v float64, step int) error {
	p.value.WithLabelValues(tag, "").Set(v)
	return p.observe(OpAddScalar, tag, step)
}

// AddScalars implements Sink.
func (p *PrometheusSink) AddScalars(_ context.Context, tag string, values map[string]float64, step int) error {
	for sub, v := range values {
		p.value.WithLabelValues(tag, sub).Set(v)
	}
	return p.observe(OpAddScalars, tag, step)
}

// AddImage implements Sink.
func (p *PrometheusSink) AddImage(_ context.Context, tag string, _ Image, step int) error {
	return p.observe(OpAddImage, tag, step)
}

// AddFigure implements Sink.
func (p *PrometheusSink) AddFigure(_ context.Context, tag string, _ Figure, step int) error {
	return p.observe(OpAddFigure, tag, step)
}

// AddAudio implements Sink.
func (p *PrometheusSink) AddAudio(_ context.Context, tag string, _ Audio, step int) error {
	return p.observe(OpAddAudio, tag, step)
}

// AddVideo implements Sink.
func (p *PrometheusSink) AddVideo(_ context.Context, tag string, _ Video, step int) error {
	return p.observe(OpAddVideo, tag, step)
}

// AddText implements Sink.
func (p *PrometheusSink) AddText(_ context.Context, tag string, _ string, step int) error {
	return p.observe(OpAddText, tag, step)
}

// AddHistogram implements Sink.
func (p *PrometheusSink) AddHistogram(_ context.Context, tag string, values []float64, step int) error {
	s := Summarize(values)
	for stat, v := range map[string]float64{
		"count":  float64(s.Count),
		"min":    s.Min,
		"max":    s.Max,
		"sum":    s.Sum,
		"mean":   s.Mean,
		"stddev": s.StdDev,
	} {
		p.histogram.WithLabelValues(tag, stat).Set(v)
	}
	return p.observe(OpAddHistogram, tag, step)
}

// AddGraph implements Sink.
func (p *PrometheusSink) AddGraph(_ context.Context, tag string, _ Graph, step int) error {
	return p.observe(OpAddGraph, tag, step)
}

var _ Sink = (*PrometheusSink)(nil)
