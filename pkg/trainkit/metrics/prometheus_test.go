package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/trainkit/pkg/trainkit/metrics"
)

// gaugeValue finds the gauge in family name whose labels include want.
func gaugeValue(t *testing.T, reg *prom.Registry, name string, want map[string]string) (float64, bool) {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			match := true
			for k, v := range want {
				if labels[k] != v {
					match = false
					break
				}
			}
			if match {
				if m.GetGauge() != nil {
					return m.GetGauge().GetValue(), true
				}
				return m.GetCounter().GetValue(), true
			}
		}
	}
	return 0, false
}

func TestPrometheusSink_Values(t *testing.T) {
	reg := prom.NewRegistry()
	sink := metrics.NewPrometheusSink(reg)
	ctx := context.Background()

	require.NoError(t, sink.AddScalar(ctx, "loss", 0.5, 3))
	require.NoError(t, sink.AddScalars(ctx, "acc", map[string]float64{"train": 0.9, "val": 0.8}, 4))
	require.NoError(t, sink.AddHistogram(ctx, "weights", []float64{1, 2, 3}, 5))
	require.NoError(t, sink.AddText(ctx, "notes", "hi", 6))

	v, ok := gaugeValue(t, reg, "trainkit_metric_value", map[string]string{"tag": "loss", "sub_tag": ""})
	require.True(t, ok)
	assert.Equal(t, 0.5, v)

	v, ok = gaugeValue(t, reg, "trainkit_metric_value", map[string]string{"tag": "acc", "sub_tag": "val"})
	require.True(t, ok)
	assert.Equal(t, 0.8, v)

	v, ok = gaugeValue(t, reg, "trainkit_metric_step", map[string]string{"tag": "acc"})
	require.True(t, ok)
	assert.Equal(t, 4.0, v)

	v, ok = gaugeValue(t, reg, "trainkit_histogram_summary", map[string]string{"tag": "weights", "stat": "mean"})
	require.True(t, ok)
	assert.Equal(t, 2.0, v)

	v, ok = gaugeValue(t, reg, "trainkit_records_total", map[string]string{"op": "add_text"})
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
}

func TestPrometheusSink_Handler(t *testing.T) {
	sink := metrics.NewPrometheusSink(nil)
	require.NoError(t, sink.AddScalar(context.Background(), "loss", 0.25, 0))

	srv := httptest.NewServer(sink.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "trainkit_metric_value")
	assert.Contains(t, string(body), `tag="loss"`)
	assert.NotNil(t, sink.Registry())
}
