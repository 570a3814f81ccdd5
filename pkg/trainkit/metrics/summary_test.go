package metrics_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/randalmurphal/trainkit/pkg/trainkit/metrics"
)

func TestSummarize(t *testing.T) {
	s := metrics.Summarize([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, 8, s.Count)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 9.0, s.Max)
	assert.Equal(t, 40.0, s.Sum)
	assert.Equal(t, 5.0, s.Mean)
	assert.InDelta(t, math.Sqrt(32.0/7.0), s.StdDev, 1e-12)
}

func TestSummarize_EdgeCases(t *testing.T) {
	assert.Equal(t, metrics.Summary{}, metrics.Summarize(nil))

	one := metrics.Summarize([]float64{3})
	assert.Equal(t, metrics.Summary{Count: 1, Min: 3, Max: 3, Sum: 3, Mean: 3}, one)
}
