package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat"
)

func TestAccumulator_MeanVarianceMinMax(t *testing.T) {
	a := NewAccumulator()
	for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		a.Add(x)
	}
	assert.Equal(t, int64(8), a.Count())
	assert.InDelta(t, 5.0, a.Mean(), 1e-9)
	assert.InDelta(t, 4.0, a.Variance(), 1e-9, "population variance of this textbook set is 4")
	assert.Equal(t, 2.0, a.Min())
	assert.Equal(t, 9.0, a.Max())
}

func TestAccumulator_EmptyReportsZero(t *testing.T) {
	a := NewAccumulator()
	assert.Equal(t, int64(0), a.Count())
	assert.Equal(t, 0.0, a.Mean())
	assert.Equal(t, 0.0, a.Variance())
	assert.Equal(t, 0.0, a.Min())
	assert.Equal(t, 0.0, a.Max())
}

func TestReduce_MedianOddAndEven(t *testing.T) {
	odd := Reduce([]float64{3, 1, 2})
	assert.Equal(t, 2.0, odd.Median)

	even := Reduce([]float64{4, 1, 3, 2})
	assert.Equal(t, 2.5, even.Median)
}

func TestReduce_Empty(t *testing.T) {
	s := Reduce(nil)
	assert.Equal(t, Summary{}, s)
}

func TestPercentile_Bounds(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, 1.0, Percentile(sorted, 0))
	assert.Equal(t, 5.0, Percentile(sorted, 100))
	assert.Equal(t, 3.0, Percentile(sorted, 50))
}

func TestPercentile_EmptyIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Percentile(nil, 50))
}

func TestAccumulator_StdDevIsSqrtOfVariance(t *testing.T) {
	a := NewAccumulator()
	for _, x := range []float64{1, 2, 3, 4, 5} {
		a.Add(x)
	}
	assert.InDelta(t, math.Sqrt(a.Variance()), a.StdDev(), 1e-12)
}

// Cross-checks Reduce's mean and population variance against gonum's
// stat package on the textbook dataset above, independent of this
// package's own Welford implementation. gonum's Variance is the
// sample (n-1) variance, so it is rescaled by (n-1)/n before comparing
// against our population (n) variance.
func TestReduce_CrossChecksAgainstGonumStat(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	s := Reduce(values)

	assert.InDelta(t, stat.Mean(values, nil), s.Mean, 1e-9)

	n := float64(len(values))
	populationVariance := stat.Variance(values, nil) * (n - 1) / n
	assert.InDelta(t, populationVariance, s.Variance, 1e-9)
}
