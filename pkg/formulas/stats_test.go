package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-12)
}

func TestPopVariance(t *testing.T) {
	// Population variance of {2, 4, 4, 4, 5, 5, 7, 9} is 4 (textbook example)
	data := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 4.0, PopVariance(data), 1e-12)
	assert.InDelta(t, 2.0, PopStdDev(data), 1e-12)
}

func TestPopVariance_Empty(t *testing.T) {
	assert.Equal(t, 0.0, PopVariance(nil))
}

func TestPopCovariance(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{2, 4, 6, 8}

	// y = 2x, so cov(x, y) = 2 * var(x)
	assert.InDelta(t, 2*PopVariance(x), PopCovariance(x, y), 1e-12)

	// Mismatched lengths are rejected
	assert.Equal(t, 0.0, PopCovariance(x, y[:2]))
}

func TestCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	up := []float64{2, 4, 6, 8, 10}
	down := []float64{10, 8, 6, 4, 2}

	assert.InDelta(t, 1.0, Correlation(x, up), 1e-12)
	assert.InDelta(t, -1.0, Correlation(x, down), 1e-12)
}
