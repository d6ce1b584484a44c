package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// PopVariance calculates the population variance (divides by N, not N-1)
func PopVariance(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	mean := stat.Mean(data, nil)
	return stat.MomentAbout(2, data, mean, nil)
}

// PopStdDev calculates the population standard deviation
func PopStdDev(data []float64) float64 {
	return math.Sqrt(PopVariance(data))
}

// PopCovariance calculates the population covariance between two equal-length datasets
func PopCovariance(x, y []float64) float64 {
	if len(x) == 0 || len(x) != len(y) {
		return 0
	}
	meanX := stat.Mean(x, nil)
	meanY := stat.Mean(y, nil)

	var sum float64
	for i := range x {
		sum += (x[i] - meanX) * (y[i] - meanY)
	}
	return sum / float64(len(x))
}

// Correlation calculates the Pearson correlation coefficient between two datasets.
// The coefficient is identical for population and sample statistics.
func Correlation(x, y []float64) float64 {
	if len(x) == 0 || len(y) == 0 || len(x) != len(y) {
		return 0
	}
	return stat.Correlation(x, y, nil)
}
