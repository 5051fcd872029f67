package countries

import "math/rand"

// Estimator computes an estimated GDP from a population and an exchange rate.
// It is injected into the merge engine so tests can hold the factor fixed.
type Estimator func(population int64, rate float64) float64

// RandomFactorEstimator draws a factor uniformly from [min, max] per record
// and divides by the exchange rate. The resulting metric is intentionally
// non-reproducible across refreshes.
func RandomFactorEstimator(min, max int) Estimator {
	if max < min {
		min, max = max, min
	}
	return func(population int64, rate float64) float64 {
		factor := min + rand.Intn(max-min+1)
		return float64(population) * float64(factor) / rate
	}
}

// FixedFactorEstimator uses a constant factor, making derivation
// deterministic.
func FixedFactorEstimator(factor int) Estimator {
	return func(population int64, rate float64) float64 {
		return float64(population) * float64(factor) / rate
	}
}
