package forecast

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Metrics are the evaluation results of a trained model
type Metrics struct {
	R2        float64 `json:"r2"`
	MAE       float64 `json:"mae"`
	Precision float64 `json:"precision"`
}

// the epsilon guarding relative-error division when the test window
// averages near zero
const meanEpsilon = 1e-9

// MAE computes the mean absolute error
func MAE(predicted, actual []float64) float64 {
	if len(predicted) == 0 || len(predicted) != len(actual) {
		return 0
	}
	sum := 0.0
	for i := range predicted {
		sum += math.Abs(predicted[i] - actual[i])
	}
	return sum / float64(len(predicted))
}

// R2 computes the coefficient of determination. A zero-variance
// actual vector scores 0 rather than dividing by zero.
func R2(predicted, actual []float64) float64 {
	if len(predicted) == 0 || len(predicted) != len(actual) {
		return 0
	}
	if stat.Variance(actual, nil) == 0 {
		return 0
	}
	return stat.RSquaredFrom(predicted, actual, nil)
}

// PrecisionPct derives the human-friendly inverse of relative MAE:
// 100 minus the error percentage, clamped at 0 so a degenerate test
// window reports 0% instead of aborting a run
func PrecisionPct(mae, testMean float64) float64 {
	denom := math.Max(meanEpsilon, math.Abs(testMean))
	return math.Max(0, 100-(mae/denom)*100)
}

// Evaluate scores predictions against a test window
func Evaluate(predicted, actual []float64) Metrics {
	mae := MAE(predicted, actual)
	return Metrics{
		R2:        R2(predicted, actual),
		MAE:       mae,
		Precision: PrecisionPct(mae, stat.Mean(actual, nil)),
	}
}
