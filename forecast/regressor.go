package forecast

import (
	"fmt"

	"github.com/sajari/regression"
)

// Model is the predict half of the regressor contract. Implementations
// must be deterministic so re-running a forecast over unchanged input
// produces identical output.
type Model interface {
	Predict(values []float64) float64
	FeatureNames() []string
}

// Fitter is the fit half of the contract. The algorithm behind it is
// deliberately swappable; everything downstream only sees Model.
type Fitter interface {
	Fit(names []string, features [][]float64, target []float64) (*LinearModel, error)
}

// LinearModel is a fitted regression in serializable coefficient form.
// This struct is the persisted model blob: loading it back requires no
// retraining and no library state.
type LinearModel struct {
	Features     []string  `json:"features"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
	TrainR2      float64   `json:"train_r2"`
}

// FeatureNames returns the fit-order feature list
func (m *LinearModel) FeatureNames() []string {
	return m.Features
}

// Predict evaluates the model on one feature row, which must be in
// fit order
func (m *LinearModel) Predict(values []float64) float64 {
	y := m.Intercept
	for i, c := range m.Coefficients {
		if i < len(values) {
			y += c * values[i]
		}
	}
	return y
}

// LeastSquares fits an ordinary least-squares regression with named
// variables. Deterministic by construction, so the idempotence
// guarantee needs no pinned seed.
type LeastSquares struct{}

// Fit trains on the given rows. Feature rows must be in the order of
// names; the returned model records that order.
func (LeastSquares) Fit(names []string, features [][]float64, target []float64) (*LinearModel, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: empty training set", ErrInsufficientData)
	}
	if len(features) != len(target) {
		return nil, fmt.Errorf("feature rows (%d) and target (%d) length mismatch", len(features), len(target))
	}
	if len(features) <= len(names)+1 {
		return nil, fmt.Errorf("%w: %d rows for %d features", ErrInsufficientData, len(features), len(names))
	}

	r := new(regression.Regression)
	r.SetObserved("cantidad")
	for i, name := range names {
		r.SetVar(i, name)
	}
	for i := range features {
		r.Train(regression.DataPoint(target[i], features[i]))
	}
	if err := r.Run(); err != nil {
		return nil, fmt.Errorf("regression failed: %w", err)
	}

	coeffs := r.GetCoeffs()
	if len(coeffs) != len(names)+1 {
		return nil, fmt.Errorf("regression returned %d coefficients for %d features", len(coeffs), len(names))
	}

	return &LinearModel{
		Features:     append([]string(nil), names...),
		Intercept:    coeffs[0],
		Coefficients: coeffs[1:],
		TrainR2:      r.R2,
	}, nil
}
