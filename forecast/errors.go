package forecast

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInsufficientData indicates there is not enough history to
	// fit or evaluate a model
	ErrInsufficientData = errors.New("forecast: insufficient data")

	// ErrNoSeries indicates a panel run produced no output for any
	// requested entity
	ErrNoSeries = errors.New("forecast: no series produced any forecast")

	// ErrInvalidScope indicates an unknown panel scope name
	ErrInvalidScope = errors.New("forecast: invalid scope")
)

// SchemaDriftError reports a mismatch between the feature list a model
// was fitted with and the list the feature builder currently produces.
// Predicting through mismatched features yields silently wrong numbers,
// so this is fatal for a prediction run.
type SchemaDriftError struct {
	Expected []string
	Actual   []string
}

func (e *SchemaDriftError) Error() string {
	return fmt.Sprintf("forecast: feature schema drift: model fitted with [%s], builder produces [%s]",
		strings.Join(e.Expected, ", "), strings.Join(e.Actual, ", "))
}

// ValidateFeatureNames checks name-for-name alignment between the
// persisted fit-order list and the current builder schema
func ValidateFeatureNames(expected, actual []string) error {
	if len(expected) != len(actual) {
		return &SchemaDriftError{Expected: expected, Actual: actual}
	}
	for i := range expected {
		if expected[i] != actual[i] {
			return &SchemaDriftError{Expected: expected, Actual: actual}
		}
	}
	return nil
}
