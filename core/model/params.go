package model

import (
	"fmt"

	"github.com/approachingml/aamlp/pkg/errors"
)

// IntParam converts a hyperparameter value decoded from YAML, flags or a
// search grid into an int. Whole floats are accepted.
func IntParam(name string, value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
	}
	return 0, errors.NewValidationError(name, fmt.Sprintf("must be an integer, got %T", value), value)
}

// FloatParam converts a numeric hyperparameter value into a float64.
func FloatParam(name string, value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return 0, errors.NewValidationError(name, fmt.Sprintf("must be a number, got %T", value), value)
}

// StringParam asserts that a hyperparameter value is a string.
func StringParam(name string, value interface{}) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", errors.NewValidationError(name, "must be a string", value)
	}
	return s, nil
}

// BoolParam asserts that a hyperparameter value is a bool.
func BoolParam(name string, value interface{}) (bool, error) {
	b, ok := value.(bool)
	if !ok {
		return false, errors.NewValidationError(name, "must be a bool", value)
	}
	return b, nil
}
