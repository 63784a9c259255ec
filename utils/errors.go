package utils

import (
	"github.com/pkg/errors"
)

// NewUnexpectedTypeError is used when there is a type mismatch.
func NewUnexpectedTypeError[ExpectedT any](actual interface{}) error {
	var expected ExpectedT
	return errors.Errorf("expected %T but got %T", expected, actual)
}

// NewFileLineError is used when a line of a data file cannot be parsed.
func NewFileLineError(filename string, line int, err error) error {
	return errors.Wrapf(err, "%s:%d", filename, line)
}

// NewConfigValidationError returns an error specifying that there is an issue with the
// configuration at the given path.
func NewConfigValidationError(path string, err error) error {
	return errors.Wrapf(err, "error validating %q", path)
}

// NewConfigValidationFieldRequiredError returns an error specifying that a required field is
// missing from the configuration at the given path.
func NewConfigValidationFieldRequiredError(path, field string) error {
	return NewConfigValidationError(path, errors.Errorf("%q is required", field))
}
