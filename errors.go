package lira

import (
	"errors"
	"fmt"
)

// Errors returned by this package wrap one of these, so callers can
// tell them apart with errors.Is.
var (
	ErrIO         = errors.New("i/o error")
	ErrFormat     = errors.New("format error")
	ErrCapacity   = errors.New("capacity exceeded")
	ErrDictionary = errors.New("dictionary error")
)

func ioError(err error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %v", ErrIO, fmt.Sprintf(format, args...), err)
}

func formatError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, args...))
}

func capacityError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrCapacity, fmt.Sprintf(format, args...))
}

func dictionaryError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDictionary, fmt.Sprintf(format, args...))
}
