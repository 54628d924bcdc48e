package tx

import (
	"errors"
	"fmt"
)

var (
	// ErrNotValid marks a permanent validation failure: the
	// transaction or appendage violates the protocol and can never
	// be accepted.
	ErrNotValid = errors.New("not valid")

	// ErrNotCurrentlyValid marks a transient failure: the
	// transaction conflicts with the current state but may become
	// valid later, so callers may retry instead of discarding it.
	ErrNotCurrentlyValid = errors.New("not currently valid")
)

func notValidf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotValid)...)
}

func notCurrentlyValidf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotCurrentlyValid)...)
}
