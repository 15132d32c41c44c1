package main

import (
	"context"
	"errors"
	"fmt"
)

const (
	exitFailure  = 1
	exitUsage    = 2
	exitNotFound = 3
	exitCanceled = 130
)

type exitError struct {
	code   int
	err    error
	silent bool
}

func (e *exitError) Error() string {
	if e == nil {
		return ""
	}
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit %d", e.code)
}

func (e *exitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// asCommandError turns a run error into an exit error. Cancellation exits quietly with 130.
func asCommandError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return &exitError{code: exitCanceled, err: err, silent: true}
	}
	return &exitError{code: exitFailure, err: err}
}

func usageError(format string, args ...any) error {
	return &exitError{code: exitUsage, err: fmt.Errorf(format, args...)}
}
