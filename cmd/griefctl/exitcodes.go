package main

import (
	"errors"
	"fmt"

	"griefpulse/internal/grievance"
)

// Exit codes for griefctl.
const (
	ExitOK             = 0 // Command succeeded.
	ExitFailure        = 1 // Load failure, bad arguments or empty selection.
	ExitMissingColumns = 2 // The workbook lacks required columns.
)

// exitCodeError carries a process exit code through cobra's error return
type exitCodeError struct {
	code int
	msg  string
}

func (e *exitCodeError) Error() string {
	return e.msg
}

func exitError(code int, format string, args ...interface{}) error {
	return &exitCodeError{code: code, msg: fmt.Sprintf(format, args...)}
}

// commandError maps service errors onto exit codes
func commandError(err error) error {
	var missing *grievance.MissingColumnsError
	if errors.As(err, &missing) {
		return exitError(ExitMissingColumns, "griefctl: %v", err)
	}
	return exitError(ExitFailure, "griefctl: %v", err)
}
