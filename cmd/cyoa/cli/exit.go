// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/cyoa/lib/archive"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitMissingRoot = 3
	ExitParse       = 4
	ExitTransport   = 5
)

// ExitError signals a non-zero exit code without printing an extra
// error message. The command is expected to have written its own
// output.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// UsageError is a command-line mistake: an unknown command or flag, or
// a missing or malformed argument.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

func usageErrorf(format string, args ...any) *UsageError {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// Usagef returns a [*UsageError] for commands that validate their own
// positional arguments.
func Usagef(format string, args ...any) error {
	return usageErrorf(format, args...)
}

// ExitCodeFor maps an error returned by a command onto a process exit
// code. Archive and transport failures are classified with
// [archive.Classify].
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	var usageError *UsageError
	if errors.As(err, &usageError) {
		return ExitUsage
	}

	switch archive.Classify(err) {
	case archive.KindMissingRoot:
		return ExitMissingRoot
	case archive.KindParse, archive.KindInvalidMagic, archive.KindIndexOutOfRange:
		return ExitParse
	case archive.KindTransport, archive.KindRangeUnsupported:
		return ExitTransport
	}
	return ExitFailure
}
