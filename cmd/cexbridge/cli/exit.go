// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError requests a non-zero exit without printing an error
// message; the command has already written its own output. The
// client subcommands return it when the bridge answers with an error
// status, after printing the bridge's message.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the requested process exit code.
func (e *ExitError) ExitCode() int {
	return e.Code
}
