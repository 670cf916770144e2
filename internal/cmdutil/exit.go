// internal/cmdutil/exit.go
package cmdutil

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"syscall"
)

// Exit codes shared by every command.
const (
	ExitOK          = 0
	ExitUsage       = 2
	ExitRuntime     = 3
	ExitInterrupted = 130
)

// IsBrokenPipe reports whether an error is a broken pipe / closed pipe,
// as happens when a downstream consumer like `head` exits early.
func IsBrokenPipe(err error) bool {
	return err != nil && (errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe))
}

// Flush flushes w and converts the outcome to an exit code. A broken pipe
// counts as success.
func Flush(w *bufio.Writer, stderr io.Writer, code int) int {
	if err := w.Flush(); IsBrokenPipe(err) {
		return code
	} else if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return ExitRuntime
	}
	return code
}

// ErrorCode maps a runtime error to an exit code.
func ErrorCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	}
	return ExitRuntime
}
