// internal/workflow/exec.go
package workflow

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/bioswarm/cactus/internal/ctxlog"
)

// Command is one blocking call to an external tool.
type Command struct {
	Step string
	Name string
	Args []string
}

// Argv returns the name followed by the arguments.
func (c Command) Argv() []string { return append([]string{c.Name}, c.Args...) }

// String renders the command for logs; arguments containing blanks or
// shell metacharacters are single-quoted.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	for _, a := range c.Argv() {
		if a == "" || strings.ContainsAny(a, " \t\n'\"()*;&|<>$") {
			a = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Executor runs external commands to completion.
type Executor interface {
	Run(ctx context.Context, cmd Command) error
}

// ToolError is returned when an external tool cannot be started or exits
// non-zero. Stderr holds the tail of its error output.
type ToolError struct {
	Step    string
	Command string
	Stderr  string
	Err     error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s: %s: %v", e.Step, e.Command, e.Err)
	if e.Stderr != "" {
		msg += "\n" + e.Stderr
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

// stderrTail bounds how much tool error output is kept for ToolError.
const stderrTail = 4 << 10

// ExecExecutor runs commands with os/exec. Tool output is streamed line by
// line to the context logger at debug level; only the tail of stderr is
// kept in memory.
type ExecExecutor struct {
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env, when non-nil, replaces the inherited environment.
	Env []string
}

func (x ExecExecutor) Run(ctx context.Context, c Command) error {
	log := ctxlog.FromContext(ctx).With("step", c.Step, "tool", c.Name)

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = x.Dir
	cmd.Env = x.Env
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &ToolError{Step: c.Step, Command: c.String(), Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &ToolError{Step: c.Step, Command: c.String(), Err: err}
	}

	log.Debug("running", "command", c.String())
	if err := cmd.Start(); err != nil {
		return &ToolError{Step: c.Step, Command: c.String(), Err: err}
	}

	tail := &tailBuffer{max: stderrTail}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		forward(ctx, c, "stdout", stdout, nil)
	}()
	go func() {
		defer wg.Done()
		forward(ctx, c, "stderr", stderr, tail)
	}()
	wg.Wait()

	err = cmd.Wait()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		err = ctx.Err()
	}
	return &ToolError{
		Step:    c.Step,
		Command: c.String(),
		Stderr:  strings.TrimRight(string(tail.buf), "\n"),
		Err:     err,
	}
}

// forward logs r line by line at debug level until EOF, copying it into
// tail when given. Lines longer than the read buffer are logged in pieces.
func forward(ctx context.Context, c Command, stream string, r io.Reader, tail *tailBuffer) {
	log := ctxlog.FromContext(ctx)
	debug := log.Enabled(ctx, slog.LevelDebug)
	if !debug && tail == nil {
		_, _ = io.Copy(io.Discard, r)
		return
	}
	br := bufio.NewReaderSize(r, 64<<10)
	for {
		chunk, err := br.ReadSlice('\n')
		if len(chunk) > 0 {
			if tail != nil {
				tail.add(chunk)
			}
			if debug {
				log.Debug(strings.TrimRight(string(chunk), "\r\n"), "step", c.Step, "stream", stream)
			}
		}
		switch {
		case err == nil, errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			return
		default:
			log.Warn("reading tool output failed", "step", c.Step, "stream", stream, "err", err)
			_, _ = io.Copy(io.Discard, r)
			return
		}
	}
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (t *tailBuffer) add(p []byte) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
}
