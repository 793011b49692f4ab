// Package main is the entry point for dbprobe.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/fgeck/dbprobe/internal/services/runner"
)

// EnvMode selects extra diagnostics; "development" prints stack traces.
const EnvMode = "DBPROBE_ENV"

func main() {
	os.Exit(run(os.Stdout))
}

func run(out io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			reportUnexpected(out, fmt.Errorf("panic: %v", r), debug.Stack())
			code = 1
		}
	}()

	return exitCode(out, Execute())
}

// exitCode maps the result of a command to the process exit status.
func exitCode(out io.Writer, err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errInterrupted):
		_, _ = fmt.Fprintln(out, "\n\nTest interrupted by user")
		return 0
	case errors.Is(err, runner.ErrChecksFailed):
		return 1
	default:
		reportUnexpected(out, err, nil)
		return 1
	}
}

func reportUnexpected(out io.Writer, err error, stack []byte) {
	_, _ = fmt.Fprintln(out, "\nUnexpected error occurred:")
	_, _ = fmt.Fprintf(out, "   Error: %v\n", err)
	if os.Getenv(EnvMode) == "development" && len(stack) > 0 {
		_, _ = fmt.Fprintf(out, "   Stack: %s\n", stack)
	}
}
