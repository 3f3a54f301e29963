package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/medportal/medportal/internal/logging"
)

const (
	exitCodeFailure  = 1
	exitCodeUsage    = 2
	exitCodeCanceled = 130
)

func main() {
	if code := runMain(Execute, os.Stderr); code != 0 {
		os.Exit(code)
	}
}

func runMain(execute func() error, stderr io.Writer) int {
	err := execute()
	if err == nil {
		return 0
	}
	return exitCodeForError(err, stderr)
}

func exitCodeForError(err error, stderr io.Writer) int {
	var ee *exitError
	switch {
	case errors.As(err, &ee):
		if !ee.silent {
			emitCommandError(ee.cause(err), "command failed", ee.code, stderr)
		}
		return ee.code
	case errors.Is(err, context.Canceled):
		emitCommandError(err, "command canceled", exitCodeCanceled, stderr)
		return exitCodeCanceled
	default:
		emitCommandError(err, "command failed", exitCodeFailure, stderr)
		return exitCodeFailure
	}
}

func emitCommandError(err error, message string, exitCode int, stderr io.Writer) {
	execCtx := currentCommandExecutionContext()
	if execCtx.UsesStructuredLog {
		loggerForFatalPath(execCtx, stderr).Error(message, "exit_code", exitCode, "error", err)
		return
	}
	if exitCode == exitCodeCanceled {
		fmt.Fprintln(stderr, "canceled")
		return
	}
	fmt.Fprintln(stderr, err)
}

// loggerForFatalPath builds a fresh logger on stderr, falling back to the
// default config when the logging environment is invalid.
func loggerForFatalPath(execCtx commandExecutionContext, stderr io.Writer) *slog.Logger {
	cfg, err := logging.LoadConfigFromEnv()
	if err != nil {
		cfg = logging.DefaultConfig()
	}
	return logging.NewLogger(cfg, stderr, execCtx.CommandPath)
}
