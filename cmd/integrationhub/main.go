package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mktstack/integrationhub/internal/integrations/registry"
	"github.com/mktstack/integrationhub/internal/integrations/settings"
	"github.com/mktstack/integrationhub/internal/logging"
	"github.com/mktstack/integrationhub/internal/store"
)

func main() {
	os.Exit(runMain(Execute, os.Stderr))
}

func runMain(execute func() error, stderr io.Writer) int {
	err := execute()
	if err == nil {
		return 0
	}
	f := classifyFailure(err)
	if !f.quiet {
		emitCommandError(f.err, f.message, f.code, stderr)
	}
	return f.code
}

// failure is how a command error ends the process.
type failure struct {
	code    int
	message string
	err     error
	quiet   bool
}

// classifyFailure picks the exit code. An explicit exitError wins over the error kinds
// commands return unwrapped, such as a lookup of an integration that is not installed.
func classifyFailure(err error) failure {
	var ee *exitError
	if errors.As(err, &ee) {
		inner := err
		if ee.err != nil {
			inner = ee.err
		}
		f := failure{code: ee.code, message: "command failed", err: inner, quiet: ee.silent}
		if ee.code == exitFailure {
			if refined := domainExitCode(inner); refined != 0 {
				f.code = refined
			}
		}
		return f
	}

	switch {
	case errors.Is(err, context.Canceled):
		return failure{code: exitCanceled, message: "command canceled", err: err}
	case domainExitCode(err) != 0:
		return failure{code: domainExitCode(err), message: "command failed", err: err}
	}
	return failure{code: exitFailure, message: "command failed", err: err}
}

func domainExitCode(err error) int {
	switch {
	case errors.Is(err, settings.ErrInvalid):
		return exitUsage
	case errors.Is(err, registry.ErrUnsupportedLookup), errors.Is(err, store.ErrNotFound):
		return exitNotFound
	}
	return 0
}

func emitCommandError(err error, message string, exitCode int, stderr io.Writer) {
	ctx := currentCommandExecutionContext()
	if !ctx.UsesStructuredLog {
		if exitCode == exitCanceled {
			fmt.Fprintln(stderr, "canceled")
			return
		}
		fmt.Fprintln(stderr, err)
		return
	}

	attrs := []any{"exit_code", exitCode, "error", err}
	var unsupported *registry.UnsupportedLookupError
	if errors.As(err, &unsupported) {
		attrs = append(attrs, "integration", unsupported.Name, "available", unsupported.Available)
	}
	loggerForFatalPath(ctx, stderr).Error(message, attrs...)
}

// loggerForFatalPath builds a fresh logger so a broken LOG_FORMAT still reports the failure.
func loggerForFatalPath(ctx commandExecutionContext, stderr io.Writer) *slog.Logger {
	cfg, err := logging.LoadConfigFromEnv()
	if err != nil {
		cfg = logging.DefaultConfig()
	}
	return logging.NewLogger(cfg, stderr, ctx.CommandPath)
}
