package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Hekzory/nota/internal/ctxlog"
	"github.com/Hekzory/nota/internal/manager"
	"github.com/Hekzory/nota/internal/runenv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()

	if err != nil {
		var exitErr *manager.ExitError
		if errors.As(err, &exitErr) {
			// The manager has already reported it.
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "nota: %v\n", err)
		os.Exit(1)
	}
}

// run sets up the environment and logger, then hands args to the root command.
func run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	env, err := runenv.FromProcess()
	if err != nil {
		return err
	}

	logger, err := ctxlog.New(env.Get("NOTA_LOG_LEVEL", ""), env.Get("NOTA_LOG_FORMAT", ""), stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	ctx = ctxlog.WithLogger(ctx, logger)

	root := newRootCmd(env, stdout, stderr)
	// cobra falls back to os.Args when args is nil.
	root.SetArgs(append([]string{}, args...))
	return root.ExecuteContext(ctx)
}
