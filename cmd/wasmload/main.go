package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-colorable"

	"github.com/woxQAQ/wasmload/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Cancel in-flight fetches on shutdown signals
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := newRootCommand()
	root.stderrTTY = logging.IsTerminal(os.Stderr)
	root.cmd.SetOut(colorable.NewColorableStdout())
	root.cmd.SetErr(colorable.NewColorableStderr())

	if err := root.execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
