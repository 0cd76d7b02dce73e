// Command issues is the command-line client of the issue tracker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/atinyakov/issuetracker/internal/client/storage"
	"github.com/atinyakov/issuetracker/internal/output"
)

// Set by ldflags.
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui := output.New()
	root := newRootCmd(ui, storage.NewPrompter())
	if err := root.ExecuteContext(ctx); err != nil {
		ui.Error("%s", userMessage(err))
		stop()
		os.Exit(1)
	}
}
