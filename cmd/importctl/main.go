// Command importctl inspects, validates and dry-runs CSV or XLSX imports
// locally. Nothing is written to a database: dry runs execute against an
// in-memory store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/finimport/internal/core"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		msg := core.MapError(err)
		color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "error: ")
		fmt.Fprintln(os.Stderr, err)
		if msg.Action != "" {
			fmt.Fprintf(os.Stderr, "  %s (%s)\n", msg.Action, msg.Code)
		}
		stop()
		os.Exit(1)
	}
}
