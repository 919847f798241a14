package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
)

func main() {
	initLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogger sets up Apex with the text handler and a log level from the
// TAGWARDEN_LOG env variable.
func initLogger() {
	level := strings.ToLower(os.Getenv("TAGWARDEN_LOG"))
	if level == "" {
		level = "info"
	}
	log.SetHandler(text.New(os.Stderr))
	log.SetLevelFromString(level)
}
