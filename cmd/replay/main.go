package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/bazaar/internal/replay"
	"github.com/okian/bazaar/pkg/logger"
)

// Default configuration constants.
const (
	defaultTop        = 5
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		script  = flag.String("script", "", "YAML sale log (default: bundled demo)")
		top     = flag.Int("top", defaultTop, "Bid table rows printed per team")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		reset   = flag.Bool("reset", false, "Reset the auction before replaying")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		replay.ShowHelp(os.Stdout)
		return
	}

	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	stats, err := replay.Run(ctx, replay.Config{
		BaseURL: *baseURL,
		Script:  *script,
		Top:     *top,
		Timeout: *timeout,
		Reset:   *reset,
		Out:     os.Stdout,
	})
	if err != nil {
		os.Stderr.WriteString("replay failed: " + err.Error() + "\n")
		cancel()
		stop()
		os.Exit(1)
	}
	if stats.Failed > 0 {
		cancel()
		stop()
		os.Exit(2)
	}
}
