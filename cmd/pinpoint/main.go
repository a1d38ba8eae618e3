package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/raphi011/pinpoint"
	"github.com/raphi011/pinpoint/internal/cli"
	"github.com/raphi011/pinpoint/internal/logger"
	"github.com/raphi011/pinpoint/internal/model"
)

const shutdownTimeout = 30 * time.Second

func main() {
	opt, err := cli.Parse(os.Args[1:])
	if err != nil {
		if cli.IsHelp(err) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	c, err := opt.Config()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logger.New(logger.ParseLevel(c.LogLevel))
	slog.SetDefault(log)

	p, err := pinpoint.New(pinpoint.WithConfig(c), pinpoint.WithLogger(log))
	if err != nil {
		log.Error("unable to start", "error", err)
		os.Exit(1)
	}

	if opt.Server {
		os.Exit(serve(p, log))
	}

	os.Exit(runOnce(p, log, pinpoint.Description{Class: opt.Class, Method: opt.Method}))
}

func serve(p *pinpoint.Server, log *slog.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		errc <- p.Run()
	}()

	code := 0

	select {
	case err := <-errc:
		if err != nil {
			log.Error("server stopped", "error", err)
			code = 1
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := p.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
		code = 1
	}

	return code
}

func runOnce(p *pinpoint.Server, log *slog.Logger, d pinpoint.Description) int {
	o, err := p.RunOnce(context.Background(), d)

	if shutdownErr := p.Shutdown(context.Background()); shutdownErr != nil {
		log.Warn("shutdown failed", "error", shutdownErr)
	}

	if err != nil {
		color.Red("%s: %v", d, err)
		return 1
	}

	printOutcome(d, o)

	if o.Status != model.StatusPassed {
		return 1
	}

	return 0
}

func printOutcome(d pinpoint.Description, o pinpoint.Outcome) {
	switch o.Status {
	case model.StatusPassed:
		color.Green("%s: %s", d, o.Status)
	case model.StatusSkipped:
		color.Yellow("%s: %s", d, o.Status)
	default:
		color.Red("%s: %s", d, o.Status)
	}

	if o.Message != "" {
		color.White("%s", o.Message)
	}
	if o.Logs != "" {
		fmt.Print(o.Logs)
	}
}
