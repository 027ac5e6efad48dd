// Package main runs the HQ terminal: one onboarding conversation on stdin
// and stdout against the configured profile store.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greatgiftheist/agent-hq/internal/app"
	"github.com/greatgiftheist/agent-hq/internal/config"
	"github.com/greatgiftheist/agent-hq/internal/model"
	"github.com/greatgiftheist/agent-hq/internal/onboarding"
	"github.com/greatgiftheist/agent-hq/internal/store"
	"github.com/greatgiftheist/agent-hq/pkg/logger"
)

func main() {
	returning := flag.String("codename", "", "resume as a returning agent with this codename")
	verbose := flag.Bool("v", false, "log to stderr")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewNop()
	if *verbose {
		if log, err = logger.NewDevelopment(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
			os.Exit(1)
		}
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{}, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	sc := onboarding.SessionContext{SessionID: uuid.Must(uuid.NewV7()).String()}
	if *returning != "" {
		p, err := a.Profiles.GetByCodename(ctx, *returning)
		switch {
		case err == nil:
			sc.Returning = &p
		case errors.Is(err, store.ErrNotFound):
			fmt.Fprintf(os.Stderr, "no agent named %q on file, starting fresh\n", *returning)
		default:
			log.Warn("returning agent lookup failed", zap.Error(err))
		}
	}

	if err := run(ctx, a.Engine, sc, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "terminal error: %v\n", err)
		os.Exit(1)
	}
}

// run drives one conversation until it ends, input closes or ctx is done.
func run(ctx context.Context, engine *onboarding.Engine, sc onboarding.SessionContext, in io.Reader, out io.Writer) error {
	conv, lines := engine.NewConversation(ctx, sc)
	printLines(out, lines)

	scanner := bufio.NewScanner(in)
	for !conv.Snapshot().Ended() {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		printLines(out, conv.Send(ctx, scanner.Text()))
	}
	return nil
}

func printLines(out io.Writer, lines []model.MessageRecord) {
	for _, rec := range lines {
		for _, line := range strings.Split(rec.Text, "\n") {
			fmt.Fprintf(out, "HQ> %s\n", line)
		}
	}
}
