package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stupiduntilnot/chatrelay/internal/config"
	"github.com/stupiduntilnot/chatrelay/internal/dummy"
	"github.com/stupiduntilnot/chatrelay/internal/logging"
	modelpkg "github.com/stupiduntilnot/chatrelay/internal/model"
	"github.com/stupiduntilnot/chatrelay/internal/openai"
)

const defaultMessage = "Hello from chatrelay probe"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.IsDevelopment(), cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := run(ctx, cfg, os.Args[1:], os.Stdout, logger); err != nil {
		fmt.Fprintf(os.Stderr, "probe: %v\n", err)
		os.Exit(1)
	}
}

// run sends one message upstream with no history and prints the reply and
// token usage. OPENAI_DRYRUN is honoured unless -live is given.
func run(ctx context.Context, cfg config.Config, args []string, out io.Writer, logger zerolog.Logger) error {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	system := fs.String("system", "", "optional system prompt")
	live := fs.Bool("live", false, "call upstream even when OPENAI_DRYRUN is on")
	if err := fs.Parse(args); err != nil {
		return err
	}
	message := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(message) == "" {
		message = defaultMessage
	}

	var provider modelpkg.Provider
	if cfg.DryRun && !*live {
		p, err := dummy.NewProvider(cfg.DryRunScript)
		if err != nil {
			return fmt.Errorf("DRYRUN_SCRIPT: %w", err)
		}
		provider = p
	} else {
		provider = openai.NewClient(openai.Options{
			APIKey:    cfg.OpenAIAPIKey,
			URL:       cfg.OpenAIChatCompURL,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokensOutput,
			Logger:    logger,
		})
	}

	start := time.Now()
	res, err := provider.GenerateReply(ctx, message, *system, nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "reply: %s\n", res.Reply)
	fmt.Fprintf(out, "usage: input=%d output=%d\n", res.InputTokens, res.OutputTokens)
	fmt.Fprintf(out, "latency: %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}
