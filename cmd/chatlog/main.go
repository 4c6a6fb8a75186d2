package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/stupiduntilnot/chatrelay/internal/config"
	"github.com/stupiduntilnot/chatrelay/internal/history"
)

// options collects the command-line flags.
type options struct {
	dbURL   string
	limit   int
	jsonOut bool
	clear   bool
	width   int
	noColor bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if err := run(context.Background(), cfg, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "chatlog: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags reads the command line; -db defaults to the configured DATABASE_URL.
func parseFlags(args []string, defaultDB string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("chatlog", flag.ContinueOnError)
	fs.StringVar(&opts.dbURL, "db", defaultDB, "storage connection string (SQLite path or postgres:// URL)")
	fs.IntVar(&opts.limit, "n", 20, "number of newest messages to show")
	fs.BoolVar(&opts.jsonOut, "json", false, "output JSON")
	fs.BoolVar(&opts.clear, "clear", false, "delete the whole conversation")
	fs.IntVar(&opts.width, "w", 120, "truncate text to this many characters (0 = no limit)")
	fs.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.limit < 1 {
		return options{}, errors.New("-n must be >= 1")
	}
	if opts.noColor {
		color.NoColor = true
	}
	return opts, nil
}

func run(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	opts, err := parseFlags(args, cfg.DatabaseURL)
	if err != nil {
		return err
	}

	store, err := history.Open(ctx, opts.dbURL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	if opts.clear {
		n, err := store.DeleteAll(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %d messages\n", n)
		return nil
	}

	msgs, err := store.ListRecent(ctx, opts.limit)
	if err != nil {
		return err
	}
	if opts.jsonOut {
		return printJSON(out, msgs)
	}
	total, err := store.Count(ctx)
	if err != nil {
		return err
	}
	printTable(out, msgs, total, opts.width)
	return nil
}

func printJSON(out io.Writer, msgs []history.Message) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(msgs)
}

func printTable(out io.Writer, msgs []history.Message, total int64, width int) {
	if len(msgs) == 0 {
		fmt.Fprintln(out, "(no messages)")
		return
	}
	gray := color.New(color.FgHiBlack)
	roles := map[history.Role]*color.Color{
		history.RoleUser:      color.New(color.FgCyan),
		history.RoleAssistant: color.New(color.FgGreen),
	}
	for _, m := range msgs {
		text := strings.ReplaceAll(m.Text, "\n", " ")
		role := fmt.Sprintf("%-9s", m.Role)
		if c, ok := roles[m.Role]; ok {
			role = c.Sprint(role)
		}
		fmt.Fprintf(out, "%s %s  %s %s\n",
			gray.Sprintf("#%-6d", m.ID),
			gray.Sprint(m.Timestamp.Local().Format(time.DateTime)),
			role, truncate(text, width))
	}
	fmt.Fprintf(out, "-- showing %d of %d messages\n", len(msgs), total)
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	return string(r[:maxChars]) + "..."
}
