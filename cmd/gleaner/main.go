// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/gleaner"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/pipeline"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp(os.Stdin, os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// newApp builds the command tree. Results are written to out as one JSON
// object; logs go to stderr. opts are handed to every Gleaner the commands
// open.
func newApp(in io.Reader, out io.Writer, opts ...gleaner.Option) *cli.App {
	textFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Usage:   "Read the text from `FILE` instead of stdin",
		},
	}

	return &cli.App{
		Name:      "gleaner",
		Usage:     "Discover, fetch and distill web sources into query-relevant text",
		Reader:    in,
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
				EnvVars: []string{"GLEANER_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "cache-dir",
				Usage: "Result cache directory (overrides config and " + gleaner.EnvCacheDir + ")",
			},
			&cli.BoolFlag{
				Name:  "in-memory-cache",
				Usage: "Keep the result cache in memory for this invocation only",
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Disable the headless browser fetch tier",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "discover",
				Usage:  "Find candidate source URLs for a topic",
				Action: withGleaner(opts, discoverCommand),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "topic",
						Aliases:  []string{"t"},
						Usage:    "Topic to search for",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "count",
						Aliases: []string{"n"},
						Usage:   "Number of sources wanted (default from config)",
					},
				},
			},
			{
				Name:      "fetch",
				Usage:     "Fetch and clean one or more URLs",
				ArgsUsage: "URL [URL...]",
				Action:    withGleaner(opts, fetchCommand),
			},
			{
				Name:   "filter",
				Usage:  "Select the passages of a text most relevant to a query",
				Action: withGleaner(opts, filterCommand),
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "Query to rank passages against",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of passages to return (default from config)",
					},
				}, textFlags...),
			},
			{
				Name:   "summarize",
				Usage:  "Summarize a text",
				Action: withGleaner(opts, summarizeCommand),
				Flags:  textFlags,
			},
			{
				Name:   "run",
				Usage:  "Discover or take sources, fetch them, filter and summarize",
				Action: withGleaner(opts, runCommand),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "topic",
						Aliases: []string{"t"},
						Usage:   "Topic to discover sources for",
					},
					&cli.StringSliceFlag{
						Name:    "url",
						Aliases: []string{"u"},
						Usage:   "Source URL (repeatable); replaces discovery",
					},
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Narrow the text to passages relevant to this query",
					},
					&cli.IntFlag{
						Name:    "count",
						Aliases: []string{"n"},
						Usage:   "Number of sources to discover (default from config)",
					},
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of passages to keep (default from config)",
					},
					&cli.BoolFlag{
						Name:    "summarize",
						Aliases: []string{"s"},
						Usage:   "Summarize the resulting text",
					},
				},
			},
			{
				Name:  "cache",
				Usage: "Result cache maintenance",
				Subcommands: []*cli.Command{
					{
						Name:   "sweep",
						Usage:  "Delete cache entries older than a TTL",
						Action: withGleaner(opts, sweepCommand),
						Flags: []cli.Flag{
							&cli.DurationFlag{
								Name:  "ttl",
								Usage: "Entries older than this are removed",
								Value: 24 * time.Hour,
							},
						},
					},
				},
			},
		},
	}
}

type gleanerAction func(ctx context.Context, c *cli.Context, g *gleaner.Gleaner) (core.Result, error)

// withGleaner loads the configuration, opens a Gleaner for the duration of
// the command and prints the command's result. Only setup failures are
// returned as errors; logical failures are part of the printed result.
func withGleaner(opts []gleaner.Option, action gleanerAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := gleaner.LoadConfig(c.String("config"))
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if dir := c.String("cache-dir"); dir != "" {
			cfg.Cache.Dir = dir
		}
		if c.Bool("in-memory-cache") {
			cfg.Cache.InMemory = true
		}
		if c.Bool("no-browser") {
			cfg.Fetch.Browser = false
		}

		g, err := gleaner.New(cfg, opts...)
		if err != nil {
			return fmt.Errorf("failed to open gleaner: %w", err)
		}
		defer g.Close()

		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		result, err := action(ctx, c, g)
		if err != nil {
			return err
		}
		return writeResult(c.App.Writer, result)
	}
}

func discoverCommand(ctx context.Context, c *cli.Context, g *gleaner.Gleaner) (core.Result, error) {
	count := c.Int("count")
	if !c.IsSet("count") {
		count = g.Config().Discovery.DesiredCount
	}
	return g.Discoverer().Discover(ctx, c.String("topic"), count), nil
}

func fetchCommand(ctx context.Context, c *cli.Context, g *gleaner.Gleaner) (core.Result, error) {
	urls := c.Args().Slice()
	if len(urls) != 1 {
		return g.Fetcher().FetchMany(ctx, urls), nil
	}

	res := g.Fetcher().FetchOne(ctx, urls[0])
	if !res.OK() {
		return core.Result{Success: false, Error: res.Err, ResultType: core.ResultTypeObject}, nil
	}
	return core.Success(res, core.ResultTypeObject), nil
}

func filterCommand(ctx context.Context, c *cli.Context, g *gleaner.Gleaner) (core.Result, error) {
	text, err := readText(c)
	if err != nil {
		return core.Result{}, err
	}
	return g.Filter().Filter(ctx, text, c.String("query"), topK(c, g)), nil
}

func summarizeCommand(ctx context.Context, c *cli.Context, g *gleaner.Gleaner) (core.Result, error) {
	text, err := readText(c)
	if err != nil {
		return core.Result{}, err
	}
	summary, err := g.Summarizer().Summarize(ctx, text, g.Config().SummaryOptions())
	if err != nil {
		return core.Failure(err, core.ResultTypeObject), nil
	}
	return core.Success(map[string]string{"summary": summary}, core.ResultTypeObject), nil
}

func runCommand(ctx context.Context, c *cli.Context, g *gleaner.Gleaner) (core.Result, error) {
	urls := c.StringSlice("url")
	query := c.String("query")

	// A single page with a query and nothing else returns just its passages.
	if len(urls) == 1 && query != "" && c.String("topic") == "" && !c.Bool("summarize") {
		return g.Pipeline().FilterURL(ctx, urls[0], query, topK(c, g)), nil
	}

	count := c.Int("count")
	if !c.IsSet("count") && c.String("topic") != "" {
		count = g.Config().Discovery.DesiredCount
	}
	return g.Pipeline().Run(ctx, pipeline.Request{
		Topic:        c.String("topic"),
		URLs:         urls,
		Query:        query,
		DesiredCount: count,
		TopK:         topK(c, g),
		Summarize:    c.Bool("summarize"),
	}), nil
}

func sweepCommand(ctx context.Context, c *cli.Context, g *gleaner.Gleaner) (core.Result, error) {
	ttl := c.Duration("ttl")
	if ttl <= 0 {
		return core.Result{}, fmt.Errorf("ttl must be positive: %s", ttl)
	}
	removed, err := g.Cache().Sweep(ctx, ttl)
	if err != nil {
		return core.Failure(err, core.ResultTypeObject), nil
	}
	slog.Info("cache swept", "removed", removed, "ttl", ttl)
	return core.Success(map[string]int{"removed": removed}, core.ResultTypeObject), nil
}

func topK(c *cli.Context, g *gleaner.Gleaner) int {
	if c.IsSet("top-k") {
		return c.Int("top-k")
	}
	return g.Config().Filter.TopK
}

// readText returns the contents of --file, or stdin when the flag is
// absent or "-".
func readText(c *cli.Context) (string, error) {
	var r io.Reader = c.App.Reader
	if path := c.String("file"); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(data), nil
}

// writeResult prints result as a single JSON line, keeping non-ASCII text
// and markup unescaped.
func writeResult(w io.Writer, result core.Result) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// stdout carries only the result object
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
