// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cyoa/cmd/cyoa/cli"
	"github.com/bureau-foundation/cyoa/lib/archive"
	"github.com/bureau-foundation/cyoa/lib/config"
	"github.com/bureau-foundation/cyoa/lib/guard"
	"github.com/bureau-foundation/cyoa/lib/transport"
)

// Output formats for --format.
const (
	formatText = "text"
	formatJSON = "json"
	formatCBOR = "cbor"
)

var outputFormats = []string{formatText, formatJSON, formatCBOR}

// app carries process-wide state into command closures.
type app struct {
	ctx    context.Context
	stdout io.Writer
	stderr io.Writer
}

func newApp(ctx context.Context, stdout, stderr io.Writer) *app {
	return &app{ctx: ctx, stdout: stdout, stderr: stderr}
}

// globalOptions are the flags shared by every command that reads an
// archive. Flags override the configuration file and environment.
type globalOptions struct {
	configPath    string
	base          string
	path          string
	cacheCapacity int
	coalesceGap   int64
	guards        string
	format        string
	logLevel      string

	flagSet *pflag.FlagSet
}

// newFlagSet creates a command's flag set with the shared flags
// registered, and resets options to bind to it.
func (options *globalOptions) newFlagSet(name string, withFormat bool) *pflag.FlagSet {
	*options = globalOptions{}
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.StringVar(&options.configPath, "config", "", "configuration file (default: $CYOA_CONFIG)")
	flagSet.StringVar(&options.base, "base", "", "archive location: http(s)://host, file:///dir, or mem://")
	flagSet.StringVar(&options.path, "path", "", "archive path under --base, e.g. /story.cyoa")
	flagSet.IntVar(&options.cacheCapacity, "cache-capacity", config.DefaultCacheCapacity, "maximum chunks held in memory")
	flagSet.Int64Var(&options.coalesceGap, "coalesce-gap", -1, "merge chunk fetches at most this many bytes apart (negative disables)")
	flagSet.StringVar(&options.guards, "guards", "", "JSONC guard table (default: hide guarded content)")
	flagSet.StringVar(&options.logLevel, "log-level", "", "debug, info, warn, or error")
	if withFormat {
		flagSet.StringVar(&options.format, "format", formatText, "output format: text, json, or cbor")
	}
	options.flagSet = flagSet
	return flagSet
}

// loadConfig resolves the configuration: --config, then CYOA_CONFIG,
// then environment variables alone. Flags set on the command line are
// applied last.
func (options *globalOptions) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case options.configPath != "":
		cfg, err = config.LoadFile(options.configPath)
	case os.Getenv("CYOA_CONFIG") != "":
		cfg, err = config.Load()
	default:
		cfg, err = config.FromEnvironment()
	}
	if err != nil {
		return nil, err
	}

	changed := options.flagSet.Changed
	if changed("base") {
		cfg.Archive.Base = options.base
	}
	if changed("path") {
		cfg.Archive.Path = options.path
	}
	if changed("cache-capacity") {
		cfg.Archive.CacheCapacity = options.cacheCapacity
	}
	if changed("coalesce-gap") {
		cfg.Archive.CoalesceGap = options.coalesceGap
	}
	if changed("guards") {
		cfg.Guards.File = options.guards
	}
	if changed("log-level") {
		cfg.Log.Level = options.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (options *globalOptions) checkFormat() error {
	if options.format != "" && !slices.Contains(outputFormats, options.format) {
		return cli.Usagef("--format must be one of %v, got %q", outputFormats, options.format)
	}
	return nil
}

// reader is an open archive with everything needed to report on it.
type reader struct {
	archive *archive.Archive
	config  *config.Config
	logger  *slog.Logger
	metrics *transport.Metrics
	close   func() error
}

// open loads configuration and opens the configured archive.
func (application *app) open(options *globalOptions) (*reader, error) {
	cfg, err := options.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.NewCommandLogger(application.stderr, cfg.SlogLevel(), cfg.Log.Format)

	if cfg.Archive.Base == "" {
		return nil, cli.Usagef("no archive location: set --base or archive.base (CYOA_ARCHIVE_BASE)")
	}
	if cfg.Archive.Path == "" {
		return nil, cli.Usagef("no archive path: set --path or archive.path (CYOA_ARCHIVE_PATH)")
	}

	inner, closeTransport, err := openTransport(application.ctx, cfg.Archive.Base)
	if err != nil {
		return nil, err
	}
	metrics := transport.NewMetrics(prometheus.NewRegistry())

	openConfig := archive.OpenConfig{
		Transport:     transport.Instrument(inner, metrics),
		Path:          cfg.Archive.Path,
		CacheCapacity: cfg.Archive.CacheCapacity,
		CoalesceGap:   cfg.Archive.CoalesceGap,
		Logger:        logger,
	}
	if cfg.Guards.File != "" {
		table, err := guard.ReadTableFile(cfg.Guards.File, logger)
		if err != nil {
			closeTransport()
			return nil, err
		}
		openConfig.Guards = table
	}

	opened, err := archive.Open(application.ctx, openConfig)
	if err != nil {
		closeTransport()
		return nil, err
	}
	return &reader{
		archive: opened,
		config:  cfg,
		logger:  logger,
		metrics: metrics,
		close:   closeTransport,
	}, nil
}

// openTransport selects a transport by the base URL's scheme: HTTP for
// http and https, a gocloud bucket for everything else.
func openTransport(ctx context.Context, base string) (transport.Transport, func() error, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, nil, cli.Usagef("invalid archive base %q: %v", base, err)
	}
	switch parsed.Scheme {
	case "http", "https":
		return transport.NewHTTP(base, nil), func() error { return nil }, nil
	default:
		bucket, err := transport.OpenBlob(ctx, base)
		if err != nil {
			return nil, nil, err
		}
		return bucket, bucket.Close, nil
	}
}
