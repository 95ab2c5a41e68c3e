package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/Webictbyleo/capsule/sqlite"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	DB     *sqlite.DB
	Runs   *sqlite.CaptureLog
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Capture CaptureCmd `cmd:"" help:"Capture a document and all of its external assets"`
	Runs    RunsCmd    `cmd:"" help:"List recorded capture runs"`
	Cache   CacheCmd   `cmd:"" help:"Show asset cache statistics"`
}

// CaptureCmd is the "capture" subcommand.
type CaptureCmd struct {
	Markup  string `arg:"" help:"Path to the markup file (\"-\" reads stdin)"`
	BaseURL string `arg:"" name:"base-url" help:"URL the markup was rendered from"`

	Out          string        `short:"o" default:"capture" help:"Capture output directory"`
	GlobalAssets string        `help:"Root directory holding the shared global_assets directory and its cache file (enables the cross-capture cache)"`
	SQLiteCache  bool          `name:"sqlite-cache" help:"Use the capsule database as the cross-capture asset cache instead of the JSON cache file (requires --global-assets)"`
	Concurrency  int           `short:"c" default:"5" help:"Concurrent fetch limit"`
	Attempts     int           `default:"3" help:"Maximum end-to-end attempts"`
	Timeout      time.Duration `default:"10s" help:"Per-request fetch timeout"`
	Header       []string      `short:"H" name:"header" help:"Extra request header as Name=Value (repeatable)"`
	CookieJar    string        `help:"JSON file with session cookies captured from the browser"`
	RPS          float64       `name:"rps" default:"0" help:"Per-domain requests per second (0 disables pacing)"`
	Force        bool          `short:"f" help:"Overwrite an existing capture in the output directory"`
	Strict       bool          `help:"Discard content whose category cannot be confirmed"`
	Quiet        bool          `short:"q" help:"Suppress per-asset logging"`
}

// RunsCmd is the "runs" subcommand.
type RunsCmd struct {
	Limit int `short:"n" default:"20" help:"Maximum number of runs to show"`
}

// CacheCmd is the "cache" subcommand.
type CacheCmd struct {
	GlobalAssets string `help:"Root directory of the shared global asset cache; defaults to the capsule database"`
	Verify       bool   `help:"Check that every cached entry still has its file on disk (requires --global-assets)"`
}
