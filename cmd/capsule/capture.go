package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Webictbyleo/capsule"
	"github.com/Webictbyleo/capsule/capture"
	"github.com/Webictbyleo/capsule/content"
	"github.com/Webictbyleo/capsule/fs"
	"github.com/Webictbyleo/capsule/httpclient"
	"github.com/Webictbyleo/capsule/jsonfile"
	"github.com/Webictbyleo/capsule/mem"
	capslog "github.com/Webictbyleo/capsule/slog"
	"github.com/Webictbyleo/capsule/sqlite"
)

// DocumentFilename is the name the rewritten markup is saved under in the
// capture output directory.
const DocumentFilename = "index.html"

// Run executes the capture command.
func (c *CaptureCmd) Run(deps *Dependencies) error {
	markup, err := c.readMarkup()
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", capsule.ErrorMessage(err))
		return err
	}

	if !c.Force {
		if _, err := os.Stat(filepath.Join(c.Out, fs.ManifestFilename)); err == nil {
			err := capsule.Errorf(capsule.ECONFLICT, "capture already exists in %s, use --force to overwrite", c.Out)
			fmt.Fprintf(deps.Stderr, "error: %s\n", capsule.ErrorMessage(err))
			return err
		}
	}

	headers, err := parseHeaders(c.Header)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", capsule.ErrorMessage(err))
		return err
	}
	cookies, err := loadCookieJar(c.CookieJar)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", capsule.ErrorMessage(err))
		return err
	}
	auth := capsule.AuthContext{Headers: headers, Cookies: cookies}

	var fetcher capsule.AssetFetcher = httpclient.NewClient(auth,
		httpclient.WithTimeout(c.Timeout),
		httpclient.WithReferer(c.BaseURL),
	)
	if !c.Quiet {
		fetcher = capslog.NewLoggingFetcher(fetcher, deps.Logger)
	}

	// The persistent caches record paths relative to the shared asset
	// directory, so they only make sense paired with the global store. A
	// per-capture store would leave later captures pointing at files that
	// exist only under the first capture's output directory.
	if c.SQLiteCache && c.GlobalAssets == "" {
		err := capsule.Errorf(capsule.EINVALID, "--sqlite-cache requires --global-assets")
		fmt.Fprintf(deps.Stderr, "error: %s\n", capsule.ErrorMessage(err))
		return err
	}

	var store capsule.AssetWriter
	var cache capsule.AssetCache
	if c.GlobalAssets != "" {
		store = fs.NewGlobalStore(c.GlobalAssets)
		if c.SQLiteCache {
			cache = sqlite.NewCache(deps.DB)
		} else {
			cache = jsonfile.NewCache(filepath.Join(c.GlobalAssets, jsonfile.DefaultFilename))
		}
	} else {
		store = fs.NewCaptureStore(c.Out)
		cache = mem.NewCache()
	}
	if err := cache.Load(deps.Ctx); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", capsule.ErrorMessage(err))
		return err
	}

	controller := &capture.Controller{
		Fetcher:             fetcher,
		Cache:               cache,
		Validator:           content.NewValidator(),
		Store:               store,
		Concurrency:         c.Concurrency,
		MaxAttempts:         c.Attempts,
		RejectIndeterminate: c.Strict,
	}
	if c.RPS > 0 {
		controller.RateLimiter = capture.NewDomainLimiter(c.RPS)
	}

	var failed int
	controller.Progress = func(event capture.ProgressEvent) {
		switch event.Type {
		case capture.ProgressStarted:
			failed = 0
		case capture.ProgressFailed:
			failed++
			fmt.Fprintf(deps.Stderr, "  failed %s: %s\n", event.URL, capsule.ErrorMessage(event.Error))
		case capture.ProgressRetry:
			fmt.Fprintf(deps.Stdout, "  attempt %d incomplete (%d failed), retrying\n", event.Attempt, failed)
		}
	}

	run := &sqlite.CaptureRun{BaseURL: c.BaseURL}
	if err := deps.Runs.Begin(deps.Ctx, run); err != nil {
		return err
	}

	res, err := controller.Capture(deps.Ctx, markup, c.BaseURL)
	if err != nil {
		run.Attempts = c.Attempts
		run.Failed = failed
		_ = deps.Runs.Finish(deps.Ctx, run)
		fmt.Fprintf(deps.Stderr, "error: %s\n", capsule.ErrorMessage(err))
		return err
	}

	if err := fs.WriteDocument(c.Out, DocumentFilename, res.Markup); err != nil {
		return err
	}
	if err := fs.WriteManifest(c.Out, res.Manifest); err != nil {
		return err
	}

	run.Attempts = res.Attempts
	run.Downloaded = res.Downloaded
	run.Cached = res.Cached
	run.Complete = true
	if err := deps.Runs.Finish(deps.Ctx, run); err != nil {
		return err
	}

	if !c.Quiet {
		urls := make([]string, 0, len(res.Dispositions))
		for u := range res.Dispositions {
			urls = append(urls, u)
		}
		sort.Strings(urls)
		for _, u := range urls {
			fmt.Fprintf(deps.Stdout, "  %-10s %s\n", res.Dispositions[u], u)
		}
	}

	fmt.Fprintf(deps.Stdout, "Captured %s: %d downloaded, %d cached, %d attempt(s)\n",
		c.BaseURL, res.Downloaded, res.Cached, res.Attempts)
	return nil
}

func (c *CaptureCmd) readMarkup() (string, error) {
	if c.Markup == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", capsule.Errorf(capsule.EINTERNAL, "read stdin: %v", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(c.Markup)
	if err != nil {
		return "", capsule.Errorf(capsule.EINVALID, "read markup file: %v", err)
	}
	return string(data), nil
}

// parseHeaders converts repeated Name=Value flags into a header map.
func parseHeaders(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, capsule.Errorf(capsule.EINVALID, "invalid header %q, expected Name=Value", pair)
		}
		headers[name] = value
	}
	return headers, nil
}

// loadCookieJar reads a JSON array of session cookies.
func loadCookieJar(path string) ([]capsule.Cookie, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, capsule.Errorf(capsule.EINVALID, "read cookie jar: %v", err)
	}
	var cookies []capsule.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, capsule.Errorf(capsule.EINVALID, "parse cookie jar: %v", err)
	}
	return cookies, nil
}
