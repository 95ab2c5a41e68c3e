// Package capture orchestrates document capture. It collects asset
// references from markup, fetches them through a bounded worker pool with
// the asset cache consulted first, expands stylesheets into second-order
// references, rewrites markup and stylesheet text with resolved local
// paths, and retries failed attempts with exponential backoff.
package capture

import (
	"context"
	"net/url"
	"time"

	"github.com/Webictbyleo/capsule"
	"github.com/Webictbyleo/capsule/css"
	"github.com/Webictbyleo/capsule/goquery"
	"github.com/Webictbyleo/capsule/urlnorm"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Defaults for controller tuning knobs.
const (
	DefaultConcurrency = 5
	DefaultMaxAttempts = 3
	DefaultBackoffBase = time.Second
)

// Controller runs captures. All fields except the four collaborators are
// optional.
type Controller struct {
	Fetcher   capsule.AssetFetcher
	Cache     capsule.AssetCache
	Validator capsule.Validator
	Store     capsule.AssetWriter

	// RateLimiter, if set, paces fetches per domain.
	RateLimiter *DomainLimiter

	// Concurrency bounds simultaneous fetches. Defaults to 5.
	Concurrency int

	// MaxAttempts is the number of end-to-end passes before the capture is
	// declared failed. Defaults to 3.
	MaxAttempts int

	// BackoffBase scales the wait between attempts: after attempt n fails,
	// the controller waits BackoffBase << n. Defaults to 1 second.
	BackoffBase time.Duration

	// RejectIndeterminate discards content the validator could neither
	// confirm nor deny. The zero value keeps such content.
	RejectIndeterminate bool

	// Progress, if set, receives events as the capture proceeds.
	Progress ProgressFunc
}

// Result holds the outcome of a completed capture.
type Result struct {
	// CaptureID uniquely identifies this capture run.
	CaptureID string

	// Markup is the document text with every resolved reference replaced
	// by its local path.
	Markup string

	// Manifest maps original reference strings to resolved local paths.
	Manifest *capsule.Manifest

	// Attempts is the number of passes the capture needed.
	Attempts int

	// Dispositions records how each canonical URL was resolved during the
	// final attempt.
	Dispositions map[string]capsule.FetchDisposition

	// Downloaded and Cached count how references were resolved during the
	// final attempt.
	Downloaded int
	Cached     int
}

// ProgressEvent reports progress during a capture.
type ProgressEvent struct {
	Type    ProgressType
	Attempt int
	URL     string
	Error   error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressCached
	ProgressFetched
	ProgressFailed
	ProgressRetry
	ProgressFinished
)

// ProgressFunc is a callback for reporting capture progress.
type ProgressFunc func(event ProgressEvent)

// Capture resolves every external reference in markup and returns the
// rewritten document with its manifest. Individual asset failures never
// abort an attempt; the attempt is judged in aggregate once the reference
// set is exhausted, and failed attempts are retried with backoff. A
// document with no external references completes immediately with an
// empty manifest.
func (c *Controller) Capture(ctx context.Context, markup, baseURL string) (*Result, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, capsule.Errorf(capsule.EINVALID, "invalid base URL: %v", err)
	}

	maxAttempts := c.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	backoff := c.BackoffBase
	if backoff <= 0 {
		backoff = DefaultBackoffBase
	}

	captureID := uuid.New().String()

	var lastFailed int
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		c.emit(ProgressEvent{Type: ProgressStarted, Attempt: attempt})

		result, counters, err := c.runAttempt(ctx, markup, base, attempt)
		if err != nil {
			return nil, err
		}
		if err := c.Cache.Save(ctx); err != nil {
			return nil, err
		}

		if counters.Total() == 0 {
			result.CaptureID = captureID
			result.Manifest.CaptureID = captureID
			result.Attempts = attempt
			c.emit(ProgressEvent{Type: ProgressFinished, Attempt: attempt})
			return result, nil
		}
		lastFailed = counters.Total()

		if attempt < maxAttempts {
			c.emit(ProgressEvent{Type: ProgressRetry, Attempt: attempt})
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff << attempt):
			}
		}
	}

	return nil, capsule.Errorf(capsule.EUNAVAILABLE,
		"capture incomplete after %d attempts (%d unresolved references)", maxAttempts, lastFailed)
}

// pendingSheet is a fetched stylesheet held back from disk until its
// second-order references are resolved and its text rewritten.
type pendingSheet struct {
	ref         capsule.AssetReference
	base        *url.URL
	text        string
	contentType string
}

// runAttempt performs one collect-fetch-rewrite pass. The returned
// counters decide whether the attempt succeeded.
func (c *Controller) runAttempt(ctx context.Context, markup string, base *url.URL, attempt int) (*Result, *Counters, error) {
	refs, err := goquery.CollectReferences(markup, base.String())
	if err != nil {
		return nil, nil, err
	}

	frontier := NewFrontier()
	for _, ref := range refs {
		frontier.Push(ref)
	}

	var counters Counters
	resolved := make(map[string]string)
	dispositions := make(map[string]capsule.FetchDisposition)
	var pending []pendingSheet

	for frontier.Len() > 0 {
		batch := frontier.Drain()

		// Cache hits short-circuit without a network call. Cached
		// stylesheets were rewritten when first committed, so they are
		// not expanded again.
		var misses []capsule.AssetReference
		for _, ref := range batch {
			local, err := c.Cache.Lookup(ctx, ref.Canonical)
			if err == nil {
				resolved[ref.Canonical] = local
				dispositions[ref.Canonical] = capsule.AlreadyCached
				c.emit(ProgressEvent{Type: ProgressCached, Attempt: attempt, URL: ref.Canonical})
				continue
			}
			if capsule.ErrorCode(err) != capsule.ENOTFOUND {
				return nil, nil, err
			}
			misses = append(misses, ref)
		}

		// Consume worker results serially; all cache commits, counter
		// updates, and frontier pushes happen here.
		for res := range c.fetchBatch(ctx, misses) {
			if res.err != nil {
				counters.Record(res.err)
				dispositions[res.ref.Canonical] = capsule.Failed
				c.emit(ProgressEvent{Type: ProgressFailed, Attempt: attempt, URL: res.ref.Canonical, Error: res.err})
				continue
			}

			if res.ref.Category == capsule.CategoryStylesheet {
				sheetURL, err := url.Parse(res.ref.Canonical)
				if err != nil {
					counters.Record(capsule.Errorf(capsule.EINVALID, "invalid stylesheet URL %s: %v", res.ref.Canonical, err))
					dispositions[res.ref.Canonical] = capsule.Failed
					continue
				}
				text := string(res.body)
				pending = append(pending, pendingSheet{
					ref:         res.ref,
					base:        sheetURL,
					text:        text,
					contentType: res.contentType,
				})
				for _, raw := range css.References(text) {
					if !urlnorm.Fetchable(raw) {
						continue
					}
					canonical := urlnorm.Normalize(raw, sheetURL)
					frontier.Push(capsule.AssetReference{
						Raw:       raw,
						Canonical: canonical,
						Category:  urlnorm.Classify(canonical),
						Origin:    "css:url()",
					})
				}
				c.emit(ProgressEvent{Type: ProgressFetched, Attempt: attempt, URL: res.ref.Canonical})
				continue
			}

			committed, err := c.Cache.Commit(ctx, res.ref.Canonical, res.localPath)
			if err != nil {
				counters.Record(err)
				dispositions[res.ref.Canonical] = capsule.Failed
				continue
			}
			resolved[res.ref.Canonical] = committed
			dispositions[res.ref.Canonical] = capsule.Downloaded
			c.emit(ProgressEvent{Type: ProgressFetched, Attempt: attempt, URL: res.ref.Canonical})
		}
	}

	manifest := &capsule.Manifest{
		BaseURL:   base.String(),
		CreatedAt: time.Now().UTC(),
		Assets:    make(map[string]string),
	}

	// Rewrite stylesheets deepest-first so imported sheets resolve before
	// their importers. A sheet with an unresolved fetchable reference is
	// not committed; the next attempt re-fetches and re-expands it.
	for i := len(pending) - 1; i >= 0; i-- {
		sheet := pending[i]
		complete := true
		sheetAssets := make(map[string]string)
		rewritten := css.Rewrite(sheet.text, func(raw string) (string, bool) {
			local, ok := resolved[urlnorm.Normalize(raw, sheet.base)]
			if !ok {
				if urlnorm.Fetchable(raw) {
					complete = false
				}
				return "", false
			}
			sheetAssets[raw] = local
			return local, true
		})
		if !complete {
			dispositions[sheet.ref.Canonical] = capsule.Failed
			continue
		}

		name, err := c.Store.Write(assetFilename(sheet.ref.Canonical, sheet.contentType), []byte(rewritten))
		if err != nil {
			counters.Record(err)
			dispositions[sheet.ref.Canonical] = capsule.Failed
			continue
		}
		committed, err := c.Cache.Commit(ctx, sheet.ref.Canonical, c.Store.Rel(name))
		if err != nil {
			counters.Record(err)
			dispositions[sheet.ref.Canonical] = capsule.Failed
			continue
		}
		resolved[sheet.ref.Canonical] = committed
		dispositions[sheet.ref.Canonical] = capsule.Downloaded
		for raw, local := range sheetAssets {
			manifest.Assets[raw] = local
		}
	}

	out, err := goquery.RewriteDocument(markup, func(raw string) (string, bool) {
		local, ok := resolved[urlnorm.Normalize(raw, base)]
		if ok {
			manifest.Assets[raw] = local
		}
		return local, ok
	})
	if err != nil {
		return nil, nil, err
	}

	result := &Result{
		Markup:       out,
		Manifest:     manifest,
		Dispositions: dispositions,
	}
	for _, d := range dispositions {
		switch d {
		case capsule.Downloaded:
			result.Downloaded++
		case capsule.AlreadyCached:
			result.Cached++
		}
	}
	return result, &counters, nil
}

// fetchResult holds the outcome of fetching a single reference.
type fetchResult struct {
	ref         capsule.AssetReference
	localPath   string
	body        []byte
	contentType string
	err         error
}

// fetchBatch runs up to Concurrency fetches at once and streams results
// on the returned channel. A per-request failure does not cancel sibling
// requests.
func (c *Controller) fetchBatch(ctx context.Context, refs []capsule.AssetReference) <-chan fetchResult {
	resultCh := make(chan fetchResult, len(refs))
	if len(refs) == 0 {
		close(resultCh)
		return resultCh
	}

	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	go func() {
		for _, ref := range refs {
			ref := ref
			g.Go(func() error {
				resultCh <- c.fetchOne(gctx, ref)
				return nil
			})
		}
		_ = g.Wait()
		close(resultCh)
	}()

	return resultCh
}

// fetchOne retrieves, validates, and for everything except stylesheets
// writes a single asset. Stylesheet bytes are returned unwritten; their
// text is persisted only after rewriting.
func (c *Controller) fetchOne(ctx context.Context, ref capsule.AssetReference) fetchResult {
	result := fetchResult{ref: ref}

	if c.RateLimiter != nil {
		if u, err := url.Parse(ref.Canonical); err == nil {
			if err := c.RateLimiter.Wait(ctx, u.Host); err != nil {
				result.err = err
				return result
			}
		}
	}

	resp, err := c.Fetcher.Fetch(ctx, ref.Canonical)
	if err != nil {
		result.err = err
		return result
	}

	switch c.Validator.Validate(resp.Body, ref.Category, resp.ContentType) {
	case capsule.Rejected:
		result.err = capsule.Errorf(capsule.EMISMATCH, "content does not match expected category %q: %s", ref.Category, ref.Canonical)
		return result
	case capsule.Indeterminate:
		if c.RejectIndeterminate {
			result.err = capsule.Errorf(capsule.EMISMATCH, "content category %q could not be confirmed: %s", ref.Category, ref.Canonical)
			return result
		}
	}

	result.contentType = resp.ContentType

	if ref.Category == capsule.CategoryStylesheet {
		result.body = resp.Body
		return result
	}

	name, err := c.Store.Write(assetFilename(ref.Canonical, resp.ContentType), resp.Body)
	if err != nil {
		result.err = err
		return result
	}
	result.localPath = c.Store.Rel(name)
	return result
}

func (c *Controller) emit(event ProgressEvent) {
	if c.Progress != nil {
		c.Progress(event)
	}
}
