// Package slog provides logging decorators for capsule services.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/Webictbyleo/capsule"
)

// Ensure LoggingFetcher implements capsule.AssetFetcher.
var _ capsule.AssetFetcher = (*LoggingFetcher)(nil)

// LoggingFetcher wraps an AssetFetcher with structured logging of each
// request's URL, size, duration, and outcome.
type LoggingFetcher struct {
	next   capsule.AssetFetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next capsule.AssetFetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch delegates to the wrapped fetcher and logs the outcome.
func (f *LoggingFetcher) Fetch(ctx context.Context, url string) (*capsule.FetchResponse, error) {
	begin := time.Now()
	resp, err := f.next.Fetch(ctx, url)
	if err != nil {
		f.logger.Warn("asset fetch failed",
			"url", url,
			"code", capsule.ErrorCode(err),
			"error", capsule.ErrorMessage(err),
			"duration", time.Since(begin),
		)
		return nil, err
	}
	f.logger.Info("asset fetched",
		"url", url,
		"bytes", len(resp.Body),
		"contentType", resp.ContentType,
		"duration", time.Since(begin),
	)
	return resp, nil
}
