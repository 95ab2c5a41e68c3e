package capture_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Webictbyleo/capsule"
	"github.com/Webictbyleo/capsule/capture"
	"github.com/Webictbyleo/capsule/content"
	"github.com/Webictbyleo/capsule/fs"
	"github.com/Webictbyleo/capsule/jsonfile"
	"github.com/Webictbyleo/capsule/mem"
	"github.com/Webictbyleo/capsule/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jpegBytes  = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	woff2Bytes = append([]byte("wOF2"), make([]byte, 16)...)
)

// fakeServer maps canonical URLs to responses and counts fetches per URL.
type fakeServer struct {
	mu        sync.Mutex
	responses map[string]*capsule.FetchResponse
	errors    map[string]error
	failFirst map[string]int // fail the first N calls with EUNAVAILABLE
	calls     map[string]int
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		responses: make(map[string]*capsule.FetchResponse),
		errors:    make(map[string]error),
		failFirst: make(map[string]int),
		calls:     make(map[string]int),
	}
}

func (s *fakeServer) fetch(_ context.Context, url string) (*capsule.FetchResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[url]++
	if n := s.failFirst[url]; n > 0 && s.calls[url] <= n {
		return nil, capsule.Errorf(capsule.EUNAVAILABLE, "connection reset: %s", url)
	}
	if err, ok := s.errors[url]; ok {
		return nil, err
	}
	if resp, ok := s.responses[url]; ok {
		return resp, nil
	}
	return nil, capsule.Errorf(capsule.ENOTFOUND, "no response configured for %s", url)
}

func (s *fakeServer) count(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[url]
}

func (s *fakeServer) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func newController(srv *fakeServer, cache capsule.AssetCache, store capsule.AssetWriter) *capture.Controller {
	return &capture.Controller{
		Fetcher:     &mock.Fetcher{FetchFn: srv.fetch},
		Cache:       cache,
		Validator:   content.NewValidator(),
		Store:       store,
		BackoffBase: time.Millisecond,
	}
}

func TestCapture_shared_asset_downloads_once(t *testing.T) {
	t.Parallel()

	srv := newFakeServer()
	srv.responses["https://example.com/banner/style.css"] = &capsule.FetchResponse{
		Body:        []byte(`body { background: url("a.jpg"); }`),
		ContentType: "text/css",
	}
	srv.responses["https://example.com/banner/a.jpg"] = &capsule.FetchResponse{
		Body:        jpegBytes,
		ContentType: "image/jpeg",
	}

	dir := t.TempDir()
	c := newController(srv, mem.NewCache(), fs.NewCaptureStore(dir))

	markup := `<html><head><link rel="stylesheet" href="style.css"></head>` +
		`<body><img src="a.jpg"></body></html>`
	res, err := c.Capture(context.Background(), markup, "https://example.com/banner/index.html")
	require.NoError(t, err)

	assert.Equal(t, 1, srv.count("https://example.com/banner/a.jpg"),
		"one download regardless of how many references share the URL")
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 2, res.Downloaded)

	imgLocal := res.Manifest.Assets["a.jpg"]
	require.NotEmpty(t, imgLocal)
	assert.Contains(t, res.Markup, `src="`+imgLocal+`"`)

	sheetLocal := res.Manifest.Assets["style.css"]
	require.NotEmpty(t, sheetLocal)
	sheet, err := os.ReadFile(filepath.Join(dir, sheetLocal))
	require.NoError(t, err)
	assert.Contains(t, string(sheet), `url("`+imgLocal+`")`,
		"persisted stylesheet points at the same local file")
}

func TestCapture_missing_asset_fails_after_all_attempts(t *testing.T) {
	t.Parallel()

	srv := newFakeServer()
	srv.errors["https://example.com/missing.png"] = capsule.Errorf(capsule.ENOTFOUND, "404: missing.png")

	c := newController(srv, mem.NewCache(), fs.NewCaptureStore(t.TempDir()))

	res, err := c.Capture(context.Background(),
		`<html><body><img src="missing.png"></body></html>`,
		"https://example.com/index.html")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, capsule.EUNAVAILABLE, capsule.ErrorCode(err))
	assert.Equal(t, 3, srv.count("https://example.com/missing.png"))
}

func TestCapture_stylesheet_expands_second_order_references(t *testing.T) {
	t.Parallel()

	srv := newFakeServer()
	srv.responses["https://example.com/css/fonts.css"] = &capsule.FetchResponse{
		Body: []byte(`@font-face { src: url(font1.woff2); }
@font-face { src: url("font2.woff2"); }`),
		ContentType: "text/css",
	}
	srv.responses["https://example.com/css/font1.woff2"] = &capsule.FetchResponse{Body: woff2Bytes, ContentType: "font/woff2"}
	srv.responses["https://example.com/css/font2.woff2"] = &capsule.FetchResponse{Body: woff2Bytes, ContentType: "font/woff2"}

	dir := t.TempDir()
	c := newController(srv, mem.NewCache(), fs.NewCaptureStore(dir))

	res, err := c.Capture(context.Background(),
		`<html><head><link rel="stylesheet" href="css/fonts.css"></head><body></body></html>`,
		"https://example.com/index.html")
	require.NoError(t, err)

	assert.Equal(t, 1, srv.count("https://example.com/css/fonts.css"))
	assert.Equal(t, 1, srv.count("https://example.com/css/font1.woff2"))
	assert.Equal(t, 1, srv.count("https://example.com/css/font2.woff2"))
	assert.Equal(t, 3, res.Downloaded)
	assert.Len(t, res.Manifest.Assets, 3)

	sheet, err := os.ReadFile(filepath.Join(dir, res.Manifest.Assets["css/fonts.css"]))
	require.NoError(t, err)
	assert.Contains(t, string(sheet), `url("`+res.Manifest.Assets["font1.woff2"]+`")`)
	assert.Contains(t, string(sheet), `url("`+res.Manifest.Assets["font2.woff2"]+`")`)
	assert.NotContains(t, string(sheet), `url(font1.woff2)`)
}

func TestCapture_no_references_completes_immediately(t *testing.T) {
	t.Parallel()

	srv := newFakeServer()
	c := newController(srv, mem.NewCache(), fs.NewCaptureStore(t.TempDir()))

	res, err := c.Capture(context.Background(),
		`<html><body><p>self-contained</p></body></html>`,
		"https://example.com/index.html")
	require.NoError(t, err)

	assert.Equal(t, 0, srv.total())
	assert.Equal(t, 1, res.Attempts)
	assert.Empty(t, res.Manifest.Assets)
	assert.NotEmpty(t, res.CaptureID)
}

func TestCapture_retry_reuses_committed_entries(t *testing.T) {
	t.Parallel()

	srv := newFakeServer()
	srv.responses["https://example.com/a.jpg"] = &capsule.FetchResponse{Body: jpegBytes, ContentType: "image/jpeg"}
	srv.responses["https://example.com/b.jpg"] = &capsule.FetchResponse{Body: jpegBytes, ContentType: "image/jpeg"}
	srv.failFirst["https://example.com/a.jpg"] = 1

	c := newController(srv, mem.NewCache(), fs.NewCaptureStore(t.TempDir()))

	res, err := c.Capture(context.Background(),
		`<html><body><img src="a.jpg"><img src="b.jpg"></body></html>`,
		"https://example.com/index.html")
	require.NoError(t, err)

	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 2, srv.count("https://example.com/a.jpg"))
	assert.Equal(t, 1, srv.count("https://example.com/b.jpg"), "committed entries are not re-fetched")
	assert.Equal(t, 1, res.Downloaded)
	assert.Equal(t, 1, res.Cached)
	assert.Equal(t, capsule.Downloaded, res.Dispositions["https://example.com/a.jpg"])
	assert.Equal(t, capsule.AlreadyCached, res.Dispositions["https://example.com/b.jpg"])
}

func TestCapture_global_cache_persists_across_runs(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	cachePath := filepath.Join(tmp, jsonfile.DefaultFilename)
	markup := `<html><body><img src="a.jpg"></body></html>`

	srv1 := newFakeServer()
	srv1.responses["https://example.com/a.jpg"] = &capsule.FetchResponse{Body: jpegBytes, ContentType: "image/jpeg"}
	c1 := newController(srv1, jsonfile.NewCache(cachePath), fs.NewGlobalStore(tmp))

	_, err := c1.Capture(context.Background(), markup, "https://example.com/index.html")
	require.NoError(t, err)
	assert.Equal(t, 1, srv1.count("https://example.com/a.jpg"))

	// A later, independent capture loads the persisted cache and resolves
	// the URL with zero network calls.
	srv2 := newFakeServer()
	cache2 := jsonfile.NewCache(cachePath)
	require.NoError(t, cache2.Load(context.Background()))
	c2 := newController(srv2, cache2, fs.NewGlobalStore(tmp))

	res, err := c2.Capture(context.Background(), markup, "https://example.com/index.html")
	require.NoError(t, err)
	assert.Equal(t, 0, srv2.total())
	assert.Equal(t, 1, res.Cached)
	assert.Equal(t, 0, res.Downloaded)
}

func TestCapture_rejected_content_counts_as_failure(t *testing.T) {
	t.Parallel()

	srv := newFakeServer()
	srv.responses["https://example.com/logo.png"] = &capsule.FetchResponse{
		Body:        []byte("<html><body>not found</body></html>"),
		ContentType: "text/html",
	}

	c := newController(srv, mem.NewCache(), fs.NewCaptureStore(t.TempDir()))
	c.MaxAttempts = 1

	var failures []error
	c.Progress = func(event capture.ProgressEvent) {
		if event.Type == capture.ProgressFailed {
			failures = append(failures, event.Error)
		}
	}

	_, err := c.Capture(context.Background(),
		`<html><body><img src="logo.png"></body></html>`,
		"https://example.com/index.html")
	require.Error(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, capsule.EMISMATCH, capsule.ErrorCode(failures[0]))
}

func TestCapture_unclassifiable_content_rejected(t *testing.T) {
	t.Parallel()

	srv := newFakeServer()
	srv.responses["https://example.com/data.bin"] = &capsule.FetchResponse{
		Body:        []byte{0x01, 0x02, 0x03, 0x04},
		ContentType: "application/octet-stream",
	}

	c := newController(srv, mem.NewCache(), fs.NewCaptureStore(t.TempDir()))
	c.MaxAttempts = 1

	var failures []error
	c.Progress = func(event capture.ProgressEvent) {
		if event.Type == capture.ProgressFailed {
			failures = append(failures, event.Error)
		}
	}

	// No check can vouch for bytes behind an unclassifiable URL, so they
	// fail validation like any other mismatch.
	_, err := c.Capture(context.Background(),
		`<html><body><object data="data.bin"></object></body></html>`,
		"https://example.com/index.html")
	require.Error(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, capsule.EMISMATCH, capsule.ErrorCode(failures[0]))
}

func TestCapture_indeterminate_content_kept_by_default(t *testing.T) {
	t.Parallel()

	srv := newFakeServer()
	srv.responses["https://example.com/data.bin"] = &capsule.FetchResponse{
		Body:        []byte{0x01, 0x02, 0x03, 0x04},
		ContentType: "application/octet-stream",
	}

	c := newController(srv, mem.NewCache(), fs.NewCaptureStore(t.TempDir()))
	c.Validator = &mock.Validator{ValidateFn: func([]byte, capsule.Category, string) capsule.ValidationOutcome {
		return capsule.Indeterminate
	}}

	res, err := c.Capture(context.Background(),
		`<html><body><object data="data.bin"></object></body></html>`,
		"https://example.com/index.html")
	require.NoError(t, err)
	assert.Contains(t, res.Manifest.Assets, "data.bin")
}

func TestCapture_indeterminate_content_rejected_when_configured(t *testing.T) {
	t.Parallel()

	srv := newFakeServer()
	srv.responses["https://example.com/data.bin"] = &capsule.FetchResponse{
		Body:        []byte{0x01, 0x02, 0x03, 0x04},
		ContentType: "application/octet-stream",
	}

	c := newController(srv, mem.NewCache(), fs.NewCaptureStore(t.TempDir()))
	c.Validator = &mock.Validator{ValidateFn: func([]byte, capsule.Category, string) capsule.ValidationOutcome {
		return capsule.Indeterminate
	}}
	c.MaxAttempts = 1
	c.RejectIndeterminate = true

	_, err := c.Capture(context.Background(),
		`<html><body><object data="data.bin"></object></body></html>`,
		"https://example.com/index.html")
	require.Error(t, err)
}

func TestCapture_invalid_base_URL(t *testing.T) {
	t.Parallel()

	c := newController(newFakeServer(), mem.NewCache(), fs.NewCaptureStore(t.TempDir()))

	_, err := c.Capture(context.Background(), "<html></html>", "://bad")
	require.Error(t, err)
	assert.Equal(t, capsule.EINVALID, capsule.ErrorCode(err))
}

func TestCapture_concurrent_fetches_are_bounded(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0
	fetcher := &mock.Fetcher{FetchFn: func(_ context.Context, url string) (*capsule.FetchResponse, error) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return &capsule.FetchResponse{Body: jpegBytes, ContentType: "image/jpeg"}, nil
	}}

	c := &capture.Controller{
		Fetcher:     fetcher,
		Cache:       mem.NewCache(),
		Validator:   content.NewValidator(),
		Store:       fs.NewCaptureStore(t.TempDir()),
		Concurrency: 2,
		BackoffBase: time.Millisecond,
	}

	markup := `<html><body>` +
		`<img src="1.jpg"><img src="2.jpg"><img src="3.jpg">` +
		`<img src="4.jpg"><img src="5.jpg"><img src="6.jpg">` +
		`</body></html>`
	_, err := c.Capture(context.Background(), markup, "https://example.com/index.html")
	require.NoError(t, err)
	assert.LessOrEqual(t, maxInFlight, 2)
}

func TestCapture_cache_lookup_error_aborts(t *testing.T) {
	t.Parallel()

	srv := newFakeServer()
	cache := &mock.Cache{
		LookupFn: func(context.Context, string) (string, error) {
			return "", capsule.Errorf(capsule.EINTERNAL, "cache backend unavailable")
		},
	}

	c := newController(srv, cache, fs.NewCaptureStore(t.TempDir()))

	// A broken cache is a capture-level fault, not a per-reference failure,
	// so the attempt stops instead of falling back to the network.
	_, err := c.Capture(context.Background(),
		`<html><body><img src="a.jpg"></body></html>`,
		"https://example.com/index.html")
	require.Error(t, err)
	assert.Equal(t, capsule.EINTERNAL, capsule.ErrorCode(err))
	assert.Equal(t, 0, srv.total())
}

func TestCapture_store_write_failure_counts_as_failure(t *testing.T) {
	t.Parallel()

	srv := newFakeServer()
	srv.responses["https://example.com/a.jpg"] = &capsule.FetchResponse{Body: jpegBytes, ContentType: "image/jpeg"}

	store := &mock.Store{
		WriteFn: func(string, []byte) (string, error) {
			return "", capsule.Errorf(capsule.EINTERNAL, "disk full")
		},
		RelFn: func(filename string) string { return "assets/" + filename },
	}

	c := newController(srv, mem.NewCache(), store)
	c.MaxAttempts = 1

	var failures []error
	c.Progress = func(event capture.ProgressEvent) {
		if event.Type == capture.ProgressFailed {
			failures = append(failures, event.Error)
		}
	}

	_, err := c.Capture(context.Background(),
		`<html><body><img src="a.jpg"></body></html>`,
		"https://example.com/index.html")
	require.Error(t, err)
	assert.Equal(t, capsule.EUNAVAILABLE, capsule.ErrorCode(err))
	require.Len(t, failures, 1)
	assert.Equal(t, capsule.EINTERNAL, capsule.ErrorCode(failures[0]))
}
