// Package loader fetches and decodes mesh files from URLs or the filesystem,
// deduplicating concurrent requests and caching successful results.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/makistry/meshview/pkg/glb"
	"github.com/makistry/meshview/pkg/mesh"
	"github.com/makistry/meshview/pkg/stl"
	"github.com/makistry/meshview/pkg/watcher"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxBytes caps the size of a single fetched file
const DefaultMaxBytes = 256 << 20

// Load outcomes reported to the Observer
const (
	OutcomeOK        = "ok"
	OutcomeCached    = "cached"
	OutcomeHTTP      = "http_error"
	OutcomeTransport = "transport_error"
	OutcomeParse     = "parse_error"
)

// Observer receives load statistics
type Observer interface {
	ObserveLoad(format string, outcome string, elapsed time.Duration)
}

// Options configures a Loader
type Options struct {
	// BaseURL resolves relative URLs such as "/static/mesh.glb"
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
	Observer   Observer
	MaxBytes   int64
	// Debounce for Watch, DefaultDebounce when zero
	Debounce time.Duration
}

type cacheKey struct {
	url    string
	format Format
}

// Loader loads mesh assets. Returned assets are shared with the cache and
// must be cloned before mutation.
type Loader struct {
	opts   Options
	logger *zap.Logger
	group  singleflight.Group

	mu    sync.RWMutex
	cache map[cacheKey][]*mesh.Asset

	watchMu sync.Mutex
	watcher *watcher.FileWatcher
}

// New creates a loader
func New(opts Options) *Loader {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	return &Loader{
		opts:   opts,
		logger: opts.Logger.With(zap.String("component", "loader")),
		cache:  make(map[cacheKey][]*mesh.Asset),
	}
}

// Resolve returns the canonical form of a source: absolute http(s) URLs are
// kept, relative URLs are resolved against the base URL unless they name an
// existing local file, and local paths become file:// URLs.
func (l *Loader) Resolve(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty source")
	}

	u, err := url.Parse(raw)
	if err == nil {
		switch u.Scheme {
		case "http", "https":
			return u.String(), nil
		case "file":
			return "file://" + filepath.Clean(u.Path), nil
		}
	}

	if l.opts.BaseURL != "" {
		if _, statErr := os.Stat(raw); statErr != nil {
			base, err := url.Parse(l.opts.BaseURL)
			if err != nil {
				return "", fmt.Errorf("invalid base URL %q: %w", l.opts.BaseURL, err)
			}
			ref, err := url.Parse(raw)
			if err != nil {
				return "", fmt.Errorf("invalid URL %q: %w", raw, err)
			}
			return base.ResolveReference(ref).String(), nil
		}
	}

	abs, err := filepath.Abs(raw)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %s: %w", raw, err)
	}
	return "file://" + abs, nil
}

// Load fetches and decodes a source. Concurrent loads of the same source
// share one fetch; successes are cached and failures are not.
func (l *Loader) Load(ctx context.Context, raw string, format Format) ([]*mesh.Asset, error) {
	resolved, err := l.Resolve(raw)
	if err != nil {
		return nil, &LoadError{URL: raw, Message: err.Error(), Err: err}
	}
	key := cacheKey{url: resolved, format: format}

	l.mu.RLock()
	assets, ok := l.cache[key]
	l.mu.RUnlock()
	if ok {
		l.observe(format, OutcomeCached, 0)
		return append([]*mesh.Asset(nil), assets...), nil
	}

	// The shared fetch outlives any single caller's cancellation
	ch := l.group.DoChan(key.url+"|"+string(key.format), func() (interface{}, error) {
		return l.fetch(context.WithoutCancel(ctx), key)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return append([]*mesh.Asset(nil), res.Val.([]*mesh.Asset)...), nil
	}
}

// LoadMerged loads a source and merges all of its meshes into one asset
func (l *Loader) LoadMerged(ctx context.Context, raw string, format Format) (*mesh.Asset, error) {
	assets, err := l.Load(ctx, raw, format)
	if err != nil {
		return nil, err
	}
	return mesh.Merge(displayName(raw), assets...), nil
}

func (l *Loader) fetch(ctx context.Context, key cacheKey) ([]*mesh.Asset, error) {
	start := time.Now()

	data, err := l.read(ctx, key.url)
	if err != nil {
		var le *LoadError
		outcome := OutcomeTransport
		if errors.As(err, &le) && le.Status != 0 {
			outcome = OutcomeHTTP
		}
		l.observe(key.format, outcome, time.Since(start))
		l.logger.Warn("load failed", zap.String("url", key.url), zap.Error(err))
		return nil, err
	}

	format := detectFormat(key.format, key.url, data)
	assets, err := decode(format, data)
	if err != nil {
		l.observe(format, OutcomeParse, time.Since(start))
		l.logger.Warn("parse failed", zap.String("url", key.url), zap.String("format", format.String()), zap.Error(err))
		return nil, parseError(key.url, format, err)
	}

	l.mu.Lock()
	l.cache[key] = assets
	l.mu.Unlock()

	l.observe(format, OutcomeOK, time.Since(start))
	l.logger.Debug("loaded",
		zap.String("url", key.url),
		zap.String("format", format.String()),
		zap.Int("meshes", len(assets)),
		zap.Duration("elapsed", time.Since(start)))
	return assets, nil
}

func (l *Loader) read(ctx context.Context, resolved string) ([]byte, error) {
	if path, ok := strings.CutPrefix(resolved, "file://"); ok {
		f, err := os.Open(path)
		if err != nil {
			return nil, transportError(resolved, err)
		}
		defer f.Close()
		return l.readAll(resolved, f)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resolved, nil)
	if err != nil {
		return nil, transportError(resolved, err)
	}
	resp, err := l.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, transportError(resolved, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, httpError(resolved, resp)
	}
	return l.readAll(resolved, resp.Body)
}

func (l *Loader) readAll(resolved string, r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.opts.MaxBytes+1))
	if err != nil {
		return nil, transportError(resolved, err)
	}
	if int64(len(data)) > l.opts.MaxBytes {
		return nil, &LoadError{URL: resolved, Message: fmt.Sprintf("file exceeds %d bytes", l.opts.MaxBytes)}
	}
	return data, nil
}

// decode turns decoder panics into parse errors
func decode(format Format, data []byte) (assets []*mesh.Asset, err error) {
	defer func() {
		if r := recover(); r != nil {
			assets, err = nil, fmt.Errorf("decoder panic: %v", r)
		}
	}()

	switch format {
	case FormatGLB:
		return glb.Decode(bytes.NewReader(data))
	case FormatSTL:
		asset, err := stl.DecodeBytes(data)
		if err != nil {
			return nil, err
		}
		return []*mesh.Asset{asset}, nil
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// Invalidate drops every cached result for the source
func (l *Loader) Invalidate(raw string) {
	resolved, err := l.Resolve(raw)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for key := range l.cache {
		if key.url == resolved {
			delete(l.cache, key)
		}
	}
}

// Cached reports whether the source has a cached result for the format
func (l *Loader) Cached(raw string, format Format) bool {
	resolved, err := l.Resolve(raw)
	if err != nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.cache[cacheKey{url: resolved, format: format}]
	return ok
}

// Watch invalidates the cache entries of local files when they change on
// disk, then calls onChange with the changed path. onChange may be nil.
func (l *Loader) Watch(ctx context.Context, paths []string, onChange func(string)) error {
	l.watchMu.Lock()
	defer l.watchMu.Unlock()

	if l.watcher == nil {
		fw, err := watcher.NewFileWatcher(l.opts.Debounce, l.opts.Logger)
		if err != nil {
			return err
		}
		fw.Start(ctx)
		l.watcher = fw
	}

	return l.watcher.Watch(paths, func(path string) {
		l.Invalidate(path)
		l.logger.Info("source changed, cache invalidated", zap.String("path", path))
		if onChange != nil {
			onChange(path)
		}
	})
}

// Close stops watching files
func (l *Loader) Close() error {
	l.watchMu.Lock()
	defer l.watchMu.Unlock()
	if l.watcher == nil {
		return nil
	}
	err := l.watcher.Close()
	l.watcher = nil
	return err
}

func (l *Loader) observe(format Format, outcome string, elapsed time.Duration) {
	if l.opts.Observer != nil {
		l.opts.Observer.ObserveLoad(format.String(), outcome, elapsed)
	}
}

func displayName(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		raw = u.Path
	}
	return strings.TrimSuffix(filepath.Base(raw), filepath.Ext(raw))
}
