package model

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LoaderConfig tells the loader where to find the bundle artifact.
type LoaderConfig struct {
	// Path is a local bundle file, tried first.
	Path string `json:"path" yaml:"path"`
	// URL is a registry endpoint to download the bundle from when no
	// local file is available.
	URL string `json:"url" yaml:"url"`
	// CacheDir holds downloaded bundles across restarts.
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`
	// Timeout bounds the registry download.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// Loader resolves the model bundle lazily on first use and keeps it
// for the life of the process. Concurrent first callers block on one
// load; later callers take the fast path.
type Loader struct {
	config LoaderConfig
	client *http.Client
	log    zerolog.Logger

	mu     sync.RWMutex
	bundle *Bundle
	err    error
	loaded bool
}

// NewLoader builds a loader. The bundle is not touched until the
// first Bundle call.
func NewLoader(config LoaderConfig, log zerolog.Logger) *Loader {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Loader{
		config: config,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Bundle returns the loaded bundle, loading it on first call. A
// failed load is cached too so a broken artifact does not get
// re-fetched on every request.
func (l *Loader) Bundle(ctx context.Context) (*Bundle, error) {
	l.mu.RLock()
	if l.loaded {
		b, err := l.bundle, l.err
		l.mu.RUnlock()
		return b, err
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return l.bundle, l.err
	}

	l.bundle, l.err = l.load(ctx)
	l.loaded = true
	return l.bundle, l.err
}

// Reset drops the cached bundle so the next Bundle call reloads it.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bundle, l.err, l.loaded = nil, nil, false
}

func (l *Loader) load(ctx context.Context) (*Bundle, error) {
	if l.config.Path != "" {
		if _, err := os.Stat(l.config.Path); err == nil {
			l.log.Info().Str("path", l.config.Path).Msg("loading model bundle from disk")
			return ReadBundle(l.config.Path)
		}
	}

	if l.config.URL == "" {
		return nil, fmt.Errorf("%w: no local bundle at %q and no registry URL configured",
			ErrBundleUnavailable, l.config.Path)
	}

	if cached := l.cachePath(); cached != "" {
		if _, err := os.Stat(cached); err == nil {
			l.log.Info().Str("path", cached).Msg("loading model bundle from cache")
			return ReadBundle(cached)
		}
	}

	return l.download(ctx)
}

func (l *Loader) download(ctx context.Context) (*Bundle, error) {
	l.log.Info().Str("url", l.config.URL).Msg("downloading model bundle")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBundleUnavailable, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: downloading bundle: %v", ErrBundleUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: registry returned %d", ErrBundleUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading bundle body: %v", ErrBundleUnavailable, err)
	}

	bundle, err := ParseBundle(data)
	if err != nil {
		return nil, err
	}

	if cached := l.cachePath(); cached != "" {
		if err := os.MkdirAll(filepath.Dir(cached), 0755); err == nil {
			if err := os.WriteFile(cached, data, 0644); err != nil {
				l.log.Warn().Err(err).Msg("could not cache model bundle")
			}
		}
	}

	return bundle, nil
}

func (l *Loader) cachePath() string {
	if l.config.CacheDir == "" {
		return ""
	}
	return filepath.Join(l.config.CacheDir, "bundle.json")
}
