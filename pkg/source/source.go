// Package source fetches raw specification text from a local path or an
// http(s) URL. It hands bytes to the spec package and knows nothing about
// OpenAPI itself.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apiforge/mcpgen/pkg/spec"
)

// maxSpecBytes caps how large a fetched specification may be.
const maxSpecBytes = 32 << 20

// Error reports a locator that could not be fetched.
type Error struct {
	Locator string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("spec source error for %s: %s", e.Locator, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// Fetcher loads raw spec bytes from paths and URLs.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher with a bounded HTTP timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: 30 * time.Second}}
}

// IsURL reports whether the locator is an http(s) URL.
func IsURL(locator string) bool {
	parsed, err := url.Parse(locator)
	if err != nil {
		return false
	}
	return parsed.Scheme == "http" || parsed.Scheme == "https"
}

// Fetch returns the raw specification text behind a locator plus a format
// hint derived from the file extension, when one is recognizable.
func (f *Fetcher) Fetch(ctx context.Context, locator string) ([]byte, string, error) {
	if locator == "" {
		return nil, "", &Error{Locator: locator, Detail: "empty locator"}
	}
	if IsURL(locator) {
		raw, err := f.fetchURL(ctx, locator)
		if err != nil {
			return nil, "", err
		}
		return raw, FormatHint(locator), nil
	}
	raw, err := f.fetchFile(locator)
	if err != nil {
		return nil, "", err
	}
	return raw, FormatHint(locator), nil
}

func (f *Fetcher) fetchURL(ctx context.Context, locator string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, &Error{Locator: locator, Detail: "invalid URL", Err: err}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{Locator: locator, Detail: "failed to fetch spec", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Locator: locator, Detail: fmt.Sprintf("HTTP %d when fetching spec", resp.StatusCode)}
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxSpecBytes))
	if err != nil {
		return nil, &Error{Locator: locator, Detail: "failed to read spec body", Err: err}
	}
	return raw, nil
}

func (f *Fetcher) fetchFile(path string) ([]byte, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &Error{Locator: path, Detail: "spec file not found", Err: err}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Locator: path, Detail: "failed to read spec file", Err: err}
	}
	return raw, nil
}

// FormatHint maps a locator's extension onto the normalizer's format hints.
func FormatHint(locator string) string {
	// Strip query parameters from URLs before looking at the extension.
	if idx := strings.IndexByte(locator, '?'); idx != -1 {
		locator = locator[:idx]
	}
	switch strings.ToLower(filepath.Ext(locator)) {
	case ".json":
		return spec.FormatJSON
	case ".yaml", ".yml":
		return spec.FormatYAML
	default:
		return spec.FormatAuto
	}
}

// EndpointName derives the URL path a spec mounts at from its locator,
// matching the catalog's endpoint naming: base name without extension,
// underscores turned into hyphens, lower-cased.
func EndpointName(locator string) string {
	if idx := strings.IndexByte(locator, '?'); idx != -1 {
		locator = locator[:idx]
	}
	base := filepath.Base(locator)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ToLower(strings.ReplaceAll(base, "_", "-"))
}
