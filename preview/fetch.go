package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"docsearch/config"
)

// HTTPFetcher fetches preview URLs from the search server. Root-relative
// URLs are resolved against BaseURL.
type HTTPFetcher struct {
	BaseURL  string
	Client   *http.Client
	MaxBytes int64
}

// NewHTTPFetcher creates a fetcher for the server at baseURL.
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL:  baseURL,
		Client:   &http.Client{Timeout: 60 * time.Second},
		MaxBytes: config.DefaultMaxFileBytes,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	target, err := f.resolve(ref)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: %s", ref, resp.Status)
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = config.DefaultMaxFileBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}
	return data, nil
}

func (f *HTTPFetcher) resolve(ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid preview url %q: %w", ref, err)
	}
	if r.IsAbs() || f.BaseURL == "" {
		return r.String(), nil
	}
	base, err := url.Parse(f.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", f.BaseURL, err)
	}
	return base.ResolveReference(r).String(), nil
}

// FileFetcher reads preview URLs straight from the corpus directory.
type FileFetcher struct {
	Root   string
	Prefix string
}

func (f *FileFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel, err := f.relative(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(f.Root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}
	return data, nil
}

func (f *FileFetcher) relative(ref string) (string, error) {
	p := ref
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		p = u.Path
	}
	prefix := strings.TrimRight(f.Prefix, "/")
	if prefix != "" {
		if !strings.HasPrefix(p, prefix+"/") {
			return "", fmt.Errorf("%q is outside %s", ref, prefix)
		}
		p = strings.TrimPrefix(p, prefix)
	}
	rel := strings.TrimPrefix(path.Clean("/"+p), "/")
	if rel == "" {
		return "", errors.New("empty preview path")
	}
	return rel, nil
}
