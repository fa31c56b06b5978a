package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	appLog "hackweb/internal/log"
)

const (
	userAgent = "hackweb-schedule/1.0"

	// Feeds above this size are rejected.
	maxFeedBytes = 8 << 20
)

var errFeedTooLarge = fmt.Errorf("feed larger than %d bytes", maxFeedBytes)

// Source is one calendar feed merged into the schedule.
type Source struct {
	// ID names the feed in logs and error messages.
	ID string
	// URL is an http(s) endpoint, a file:// URL or a plain file path.
	URL string
}

// FetchResult is the body of one source.
type FetchResult struct {
	Source Source
	Body   []byte
	// FromCache is set when the stored copy was served: on 304, or when
	// the remote end failed and a previous copy exists.
	FromCache bool
}

// Fetcher downloads feeds with conditional requests and keeps the last
// good copy of each remote feed on disk.
type Fetcher struct {
	client *http.Client
	cache  feedCache
}

// NewFetcher creates a Fetcher caching under cacheDir.
func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "hackweb-ics-cache")
	}
	return &Fetcher{
		client: &http.Client{Timeout: 15 * time.Second},
		cache:  feedCache{dir: cacheDir},
	}
}

// FetchAll fetches sources in order. Failures are logged and returned,
// wrapped with the source ID; the remaining sources are still fetched.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]FetchResult, []error) {
	var (
		results = make([]FetchResult, 0, len(sources))
		errs    []error
	)
	for _, src := range sources {
		res, err := f.FetchOne(ctx, src)
		if err != nil {
			appLog.Error("feed fetch failed", err, "id", src.ID, "url", redactURL(src.URL))
			errs = append(errs, fmt.Errorf("%s: %w", src.ID, err))
			continue
		}
		results = append(results, res)
	}
	return results, errs
}

// FetchOne fetches a single source.
func (f *Fetcher) FetchOne(ctx context.Context, src Source) (FetchResult, error) {
	switch {
	case src.URL == "":
		return FetchResult{}, errors.New("source URL is empty")
	case !isRemote(src.URL):
		body, err := os.ReadFile(strings.TrimPrefix(src.URL, "file://"))
		if err != nil {
			return FetchResult{}, err
		}
		return FetchResult{Source: src, Body: body}, nil
	}

	entry := f.cache.load(src.URL)
	stale := func(cause error) (FetchResult, error) {
		if len(entry.body) == 0 {
			return FetchResult{}, cause
		}
		appLog.Warn("serving cached feed", "id", src.ID, "url", redactURL(src.URL),
			"cause", cause.Error(), "cached_at", entry.meta.FetchedAt)
		return FetchResult{Source: src, Body: entry.body, FromCache: true}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/calendar, */*;q=0.5")
	if len(entry.body) > 0 {
		if entry.meta.ETag != "" {
			req.Header.Set("If-None-Match", entry.meta.ETag)
		}
		if entry.meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", entry.meta.LastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return stale(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		if len(entry.body) == 0 {
			return FetchResult{}, errors.New("304 Not Modified without a cached copy")
		}
		appLog.Debug("feed not modified", "id", src.ID)
		return FetchResult{Source: src, Body: entry.body, FromCache: true}, nil

	case resp.StatusCode != http.StatusOK:
		return stale(errors.New(resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes+1))
	if err != nil {
		return stale(err)
	}
	if len(body) > maxFeedBytes {
		return stale(errFeedTooLarge)
	}

	meta := feedMeta{
		URL:          src.URL,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		FetchedAt:    time.Now().UTC(),
	}
	if err := f.cache.store(meta, body); err != nil {
		appLog.Warn("feed cache write failed", "id", src.ID, "error", err.Error())
	}
	appLog.Info("feed fetched", "id", src.ID, "url", redactURL(src.URL), "bytes", len(body))
	return FetchResult{Source: src, Body: body}, nil
}

func isRemote(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

type feedMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
}

type cachedFeed struct {
	meta feedMeta
	body []byte
}

// feedCache stores one directory per feed URL holding meta.json and
// body.ics. Read errors mean "not cached".
type feedCache struct {
	dir string
}

func (c feedCache) path(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:8]))
}

func (c feedCache) load(url string) cachedFeed {
	dir := c.path(url)
	var cf cachedFeed
	body, err := os.ReadFile(filepath.Join(dir, "body.ics"))
	if err != nil {
		return cf
	}
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil || json.Unmarshal(data, &cf.meta) != nil || cf.meta.URL != url {
		// A body without trustworthy validators is still a usable fallback.
		cf.meta = feedMeta{}
	}
	cf.body = body
	return cf
}

func (c feedCache) store(meta feedMeta, body []byte) error {
	dir := c.path(meta.URL)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	// Body first, so meta.json never describes a body that is not there.
	if err := os.WriteFile(filepath.Join(dir, "body.ics"), body, 0o600); err != nil {
		return err
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o600)
}

// redactURL keeps only scheme and host of a feed URL for logging, since
// calendar share links usually embed a secret token.
func redactURL(u string) string {
	i := strings.Index(u, "://")
	if i == -1 {
		return filepath.Base(u)
	}
	rest := u[i+3:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		rest = rest[:j]
	}
	return u[:i+3] + rest + "/...(redacted)"
}
