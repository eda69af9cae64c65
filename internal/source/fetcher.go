// Package source reads launch records from the public SpaceX API.
package source

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"launchsync/internal/model"
)

const (
	// DefaultURL is the v3 launches listing.
	DefaultURL = "https://api.spacexdata.com/v3/launches"
	// DefaultTimeout bounds the whole read, body included.
	DefaultTimeout = 30 * time.Second
)

// Error is the class of fetch failures. Fetch never returns it; FetchErr does.
var Error = errs.Class("source")

// Fetcher performs one GET per call. No retries, no pagination, no auth.
type Fetcher struct {
	url    string
	client *http.Client
	log    *zap.Logger
}

// New returns a Fetcher for rawURL. An empty URL selects DefaultURL and a
// non-positive timeout selects DefaultTimeout. file:// URLs are read from disk.
func New(rawURL string, timeout time.Duration, log *zap.Logger) *Fetcher {
	if rawURL == "" {
		rawURL = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{url: rawURL, client: &http.Client{Timeout: timeout}, log: log}
}

// URL returns the endpoint this fetcher reads.
func (f *Fetcher) URL() string { return f.url }

// Fetch returns the raw launch list, or an empty list on any failure.
// An empty result therefore means either "no launches" or "source unreachable".
func (f *Fetcher) Fetch(ctx context.Context) []model.RawLaunch {
	launches, err := f.FetchErr(ctx)
	if err != nil {
		f.log.Error("fetch failed", zap.String("url", f.url), zap.Error(err))
		return []model.RawLaunch{}
	}
	return launches
}

// FetchErr is Fetch with the failure surfaced.
func (f *Fetcher) FetchErr(ctx context.Context) ([]model.RawLaunch, error) {
	f.log.Info("requesting launches", zap.String("url", f.url))

	body, err := f.read(ctx)
	if err != nil {
		return nil, err
	}
	launches, err := model.DecodeRawLaunches(body)
	if err != nil {
		return nil, Error.New("decode body: %v", err)
	}
	f.log.Info("launches received", zap.Int("count", len(launches)))
	return launches, nil
}

func (f *Fetcher) read(ctx context.Context) ([]byte, error) {
	u, err := url.Parse(f.url)
	if err != nil {
		return nil, Error.New("parse url: %v", err)
	}
	if u.Scheme == "file" {
		b, err := os.ReadFile(u.Path)
		return b, Error.Wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, Error.New("unexpected status %s", resp.Status)
	}
	b, err := io.ReadAll(resp.Body)
	return b, Error.Wrap(err)
}
