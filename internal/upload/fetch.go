package upload

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/go-resty/resty/v2"
)

// Fetcher downloads remote images.
type Fetcher struct {
	client *resty.Client
}

// NewFetcher creates a Fetcher with the given request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "gallery/1.0").
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	return &Fetcher{client: client}
}

// Fetch downloads rawURL and validates it like a local file. The image name
// is the last path segment of the URL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Candidate, error) {
	// Validate URL
	u, err := url.Parse(rawURL)
	if err != nil {
		return Candidate{}, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Candidate{}, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(u.String())
	if err != nil {
		return Candidate{}, fmt.Errorf("fetch: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return Candidate{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode(), resp.Status())
	}

	return ReadFrom(nameFromURL(u), body)
}

func nameFromURL(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		return u.Host
	}
	return name
}
