package reload

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spcent/autoreload/health"
	glog "github.com/spcent/autoreload/log"
	httpx "github.com/spcent/autoreload/net/http"
)

// Fetcher performs one health check request.
//
// It returns the token on a 200 response, "" with a nil error on any other
// status, and a non-nil error when no response was obtained at all.
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (string, error)

func (f FetcherFunc) Fetch(ctx context.Context) (string, error) { return f(ctx) }

// ErrInvalidBaseURL is returned by NewHTTPFetcher for unusable base URLs.
var ErrInvalidBaseURL = errors.New("reload: invalid base url")

// HTTPFetcher requests GET <base>/health_check.
type HTTPFetcher struct {
	url    string
	client *httpx.Client
	logger glog.StructuredLogger
}

// NewHTTPFetcher creates a fetcher for the server at baseURL. A nil client
// gets a default one with no timeout beyond the transport's own.
func NewHTTPFetcher(baseURL string, client *httpx.Client, logger glog.StructuredLogger) (*HTTPFetcher, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrInvalidBaseURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidBaseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + health.Path
	u.RawQuery = ""
	u.Fragment = ""

	if client == nil {
		client = httpx.New()
	}
	if logger == nil {
		logger = glog.NewNoop()
	}
	return &HTTPFetcher{url: u.String(), client: client, logger: logger}, nil
}

// URL returns the full health check URL.
func (f *HTTPFetcher) URL() string { return f.url }

func (f *HTTPFetcher) Fetch(ctx context.Context) (string, error) {
	status, body, err := f.client.GetText(ctx, f.url)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		f.logger.DebugCtx(ctx, "health check unavailable", glog.Fields{"status": status})
		return "", nil
	}
	return body, nil
}
