package adapter

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

var ErrDownloadFailed = goerr.New("failed to download artifact")

// Fetcher retrieves the binary artifact a completed operation points at
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// httpFetcher downloads artifacts over HTTP. The generation API serves
// video files from authenticated URLs, so the API key rides along as a
// query parameter.
type httpFetcher struct {
	client *http.Client
	apiKey string
}

func NewFetcher(apiKey string) Fetcher {
	return &httpFetcher{
		client: &http.Client{Timeout: 2 * time.Minute},
		apiKey: apiKey,
	}
}

func (f *httpFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	target, err := url.Parse(uri)
	if err != nil {
		return nil, goerr.Wrap(ErrDownloadFailed, "invalid artifact uri", goerr.V("uri", uri))
	}
	if f.apiKey != "" {
		q := target.Query()
		q.Set("key", f.apiKey)
		target.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build download request")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, goerr.Wrap(ErrDownloadFailed, err.Error(), goerr.V("uri", uri))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, goerr.Wrap(ErrDownloadFailed, "unexpected status", goerr.V("status", resp.StatusCode), goerr.V("uri", uri))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(ErrDownloadFailed, err.Error(), goerr.V("uri", uri))
	}
	return data, nil
}
