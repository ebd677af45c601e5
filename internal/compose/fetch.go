package compose

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dsmr-tools/dsmr-provision/internal/logging"
)

// maxTemplateSize caps template downloads. The upstream files are a few
// kilobytes; anything larger is a wrong URL.
const maxTemplateSize = 1 << 20

// Fetcher downloads the upstream compose and env templates.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher with a bounded request timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: 30 * time.Second}}
}

// NewFetcherWithClient creates a Fetcher using the given HTTP client.
func NewFetcherWithClient(client *http.Client) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch downloads one template file.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	logging.Debug("fetching template", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTemplateSize))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	return data, nil
}

// FetchPair downloads the compose definition and env template.
func (f *Fetcher) FetchPair(ctx context.Context, composeURL, envURL string) (composeData, envData []byte, err error) {
	composeData, err = f.Fetch(ctx, composeURL)
	if err != nil {
		return nil, nil, err
	}
	envData, err = f.Fetch(ctx, envURL)
	if err != nil {
		return nil, nil, err
	}
	return composeData, envData, nil
}
