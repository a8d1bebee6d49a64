// internal/common/database/llis.go
package database

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"astroscope/internal/common/config"

	"github.com/elastic/elastic-transport-go/v8/elastictransport"
)

// NewLLISTransport builds the transport used with esapi requests against the
// Lessons Learned search endpoint. The public endpoint is not a stock
// Elasticsearch cluster, so the product check of the full client is skipped
// by talking to the transport directly. Retries are disabled: a failed search
// falls back to the local corpus instead.
func NewLLISTransport(cfg config.LLISConfig, rt http.RoundTripper) (*elastictransport.Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid llis url %q: %w", cfg.URL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid llis url %q: scheme and host required", cfg.URL)
	}
	if rt == nil {
		rt = http.DefaultTransport
	}

	header := http.Header{}
	header.Set("Accept", "application/json")

	tp, err := elastictransport.New(elastictransport.Config{
		URLs:         []*url.URL{base},
		Transport:    rt,
		Header:       header,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create llis transport: %w", err)
	}
	return tp, nil
}
