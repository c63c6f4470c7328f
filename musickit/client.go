package musickit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/scottboms/musickit-gateway/errors"
	"github.com/scottboms/musickit-gateway/internal/metrics"
)

// emptyData is the body substituted when the upstream responds with an
// empty payload.
var emptyData = []byte(`{"data":[]}`)

// Client issues authenticated calls against the Apple Music API.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient creates a catalog API client. timeout bounds every request so a
// slow upstream cannot hold request-handling capacity hostage.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Get performs an authenticated GET against the API. The default headers
// (Authorization, Music-User-Token, Accept) can be overridden by entries in
// headers; caller-supplied keys win on conflict. userToken may be empty for
// catalog-only calls. An upstream status >= 400 is returned as a structured
// UpstreamError carrying the status and decoded body.
func (c *Client) Get(ctx context.Context, operation, path, devToken, userToken string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+devToken)
	req.Header.Set("Accept", "application/json")
	if userToken != "" {
		req.Header.Set("Music-User-Token", userToken)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(operation, "network_error").Inc()
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(operation, "read_error").Inc()
		return nil, fmt.Errorf("read catalog response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		metrics.UpstreamRequestsTotal.WithLabelValues(operation, "upstream_error").Inc()
		log.Debug().
			Str("operation", operation).
			Int("status", resp.StatusCode).
			Msg("catalog API error")
		return nil, errors.NewUpstream(resp.StatusCode, decodeBody(body))
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(operation, "ok").Inc()

	if len(body) == 0 {
		return emptyData, nil
	}
	return body, nil
}

// decodeBody decodes an error body for diagnostics, falling back to the
// raw text when it is not JSON.
func decodeBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return string(body)
	}
	return decoded
}
