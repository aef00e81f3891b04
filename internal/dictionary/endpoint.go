package dictionary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mrlokans/reader/internal/gateway"
)

// EndpointClient queries a lookup-by-text endpoint that answers with a list
// of {meanings: [{text}]} groups. The cleaned text is appended to the base
// URL as a path segment.
type EndpointClient struct {
	gw *gateway.Gateway
}

// NewEndpointClient creates a client for the endpoint at baseURL.
func NewEndpointClient(baseURL string, opts ...gateway.Option) *EndpointClient {
	return &EndpointClient{gw: gateway.New(baseURL, opts...)}
}

func (c *EndpointClient) Name() string {
	return ProviderEndpoint
}

func (c *EndpointClient) Lookup(ctx context.Context, text string) ([]Group, error) {
	text = CleanSelection(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	resp, err := c.gw.Do(ctx, http.MethodGet, "/"+url.PathEscape(text), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch definition: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, text)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var groups []Group
	if err := json.Unmarshal(resp.Body, &groups); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return groups, nil
}
