// Package dictionary looks up selected text against a dictionary provider.
package dictionary

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrEmptyText = errors.New("empty text")
	ErrNotFound  = errors.New("no definition found")
)

// Meaning is a single definition line.
type Meaning struct {
	Text string `json:"text"`
}

// Group is one entry of a lookup result.
type Group struct {
	Meanings []Meaning `json:"meanings"`
}

// Client defines the interface for dictionary providers.
type Client interface {
	Lookup(ctx context.Context, text string) ([]Group, error)
	Name() string
}

// Provider names accepted by NewClient.
const (
	ProviderEndpoint       = "endpoint"
	ProviderFreeDictionary = "freedictionary"
)

// NewClient builds the client for provider. baseURL is required for the
// endpoint provider and optional for freedictionary.
func NewClient(provider, baseURL string) (Client, error) {
	switch provider {
	case ProviderEndpoint:
		if baseURL == "" {
			return nil, fmt.Errorf("dictionary provider %q requires a URL", provider)
		}
		return NewEndpointClient(baseURL), nil
	case ProviderFreeDictionary, "":
		return NewFreeDictionaryClient(baseURL), nil
	default:
		return nil, fmt.Errorf("unknown dictionary provider: %s", provider)
	}
}
