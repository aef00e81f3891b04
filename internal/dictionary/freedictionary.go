package dictionary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const freeDictionaryURL = "https://api.dictionaryapi.dev/api/v2/entries/en"

// FreeDictionaryClient implements Client using the Free Dictionary API.
// API docs: https://dictionaryapi.dev/
type FreeDictionaryClient struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rateLimiter
}

type rateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{interval: interval}
}

func (r *rateLimiter) wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if since := time.Since(r.lastCall); since < r.interval {
		t := time.NewTimer(r.interval - since)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	r.lastCall = time.Now()
	return nil
}

// NewFreeDictionaryClient creates a new Free Dictionary API client. An empty
// baseURL selects the public English endpoint.
func NewFreeDictionaryClient(baseURL string) *FreeDictionaryClient {
	if baseURL == "" {
		baseURL = freeDictionaryURL
	}
	return &FreeDictionaryClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: newRateLimiter(500 * time.Millisecond),
	}
}

func (c *FreeDictionaryClient) Name() string {
	return ProviderFreeDictionary
}

// Lookup fetches definitions of text. Each part of speech becomes a Group.
func (c *FreeDictionaryClient) Lookup(ctx context.Context, text string) ([]Group, error) {
	text = CleanSelection(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	if err := c.rateLimiter.wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(text))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Reader/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch definition: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, text)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var apiResponse []freeDictionaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(apiResponse) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, text)
	}

	return convertToGroups(apiResponse), nil
}

func convertToGroups(entries []freeDictionaryResponse) []Group {
	var groups []Group
	for _, entry := range entries {
		for _, meaning := range entry.Meanings {
			var g Group
			for _, def := range meaning.Definitions {
				line := def.Definition
				if meaning.PartOfSpeech != "" {
					line = meaning.PartOfSpeech + ": " + line
				}
				g.Meanings = append(g.Meanings, Meaning{Text: line})
			}
			if len(g.Meanings) > 0 {
				groups = append(groups, g)
			}
		}
	}
	return groups
}

// Free Dictionary API response types

type freeDictionaryResponse struct {
	Word     string            `json:"word"`
	Meanings []freeDictMeaning `json:"meanings"`
}

type freeDictMeaning struct {
	PartOfSpeech string               `json:"partOfSpeech"`
	Definitions  []freeDictDefinition `json:"definitions"`
}

type freeDictDefinition struct {
	Definition string `json:"definition"`
	Example    string `json:"example"`
}
