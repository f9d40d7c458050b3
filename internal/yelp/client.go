package yelp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultBaseURL = "https://api.yelp.com/v3"

// maxPaginationAttempts bounds how many upstream pages are fetched while
// still under the desired result count
const maxPaginationAttempts = 3

// Client is a Yelp Fusion API client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new Yelp client
func NewClient(apiKey string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewClientWithBaseURL creates a client against a custom endpoint, used by tests
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	client := NewClient(apiKey)
	client.baseURL = baseURL
	return client
}

// APIError is a non-200 response from the Yelp API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Yelp API error (%d): %s", e.StatusCode, e.Body)
}

// SearchOptions are the supported business search parameters
type SearchOptions struct {
	Term     string
	Location string
	Price    string // dollar-sign tier, $ through $$$$
	SortBy   string
	Limit    int
	K        int // desired result count, takes precedence over Limit
}

// SearchResult carries the filtered raw business records so the caller can
// pass them through unmodified
type SearchResult struct {
	Businesses []json.RawMessage `json:"businesses"`
	Total      int               `json:"total"`
}

type searchResponse struct {
	Businesses []json.RawMessage `json:"businesses"`
}

// businessProbe reads just the fields needed for validity filtering
type businessProbe struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Rating      *float64 `json:"rating"`
	ReviewCount int      `json:"review_count"`
}

// convertPriceTier maps dollar signs to Yelp's numeric price levels.
// Unrecognized tiers map to empty and are omitted from the request.
func convertPriceTier(price string) string {
	switch price {
	case "$":
		return "1"
	case "$$":
		return "2"
	case "$$$":
		return "3"
	case "$$$$":
		return "4"
	}
	return ""
}

// Search fetches businesses, over-requesting and paginating until the desired
// count of valid results is collected. A business is valid when it has a
// name, a rating, and at least one review; duplicates are dropped.
func (c *Client) Search(ctx context.Context, opts SearchOptions) (*SearchResult, error) {
	desired := opts.K
	if desired <= 0 {
		desired = opts.Limit
	}
	if desired <= 0 {
		desired = 20
	}

	params := url.Values{}
	if opts.Term != "" {
		params.Set("term", opts.Term)
	}
	params.Set("location", opts.Location)
	if opts.SortBy != "" {
		params.Set("sort_by", opts.SortBy)
	}
	if tier := convertPriceTier(opts.Price); tier != "" {
		params.Set("price", tier)
	}

	// Triple the requested amount per page, capped at Yelp's max of 50
	pageSize := desired * 3
	if pageSize > 50 {
		pageSize = 50
	}
	params.Set("limit", strconv.Itoa(pageSize))

	seen := make(map[string]bool)
	var valid []json.RawMessage
	offset := 0

	for attempt := 0; attempt < maxPaginationAttempts && len(valid) < desired; attempt++ {
		params.Set("offset", strconv.Itoa(offset))

		body, err := c.get(ctx, "/businesses/search", params)
		if err != nil {
			if len(valid) > 0 {
				log.Warn().Err(err).Int("collected", len(valid)).Msg("Yelp pagination attempt failed, returning partial results")
				break
			}
			return nil, err
		}

		var page searchResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to decode Yelp response: %w", err)
		}
		if len(page.Businesses) == 0 {
			break
		}

		added := 0
		for _, raw := range page.Businesses {
			var probe businessProbe
			if err := json.Unmarshal(raw, &probe); err != nil {
				continue
			}
			if probe.Name == "" || probe.Rating == nil || probe.ReviewCount <= 0 {
				continue
			}
			if seen[probe.ID] {
				continue
			}
			seen[probe.ID] = true
			valid = append(valid, raw)
			added++
		}

		if added == 0 {
			break
		}
		offset += len(page.Businesses)
	}

	// Total reports every valid business collected, including any trimmed
	// off by the truncation below
	total := len(valid)
	if len(valid) > desired {
		valid = valid[:desired]
	}
	if valid == nil {
		valid = []json.RawMessage{}
	}

	return &SearchResult{Businesses: valid, Total: total}, nil
}

// GetBusiness fetches the raw business details document
func (c *Client) GetBusiness(ctx context.Context, businessID string) (json.RawMessage, error) {
	return c.get(ctx, "/businesses/"+url.PathEscape(businessID), nil)
}

// GetBusinessReviews fetches the raw reviews document for a business
func (c *Client) GetBusinessReviews(ctx context.Context, businessID string) (json.RawMessage, error) {
	return c.get(ctx, "/businesses/"+url.PathEscape(businessID)+"/reviews", nil)
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to Yelp API failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Yelp response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

// FetchImage proxies a Yelp-hosted image so browsers are not blocked by CORS
func (c *Client) FetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("image request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", &APIError{StatusCode: resp.StatusCode, Body: "failed to fetch image"}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	return body, contentType, nil
}
