package yelp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func business(id, name string, rating float64, reviewCount int) map[string]interface{} {
	return map[string]interface{}{
		"id":           id,
		"name":         name,
		"rating":       rating,
		"review_count": reviewCount,
	}
}

func searchPage(businesses ...map[string]interface{}) []byte {
	page := map[string]interface{}{"businesses": businesses}
	body, _ := json.Marshal(page)
	return body
}

func TestConvertPriceTier(t *testing.T) {
	tests := []struct {
		price string
		want  string
	}{
		{"$", "1"},
		{"$$", "2"},
		{"$$$", "3"},
		{"$$$$", "4"},
		{"", ""},
		{"cheap", ""},
	}
	for _, tt := range tests {
		if got := convertPriceTier(tt.price); got != tt.want {
			t.Errorf("convertPriceTier(%q) = %q, want %q", tt.price, got, tt.want)
		}
	}
}

func TestSearchRequestParameters(t *testing.T) {
	var received url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received = r.URL.Query()
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer test-key", got)
		}
		w.Write(searchPage(business("b1", "Sushi Place", 4.5, 120)))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("test-key", server.URL)
	_, err := client.Search(context.Background(), SearchOptions{
		Term:     "sushi",
		Location: "NYC",
		Price:    "$$",
		SortBy:   "rating",
		K:        3,
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if received.Get("term") != "sushi" || received.Get("location") != "NYC" {
		t.Errorf("query = %v, missing term/location", received)
	}
	if received.Get("price") != "2" {
		t.Errorf("price = %q, want numeric tier 2", received.Get("price"))
	}
	if received.Get("sort_by") != "rating" {
		t.Errorf("sort_by = %q, want rating", received.Get("sort_by"))
	}
	// 3 desired results over-requested threefold
	if received.Get("limit") != "9" {
		t.Errorf("limit = %q, want 9", received.Get("limit"))
	}
}

func TestSearchPageSizeCapped(t *testing.T) {
	var received url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received = r.URL.Query()
		w.Write(searchPage())
	}))
	defer server.Close()

	client := NewClientWithBaseURL("test-key", server.URL)
	if _, err := client.Search(context.Background(), SearchOptions{Location: "NYC", K: 30}); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if received.Get("limit") != "50" {
		t.Errorf("limit = %q, want capped at 50", received.Get("limit"))
	}
}

func TestSearchFiltersAndTruncates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(searchPage(
			business("b1", "Good One", 4.5, 12),
			map[string]interface{}{"id": "b2", "name": "No Rating", "review_count": 5},
			business("b3", "No Reviews", 4.0, 0),
			map[string]interface{}{"id": "b4", "rating": 4.0, "review_count": 5},
			business("b1", "Good One", 4.5, 12), // duplicate
			business("b5", "Good Two", 3.5, 40),
			business("b6", "Good Three", 5.0, 7),
		))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("test-key", server.URL)
	result, err := client.Search(context.Background(), SearchOptions{Location: "NYC", K: 2})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(result.Businesses) != 2 {
		t.Fatalf("got %d businesses, want 2", len(result.Businesses))
	}
	// Three businesses passed the filter; Total counts them all even though
	// the list is truncated to the requested two
	if result.Total != 3 {
		t.Errorf("Total = %d, want 3 valid businesses before truncation", result.Total)
	}
	var first businessProbe
	if err := json.Unmarshal(result.Businesses[0], &first); err != nil {
		t.Fatalf("failed to decode first business: %v", err)
	}
	if first.ID != "b1" {
		t.Errorf("first business = %q, want b1 (upstream order preserved)", first.ID)
	}
}

func TestSearchPaginatesUntilEnough(t *testing.T) {
	var offsets []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset := r.URL.Query().Get("offset")
		offsets = append(offsets, offset)
		switch offset {
		case "0":
			// one valid out of two returned
			w.Write(searchPage(
				business("b1", "Keeper", 4.0, 10),
				business("b2", "Empty", 4.0, 0),
			))
		case "2":
			w.Write(searchPage(
				business("b3", "Keeper Two", 4.5, 20),
				business("b4", "Keeper Three", 3.5, 30),
			))
		default:
			w.Write(searchPage())
		}
	}))
	defer server.Close()

	client := NewClientWithBaseURL("test-key", server.URL)
	result, err := client.Search(context.Background(), SearchOptions{Location: "NYC", K: 3})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(result.Businesses) != 3 {
		t.Errorf("got %d businesses, want 3 after pagination", len(result.Businesses))
	}
	// Offset advances by the full page size, valid or not
	if len(offsets) != 2 || offsets[0] != "0" || offsets[1] != "2" {
		t.Errorf("offsets = %v, want [0 2]", offsets)
	}
}

func TestSearchStopsAfterMaxAttempts(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		// Every page yields a single valid result, never enough for K
		w.Write(searchPage(business(fmt.Sprintf("b%d", requests), "Lone Result", 4.0, 5)))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("test-key", server.URL)
	result, err := client.Search(context.Background(), SearchOptions{Location: "NYC", K: 10})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if requests != maxPaginationAttempts {
		t.Errorf("upstream requests = %d, want %d", requests, maxPaginationAttempts)
	}
	if len(result.Businesses) != maxPaginationAttempts {
		t.Errorf("got %d businesses, want the partial set of %d", len(result.Businesses), maxPaginationAttempts)
	}
}

func TestSearchPartialResultsOnMidPaginationError(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.Write(searchPage(business("b1", "First Page", 4.0, 10)))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "upstream broke"}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("test-key", server.URL)
	result, err := client.Search(context.Background(), SearchOptions{Location: "NYC", K: 5})
	if err != nil {
		t.Fatalf("Search should keep first-page results, got error: %v", err)
	}
	if len(result.Businesses) != 1 {
		t.Errorf("got %d businesses, want the 1 collected before the failure", len(result.Businesses))
	}
}

func TestSearchUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": "rate limited"}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("test-key", server.URL)
	_, err := client.Search(context.Background(), SearchOptions{Location: "NYC"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", apiErr.StatusCode)
	}
}

func TestGetBusinessPassthrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/businesses/some-id" {
			t.Errorf("path = %q, want /businesses/some-id", r.URL.Path)
		}
		w.Write([]byte(`{"id": "some-id", "name": "A Restaurant"}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("test-key", server.URL)
	body, err := client.GetBusiness(context.Background(), "some-id")
	if err != nil {
		t.Fatalf("GetBusiness failed: %v", err)
	}
	if string(body) != `{"id": "some-id", "name": "A Restaurant"}` {
		t.Errorf("body altered in passthrough: %s", body)
	}
}

func TestGetBusinessReviewsPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/businesses/some-id/reviews" {
			t.Errorf("path = %q, want /businesses/some-id/reviews", r.URL.Path)
		}
		w.Write([]byte(`{"reviews": []}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("test-key", server.URL)
	if _, err := client.GetBusinessReviews(context.Background(), "some-id"); err != nil {
		t.Fatalf("GetBusinessReviews failed: %v", err)
	}
}

func TestFetchImageDefaultsContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil // suppress Go's auto-detection
		w.Write([]byte{0xff, 0xd8, 0xff})
	}))
	defer server.Close()

	client := NewClient("test-key")
	body, contentType, err := client.FetchImage(context.Background(), server.URL+"/photo.jpg")
	if err != nil {
		t.Fatalf("FetchImage failed: %v", err)
	}
	if len(body) != 3 {
		t.Errorf("body length = %d, want 3", len(body))
	}
	if contentType != "image/jpeg" {
		t.Errorf("contentType = %q, want default image/jpeg", contentType)
	}
}
