package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"tablechat/internal/yelp"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// YelpHandler proxies restaurant search requests to the Yelp Fusion API
type YelpHandler struct {
	client *yelp.Client
}

// NewYelpHandler creates a new Yelp proxy handler
func NewYelpHandler(client *yelp.Client) *YelpHandler {
	return &YelpHandler{client: client}
}

func mapYelpError(err error) error {
	var apiErr *yelp.APIError
	if errors.As(err, &apiErr) {
		return echo.NewHTTPError(apiErr.StatusCode, "Yelp API error: "+apiErr.Body)
	}
	if os.IsTimeout(err) {
		return echo.NewHTTPError(http.StatusGatewayTimeout, "Request to Yelp API timed out")
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return echo.NewHTTPError(http.StatusGatewayTimeout, "Request to Yelp API timed out")
		}
		return echo.NewHTTPError(http.StatusBadGateway, "Error making request to Yelp API: "+err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch businesses: "+err.Error())
}

// SearchBusinesses searches restaurants with filtering and over-fetching
func (h *YelpHandler) SearchBusinesses(c echo.Context) error {
	location := c.QueryParam("location")
	if location == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Location must be provided"})
	}

	opts := yelp.SearchOptions{
		Term:     c.QueryParam("term"),
		Location: location,
		Price:    c.QueryParam("price"),
		SortBy:   c.QueryParam("sort_by"),
	}
	if limit := c.QueryParam("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			opts.Limit = n
		}
	}
	if k := c.QueryParam("k"); k != "" {
		if n, err := strconv.Atoi(k); err == nil {
			opts.K = n
		}
	}

	result, err := h.client.Search(c.Request().Context(), opts)
	if err != nil {
		log.Error().Err(err).Str("location", location).Msg("Yelp search failed")
		return mapYelpError(err)
	}

	return c.JSON(http.StatusOK, result)
}

// GetBusiness passes through business details
func (h *YelpHandler) GetBusiness(c echo.Context) error {
	raw, err := h.client.GetBusiness(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapYelpError(err)
	}
	return c.JSONBlob(http.StatusOK, raw)
}

// GetBusinessReviews passes through business reviews
func (h *YelpHandler) GetBusinessReviews(c echo.Context) error {
	raw, err := h.client.GetBusinessReviews(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapYelpError(err)
	}
	return c.JSONBlob(http.StatusOK, raw)
}

// ProxyImage serves Yelp-hosted images from our origin so the browser's CORS
// policy does not block them
func (h *YelpHandler) ProxyImage(c echo.Context) error {
	imageURL, err := url.QueryUnescape(c.Param("*"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid image URL"})
	}

	data, contentType, err := h.client.FetchImage(c.Request().Context(), imageURL)
	if err != nil {
		return mapYelpError(err)
	}

	c.Response().Header().Set("Cache-Control", "public, max-age=31536000")
	return c.Blob(http.StatusOK, contentType, data)
}
