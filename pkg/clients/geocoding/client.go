package geocoding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/agrimarket/internal/domain/models"
)

// ErrNoResult is returned when the service knows nothing about the query.
var ErrNoResult = errors.New("geocoder returned no result")

// Config holds the connection options of a Nominatim-compatible search API.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Client resolves locations against a remote geocoding service.
type Client struct {
	httpClient *resty.Client
}

// NewClient builds a resty-backed geocoding client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	restyClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)
	if cfg.UserAgent != "" {
		restyClient.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &Client{httpClient: restyClient}
}

// searchResult mirrors one element of the /search response.
// Nominatim encodes coordinates as strings.
type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Resolve implements geocoding.LocationResolver.
func (c *Client) Resolve(ctx context.Context, location string) (models.Coordinates, error) {
	query := strings.TrimSpace(location)
	if query == "" {
		return models.Coordinates{}, ErrNoResult
	}

	var results []searchResult
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":      query,
			"format": "json",
			"limit":  "1",
		}).
		SetResult(&results).
		Get("/search")
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("geocode %q: %w", query, err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return models.Coordinates{}, fmt.Errorf("geocoder api error: code=%d, body=%s", resp.StatusCode(), resp.String())
	}

	if len(results) == 0 {
		return models.Coordinates{}, ErrNoResult
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("parse latitude %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("parse longitude %q: %w", results[0].Lon, err)
	}

	return models.Coordinates{Latitude: lat, Longitude: lon}, nil
}
