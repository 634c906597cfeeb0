package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
)

// MaxPlaceSuggestions caps the number of search candidates returned
const MaxPlaceSuggestions = 5

// Place is a named location candidate
type Place struct {
	ID      string  `json:"place_id"`
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// PlacesProvider is the optional place search and geocoding capability
type PlacesProvider interface {
	Search(ctx context.Context, query string) ([]Place, error)
	Geocode(ctx context.Context, address string) (*Place, error)
}

// DisabledPlaces is used when no places provider is configured
type DisabledPlaces struct{}

// Search always fails with ErrPlacesUnavailable
func (DisabledPlaces) Search(context.Context, string) ([]Place, error) {
	return nil, ErrPlacesUnavailable
}

// Geocode always fails with ErrPlacesUnavailable
func (DisabledPlaces) Geocode(context.Context, string) (*Place, error) {
	return nil, ErrPlacesUnavailable
}

// PlacesClient talks to a Nominatim-compatible search API
type PlacesClient struct {
	baseURL   string
	userAgent string
	countries string
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[[]Place]
}

// NewPlacesClient creates a client for baseURL restricted to the supported countries
func NewPlacesClient(baseURL, userAgent string, timeout time.Duration, countries []string) *PlacesClient {
	codes := make([]string, len(countries))
	for i, c := range countries {
		codes[i] = strings.ToLower(c)
	}
	return &PlacesClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		countries: strings.Join(codes, ","),
		client:    &http.Client{Timeout: timeout},
		breaker:   newBreaker[[]Place]("places"),
	}
}

type nominatimResult struct {
	PlaceID     json.Number `json:"place_id"`
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name"`
	Lat         string      `json:"lat"`
	Lon         string      `json:"lon"`
}

// Search returns up to MaxPlaceSuggestions candidates for query
func (c *PlacesClient) Search(ctx context.Context, query string) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: q is required", ErrValidation)
	}
	return c.search(ctx, query, MaxPlaceSuggestions)
}

// Geocode resolves an address to its best match
func (c *PlacesClient) Geocode(ctx context.Context, address string) (*Place, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("%w: address is required", ErrValidation)
	}
	places, err := c.search(ctx, address, 1)
	if err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, ErrNotFound
	}
	return &places[0], nil
}

func (c *PlacesClient) search(ctx context.Context, query string, limit int) ([]Place, error) {
	places, err := c.breaker.Execute(func() ([]Place, error) {
		return c.fetch(ctx, query, limit)
	})
	if err != nil {
		// open breaker and upstream failures both surface as unavailable
		return nil, fmt.Errorf("%w: %w", ErrPlacesUnavailable, err)
	}
	return places, nil
}

func (c *PlacesClient) fetch(ctx context.Context, query string, limit int) ([]Place, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", strconv.Itoa(limit))
	if c.countries != "" {
		params.Set("countrycodes", c.countries)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call places provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, statusError("places provider", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode places response: %w", err)
	}

	places := make([]Place, 0, len(results))
	for _, r := range results {
		lat, err := strconv.ParseFloat(r.Lat, 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(r.Lon, 64)
		if err != nil {
			continue
		}
		name := r.Name
		if name == "" {
			name, _, _ = strings.Cut(r.DisplayName, ",")
		}
		places = append(places, Place{
			ID:      r.PlaceID.String(),
			Name:    name,
			Address: r.DisplayName,
			Lat:     lat,
			Lon:     lon,
		})
		if len(places) == limit {
			break
		}
	}
	return places, nil
}
