package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pachaqtec/transit-planner/models"
)

// ErrGeocoderRateLimited marks 418/429 responses from the geocoder so
// callers can tell throttling from real failures.
var ErrGeocoderRateLimited = fmt.Errorf("geocoder rate limited")

// PlaceResult is one candidate returned by the text-search endpoint.
type PlaceResult struct {
	PlaceID     int64  `json:"place_id"`
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// PlaceSearcher is the geocoding collaborator contract. It exists so the
// suggestion service can be tested without the network.
type PlaceSearcher interface {
	SearchPlaces(ctx context.Context, query string) ([]PlaceResult, error)
}

// GeocoderClient talks to a Nominatim-compatible search endpoint, bounded
// to the city's viewbox.
type GeocoderClient struct {
	baseURL    string
	viewBox    models.BoundingBox
	httpClient *http.Client
}

func NewGeocoderClient(baseURL string, viewBox models.BoundingBox, timeout time.Duration) *GeocoderClient {
	return &GeocoderClient{
		baseURL: baseURL,
		viewBox: viewBox,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (gc *GeocoderClient) SearchPlaces(ctx context.Context, query string) ([]PlaceResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("bounded", "1")
	params.Set("viewbox", fmt.Sprintf("%f,%f,%f,%f", gc.viewBox.MinLng, gc.viewBox.MaxLat, gc.viewBox.MaxLng, gc.viewBox.MinLat))
	params.Set("limit", "10")

	reqURL := fmt.Sprintf("%s/search?%s", gc.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "transit-planner/1.0")

	resp, err := gc.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusTeapot {
		return nil, ErrGeocoderRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder request failed with status: %s", resp.Status)
	}

	var results []PlaceResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, err
	}
	return results, nil
}

// Suggestion converts a place result into a suggestion, dropping candidates
// with unparseable coordinates.
func (p PlaceResult) Suggestion() (models.Suggestion, bool) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return models.Suggestion{}, false
	}
	lng, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return models.Suggestion{}, false
	}
	return models.Suggestion{
		ID:   fmt.Sprintf("place-%d", p.PlaceID),
		Name: p.DisplayName,
		Kind: models.SuggestionPlace,
		Lat:  lat,
		Lng:  lng,
	}, true
}
