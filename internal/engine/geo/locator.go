package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sveturs/mapsearch/internal/model"
)

// ErrLocationDenied is returned when the position source refuses to
// share a location.
var ErrLocationDenied = fmt.Errorf("location access denied")

// Locator resolves the user's current position.
type Locator interface {
	Locate(ctx context.Context) (model.Point, error)
}

// IPLocator approximates the user position from their public IP via an
// ip-api style endpoint.
type IPLocator struct {
	baseURL string
	client  *http.Client
}

func NewIPLocator(baseURL string) *IPLocator {
	if baseURL == "" {
		baseURL = "http://ip-api.com"
	}
	return &IPLocator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type ipLocation struct {
	Status string  `json:"status"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

func (l *IPLocator) Locate(ctx context.Context) (model.Point, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/json", nil)
	if err != nil {
		return model.Point{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return model.Point{}, fmt.Errorf("locating: %w", err)
	}
	defer resp.Body.Close()

	var loc ipLocation
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		return model.Point{}, fmt.Errorf("decoding location: %w", err)
	}
	if loc.Status != "success" {
		return model.Point{}, ErrLocationDenied
	}
	return model.Point{Lat: loc.Lat, Lng: loc.Lon}, nil
}
