package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/sveturs/mapsearch/internal/model"
)

// IsochroneProvider computes the area reachable on foot within a time
// budget around a point.
type IsochroneProvider interface {
	Isochrone(ctx context.Context, loc model.Point, minutes int) (orb.Polygon, error)
}

// MapboxIsochrone fetches walking isochrones from the Mapbox
// Isochrone API.
type MapboxIsochrone struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewMapboxIsochrone(baseURL, token string) *MapboxIsochrone {
	if baseURL == "" {
		baseURL = "https://api.mapbox.com"
	}
	return &MapboxIsochrone{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Isochrone returns the walking polygon for the given time budget.
func (m *MapboxIsochrone) Isochrone(ctx context.Context, loc model.Point, minutes int) (orb.Polygon, error) {
	u := fmt.Sprintf("%s/isochrone/v1/mapbox/walking/%f,%f?%s",
		m.baseURL, loc.Lng, loc.Lat,
		url.Values{
			"contours_minutes": {fmt.Sprintf("%d", minutes)},
			"polygons":         {"true"},
			"access_token":     {m.token},
		}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("isochrone request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("isochrone returned status %d", resp.StatusCode)
	}

	var fc geojson.FeatureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decoding isochrone response: %w", err)
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("isochrone returned no contours")
	}

	switch g := fc.Features[0].Geometry.(type) {
	case orb.Polygon:
		return g, nil
	case orb.MultiPolygon:
		if len(g) > 0 {
			return g[0], nil
		}
	}
	return nil, fmt.Errorf("isochrone returned unexpected geometry")
}
