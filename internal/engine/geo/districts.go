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
)

// DistrictProvider resolves a district name to its boundary polygon.
type DistrictProvider interface {
	Boundary(ctx context.Context, name string) (orb.Polygon, error)
}

// NominatimDistricts fetches administrative boundaries from Nominatim
// with polygon_geojson output.
type NominatimDistricts struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewNominatimDistricts(baseURL, userAgent string) *NominatimDistricts {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	return &NominatimDistricts{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type nominatimBoundary struct {
	GeoJSON json.RawMessage `json:"geojson"`
}

// Boundary returns the outer boundary polygon for a named district.
func (d *NominatimDistricts) Boundary(ctx context.Context, name string) (orb.Polygon, error) {
	u := d.baseURL + "/search?" + url.Values{
		"q":               {name},
		"format":          {"json"},
		"limit":           {"1"},
		"polygon_geojson": {"1"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("boundary request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("boundary lookup returned status %d", resp.StatusCode)
	}

	var results []nominatimBoundary
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decoding boundary response: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("district %q not found", name)
	}

	geom, err := geojson.UnmarshalGeometry(results[0].GeoJSON)
	if err != nil {
		return nil, fmt.Errorf("parsing boundary geometry: %w", err)
	}

	switch g := geom.Geometry().(type) {
	case orb.Polygon:
		return g, nil
	case orb.MultiPolygon:
		if len(g) > 0 {
			return g[0], nil
		}
	}
	return nil, fmt.Errorf("district %q has no polygon boundary", name)
}
