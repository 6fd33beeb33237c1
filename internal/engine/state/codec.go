package state

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sveturs/mapsearch/internal/model"
)

// Codec reads and writes the shareable URL query string. It owns the
// keys below and leaves everything else in the query untouched.
// Values equal to their defaults are omitted, so a default state
// serializes to an empty query.
//
// Owned keys: lat, lng, zoom, q, categories, priceFrom, priceTo,
// radius, attributes.

// Snapshot is the portion of the search state that round-trips
// through the URL.
type Snapshot struct {
	Viewport model.Viewport
	Filters  model.Filters
	Query    string
}

// DefaultSnapshot returns the state encoded by an empty query.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Viewport: model.DefaultViewport(),
		Filters:  model.DefaultFilters(),
	}
}

// Encode serializes the snapshot into a query string. Coordinates are
// written at 6 decimal places and zoom at 2, matching what Decode
// parses back.
func Encode(s Snapshot) string {
	q := url.Values{}

	lat := fmt.Sprintf("%.6f", s.Viewport.Lat)
	lng := fmt.Sprintf("%.6f", s.Viewport.Lng)
	zoom := fmt.Sprintf("%.2f", s.Viewport.Zoom)
	if lat != fmt.Sprintf("%.6f", model.DefaultLat) || lng != fmt.Sprintf("%.6f", model.DefaultLng) {
		q.Set("lat", lat)
		q.Set("lng", lng)
	}
	if zoom != fmt.Sprintf("%.2f", model.DefaultZoom) {
		q.Set("zoom", zoom)
	}
	if s.Query != "" {
		q.Set("q", s.Query)
	}
	if len(s.Filters.Categories) > 0 {
		q.Set("categories", strings.Join(s.Filters.Categories, ","))
	}
	if s.Filters.PriceFrom > 0 {
		q.Set("priceFrom", strconv.FormatFloat(s.Filters.PriceFrom, 'f', -1, 64))
	}
	if s.Filters.PriceTo > 0 {
		q.Set("priceTo", strconv.FormatFloat(s.Filters.PriceTo, 'f', -1, 64))
	}
	if s.Filters.RadiusMeters != model.DefaultRadiusMeters {
		q.Set("radius", strconv.FormatFloat(s.Filters.RadiusMeters, 'f', -1, 64))
	}
	if len(s.Filters.Attributes) > 0 {
		if attrs, err := json.Marshal(s.Filters.Attributes); err == nil {
			q.Set("attributes", string(attrs))
		}
	}

	return q.Encode()
}

// Decode parses a query string back into a snapshot. Unparseable
// values fall back to their defaults rather than failing, so a
// hand-edited or truncated URL still loads.
func Decode(raw string) Snapshot {
	s := DefaultSnapshot()

	q, err := url.ParseQuery(raw)
	if err != nil {
		return s
	}

	if lat, err := strconv.ParseFloat(q.Get("lat"), 64); err == nil && lat >= -90 && lat <= 90 {
		if lng, err := strconv.ParseFloat(q.Get("lng"), 64); err == nil && lng >= -180 && lng <= 180 {
			s.Viewport.Lat = lat
			s.Viewport.Lng = lng
		}
	}
	if zoom, err := strconv.ParseFloat(q.Get("zoom"), 64); err == nil {
		s.Viewport.Zoom = zoom
		s.Viewport = s.Viewport.ClampZoom()
	}
	s.Query = q.Get("q")
	if cats := q.Get("categories"); cats != "" {
		for _, c := range strings.Split(cats, ",") {
			if c = strings.TrimSpace(c); c != "" {
				s.Filters.Categories = append(s.Filters.Categories, c)
			}
		}
	}
	if v, err := strconv.ParseFloat(q.Get("priceFrom"), 64); err == nil && v > 0 {
		s.Filters.PriceFrom = v
	}
	if v, err := strconv.ParseFloat(q.Get("priceTo"), 64); err == nil && v > 0 {
		s.Filters.PriceTo = v
	}
	if v, err := strconv.ParseFloat(q.Get("radius"), 64); err == nil && v > 0 {
		s.Filters.RadiusMeters = v
	}
	if attrs := q.Get("attributes"); attrs != "" {
		var m map[string]any
		if err := json.Unmarshal([]byte(attrs), &m); err == nil {
			s.Filters.Attributes = m
		}
	}

	return s
}

// HydrationGuard suppresses URL writes for a grace period after load,
// so the burst of input events fired while restoring state never
// clobbers the URL the user arrived with.
type HydrationGuard struct {
	until time.Time
}

func NewHydrationGuard(now time.Time, grace time.Duration) *HydrationGuard {
	if grace <= 0 {
		grace = time.Second
	}
	return &HydrationGuard{until: now.Add(grace)}
}

// WriteAllowed reports whether the grace period has passed.
func (g *HydrationGuard) WriteAllowed(now time.Time) bool {
	return !now.Before(g.until)
}
