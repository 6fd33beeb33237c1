package state

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sveturs/mapsearch/internal/model"
)

func TestEncodeDefaultsToEmpty(t *testing.T) {
	assert.Equal(t, "", Encode(DefaultSnapshot()))
}

func TestEncodeRoundTrip(t *testing.T) {
	s := DefaultSnapshot()
	s.Viewport.Lat = 44.787197
	s.Viewport.Lng = 20.457273
	s.Viewport.Zoom = 13.5
	s.Query = "garsonjera"
	s.Filters.Categories = []string{"flats", "rooms"}
	s.Filters.PriceFrom = 100
	s.Filters.PriceTo = 900
	s.Filters.RadiusMeters = 2500
	s.Filters.Attributes = map[string]any{"rooms": "2"}

	got := Decode(Encode(s))

	assert.InDelta(t, s.Viewport.Lat, got.Viewport.Lat, 1e-6)
	assert.InDelta(t, s.Viewport.Lng, got.Viewport.Lng, 1e-6)
	assert.InDelta(t, s.Viewport.Zoom, got.Viewport.Zoom, 1e-2)
	assert.Equal(t, s.Query, got.Query)
	assert.Equal(t, s.Filters.Categories, got.Filters.Categories)
	assert.Equal(t, s.Filters.PriceFrom, got.Filters.PriceFrom)
	assert.Equal(t, s.Filters.PriceTo, got.Filters.PriceTo)
	assert.Equal(t, s.Filters.RadiusMeters, got.Filters.RadiusMeters)
	assert.Equal(t, map[string]any{"rooms": "2"}, got.Filters.Attributes)
}

func TestEncodeOmitsDefaultRadius(t *testing.T) {
	s := DefaultSnapshot()
	s.Query = "bike"

	q, err := url.ParseQuery(Encode(s))
	require.NoError(t, err)
	assert.False(t, q.Has("radius"))
	assert.False(t, q.Has("lat"))
	assert.False(t, q.Has("zoom"))
	assert.Equal(t, "bike", q.Get("q"))
}

func TestDecodeTolerantOfJunk(t *testing.T) {
	got := Decode("lat=abc&lng=20.5&zoom=nope&priceFrom=-5&radius=xyz&attributes={broken")

	// Latitude failed to parse, so the pair falls back together.
	assert.Equal(t, model.DefaultLat, got.Viewport.Lat)
	assert.Equal(t, model.DefaultLng, got.Viewport.Lng)
	assert.Equal(t, model.DefaultZoom, got.Viewport.Zoom)
	assert.Zero(t, got.Filters.PriceFrom)
	assert.Equal(t, model.DefaultRadiusMeters, got.Filters.RadiusMeters)
	assert.Nil(t, got.Filters.Attributes)
}

func TestDecodeClampsZoom(t *testing.T) {
	got := Decode("zoom=25")
	assert.Equal(t, model.MaxZoom, got.Viewport.Zoom)

	got = Decode("zoom=1")
	assert.Equal(t, model.MinZoom, got.Viewport.Zoom)
}

func TestDecodeRejectsOutOfRangeCoords(t *testing.T) {
	got := Decode("lat=95&lng=20.5")
	assert.Equal(t, model.DefaultLat, got.Viewport.Lat)
	assert.Equal(t, model.DefaultLng, got.Viewport.Lng)
}

func TestHydrationGuard(t *testing.T) {
	now := time.Now()
	g := NewHydrationGuard(now, time.Second)

	assert.False(t, g.WriteAllowed(now))
	assert.False(t, g.WriteAllowed(now.Add(500*time.Millisecond)))
	assert.True(t, g.WriteAllowed(now.Add(time.Second)))
	assert.True(t, g.WriteAllowed(now.Add(2*time.Second)))
}
