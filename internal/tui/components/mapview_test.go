package components

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sveturs/mapsearch/internal/model"
)

func TestMapViewRendersMarkers(t *testing.T) {
	m := NewMapView(40, 10)
	m.SetViewport(model.Viewport{Lat: 44.8176, Lng: 20.4649, Zoom: 12})
	m.SetMarkers([]model.Marker{
		{ID: 1, Position: model.Point{Lat: 44.8176, Lng: 20.4649}},
	})

	out := m.View()
	assert.Equal(t, 10, strings.Count(out, "\n")+1)
	// A marker at the center raises at least one braille dot.
	assert.True(t, strings.ContainsFunc(out, func(r rune) bool {
		return r > 0x2800 && r <= 0x28FF
	}))
}

func TestMapViewRendersClusterBadge(t *testing.T) {
	m := NewMapView(40, 10)
	m.SetViewport(model.Viewport{Lat: 44.8176, Lng: 20.4649, Zoom: 10})
	m.SetClusters([]model.ClusterPoint{{Lat: 44.8176, Lng: 20.4649, Count: 12}})

	assert.Contains(t, m.View(), "(12)")
}

func TestMapViewRendersBuyer(t *testing.T) {
	m := NewMapView(40, 10)
	m.SetViewport(model.Viewport{Lat: 44.8176, Lng: 20.4649, Zoom: 12})
	m.SetBuyer(model.BuyerLocation{
		Point: model.Point{Lat: 44.8176, Lng: 20.4649}, Set: true,
	})

	assert.Contains(t, m.View(), "◉")
}

func TestMapViewOffscreenPointsSkipped(t *testing.T) {
	m := NewMapView(40, 10)
	m.SetViewport(model.Viewport{Lat: 44.8176, Lng: 20.4649, Zoom: 15})
	m.SetMarkers([]model.Marker{
		{ID: 1, Position: model.Point{Lat: 10, Lng: 10}},
	})

	out := m.View()
	assert.False(t, strings.ContainsFunc(out, func(r rune) bool {
		return r > 0x2800 && r <= 0x28FF
	}))
}

func TestClusterBadgeCompression(t *testing.T) {
	assert.Equal(t, "(7)", clusterBadge(7))
	assert.Equal(t, "(999)", clusterBadge(999))
	assert.Equal(t, "(2k)", clusterBadge(2400))
}

func TestMapViewZeroSize(t *testing.T) {
	m := NewMapView(0, 0)
	assert.Empty(t, m.View())
}
