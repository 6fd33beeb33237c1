package search

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/sveturs/mapsearch/internal/engine/geo"
	"github.com/sveturs/mapsearch/internal/model"
)

// validCoord rejects NaN and out-of-range coordinates the backend
// occasionally serves for unlocated listings.
func validCoord(p model.Point) bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// DropInvalidListings removes listings whose coordinates cannot be
// placed on the map.
func DropInvalidListings(ls []model.Listing) []model.Listing {
	out := ls[:0]
	for _, l := range ls {
		if validCoord(l.Location) {
			out = append(out, l)
		}
	}
	return out
}

// FilterClustersByRadius keeps clusters whose center lies within the
// buyer radius, measured with the planar approximation anchored at the
// cluster's latitude.
func FilterClustersByRadius(cs []model.ClusterPoint, buyer model.Point, radiusMeters float64) []model.ClusterPoint {
	out := cs[:0]
	for _, c := range cs {
		d := geo.ApproxDistanceMeters(model.Point{Lat: c.Lat, Lng: c.Lng}, buyer)
		if d <= radiusMeters {
			out = append(out, c)
		}
	}
	return out
}

// FilterListingsByPolygon keeps listings inside the polygon's outer
// ring. A nil polygon keeps everything.
func FilterListingsByPolygon(ls []model.Listing, poly orb.Polygon) []model.Listing {
	if poly == nil {
		return ls
	}
	out := ls[:0]
	for _, l := range ls {
		if geo.PointInPolygon(l.Location, poly) {
			out = append(out, l)
		}
	}
	return out
}
