package geo

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/sveturs/mapsearch/internal/model"
)

// MetersPerDegree is the planar approximation of one degree of
// latitude. Longitude degrees are scaled by cos(lat).
const MetersPerDegree = 111000.0

// PointInRing reports whether p lies inside the ring using ray
// casting. The ring closes implicitly; fewer than 3 vertices never
// contain anything. Points exactly on an edge may land on either side.
func PointInRing(p model.Point, ring orb.Ring) bool {
	if len(ring) < 3 {
		return false
	}
	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > p.Lat) != (yj > p.Lat) &&
			p.Lng < (xj-xi)*(p.Lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

// PointInPolygon tests containment against the outer ring only.
// Isochrone and district polygons carry no holes worth consulting.
func PointInPolygon(p model.Point, poly orb.Polygon) bool {
	if len(poly) == 0 {
		return false
	}
	return PointInRing(p, poly[0])
}

// ApproxDistanceMeters returns the planar distance between two points.
// Longitude is scaled by the cosine of the first point's latitude, so
// the result degrades beyond country scale and near the poles.
func ApproxDistanceMeters(a, b model.Point) float64 {
	dLat := (a.Lat - b.Lat) * MetersPerDegree
	dLng := (a.Lng - b.Lng) * MetersPerDegree * math.Cos(a.Lat*math.Pi/180.0)
	return math.Sqrt(dLat*dLat + dLng*dLng)
}

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(a, b model.Point) float64 {
	const earthRadiusM = 6371000.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180.0
	dLng := (b.Lng - a.Lng) * math.Pi / 180.0
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180.0)*math.Cos(b.Lat*math.Pi/180.0)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusM * c
}

// BoundsFromCenterZoom derives the visible bounding box from the map
// center and zoom. The half-span halves with every zoom step:
// 2^(14-zoom) * 0.01 degrees on both axes.
func BoundsFromCenterZoom(center model.Point, zoom float64) model.Bounds {
	halfSpan := math.Pow(2, 14-zoom) * 0.01
	return model.Bounds{
		North: center.Lat + halfSpan,
		South: center.Lat - halfSpan,
		East:  center.Lng + halfSpan,
		West:  center.Lng - halfSpan,
	}
}

// PolygonBounds returns the bounding box of the polygon's outer ring.
func PolygonBounds(poly orb.Polygon) model.Bounds {
	b := model.Bounds{North: -90, South: 90, East: -180, West: 180}
	if len(poly) == 0 {
		return model.Bounds{}
	}
	for _, pt := range poly[0] {
		b.North = math.Max(b.North, pt[1])
		b.South = math.Min(b.South, pt[1])
		b.East = math.Max(b.East, pt[0])
		b.West = math.Min(b.West, pt[0])
	}
	return b
}

// Center returns the midpoint of a bounding box.
func Center(b model.Bounds) model.Point {
	return model.Point{Lat: (b.North + b.South) / 2, Lng: (b.East + b.West) / 2}
}

// DistrictFitZoom picks a zoom level that frames a district bounding
// box, by the larger of its two spans.
func DistrictFitZoom(b model.Bounds) float64 {
	span := math.Max(b.North-b.South, b.East-b.West)
	switch {
	case span < 0.05:
		return 14
	case span < 0.1:
		return 13
	case span < 0.2:
		return 12
	case span < 0.4:
		return 11
	default:
		return 10
	}
}

// MarkerFitZoom picks a zoom level that frames a set of marker
// positions, and the center to place it at. With no points it falls
// back to the default viewport.
func MarkerFitZoom(points []model.Point) (model.Point, float64) {
	if len(points) == 0 {
		return model.Point{Lat: model.DefaultLat, Lng: model.DefaultLng}, model.DefaultZoom
	}
	b := model.Bounds{North: -90, South: 90, East: -180, West: 180}
	for _, p := range points {
		b.North = math.Max(b.North, p.Lat)
		b.South = math.Min(b.South, p.Lat)
		b.East = math.Max(b.East, p.Lng)
		b.West = math.Min(b.West, p.Lng)
	}
	span := math.Max(b.North-b.South, b.East-b.West)
	var zoom float64
	switch {
	case span < 0.01:
		zoom = 15
	case span < 0.05:
		zoom = 13
	case span < 0.1:
		zoom = 12
	case span < 0.5:
		zoom = 10
	default:
		zoom = 8
	}
	return Center(b), zoom
}

// WalkingRadiusMeters approximates the reachable radius for a walking
// time budget at ~80 m per minute. Used until an isochrone arrives.
func WalkingRadiusMeters(minutes int) float64 {
	return float64(minutes) * 80.0
}
