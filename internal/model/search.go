package model

// Default map position (Belgrade) and zoom used before any URL state
// or geolocation arrives.
const (
	DefaultLat  = 44.8176
	DefaultLng  = 20.4649
	DefaultZoom = 11.0

	MinZoom = 3.0
	MaxZoom = 19.0
)

// DefaultRadiusMeters is the buyer search radius applied when the user
// has not chosen one.
const DefaultRadiusMeters = 5000.0

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Bounds is a geographic bounding box. West may be greater than East
// when the box crosses the antimeridian.
type Bounds struct {
	North float64
	South float64
	East  float64
	West  float64
}

// Contains reports whether p falls inside the box.
func (b Bounds) Contains(p Point) bool {
	if p.Lat < b.South || p.Lat > b.North {
		return false
	}
	if b.West <= b.East {
		return p.Lng >= b.West && p.Lng <= b.East
	}
	// Box crosses the antimeridian.
	return p.Lng >= b.West || p.Lng <= b.East
}

// Viewport is the visible map window.
type Viewport struct {
	Lat     float64
	Lng     float64
	Zoom    float64
	Pitch   float64
	Bearing float64
}

// DefaultViewport returns the initial map window.
func DefaultViewport() Viewport {
	return Viewport{Lat: DefaultLat, Lng: DefaultLng, Zoom: DefaultZoom}
}

// ClampZoom pins the zoom to the tile layer limits.
func (v Viewport) ClampZoom() Viewport {
	if v.Zoom < MinZoom {
		v.Zoom = MinZoom
	}
	if v.Zoom > MaxZoom {
		v.Zoom = MaxZoom
	}
	return v
}

// BuyerLocation is the reference point for proximity search. Set is
// false until the user picks a point, geolocates, or searches an
// address.
type BuyerLocation struct {
	Point
	Set bool
}

// Filters holds the user-selected search constraints.
type Filters struct {
	Categories   []string
	PriceFrom    float64
	PriceTo      float64
	RadiusMeters float64
	Attributes   map[string]any
}

// DefaultFilters returns the unconstrained filter set.
func DefaultFilters() Filters {
	return Filters{RadiusMeters: DefaultRadiusMeters}
}

// IsZero reports whether no constraint deviates from the defaults.
func (f Filters) IsZero() bool {
	return len(f.Categories) == 0 && f.PriceFrom == 0 && f.PriceTo == 0 &&
		f.RadiusMeters == DefaultRadiusMeters && len(f.Attributes) == 0
}

// SearchMode identifies which backend operation serves the current
// inputs.
type SearchMode int

const (
	ModeKeyword SearchMode = iota
	ModeCluster
	ModeRadius
	ModeCombinedRadiusDistrict
)

func (m SearchMode) String() string {
	switch m {
	case ModeKeyword:
		return "keyword"
	case ModeCluster:
		return "cluster"
	case ModeRadius:
		return "radius"
	case ModeCombinedRadiusDistrict:
		return "combined"
	default:
		return "unknown"
	}
}

// WalkMode selects how the buyer radius is interpreted.
type WalkMode int

const (
	WalkOff WalkMode = iota
	WalkIsochrone
)
