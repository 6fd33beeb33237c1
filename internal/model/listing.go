package model

import "time"

// Listing is a normalized search hit as served by the backend.
type Listing struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Price      float64   `json:"price"`
	Category   string    `json:"category"`
	Location   Point     `json:"location"`
	Address    string    `json:"address"`
	Images     []string  `json:"images"`
	CreatedAt  time.Time `json:"created_at"`
	ViewsCount int       `json:"views_count"`
	Rating     float64   `json:"rating"`
}

// ClusterPoint is an aggregated low-zoom bucket of listings.
type ClusterPoint struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Count int     `json:"count"`
}

// Marker is a render-ready map pin derived from a Listing.
type Marker struct {
	ID         int64
	Position   Point
	Title      string
	Price      float64
	Currency   string
	Category   string
	Icon       string
	Image      string
	Address    string
	ViewsCount int
	Rating     float64
	CreatedAt  time.Time
}

// Notice is a user-facing status raised by the search pipeline.
type Notice string

const (
	NoticeNone            Notice = ""
	NoticeSearchFailed    Notice = "search failed, please try again"
	NoticeAddressNotFound Notice = "address not found"
	NoticeLocationDenied  Notice = "location access denied"
)

// Result is an immutable snapshot of one completed search round.
// Subscribers always receive a whole replacement.
type Result struct {
	Mode     SearchMode
	Markers  []Marker
	Clusters []ClusterPoint
	Total    int
	Notice   Notice
}
