package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sveturs/mapsearch/internal/model"
)

// PageLimit caps the listings returned per request.
const PageLimit = 100

// Client talks to the listings backend. All three search operations
// share one HTTP client with a single request timeout and no retries;
// the next settled input re-issues the search naturally.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// wireListing mirrors the backend listing payload.
type wireListing struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
	Address    string    `json:"address"`
	Images     []string  `json:"images"`
	CreatedAt  time.Time `json:"created_at"`
	ViewsCount int       `json:"views_count"`
	Rating     float64   `json:"rating"`
}

type clusterResponse struct {
	Clusters []model.ClusterPoint `json:"clusters"`
	Listings []wireListing        `json:"listings"`
}

type radiusResponse struct {
	Listings   []wireListing `json:"listings"`
	TotalCount int           `json:"total_count"`
}

type keywordResponse struct {
	Items []wireListing `json:"items"`
	Total int           `json:"total"`
}

// Clusters fetches aggregated cluster buckets for the visible bounds.
func (c *Client) Clusters(ctx context.Context, bounds model.Bounds, zoom float64, f model.Filters) ([]model.ClusterPoint, []model.Listing, error) {
	q := url.Values{
		"zoom": {strconv.Itoa(int(math.Floor(zoom)))},
		"bounds": {fmt.Sprintf("%v,%v,%v,%v",
			bounds.South, bounds.West, bounds.North, bounds.East)},
	}
	addFilterParams(q, f)

	var out clusterResponse
	if err := c.get(ctx, "/api/v1/gis/clusters", q, nil, &out); err != nil {
		return nil, nil, err
	}
	return out.Clusters, toListings(out.Listings), nil
}

// Radius fetches listings around the buyer location. combined marks
// the request as a radius+district search for backend accounting.
func (c *Client) Radius(ctx context.Context, loc model.Point, radiusMeters float64, f model.Filters, combined bool) ([]model.Listing, int, error) {
	q := url.Values{
		"latitude":  {strconv.FormatFloat(loc.Lat, 'f', -1, 64)},
		"longitude": {strconv.FormatFloat(loc.Lng, 'f', -1, 64)},
		"radius":    {strconv.FormatFloat(radiusMeters, 'f', -1, 64)},
		"limit":     {strconv.Itoa(PageLimit)},
	}
	addFilterParams(q, f)
	if len(f.Attributes) > 0 {
		attrs, err := json.Marshal(f.Attributes)
		if err != nil {
			return nil, 0, fmt.Errorf("encoding attributes: %w", err)
		}
		q.Set("attributes", string(attrs))
	}

	var hdr http.Header
	if combined {
		hdr = http.Header{"X-Combined-Search": {"true"}}
	}

	var out radiusResponse
	if err := c.get(ctx, "/api/v1/gis/search/radius", q, hdr, &out); err != nil {
		return nil, 0, err
	}
	return toListings(out.Listings), out.TotalCount, nil
}

// Keyword runs a plain text search with no geographic constraint.
func (c *Client) Keyword(ctx context.Context, query string, f model.Filters) ([]model.Listing, int, error) {
	q := url.Values{
		"limit":      {strconv.Itoa(PageLimit)},
		"page":       {"1"},
		"sort_by":    {"date"},
		"sort_order": {"desc"},
	}
	if query != "" {
		q.Set("q", query)
	}
	addFilterParams(q, f)

	var out keywordResponse
	if err := c.get(ctx, "/api/v1/search", q, nil, &out); err != nil {
		return nil, 0, err
	}
	return toListings(out.Items), out.Total, nil
}

func addFilterParams(q url.Values, f model.Filters) {
	if len(f.Categories) > 0 {
		q.Set("categories", strings.Join(f.Categories, ","))
	}
	if f.PriceFrom > 0 {
		q.Set("min_price", strconv.FormatFloat(f.PriceFrom, 'f', -1, 64))
	}
	if f.PriceTo > 0 {
		q.Set("max_price", strconv.FormatFloat(f.PriceTo, 'f', -1, 64))
	}
}

func (c *Client) get(ctx context.Context, path string, q url.Values, hdr http.Header, out any) error {
	u := c.baseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func toListings(ws []wireListing) []model.Listing {
	ls := make([]model.Listing, 0, len(ws))
	for _, w := range ws {
		ls = append(ls, model.Listing{
			ID:         w.ID,
			Title:      w.Title,
			Price:      w.Price,
			Category:   w.Category,
			Location:   model.Point{Lat: w.Location.Lat, Lng: w.Location.Lng},
			Address:    w.Address,
			Images:     w.Images,
			CreatedAt:  w.CreatedAt,
			ViewsCount: w.ViewsCount,
			Rating:     w.Rating,
		})
	}
	return ls
}
