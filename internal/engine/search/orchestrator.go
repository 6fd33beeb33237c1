package search

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/sveturs/mapsearch/internal/engine/geo"
	"github.com/sveturs/mapsearch/internal/engine/marker"
	"github.com/sveturs/mapsearch/internal/engine/state"
	"github.com/sveturs/mapsearch/internal/model"
)

// inputs is one settled combination of every input stream.
type inputs struct {
	viewport     model.Viewport
	filters      model.Filters
	buyer        model.BuyerLocation
	query        string
	district     orb.Polygon
	districtOnly bool
	walkMode     model.WalkMode
	walkMinutes  int
}

type isoKey struct {
	lat, lng float64
	minutes  int
}

// Options wires the orchestrator's collaborators. Client and Logger
// are required; the providers may be nil when the matching flows are
// unused.
type Options struct {
	Client     *Client
	Isochrones geo.IsochroneProvider
	Geocoder   geo.Geocoder
	Districts  geo.DistrictProvider
	Locator    geo.Locator
	Windows    state.Windows
	Logger     *slog.Logger
}

// Orchestrator turns five independent input streams into a single
// ordered stream of search results. Each stream settles through its
// own debounce window; every settle bumps a sequence number and the
// response of any older sequence is discarded, so the published
// result always reflects the newest settled inputs.
type Orchestrator struct {
	client     *Client
	isochrones geo.IsochroneProvider
	geocoder   geo.Geocoder
	districts  geo.DistrictProvider
	locator    geo.Locator
	logger     *slog.Logger

	debViewport *state.Debouncer
	debBuyer    *state.Debouncer
	debQuery    *state.Debouncer
	debFilters  *state.Debouncer

	mu       sync.Mutex
	in       inputs
	seq      uint64
	last     model.Result
	isoCache map[isoKey]orb.Polygon

	changed chan struct{}
	updates chan model.Result
}

func NewOrchestrator(opts Options) *Orchestrator {
	if opts.Windows == (state.Windows{}) {
		opts.Windows = state.DefaultWindows()
	}
	return &Orchestrator{
		client:      opts.Client,
		isochrones:  opts.Isochrones,
		geocoder:    opts.Geocoder,
		districts:   opts.Districts,
		locator:     opts.Locator,
		logger:      opts.Logger,
		debViewport: state.NewDebouncer(opts.Windows.Viewport),
		debBuyer:    state.NewDebouncer(opts.Windows.Buyer),
		debQuery:    state.NewDebouncer(opts.Windows.Query),
		debFilters:  state.NewDebouncer(opts.Windows.Filters),
		in: inputs{
			viewport: model.DefaultViewport(),
			filters:  model.DefaultFilters(),
		},
		isoCache: make(map[isoKey]orb.Polygon),
		changed:  make(chan struct{}, 1),
		updates:  make(chan model.Result, 1),
	}
}

// Updates delivers result snapshots. Only the latest unread snapshot
// is retained; slow consumers skip intermediate states instead of
// lagging behind.
func (o *Orchestrator) Updates() <-chan model.Result {
	return o.updates
}

// SetViewport records a map move. The search settles after the
// viewport window elapses with no further move.
func (o *Orchestrator) SetViewport(v model.Viewport) {
	v = v.ClampZoom()
	o.mu.Lock()
	o.in.viewport = v
	o.mu.Unlock()
	o.debViewport.Trigger(o.settle)
}

// SetFilters records a filter change.
func (o *Orchestrator) SetFilters(f model.Filters) {
	o.mu.Lock()
	o.in.filters = f
	o.mu.Unlock()
	o.debFilters.Trigger(o.settle)
}

// SetBuyerLocation records a proximity reference point change.
func (o *Orchestrator) SetBuyerLocation(b model.BuyerLocation) {
	o.mu.Lock()
	o.in.buyer = b
	o.mu.Unlock()
	o.debBuyer.Trigger(o.settle)
}

// SetQuery records a text query change.
func (o *Orchestrator) SetQuery(q string) {
	o.mu.Lock()
	o.in.query = q
	o.mu.Unlock()
	o.debQuery.Trigger(o.settle)
}

// SetDistrictBoundary installs or clears the district polygon. It is
// an event rather than a stream, so it settles immediately.
func (o *Orchestrator) SetDistrictBoundary(poly orb.Polygon) {
	o.mu.Lock()
	o.in.district = poly
	o.mu.Unlock()
	o.settle()
}

// SetDistrictOnlyActive toggles the guard that suspends searching
// while a district is being chosen without a buyer location yet.
func (o *Orchestrator) SetDistrictOnlyActive(active bool) {
	o.mu.Lock()
	o.in.districtOnly = active
	o.mu.Unlock()
	o.settle()
}

// SetWalking switches between plain radius and walking-isochrone
// interpretation of the buyer radius.
func (o *Orchestrator) SetWalking(mode model.WalkMode, minutes int) {
	o.mu.Lock()
	o.in.walkMode = mode
	o.in.walkMinutes = minutes
	o.mu.Unlock()
	o.settle()
}

// Snapshot exposes the URL-visible slice of the current inputs.
func (o *Orchestrator) Snapshot() state.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return state.Snapshot{
		Viewport: o.in.viewport,
		Filters:  o.in.filters,
		Query:    o.in.query,
	}
}

// Hydrate loads a decoded URL snapshot without debouncing, as happens
// once on startup.
func (o *Orchestrator) Hydrate(s state.Snapshot) {
	o.mu.Lock()
	o.in.viewport = s.Viewport.ClampZoom()
	o.in.filters = s.Filters
	o.in.query = s.Query
	o.mu.Unlock()
	o.settle()
}

// District returns the active district boundary, or nil.
func (o *Orchestrator) District() orb.Polygon {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.in.district
}

// Result returns the last published snapshot.
func (o *Orchestrator) Result() model.Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// settle bumps the sequence and wakes the run loop.
func (o *Orchestrator) settle() {
	o.mu.Lock()
	o.seq++
	o.mu.Unlock()
	select {
	case o.changed <- struct{}{}:
	default:
	}
}

// Run drives the search loop until the context is cancelled. Each
// wakeup snapshots the inputs and dispatches one search round; rounds
// overtaken by a newer settle publish nothing.
func (o *Orchestrator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.changed:
			o.mu.Lock()
			in := o.in
			seq := o.seq
			o.mu.Unlock()
			go o.execute(ctx, in, seq)
		}
	}
}

func (o *Orchestrator) execute(ctx context.Context, in inputs, seq uint64) {
	// District selection in progress without a buyer point yet: the
	// eventual buyer placement will trigger the real search.
	if in.districtOnly && !in.buyer.Set {
		return
	}

	mode := SelectMode(in.viewport.Zoom, in.buyer.Set, in.district != nil)

	radius := in.filters.RadiusMeters
	walking := in.walkMode == model.WalkIsochrone && in.buyer.Set
	if walking {
		radius = geo.WalkingRadiusMeters(in.walkMinutes)
	}

	var (
		iso      orb.Polygon
		listings []model.Listing
		clusters []model.ClusterPoint
		total    int
	)

	g, gctx := errgroup.WithContext(ctx)
	if walking && o.isochrones != nil {
		g.Go(func() error {
			poly, err := o.isochroneFor(gctx, in.buyer.Point, in.walkMinutes)
			if err != nil {
				// The walking radius fallback already bounded the
				// search; markers just skip the polygon cut.
				o.logger.Warn("isochrone unavailable", slog.Any("error", err))
				return nil
			}
			iso = poly
			return nil
		})
	}
	g.Go(func() error {
		var err error
		switch mode {
		case model.ModeCluster:
			bounds := geo.BoundsFromCenterZoom(
				model.Point{Lat: in.viewport.Lat, Lng: in.viewport.Lng}, in.viewport.Zoom)
			clusters, listings, err = o.client.Clusters(gctx, bounds, in.viewport.Zoom, in.filters)
			if err == nil {
				clusters = FilterClustersByRadius(clusters, in.buyer.Point, radius)
			}
		case model.ModeRadius:
			listings, total, err = o.client.Radius(gctx, in.buyer.Point, radius, in.filters, false)
		case model.ModeCombinedRadiusDistrict:
			listings, total, err = o.client.Radius(gctx, in.buyer.Point, radius, in.filters, true)
		default:
			listings, total, err = o.client.Keyword(gctx, in.query, in.filters)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		o.logger.Error("search round failed",
			slog.String("mode", mode.String()), slog.Any("error", err))
		o.publish(seq, model.Result{Mode: mode, Notice: model.NoticeSearchFailed})
		return
	}

	listings = DropInvalidListings(listings)
	if walking && iso != nil {
		listings = FilterListingsByPolygon(listings, iso)
	}
	if mode == model.ModeCombinedRadiusDistrict {
		listings = FilterListingsByPolygon(listings, in.district)
	}

	if mode == model.ModeCluster {
		total = len(listings)
		for _, c := range clusters {
			total += c.Count
		}
	}

	o.publish(seq, model.Result{
		Mode:     mode,
		Markers:  marker.ProjectAll(listings),
		Clusters: clusters,
		Total:    total,
	})
}

// publish installs the result if its round is still the newest one.
func (o *Orchestrator) publish(seq uint64, res model.Result) {
	o.mu.Lock()
	if seq != o.seq {
		o.mu.Unlock()
		return
	}
	o.last = res
	o.mu.Unlock()
	o.send(res)
}

// notify re-publishes the current result with a notice attached,
// leaving markers in place.
func (o *Orchestrator) notify(n model.Notice) {
	o.mu.Lock()
	res := o.last
	res.Notice = n
	o.last = res
	o.mu.Unlock()
	o.send(res)
}

func (o *Orchestrator) send(res model.Result) {
	for {
		select {
		case o.updates <- res:
			return
		default:
		}
		select {
		case <-o.updates:
		default:
		}
	}
}

func (o *Orchestrator) isochroneFor(ctx context.Context, loc model.Point, minutes int) (orb.Polygon, error) {
	key := isoKey{lat: loc.Lat, lng: loc.Lng, minutes: minutes}
	o.mu.Lock()
	if poly, ok := o.isoCache[key]; ok {
		o.mu.Unlock()
		return poly, nil
	}
	o.mu.Unlock()

	poly, err := o.isochrones.Isochrone(ctx, loc, minutes)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	// Single-entry cache: the buyer point changes rarely and old
	// polygons are never revisited.
	clear(o.isoCache)
	o.isoCache[key] = poly
	o.mu.Unlock()
	return poly, nil
}

// SearchAddress geocodes a free-text address and, on a hit, recenters
// the map on it and moves the buyer location there.
func (o *Orchestrator) SearchAddress(ctx context.Context, query string) error {
	places, err := o.geocoder.Search(ctx, query)
	if err != nil {
		return err
	}
	if len(places) == 0 {
		o.notify(model.NoticeAddressNotFound)
		return nil
	}

	hit := places[0]
	o.SetViewport(model.Viewport{Lat: hit.Lat, Lng: hit.Lng, Zoom: 14})
	o.SetBuyerLocation(model.BuyerLocation{
		Point: model.Point{Lat: hit.Lat, Lng: hit.Lng}, Set: true,
	})
	return nil
}

// UseMyLocation resolves the user position and makes it the buyer
// location. Denial unsets the buyer and raises a notice.
func (o *Orchestrator) UseMyLocation(ctx context.Context) error {
	loc, err := o.locator.Locate(ctx)
	if err != nil {
		o.SetBuyerLocation(model.BuyerLocation{})
		o.notify(model.NoticeLocationDenied)
		if errors.Is(err, geo.ErrLocationDenied) {
			return nil
		}
		return err
	}

	o.SetViewport(model.Viewport{Lat: loc.Lat, Lng: loc.Lng, Zoom: 15})
	o.SetBuyerLocation(model.BuyerLocation{Point: loc, Set: true})
	return nil
}

// FocusDistrict resolves a district boundary, frames it in the
// viewport and anchors the buyer at its center.
func (o *Orchestrator) FocusDistrict(ctx context.Context, name string) error {
	poly, err := o.districts.Boundary(ctx, name)
	if err != nil {
		return err
	}

	bounds := geo.PolygonBounds(poly)
	center := geo.Center(bounds)
	o.SetDistrictBoundary(poly)
	o.SetViewport(model.Viewport{Lat: center.Lat, Lng: center.Lng, Zoom: geo.DistrictFitZoom(bounds)})
	o.SetBuyerLocation(model.BuyerLocation{Point: center, Set: true})
	return nil
}

// FitAllMarkers recenters the viewport so every published marker is
// visible.
func (o *Orchestrator) FitAllMarkers() {
	res := o.Result()
	points := make([]model.Point, len(res.Markers))
	for i, m := range res.Markers {
		points[i] = m.Position
	}
	center, zoom := geo.MarkerFitZoom(points)
	o.SetViewport(model.Viewport{Lat: center.Lat, Lng: center.Lng, Zoom: zoom})
}
