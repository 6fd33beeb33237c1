package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sveturs/mapsearch/internal/engine/geo"
	"github.com/sveturs/mapsearch/internal/engine/state"
	"github.com/sveturs/mapsearch/internal/model"
)

func fastWindows() state.Windows {
	return state.Windows{
		Viewport: time.Millisecond,
		Buyer:    time.Millisecond,
		Query:    time.Millisecond,
		Filters:  time.Millisecond,
	}
}

func startOrchestrator(t *testing.T, opts Options) *Orchestrator {
	t.Helper()
	if opts.Windows == (state.Windows{}) {
		opts.Windows = fastWindows()
	}
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	o := NewOrchestrator(opts)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go o.Run(ctx)
	return o
}

func waitResult(t *testing.T, o *Orchestrator, pred func(model.Result) bool) model.Result {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case res := <-o.Updates():
			if pred(res) {
				return res
			}
		case <-deadline:
			t.Fatal("timed out waiting for result")
		}
	}
}

func TestOrchestratorKeywordRound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/search", r.URL.Path)
		w.Write([]byte(`{"items": [
			{"id": 1, "title": "bike", "location": {"lat": 44.8, "lng": 20.4}}
		], "total": 1}`))
	}))
	defer srv.Close()

	o := startOrchestrator(t, Options{Client: NewClient(srv.URL, 0, discardLogger())})
	o.SetQuery("bike")

	res := waitResult(t, o, func(r model.Result) bool { return len(r.Markers) == 1 })
	assert.Equal(t, model.ModeKeyword, res.Mode)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, "bike", res.Markers[0].Title)
	assert.Empty(t, res.Clusters)
}

func TestOrchestratorStaleRoundDiscarded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "slow" {
			time.Sleep(150 * time.Millisecond)
			w.Write([]byte(`{"items": [{"id": 1, "title": "slow"}], "total": 1}`))
			return
		}
		w.Write([]byte(`{"items": [{"id": 2, "title": "fast"}], "total": 1}`))
	}))
	defer srv.Close()

	o := startOrchestrator(t, Options{Client: NewClient(srv.URL, 0, discardLogger())})

	o.SetQuery("slow")
	// Let the slow round dispatch before overtaking it.
	time.Sleep(50 * time.Millisecond)
	o.SetQuery("fast")

	waitResult(t, o, func(r model.Result) bool {
		return len(r.Markers) == 1 && r.Markers[0].Title == "fast"
	})

	// The slow response lands after this sleep and must not overwrite.
	time.Sleep(250 * time.Millisecond)
	res := o.Result()
	require.Len(t, res.Markers, 1)
	assert.Equal(t, "fast", res.Markers[0].Title)
}

func TestOrchestratorClusterRound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/gis/clusters" {
			w.Write([]byte(`{"items": [], "total": 0}`))
			return
		}
		w.Write([]byte(`{"clusters": [
			{"lat": 44.8276, "lng": 20.4649, "count": 3},
			{"lat": 44.8300, "lng": 20.4700, "count": 4},
			{"lat": 44.9176, "lng": 20.4649, "count": 9}
		], "listings": []}`))
	}))
	defer srv.Close()

	o := startOrchestrator(t, Options{Client: NewClient(srv.URL, 0, discardLogger())})
	o.SetViewport(model.Viewport{Lat: 44.8176, Lng: 20.4649, Zoom: 9})
	o.SetBuyerLocation(model.BuyerLocation{
		Point: model.Point{Lat: 44.8176, Lng: 20.4649}, Set: true,
	})

	res := waitResult(t, o, func(r model.Result) bool { return len(r.Clusters) > 0 })
	assert.Equal(t, model.ModeCluster, res.Mode)
	// The third cluster sits ~11 km out, past the 5 km default radius.
	require.Len(t, res.Clusters, 2)
	assert.Equal(t, 7, res.Total)
}

func TestOrchestratorCombinedRound(t *testing.T) {
	var sawCombined atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/gis/search/radius" {
			w.Write([]byte(`{"items": [], "total": 0}`))
			return
		}
		if r.Header.Get("X-Combined-Search") == "true" {
			sawCombined.Store(true)
		}
		w.Write([]byte(`{"listings": [
			{"id": 1, "title": "in", "location": {"lat": 44.5, "lng": 20.5}},
			{"id": 2, "title": "out", "location": {"lat": 46.0, "lng": 20.5}}
		], "total_count": 2}`))
	}))
	defer srv.Close()

	district := orb.Polygon{{{20.0, 44.0}, {21.0, 44.0}, {21.0, 45.0}, {20.0, 45.0}}}

	o := startOrchestrator(t, Options{Client: NewClient(srv.URL, 0, discardLogger())})
	o.SetViewport(model.Viewport{Lat: 44.5, Lng: 20.5, Zoom: 13})
	o.SetBuyerLocation(model.BuyerLocation{
		Point: model.Point{Lat: 44.5, Lng: 20.5}, Set: true,
	})
	o.SetDistrictBoundary(district)

	res := waitResult(t, o, func(r model.Result) bool {
		return r.Mode == model.ModeCombinedRadiusDistrict && len(r.Markers) > 0
	})
	require.Len(t, res.Markers, 1)
	assert.Equal(t, "in", res.Markers[0].Title)
	assert.True(t, sawCombined.Load())
}

type stubIsochrones struct {
	poly orb.Polygon
}

func (s stubIsochrones) Isochrone(ctx context.Context, loc model.Point, minutes int) (orb.Polygon, error) {
	return s.poly, nil
}

func TestOrchestratorWalkingFiltersByIsochrone(t *testing.T) {
	var mu sync.Mutex
	var radii []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		radii = append(radii, r.URL.Query().Get("radius"))
		mu.Unlock()
		w.Write([]byte(`{"listings": [
			{"id": 1, "title": "near", "location": {"lat": 44.5, "lng": 20.5}},
			{"id": 2, "title": "far", "location": {"lat": 46.0, "lng": 20.5}}
		], "total_count": 2}`))
	}))
	defer srv.Close()

	iso := orb.Polygon{{{20.0, 44.0}, {21.0, 44.0}, {21.0, 45.0}, {20.0, 45.0}}}

	o := startOrchestrator(t, Options{
		Client:     NewClient(srv.URL, 0, discardLogger()),
		Isochrones: stubIsochrones{poly: iso},
	})
	o.SetViewport(model.Viewport{Lat: 44.5, Lng: 20.5, Zoom: 13})
	o.SetBuyerLocation(model.BuyerLocation{
		Point: model.Point{Lat: 44.5, Lng: 20.5}, Set: true,
	})
	o.SetWalking(model.WalkIsochrone, 15)

	res := waitResult(t, o, func(r model.Result) bool { return len(r.Markers) == 1 })
	assert.Equal(t, "near", res.Markers[0].Title)
	// 15 minutes on foot at 80 m/min.
	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, radii, "1200")
}

func TestOrchestratorFailureClearsResults(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"items": [{"id": 1, "title": "bike"}], "total": 1}`))
	}))
	defer srv.Close()

	o := startOrchestrator(t, Options{Client: NewClient(srv.URL, 0, discardLogger())})
	o.SetQuery("bike")
	waitResult(t, o, func(r model.Result) bool { return len(r.Markers) == 1 })

	fail.Store(true)
	o.SetQuery("bikes")

	res := waitResult(t, o, func(r model.Result) bool { return r.Notice != model.NoticeNone })
	assert.Equal(t, model.NoticeSearchFailed, res.Notice)
	assert.Empty(t, res.Markers)
	assert.Zero(t, res.Total)
}

func TestOrchestratorDistrictOnlyGuardSkipsSearch(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"items": [], "total": 0}`))
	}))
	defer srv.Close()

	o := startOrchestrator(t, Options{Client: NewClient(srv.URL, 0, discardLogger())})
	o.SetDistrictOnlyActive(true)
	o.SetQuery("bike")

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, hits.Load())

	// Placing the buyer lifts the guard.
	o.SetBuyerLocation(model.BuyerLocation{
		Point: model.Point{Lat: 44.8176, Lng: 20.4649}, Set: true,
	})
	waitResult(t, o, func(r model.Result) bool { return true })
	assert.Positive(t, hits.Load())
}

type stubGeocoder struct {
	places []geo.Place
}

func (s stubGeocoder) Search(ctx context.Context, query string) ([]geo.Place, error) {
	return s.places, nil
}

func TestOrchestratorSearchAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"listings": [], "total_count": 0}`))
	}))
	defer srv.Close()

	o := startOrchestrator(t, Options{
		Client:   NewClient(srv.URL, 0, discardLogger()),
		Geocoder: stubGeocoder{places: []geo.Place{{Lat: 44.79, Lng: 20.45, DisplayName: "Vračar"}}},
	})

	require.NoError(t, o.SearchAddress(context.Background(), "Vračar"))

	snap := o.Snapshot()
	assert.Equal(t, 44.79, snap.Viewport.Lat)
	assert.Equal(t, 20.45, snap.Viewport.Lng)
	assert.Equal(t, 14.0, snap.Viewport.Zoom)
}

func TestOrchestratorSearchAddressNotFound(t *testing.T) {
	o := startOrchestrator(t, Options{
		Client:   NewClient("http://127.0.0.1:0", 0, discardLogger()),
		Geocoder: stubGeocoder{},
	})

	require.NoError(t, o.SearchAddress(context.Background(), "nowhere"))
	res := waitResult(t, o, func(r model.Result) bool { return r.Notice != model.NoticeNone })
	assert.Equal(t, model.NoticeAddressNotFound, res.Notice)
}

type stubLocator struct {
	point model.Point
	err   error
}

func (s stubLocator) Locate(ctx context.Context) (model.Point, error) {
	return s.point, s.err
}

func TestOrchestratorUseMyLocationDenied(t *testing.T) {
	// Long windows keep the follow-up search from racing the notice.
	o := startOrchestrator(t, Options{
		Client:  NewClient("http://127.0.0.1:0", 0, discardLogger()),
		Locator: stubLocator{err: geo.ErrLocationDenied},
		Windows: state.DefaultWindows(),
	})

	require.NoError(t, o.UseMyLocation(context.Background()))
	assert.Equal(t, model.NoticeLocationDenied, o.Result().Notice)
}

func TestOrchestratorUseMyLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"listings": [], "total_count": 0}`))
	}))
	defer srv.Close()

	o := startOrchestrator(t, Options{
		Client:  NewClient(srv.URL, 0, discardLogger()),
		Locator: stubLocator{point: model.Point{Lat: 44.81, Lng: 20.46}},
	})

	require.NoError(t, o.UseMyLocation(context.Background()))
	snap := o.Snapshot()
	assert.Equal(t, 15.0, snap.Viewport.Zoom)
	assert.Equal(t, 44.81, snap.Viewport.Lat)
}

type stubDistricts struct {
	poly orb.Polygon
}

func (s stubDistricts) Boundary(ctx context.Context, name string) (orb.Polygon, error) {
	return s.poly, nil
}

func TestOrchestratorFocusDistrict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"listings": [], "total_count": 0}`))
	}))
	defer srv.Close()

	// Roughly 0.06 x 0.06 degrees, so the fit lands at zoom 13.
	poly := orb.Polygon{{{20.40, 44.80}, {20.46, 44.80}, {20.46, 44.86}, {20.40, 44.86}}}

	o := startOrchestrator(t, Options{
		Client:    NewClient(srv.URL, 0, discardLogger()),
		Districts: stubDistricts{poly: poly},
	})

	require.NoError(t, o.FocusDistrict(context.Background(), "Vračar"))
	snap := o.Snapshot()
	assert.Equal(t, 13.0, snap.Viewport.Zoom)
	assert.InDelta(t, 44.83, snap.Viewport.Lat, 1e-9)
	assert.InDelta(t, 20.43, snap.Viewport.Lng, 1e-9)
}

func TestOrchestratorFitAllMarkers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": [
			{"id": 1, "location": {"lat": 44.80, "lng": 20.40}},
			{"id": 2, "location": {"lat": 44.84, "lng": 20.44}}
		], "total": 2}`))
	}))
	defer srv.Close()

	o := startOrchestrator(t, Options{Client: NewClient(srv.URL, 0, discardLogger())})
	o.SetQuery("anything")
	waitResult(t, o, func(r model.Result) bool { return len(r.Markers) == 2 })

	o.FitAllMarkers()
	snap := o.Snapshot()
	assert.Equal(t, 13.0, snap.Viewport.Zoom)
	assert.InDelta(t, 44.82, snap.Viewport.Lat, 1e-9)
}
