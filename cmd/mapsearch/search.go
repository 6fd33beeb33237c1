package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sveturs/mapsearch/internal/config"
	"github.com/sveturs/mapsearch/internal/engine/state"
	"github.com/sveturs/mapsearch/internal/engine/stats"
	"github.com/sveturs/mapsearch/internal/engine/storage"
	"github.com/sveturs/mapsearch/internal/logging"
	"github.com/sveturs/mapsearch/internal/model"
)

func runSearch(args []string) error {
	var (
		query      string
		lat, lng   float64
		radius     float64
		zoom       float64
		categories string
		minPrice   float64
		maxPrice   float64
		district   string
		walkMin    int
		stateURL   string
		save       bool
	)

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	fs.StringVar(&query, "q", "", "Text query")
	fs.Float64Var(&lat, "lat", 0, "Buyer latitude (enables proximity search)")
	fs.Float64Var(&lng, "lng", 0, "Buyer longitude")
	fs.Float64Var(&radius, "radius", model.DefaultRadiusMeters, "Search radius in meters")
	fs.Float64Var(&zoom, "zoom", model.DefaultZoom, "Map zoom level 3-19")
	fs.StringVar(&categories, "categories", "", "Comma-separated category filter")
	fs.Float64Var(&minPrice, "min-price", 0, "Minimum price filter")
	fs.Float64Var(&maxPrice, "max-price", 0, "Maximum price filter")
	fs.StringVar(&district, "district", "", "District name to combine with the radius")
	fs.IntVar(&walkMin, "walk", 0, "Walking time budget in minutes (0 = off)")
	fs.StringVar(&stateURL, "state", "", "Shared state query string to load first")
	fs.BoolVar(&save, "save", false, "Save the result as a snapshot")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mapsearch search [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  mapsearch search -q garsonjera\n")
		fmt.Fprintf(os.Stderr, "  mapsearch search -lat 44.8176 -lng 20.4649 -radius 2000 -zoom 13\n")
		fmt.Fprintf(os.Stderr, "  mapsearch search -lat 44.8 -lng 20.46 -district \"Vračar\" -save\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	logger := logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// Short settle windows: there is no typing to wait out here.
	cfg.Debounce = config.DebounceConfig{
		Viewport: 50 * time.Millisecond,
		Buyer:    50 * time.Millisecond,
		Query:    50 * time.Millisecond,
		Filters:  50 * time.Millisecond,
	}
	orch := buildOrchestrator(cfg, logger)
	go orch.Run(ctx)

	if stateURL != "" {
		orch.Hydrate(state.Decode(stateURL))
	}

	filters := model.DefaultFilters()
	filters.RadiusMeters = radius
	filters.PriceFrom = minPrice
	filters.PriceTo = maxPrice
	if categories != "" {
		for _, c := range strings.Split(categories, ",") {
			if c = strings.TrimSpace(c); c != "" {
				filters.Categories = append(filters.Categories, c)
			}
		}
	}

	orch.SetViewport(model.Viewport{Lat: lat, Lng: lng, Zoom: zoom})
	orch.SetFilters(filters)
	orch.SetQuery(query)
	hasBuyer := lat != 0 || lng != 0
	if hasBuyer {
		orch.SetBuyerLocation(model.BuyerLocation{
			Point: model.Point{Lat: lat, Lng: lng}, Set: true,
		})
	}
	if walkMin > 0 {
		orch.SetWalking(model.WalkIsochrone, walkMin)
	}
	if district != "" {
		if !hasBuyer {
			return fmt.Errorf("-district requires -lat/-lng")
		}
		if err := orch.FocusDistrict(ctx, district); err != nil {
			return fmt.Errorf("resolving district %q: %w", district, err)
		}
	}

	res, err := awaitResult(ctx, orch.Updates())
	if err != nil {
		return err
	}
	if res.Notice != model.NoticeNone {
		return fmt.Errorf("search failed: %s", res.Notice)
	}

	printResult(res)

	if save {
		store, err := storage.NewStore(cfg.Storage.DBPath)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer store.Close()

		snap := orch.Snapshot()
		id, err := store.SaveSnapshot(state.Encode(snap), snap.Query, res)
		if err != nil {
			return fmt.Errorf("saving snapshot: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Snapshot #%d saved to %s\n", id, cfg.Storage.DBPath)
	}

	return nil
}

// awaitResult drains updates until the streams go quiet, then keeps
// the last one. Intermediate rounds from staggered settles are
// superseded within a window or two.
func awaitResult(ctx context.Context, updates <-chan model.Result) (model.Result, error) {
	var res model.Result
	got := false
	overall := time.After(20 * time.Second)
	for {
		var quiet <-chan time.Time
		if got {
			quiet = time.After(700 * time.Millisecond)
		}
		select {
		case <-ctx.Done():
			return model.Result{}, ctx.Err()
		case <-overall:
			if got {
				return res, nil
			}
			return model.Result{}, fmt.Errorf("timed out waiting for results")
		case <-quiet:
			return res, nil
		case r := <-updates:
			res = r
			got = true
		}
	}
}

func printResult(res model.Result) {
	fmt.Printf("mode=%s total=%d\n", res.Mode, res.Total)

	for _, c := range res.Clusters {
		fmt.Printf("cluster  %.6f,%.6f  %d listings\n", c.Lat, c.Lng, c.Count)
	}
	for _, m := range res.Markers {
		fmt.Printf("%s %-8d %10.0f %s  %.6f,%.6f  %s\n",
			m.Icon, m.ID, m.Price, m.Currency, m.Position.Lat, m.Position.Lng, m.Title)
	}

	if s := stats.Summarize(res.Markers); s.Count > 0 && s.Max > 0 {
		fmt.Printf("prices: min=%.0f max=%.0f mean=%.0f median=%.0f\n",
			s.Min, s.Max, s.Mean, s.Median)
	}
}
