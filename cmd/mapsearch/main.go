package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/sveturs/mapsearch/internal/config"
	"github.com/sveturs/mapsearch/internal/engine/geo"
	"github.com/sveturs/mapsearch/internal/engine/search"
	"github.com/sveturs/mapsearch/internal/engine/state"
	"github.com/sveturs/mapsearch/internal/engine/storage"
	"github.com/sveturs/mapsearch/internal/logging"
	"github.com/sveturs/mapsearch/internal/tui"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "search":
			if err := runSearch(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "export":
			if err := runExport(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "version":
			fmt.Println("mapsearch " + version)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	// No subcommand → launch TUI
	if err := runTUI(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI() error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	// The terminal belongs to the TUI; logs go to a file.
	logFile, err := os.OpenFile("mapsearch.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer logFile.Close()
	logger := logging.Setup(logFile, cfg.Log.Level, cfg.Log.Format)

	store, err := storage.NewStore(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	orch := buildOrchestrator(cfg, logger)
	go orch.Run(ctx)

	initial := state.DefaultSnapshot()
	if raw := os.Getenv("MAPSEARCH_STATE"); raw != "" {
		initial = state.Decode(raw)
	}

	return tui.Run(orch, store, initial)
}

// buildOrchestrator wires the providers from config. The caller owns
// the run loop.
func buildOrchestrator(cfg *config.Config, logger *slog.Logger) *search.Orchestrator {
	return search.NewOrchestrator(search.Options{
		Client:     search.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger),
		Isochrones: geo.NewMapboxIsochrone(cfg.Providers.MapboxURL, cfg.Providers.MapboxToken),
		Geocoder:   geo.NewNominatimGeocoder(cfg.Providers.NominatimURL, cfg.Providers.UserAgent),
		Districts:  geo.NewNominatimDistricts(cfg.Providers.NominatimURL, cfg.Providers.UserAgent),
		Locator:    geo.NewIPLocator(cfg.Providers.LocatorURL),
		Windows: state.Windows{
			Viewport: cfg.Debounce.Viewport,
			Buyer:    cfg.Debounce.Buyer,
			Query:    cfg.Debounce.Query,
			Filters:  cfg.Debounce.Filters,
		},
		Logger: logger,
	})
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `mapsearch - interactive listing map search

Usage:
  mapsearch                  Launch interactive TUI
  mapsearch search [flags]   Run one headless search
  mapsearch export [flags]   Export a saved snapshot to CSV
  mapsearch version          Show version

Run 'mapsearch search --help' or 'mapsearch export --help' for flags.
`)
}
