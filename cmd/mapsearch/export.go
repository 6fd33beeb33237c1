package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sveturs/mapsearch/internal/engine/storage"
)

func runExport(args []string) error {
	var dbPath, outputPath string
	var snapshotID int64

	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.StringVar(&dbPath, "db", "mapsearch.db", "Path to the snapshot database")
	fs.Int64Var(&snapshotID, "snapshot", 0, "Snapshot id to export (default: latest)")
	fs.StringVar(&outputPath, "output", "", "Output file path (default: same dir as db)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mapsearch export [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  mapsearch export\n")
		fmt.Fprintf(os.Stderr, "  mapsearch export -db mapsearch.db -snapshot 3 -output results.csv\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storage.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening db: %w", err)
	}
	defer store.Close()

	if snapshotID == 0 {
		latest, err := store.LatestSnapshot()
		if err != nil {
			return fmt.Errorf("finding latest snapshot: %w", err)
		}
		if latest == nil {
			return fmt.Errorf("no snapshots in database")
		}
		snapshotID = latest.ID
	}

	markers, err := store.Listings(snapshotID)
	if err != nil {
		return fmt.Errorf("loading snapshot %d: %w", snapshotID, err)
	}
	if len(markers) == 0 {
		return fmt.Errorf("snapshot %d has no listings", snapshotID)
	}

	if outputPath == "" {
		dir := filepath.Dir(dbPath)
		base := strings.TrimSuffix(filepath.Base(dbPath), ".db")
		outputPath = filepath.Join(dir, fmt.Sprintf("%s_snapshot_%d.csv", base, snapshotID))
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	w.Write([]string{
		"listing_id", "title", "price", "category",
		"lat", "lng", "address", "views_count", "rating", "created_at",
	})

	for _, m := range markers {
		w.Write([]string{
			fmt.Sprintf("%d", m.ID),
			m.Title,
			fmt.Sprintf("%.0f", m.Price),
			m.Category,
			fmt.Sprintf("%.6f", m.Position.Lat),
			fmt.Sprintf("%.6f", m.Position.Lng),
			m.Address,
			fmt.Sprintf("%d", m.ViewsCount),
			fmt.Sprintf("%.1f", m.Rating),
			m.CreatedAt.Format(time.RFC3339),
		})
	}

	fmt.Fprintf(os.Stderr, "Exported %d listings to %s\n", len(markers), outputPath)
	return nil
}
