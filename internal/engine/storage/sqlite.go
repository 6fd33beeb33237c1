package storage

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sveturs/mapsearch/internal/model"
)

// Store persists search snapshots so past result sets can be browsed
// and exported.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	// Optimize for write throughput
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createSchema(db); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		state_url TEXT NOT NULL,
		query TEXT,
		mode TEXT NOT NULL,
		total INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS listings (
		snapshot_id INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
		listing_id INTEGER NOT NULL,
		title TEXT,
		price REAL,
		category TEXT,
		lat REAL NOT NULL,
		lng REAL NOT NULL,
		address TEXT,
		views_count INTEGER,
		rating REAL,
		created_at DATETIME,
		UNIQUE(snapshot_id, listing_id)
	);
	CREATE INDEX IF NOT EXISTS idx_listings_snapshot ON listings(snapshot_id);
	CREATE INDEX IF NOT EXISTS idx_listings_coords ON listings(lat, lng);
	`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Snapshot is one stored search round.
type Snapshot struct {
	ID        int64
	CreatedAt time.Time
	StateURL  string
	Query     string
	Mode      string
	Total     int
}

// SaveSnapshot records a result set and its listings in one
// transaction, returning the snapshot id.
func (s *Store) SaveSnapshot(stateURL, query string, res model.Result) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning tx: %w", err)
	}

	row, err := tx.Exec(`
		INSERT INTO snapshots (state_url, query, mode, total)
		VALUES (?,?,?,?)
	`, stateURL, query, res.Mode.String(), res.Total)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("inserting snapshot: %w", err)
	}
	id, err := row.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("reading snapshot id: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO listings
		(snapshot_id, listing_id, title, price, category, lat, lng,
		 address, views_count, rating, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("preparing stmt: %w", err)
	}
	defer stmt.Close()

	for _, m := range res.Markers {
		if _, err := stmt.Exec(
			id, m.ID, m.Title, m.Price, m.Category,
			m.Position.Lat, m.Position.Lng,
			m.Address, m.ViewsCount, m.Rating, m.CreatedAt,
		); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("inserting listing %d: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing tx: %w", err)
	}
	return id, nil
}

// Snapshots lists stored snapshots, newest first.
func (s *Store) Snapshots() ([]Snapshot, error) {
	rows, err := s.db.Query(`
		SELECT id, created_at, state_url, query, mode, total
		FROM snapshots ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var sn Snapshot
		if err := rows.Scan(&sn.ID, &sn.CreatedAt, &sn.StateURL, &sn.Query, &sn.Mode, &sn.Total); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

// Listings returns the stored markers of one snapshot.
func (s *Store) Listings(snapshotID int64) ([]model.Marker, error) {
	rows, err := s.db.Query(`
		SELECT listing_id, title, price, category, lat, lng,
		       address, views_count, rating, created_at
		FROM listings WHERE snapshot_id = ? ORDER BY listing_id
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("listing snapshot %d: %w", snapshotID, err)
	}
	defer rows.Close()

	var out []model.Marker
	for rows.Next() {
		var m model.Marker
		if err := rows.Scan(
			&m.ID, &m.Title, &m.Price, &m.Category,
			&m.Position.Lat, &m.Position.Lng,
			&m.Address, &m.ViewsCount, &m.Rating, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning listing: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// LatestSnapshot returns the most recent snapshot, or nil when the
// store is empty.
func (s *Store) LatestSnapshot() (*Snapshot, error) {
	sns, err := s.Snapshots()
	if err != nil {
		return nil, err
	}
	if len(sns) == 0 {
		return nil, nil
	}
	return &sns[0], nil
}

func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&count)
	return count, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
