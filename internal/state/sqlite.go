// Package state persists catalog snapshots to SQLite so the CLI can browse
// spaces and objects without a live tenant connection.
package state

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/dsphere-labs/dsptool/internal/api"
	"github.com/dsphere-labs/dsptool/internal/cache"
)

//go:embed schema.sql
var schemaSQL string

// Snapshot describes one saved catalog.
type Snapshot struct {
	ID      string    `json:"id"`
	Label   string    `json:"label,omitempty"`
	TakenAt time.Time `json:"takenAt"`
	Spaces  int       `json:"spaces"`
	Objects int       `json:"objects"`
}

// SQLiteStore persists catalog snapshots in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new snapshot store instance.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InitSchema initializes the database schema.
func (s *SQLiteStore) InitSchema() error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Save stores a loaded catalog as a new snapshot and returns its metadata.
func (s *SQLiteStore) Save(data cache.Data, label string, takenAt time.Time) (*Snapshot, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if takenAt.IsZero() {
		takenAt = time.Now().UTC()
	}

	snap := &Snapshot{
		ID:      uuid.New().String(),
		Label:   label,
		TakenAt: takenAt.UTC(),
		Spaces:  len(data.Spaces),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO snapshots (id, label, taken_at) VALUES (?, ?, ?)`,
		snap.ID, snap.Label, snap.TakenAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	for _, space := range data.Spaces {
		name := space.BusinessName
		if n, ok := data.BusinessNames[space.ID]; ok && n != "" {
			name = n
		}
		_, err = tx.Exec(
			`INSERT INTO snapshot_spaces (snapshot_id, space_id, business_name) VALUES (?, ?, ?)`,
			snap.ID, space.ID, name,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert snapshot space: %w", err)
		}

		for _, obj := range data.Objects[space.ID] {
			_, err = tx.Exec(
				`INSERT INTO snapshot_objects (snapshot_id, space_id, technical_name, kind, name, object_id)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				snap.ID, space.ID, obj.TechnicalName, obj.Kind, obj.Name, obj.ID,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to insert snapshot object: %w", err)
			}
			snap.Objects++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot: %w", err)
	}

	return snap, nil
}

// Load reads a snapshot back into catalog form.
func (s *SQLiteStore) Load(id string) (cache.Data, *Snapshot, error) {
	if s.db == nil {
		return cache.Data{}, nil, fmt.Errorf("database not opened")
	}

	snap := &Snapshot{}
	err := s.db.QueryRow(
		`SELECT id, label, taken_at FROM snapshots WHERE id = ?`, id,
	).Scan(&snap.ID, &snap.Label, &snap.TakenAt)
	if err == sql.ErrNoRows {
		return cache.Data{}, nil, fmt.Errorf("snapshot not found: %s", id)
	}
	if err != nil {
		return cache.Data{}, nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	data := cache.Data{
		BusinessNames: map[string]string{},
		Objects:       map[string][]api.Object{},
	}

	rows, err := s.db.Query(
		`SELECT space_id, business_name FROM snapshot_spaces WHERE snapshot_id = ? ORDER BY space_id`,
		snap.ID,
	)
	if err != nil {
		return cache.Data{}, nil, fmt.Errorf("failed to load snapshot spaces: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var space api.Space
		if err := rows.Scan(&space.ID, &space.BusinessName); err != nil {
			return cache.Data{}, nil, fmt.Errorf("failed to scan snapshot space: %w", err)
		}
		data.Spaces = append(data.Spaces, space)
		if space.BusinessName != "" {
			data.BusinessNames[space.ID] = space.BusinessName
		}
	}
	if err := rows.Err(); err != nil {
		return cache.Data{}, nil, err
	}
	snap.Spaces = len(data.Spaces)

	objRows, err := s.db.Query(
		`SELECT space_id, technical_name, kind, name, object_id
		 FROM snapshot_objects WHERE snapshot_id = ? ORDER BY space_id, technical_name`,
		snap.ID,
	)
	if err != nil {
		return cache.Data{}, nil, fmt.Errorf("failed to load snapshot objects: %w", err)
	}
	defer objRows.Close()

	for objRows.Next() {
		var obj api.Object
		if err := objRows.Scan(&obj.SpaceID, &obj.TechnicalName, &obj.Kind, &obj.Name, &obj.ID); err != nil {
			return cache.Data{}, nil, fmt.Errorf("failed to scan snapshot object: %w", err)
		}
		data.Objects[obj.SpaceID] = append(data.Objects[obj.SpaceID], obj)
		snap.Objects++
	}
	if err := objRows.Err(); err != nil {
		return cache.Data{}, nil, err
	}

	return data, snap, nil
}

// LoadLatest reads the most recent snapshot. Returns nil metadata when the
// store is empty.
func (s *SQLiteStore) LoadLatest() (cache.Data, *Snapshot, error) {
	if s.db == nil {
		return cache.Data{}, nil, fmt.Errorf("database not opened")
	}

	var id string
	err := s.db.QueryRow(
		`SELECT id FROM snapshots ORDER BY taken_at DESC LIMIT 1`,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return cache.Data{}, nil, nil
	}
	if err != nil {
		return cache.Data{}, nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	return s.Load(id)
}

// List returns all snapshots, newest first.
func (s *SQLiteStore) List() ([]*Snapshot, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT s.id, s.label, s.taken_at,
		        (SELECT COUNT(*) FROM snapshot_spaces sp WHERE sp.snapshot_id = s.id),
		        (SELECT COUNT(*) FROM snapshot_objects so WHERE so.snapshot_id = s.id)
		 FROM snapshots s ORDER BY s.taken_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*Snapshot
	for rows.Next() {
		snap := &Snapshot{}
		if err := rows.Scan(&snap.ID, &snap.Label, &snap.TakenAt, &snap.Spaces, &snap.Objects); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}

	return snaps, rows.Err()
}

// Delete removes a snapshot and its rows.
func (s *SQLiteStore) Delete(id string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	result, err := s.db.Exec(`DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("snapshot not found: %s", id)
	}

	return nil
}
