// Package cache holds an explicit, reloadable snapshot of the tenant
// catalog: spaces, their business names, and the objects in each space.
//
// The catalog is a state machine. It starts Empty, moves to Loading while a
// load runs, and ends in Loaded or Failed. Reload is the only way back to
// Loading. Reads never block on a load; when the catalog is not Loaded they
// report ok=false and callers fall back to the API directly.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dsphere-labs/dsptool/internal/api"
)

// State is the lifecycle state of the catalog.
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Source provides the catalog data. *api.Client satisfies it.
type Source interface {
	Spaces(ctx context.Context) ([]api.Space, error)
	SpaceBusinessNames(ctx context.Context) (map[string]string, error)
	SpaceObjects(ctx context.Context, spaceID string) ([]api.Object, error)
}

// ProgressFunc reports load progress. percent is 0..100.
type ProgressFunc func(percent int, message string)

// SpaceStats records the outcome of loading one space.
type SpaceStats struct {
	SpaceID  string        `json:"spaceId"`
	Objects  int           `json:"objects"`
	Duration time.Duration `json:"duration"`
	Err      string        `json:"error,omitempty"`
}

// Data is the loaded catalog content. Restore and snapshot persistence
// exchange catalogs in this shape.
type Data struct {
	Spaces        []api.Space             `json:"spaces"`
	BusinessNames map[string]string       `json:"businessNames"`
	Objects       map[string][]api.Object `json:"objects"`
}

// Catalog is the cached tenant catalog.
type Catalog struct {
	mu       sync.RWMutex
	state    State
	data     Data
	stats    []SpaceStats
	loadedAt time.Time
	lastErr  error
	logger   *slog.Logger
}

// New returns an empty catalog.
func New(logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{logger: logger}
}

// State returns the current lifecycle state.
func (c *Catalog) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// LoadedAt returns when the catalog was last loaded. Zero when never loaded.
func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// LastError returns the error of the last failed load, if any.
func (c *Catalog) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Stats returns the per-space stats of the last load attempt.
func (c *Catalog) Stats() []SpaceStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]SpaceStats, len(c.stats))
	copy(out, c.stats)
	return out
}

// Load fetches the full catalog from src. It moves the catalog to Loading
// first and refuses to run when a load is already in flight. On success the
// catalog is Loaded; on error it is Failed and the data from any previous
// load is discarded.
func (c *Catalog) Load(ctx context.Context, src Source, progress ProgressFunc) error {
	if err := c.beginLoad(); err != nil {
		return err
	}
	if progress == nil {
		progress = func(int, string) {}
	}

	start := time.Now()
	progress(0, "fetching spaces")

	spaces, err := src.Spaces(ctx)
	if err != nil {
		c.failLoad(nil, fmt.Errorf("failed to fetch spaces: %w", err))
		return c.LastError()
	}

	progress(5, "fetching business names")
	names, err := src.SpaceBusinessNames(ctx)
	if err != nil {
		// Business names are decoration. Keep loading without them.
		c.logger.Warn("failed to fetch space business names", "error", err)
		names = map[string]string{}
	}

	objects := make(map[string][]api.Object, len(spaces))
	stats := make([]SpaceStats, 0, len(spaces))
	for i, space := range spaces {
		pct := 10 + (i*90)/max(len(spaces), 1)
		progress(pct, fmt.Sprintf("loading space %s", space.ID))

		spaceStart := time.Now()
		objs, err := src.SpaceObjects(ctx, space.ID)
		st := SpaceStats{SpaceID: space.ID, Duration: time.Since(spaceStart)}
		if err != nil {
			// A single unreadable space does not fail the load.
			st.Err = err.Error()
			c.logger.Warn("failed to load space objects", "space", space.ID, "error", err)
		} else {
			st.Objects = len(objs)
			objects[space.ID] = objs
		}
		stats = append(stats, st)

		if err := ctx.Err(); err != nil {
			c.failLoad(stats, fmt.Errorf("catalog load canceled: %w", err))
			return c.LastError()
		}
	}

	progress(100, "done")
	c.finishLoad(Data{Spaces: spaces, BusinessNames: names, Objects: objects}, stats)
	c.logger.Info("catalog loaded",
		"spaces", len(spaces),
		"duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// Invalidate discards all cached data and returns the catalog to Empty.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateEmpty
	c.data = Data{}
	c.stats = nil
	c.loadedAt = time.Time{}
	c.lastErr = nil
}

// Restore replaces the catalog content with a previously saved snapshot and
// marks it Loaded. loadedAt is the time the snapshot was taken.
func (c *Catalog) Restore(data Data, loadedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateLoaded
	c.data = data
	c.stats = nil
	c.loadedAt = loadedAt
	c.lastErr = nil
}

// Snapshot returns the loaded catalog content. ok is false unless the
// catalog is Loaded.
func (c *Catalog) Snapshot() (Data, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateLoaded {
		return Data{}, false
	}
	return c.data, true
}

// Spaces returns the cached space list. ok is false unless Loaded.
func (c *Catalog) Spaces() ([]api.Space, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateLoaded {
		return nil, false
	}
	return c.data.Spaces, true
}

// BusinessName returns the business name of a space, falling back to the
// space ID. ok is false unless Loaded.
func (c *Catalog) BusinessName(spaceID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateLoaded {
		return "", false
	}
	if name, found := c.data.BusinessNames[spaceID]; found && name != "" {
		return name, true
	}
	return spaceID, true
}

// Objects returns the cached objects of a space. ok is false unless Loaded.
func (c *Catalog) Objects(spaceID string) ([]api.Object, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateLoaded {
		return nil, false
	}
	return c.data.Objects[spaceID], true
}

func (c *Catalog) beginLoad() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateLoading {
		return fmt.Errorf("catalog load already in progress")
	}
	c.state = StateLoading
	c.data = Data{}
	c.stats = nil
	c.lastErr = nil
	return nil
}

func (c *Catalog) failLoad(stats []SpaceStats, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateFailed
	c.stats = stats
	c.lastErr = err
}

func (c *Catalog) finishLoad(data Data, stats []SpaceStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateLoaded
	c.data = data
	c.stats = stats
	c.loadedAt = time.Now()
	c.lastErr = nil
}
