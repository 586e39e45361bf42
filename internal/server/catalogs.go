package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/mto-mcp/internal/detection"
	"github.com/ironsheep/mto-mcp/internal/maxtree"
)

// maxCatalogs bounds the number of detection runs kept for the rendering
// tools. The oldest run is dropped first.
const maxCatalogs = 32

// storedCatalog is one detection run kept for follow-up tool calls.
type storedCatalog struct {
	ID      string
	Path    string
	Created time.Time
	Result  *detection.Result

	// Raster is the measurement image the catalog was measured on.
	Raster maxtree.Image[float64]
}

// catalogStore holds detection runs by ID. It is safe for concurrent use.
type catalogStore struct {
	mu      sync.RWMutex
	entries map[string]*storedCatalog
	order   []string
	limit   int
}

func newCatalogStore(limit int) *catalogStore {
	return &catalogStore{
		entries: make(map[string]*storedCatalog),
		limit:   limit,
	}
}

// put stores a run under a fresh ID and returns the ID.
func (c *catalogStore) put(path string, res *detection.Result, raster maxtree.Image[float64]) string {
	entry := &storedCatalog{
		ID:      uuid.NewString(),
		Path:    path,
		Created: time.Now(),
		Result:  res,
		Raster:  raster,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.ID] = entry
	c.order = append(c.order, entry.ID)
	for len(c.order) > c.limit {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
	return entry.ID
}

// get returns the run stored under id.
func (c *catalogStore) get(id string) (*storedCatalog, error) {
	if id == "" {
		return nil, fmt.Errorf("catalog_id is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid catalog_id %q: %w", id, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[id]
	if !ok {
		return nil, fmt.Errorf("unknown catalog_id %q (catalogs are kept for the %d most recent detections)", id, c.limit)
	}
	return entry, nil
}

func (c *catalogStore) count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
