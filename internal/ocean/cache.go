package ocean

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/kurtlen/UnderSeaModelingLibrary/internal/fsutil"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/monitoring"
)

// DataCache owns the bathymetry and climatology grids loaded for a run.
// Grids are read once per path and shared by every environment built from
// the cache. It is safe for concurrent use.
type DataCache struct {
	fs fsutil.FileSystem

	mu          sync.RWMutex
	bathymetry  map[string]*Grid2D
	climatology map[string]*Climatology
}

// NewDataCache creates an empty cache reading through fs.
func NewDataCache(fs fsutil.FileSystem) *DataCache {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	return &DataCache{
		fs:          fs,
		bathymetry:  make(map[string]*Grid2D),
		climatology: make(map[string]*Climatology),
	}
}

// Bathymetry returns the depth grid stored at path, loading it on first use.
func (c *DataCache) Bathymetry(path string) (*Grid2D, error) {
	path = filepath.Clean(path)
	c.mu.RLock()
	g, ok := c.bathymetry[path]
	c.mu.RUnlock()
	if ok {
		return g, nil
	}

	g, err := c.loadBathymetry(path)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.bathymetry[path]; ok {
		return existing, nil
	}
	c.bathymetry[path] = g
	return g, nil
}

// Climatology returns the temperature/salinity dataset stored at path,
// loading it on first use.
func (c *DataCache) Climatology(path string) (*Climatology, error) {
	path = filepath.Clean(path)
	c.mu.RLock()
	cl, ok := c.climatology[path]
	c.mu.RUnlock()
	if ok {
		return cl, nil
	}

	cl, err := c.loadClimatology(path)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.climatology[path]; ok {
		return existing, nil
	}
	c.climatology[path] = cl
	return cl, nil
}

// Reload re-reads every cached dataset from disk. Environments built before
// the reload keep the grids they were given.
func (c *DataCache) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for path := range c.bathymetry {
		g, err := c.loadBathymetry(path)
		if err != nil {
			return fmt.Errorf("reload %s: %w", path, err)
		}
		c.bathymetry[path] = g
	}
	for path := range c.climatology {
		cl, err := c.loadClimatology(path)
		if err != nil {
			return fmt.Errorf("reload %s: %w", path, err)
		}
		c.climatology[path] = cl
	}
	return nil
}

// Purge drops every cached dataset.
func (c *DataCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bathymetry = make(map[string]*Grid2D)
	c.climatology = make(map[string]*Climatology)
}

// Len returns the number of cached datasets.
func (c *DataCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.bathymetry) + len(c.climatology)
}

func (c *DataCache) loadBathymetry(path string) (*Grid2D, error) {
	var g Grid2D
	if err := c.readJSON(path, &g); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("bathymetry %s: %w", path, err)
	}
	monitoring.Logf("[ocean] loaded bathymetry %s (%dx%d)", path, len(g.Latitudes), len(g.Longitudes))
	return &g, nil
}

func (c *DataCache) loadClimatology(path string) (*Climatology, error) {
	var cl Climatology
	if err := c.readJSON(path, &cl); err != nil {
		return nil, err
	}
	if err := cl.Validate(); err != nil {
		return nil, fmt.Errorf("climatology %s: %w", path, err)
	}
	monitoring.Logf("[ocean] loaded climatology %s (%d months)", path, len(cl.Months))
	return &cl, nil
}

func (c *DataCache) readJSON(path string, v any) error {
	if ext := filepath.Ext(path); ext != ".json" {
		return fmt.Errorf("data file must have .json extension, got %q", ext)
	}
	data, err := c.fs.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read data file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
