// Package manifest handles starling.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a starling.toml project configuration.
type Manifest struct {
	Project Project     `toml:"project"`
	Source  Source      `toml:"source"`
	Cache   CacheConfig `toml:"cache"`
	GC      GCConfig    `toml:"gc"`

	// Dir is the directory containing the starling.toml file (set at load
	// time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures script locations.
type Source struct {
	Dirs  []string `toml:"dirs"`
	Entry string   `toml:"entry"`

	// Defcompile requests ahead-of-time checking of every loaded class.
	Defcompile bool `toml:"defcompile"`
}

// CacheConfig configures the local chunk cache.
type CacheConfig struct {
	Chunks string `toml:"chunks"`
}

// GCConfig configures the cycle collector. Interval is the number of loaded
// scripts between collections; zero means collect only on demand.
type GCConfig struct {
	Interval int `toml:"interval"`
}

// Load parses a starling.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "starling.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{"src"}
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a starling.toml file, then
// loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "starling.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// SourceDirPaths returns absolute paths for the configured source
// directories.
func (m *Manifest) SourceDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Dirs {
		paths = append(paths, filepath.Join(m.Dir, d))
	}
	return paths
}

// ChunkCachePath returns the path to the chunk cache database.
func (m *Manifest) ChunkCachePath() string {
	if m.Cache.Chunks != "" {
		return filepath.Join(m.Dir, m.Cache.Chunks)
	}
	return filepath.Join(m.Dir, ".starling", "chunks.db")
}
