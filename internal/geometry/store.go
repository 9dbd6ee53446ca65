package geometry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrNotFound = errors.New("geometry not found")
	ErrBadName  = errors.New("invalid geometry name")
)

// Store serves room boundary files from a data directory. A room is a
// .json/.yaml/.yml file holding the point list [[x, y], ...].
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

var storeExts = []string{".json", ".yaml", ".yml"}

func knownExt(ext string) bool {
	for _, e := range storeExts {
		if ext == e {
			return true
		}
	}
	return false
}

// List returns the sorted base names (without extension) of every room file
// in the data directory.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list geometries: %w", err)
	}

	seen := map[string]bool{}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !knownExt(ext) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Load reads the room file for name and returns its boundary polygon.
func (s *Store) Load(name string) (Polygon, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return nil, fmt.Errorf("%w: %q", ErrBadName, name)
	}

	for _, ext := range storeExts {
		path := filepath.Join(s.dir, name+ext)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read geometry %q: %w", name, err)
		}
		return parsePolygon(data, ext)
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

func parsePolygon(data []byte, ext string) (Polygon, error) {
	var pairs [][]float64
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &pairs); err != nil {
			return nil, fmt.Errorf("parse json geometry: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &pairs); err != nil {
			return nil, fmt.Errorf("parse yaml geometry: %w", err)
		}
	}
	return FromPairs(pairs)
}
