// Package catalog loads the set of predefined scripts a user can run.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/scriptdeck/scriptdeck/pkg/domain"
)

// Script describes one runnable entry in the catalog.
type Script struct {
	Name        string            `yaml:"name" json:"name"`
	Path        string            `yaml:"path" json:"path"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
	// DeveloperOnly hides the entry unless developer mode is enabled.
	DeveloperOnly bool `yaml:"developer_only" json:"developer_only"`
}

// File is the on-disk structure of scripts.yaml.
type File struct {
	Scripts []Script `yaml:"scripts" json:"scripts"`
}

// Catalog is an immutable, name-indexed view of the loaded scripts.
type Catalog struct {
	scripts map[string]Script
}

// New builds a catalog from in-memory entries. Entries without a name are
// skipped.
func New(scripts ...Script) *Catalog {
	m := make(map[string]Script, len(scripts))
	for _, s := range scripts {
		if s.Name == "" {
			continue
		}
		m[s.Name] = s
	}
	return &Catalog{scripts: m}
}

// Load reads a catalog file (YAML or JSON). A missing file yields an empty
// catalog. Relative script paths are resolved against the catalog file's
// directory. Entries without a name are skipped.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Catalog{scripts: map[string]Script{}}, nil
		}
		return nil, fmt.Errorf("failed to read script catalog: %w", err)
	}

	var f File
	ext := strings.ToLower(filepath.Ext(path))

	if ext == ".json" {
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse script catalog: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse script catalog: %w", err)
		}
	}

	base := filepath.Dir(path)
	scripts := make(map[string]Script)
	for _, s := range f.Scripts {
		if s.Name == "" {
			continue
		}
		if s.Path != "" && !filepath.IsAbs(s.Path) {
			s.Path = filepath.Join(base, s.Path)
		}
		scripts[s.Name] = s
	}

	return &Catalog{scripts: scripts}, nil
}

// Get returns the named script.
func (c *Catalog) Get(name string) (Script, error) {
	s, ok := c.scripts[name]
	if !ok {
		return Script{}, fmt.Errorf("%w: %s", domain.ErrScriptNotFound, name)
	}
	return s, nil
}

// Names returns all script names in sorted order. When developerMode is
// false, developer-only entries are omitted.
func (c *Catalog) Names(developerMode bool) []string {
	names := make([]string, 0, len(c.scripts))
	for name, s := range c.scripts {
		if s.DeveloperOnly && !developerMode {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the total number of entries, developer-only included.
func (c *Catalog) Len() int {
	return len(c.scripts)
}

// Validate checks that every entry with a path points at an existing file.
// An empty path is valid and selects simulation mode.
func (c *Catalog) Validate() error {
	for name, s := range c.scripts {
		if s.Path == "" {
			continue
		}
		if _, err := os.Stat(s.Path); err != nil {
			return fmt.Errorf("script %q: %w", name, err)
		}
	}
	return nil
}
