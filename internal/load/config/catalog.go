package config

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed scenarios/*.yaml
var catalogFS embed.FS

// CatalogEntry describes one built-in scenario file.
type CatalogEntry struct {
	Name        string
	Description string
	Scenarios   []string
	Duration    string
}

// Catalog lists the built-in scenario files by name.
func Catalog() ([]CatalogEntry, error) {
	files, err := fs.Glob(catalogFS, "scenarios/*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	entries := make([]CatalogEntry, 0, len(files))
	for _, f := range files {
		name := strings.TrimSuffix(path.Base(f), ".yaml")
		cfg, err := LoadBuiltin(name)
		if err != nil {
			return nil, err
		}
		entry := CatalogEntry{
			Name:        name,
			Description: cfg.Description,
			Scenarios:   cfg.ScenarioNames(),
		}
		if d, err := cfg.TotalDuration(); err == nil {
			entry.Duration = d.String()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// LoadBuiltin parses the embedded scenario file with the given name.
func LoadBuiltin(name string) (*TestConfig, error) {
	data, err := catalogFS.ReadFile("scenarios/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown built-in scenario %q", name)
	}
	return ParseConfig(data, name+".yaml")
}
