package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/rowbrowse/pkg/core"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "rowbrowse.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "rowbrowse.yml"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// FindConfigFile finds the config file in the given directory.
// Returns empty string if not found.
func FindConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// FindProjectRoot searches upward from startDir for a rowbrowse config file.
// Returns empty string if not found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if FindConfigFile(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// viewsFile is the subset of rowbrowse.yaml re-read when views change.
type viewsFile struct {
	Views []core.ViewConfig `yaml:"views"`
}

// LoadViewsFile reads only the views section of a config file.
// An empty section yields DefaultViews.
func LoadViewsFile(path string) ([]core.ViewConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from config discovery
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var f viewsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(f.Views) == 0 {
		return DefaultViews(), nil
	}
	if err := ValidateViews(f.Views); err != nil {
		return nil, err
	}
	return f.Views, nil
}
