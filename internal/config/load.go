package config

import (
	"errors"
	"fmt"
	"os"
)

// Loaded is one resolved config file and what came out of it.
type Loaded struct {
	Path     string
	Format   Format
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves the config path (explicit flag, then XDG defaults) and
// reads it with LoadFile.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}
	return LoadFile(path)
}

// LoadFile parses path over Default(). A missing file is not an error: the
// defaults come back with a warning and Exists unset.
func LoadFile(path string) (Loaded, error) {
	loaded := Loaded{Path: path, Format: FormatForPath(path), Config: Default()}

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		loaded.Warnings = []Warning{{Message: fmt.Sprintf("config file %q not found; using defaults", path)}}
		return loaded, nil
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, warnings, err := Parse(string(content), loaded.Format, loaded.Config)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse %s config %q: %w", loaded.Format, path, err)
	}
	loaded.Config = cfg
	loaded.Warnings = warnings
	loaded.Exists = true
	return loaded, nil
}
