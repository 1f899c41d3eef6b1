// Package project loads the tyrb.toml manifest that configures the
// server for a workspace.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"tyrb/internal/diag"
)

// Manifest is the parsed tyrb.toml plus where it was found.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the manifest sections.
type Config struct {
	Package PackageConfig `toml:"package"`
	Server  ServerConfig  `toml:"server"`
}

type PackageConfig struct {
	Name string `toml:"name"`
}

type ServerConfig struct {
	Jobs           int      `toml:"jobs"`
	MaxDiagnostics int      `toml:"max_diagnostics"`
	SourceRoots    []string `toml:"source_roots"`
	Silence        []uint16 `toml:"silence"`
}

// SilencedCodes converts the configured extra silence set.
func (c ServerConfig) SilencedCodes() []diag.Code {
	out := make([]diag.Code, 0, len(c.Silence))
	for _, code := range c.Silence {
		out = append(out, diag.Code(code))
	}
	return out
}

// FindManifest walks up from startDir looking for tyrb.toml.
func FindManifest(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "tyrb.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load parses a manifest file.
func Load(path string) (*Manifest, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	return &Manifest{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
	}, nil
}

// LoadFromDir finds and parses the nearest manifest; a missing manifest
// yields defaults, not an error.
func LoadFromDir(startDir string) (*Manifest, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		abs, err := filepath.Abs(startDir)
		if err != nil {
			abs = startDir
		}
		return &Manifest{Root: abs}, nil
	}
	return Load(path)
}
