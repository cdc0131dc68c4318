package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type projectManifest struct {
	Path   string
	Root   string
	Config projectConfig
}

type projectConfig struct {
	Package  packageConfig  `toml:"package"`
	Generate generateConfig `toml:"generate"`
}

type packageConfig struct {
	Name string `toml:"name"`
}

type generateConfig struct {
	Roots       []string `toml:"roots"`
	Suffix      string   `toml:"suffix"`
	Jobs        int      `toml:"jobs"`
	Cache       bool     `toml:"cache"`
	PartsImport string   `toml:"parts_import"`
}

// findPartrefToml walks up from startDir looking for partref.toml.
func findPartrefToml(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "partref.toml")
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

func loadProjectManifest(startDir string) (*projectManifest, bool, error) {
	manifestPath, ok, err := findPartrefToml(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := loadProjectConfig(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return &projectManifest{
		Path:   manifestPath,
		Root:   filepath.Dir(manifestPath),
		Config: cfg,
	}, true, nil
}

func loadProjectConfig(path string) (projectConfig, error) {
	cfg := projectConfig{
		Generate: generateConfig{Cache: true},
	}
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return projectConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return projectConfig{}, fmt.Errorf("%s: missing [package]", path)
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
		return projectConfig{}, fmt.Errorf("%s: missing [package].name", path)
	}
	if len(cfg.Generate.Roots) == 0 {
		cfg.Generate.Roots = []string{"."}
	}
	return cfg, nil
}

// resolveRoots makes manifest roots absolute relative to the manifest
// directory and verifies each one exists.
func resolveRoots(manifest *projectManifest) ([]string, error) {
	if manifest == nil {
		return nil, fmt.Errorf("missing project manifest")
	}
	roots := make([]string, 0, len(manifest.Config.Generate.Roots))
	for _, rel := range manifest.Config.Generate.Roots {
		root := filepath.Join(manifest.Root, filepath.FromSlash(strings.TrimSpace(rel)))
		info, err := os.Stat(root)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%s: [generate].roots path does not exist: %s", manifest.Path, root)
			}
			return nil, fmt.Errorf("%s: failed to stat root: %w", manifest.Path, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s: [generate].roots entry must be a directory: %s", manifest.Path, root)
		}
		roots = append(roots, root)
	}
	return roots, nil
}
