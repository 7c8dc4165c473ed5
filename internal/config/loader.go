package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads a project manifest from the provided path.
func Load(path string) (*Manifest, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve manifest path: %w", err)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	var doc Manifest
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", absPath, err)
	}

	manifestDir := filepath.Dir(absPath)
	doc.Project.Workdir = resolveWorkdir(manifestDir, os.ExpandEnv(doc.Project.Workdir))

	for name, script := range doc.Scripts {
		doc.Scripts[name] = os.ExpandEnv(script)
	}
	for key, value := range doc.Env {
		doc.Env[key] = os.ExpandEnv(value)
	}

	if err := doc.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}

	for i, path := range doc.Watch.Paths {
		expanded := os.ExpandEnv(path)
		if !filepath.IsAbs(expanded) {
			expanded = filepath.Clean(filepath.Join(doc.Project.Workdir, expanded))
		}
		doc.Watch.Paths[i] = expanded
	}

	return &doc, nil
}

func resolveWorkdir(base, workdir string) string {
	if workdir == "" {
		return base
	}
	if filepath.IsAbs(workdir) {
		return filepath.Clean(workdir)
	}
	return filepath.Clean(filepath.Join(base, workdir))
}
