package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles loading configuration from multiple sources.
//
// Sources, lowest priority first:
//  1. Defaults
//  2. base.yaml (or base.json)
//  3. <environment>.yaml
//  4. Environment variables
type Loader struct {
	basePath    string
	environment string
	fileLoaders []FileLoader
}

// FileLoader decodes one configuration file format.
type FileLoader interface {
	Load(reader io.Reader, target interface{}) error
	Extension() string
}

// NewLoader creates a loader reading files from basePath.
func NewLoader(basePath, environment string) *Loader {
	if basePath == "" {
		basePath = "config"
	}
	return &Loader{
		basePath:    basePath,
		environment: environment,
		fileLoaders: []FileLoader{&YAMLLoader{}, &JSONLoader{}},
	}
}

// BasePath returns the directory the loader reads from.
func (l *Loader) BasePath() string {
	return l.basePath
}

// Load builds the layered configuration and validates it. It also returns
// the files that contributed.
func (l *Loader) Load() (*Config, []string, error) {
	cfg := Defaults()
	cfg.ConfigDir = l.basePath
	sources := []string{"defaults"}

	for _, name := range []string{"base", strings.ToLower(l.environment)} {
		if name == "" {
			continue
		}
		path, err := l.loadFile(name, cfg)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load %s config: %w", name, err)
		}
		sources = append(sources, path)
	}

	cfg.applyEnv()
	sources = append(sources, "environment")

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, sources, nil
}

// loadFile decodes the first <name>.<ext> found for a registered format.
func (l *Loader) loadFile(name string, cfg *Config) (string, error) {
	for _, loader := range l.fileLoaders {
		path := filepath.Join(l.basePath, name+"."+loader.Extension())

		file, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", err
		}

		err = loader.Load(file, cfg)
		file.Close()
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return path, nil
	}
	return "", os.ErrNotExist
}

// isConfigFile reports whether path has an extension the loader reads.
func isConfigFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// YAMLLoader loads configuration from YAML files.
type YAMLLoader struct{}

func (y *YAMLLoader) Load(reader io.Reader, target interface{}) error {
	return yaml.NewDecoder(reader).Decode(target)
}

func (y *YAMLLoader) Extension() string {
	return "yaml"
}

// JSONLoader loads configuration from JSON files.
type JSONLoader struct{}

func (j *JSONLoader) Load(reader io.Reader, target interface{}) error {
	return json.NewDecoder(reader).Decode(target)
}

func (j *JSONLoader) Extension() string {
	return "json"
}
