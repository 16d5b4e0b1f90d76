// Package loader builds expression trees from YAML or JSON configuration.
package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/rules/pkg/expression"
	"gopkg.in/yaml.v3"
)

// Format is a configuration encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ConfigEntityKey associates a tree with the config entity that stores it.
const ConfigEntityKey = "config_entity_id"

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported configuration file extension: %q", filepath.Ext(path))
}

// Decode parses configuration bytes into a mapping.
func Decode(data []byte, format Format) (map[string]any, error) {
	var config map[string]any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&config); err != nil {
			return nil, fmt.Errorf("failed to parse json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %q", format)
	}
	if config == nil {
		return nil, fmt.Errorf("configuration is empty")
	}
	return config, nil
}

// Load builds an expression tree from configuration bytes.
func Load(reg *expression.Registry, data []byte, format Format) (expression.Expression, error) {
	config, err := Decode(data, format)
	if err != nil {
		return nil, err
	}

	entityID, _ := config[ConfigEntityKey].(string)
	delete(config, ConfigEntityKey)

	e, err := reg.Create(config)
	if err != nil {
		return nil, err
	}
	e.SetConfigEntityID(entityID)
	return e, nil
}

// LoadFile reads and builds one configuration file. Without an explicit
// config_entity_id the tree is associated with the file name, minus its
// extension.
func LoadFile(reg *expression.Registry, path string) (expression.Expression, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	e, err := Load(reg, data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if e.ConfigEntityID() == "" {
		base := filepath.Base(path)
		e.SetConfigEntityID(strings.TrimSuffix(base, filepath.Ext(base)))
	}
	return e, nil
}

// Encode renders an expression configuration back to bytes.
func Encode(e expression.Expression, format Format) ([]byte, error) {
	config := e.Configuration()
	if id := e.ConfigEntityID(); id != "" {
		config[ConfigEntityKey] = id
	}
	switch format {
	case FormatYAML:
		return yaml.Marshal(config)
	case FormatJSON:
		return json.MarshalIndent(config, "", "  ")
	}
	return nil, fmt.Errorf("unsupported format: %q", format)
}
