package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of a settings document.
type Format string

// Supported settings formats.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf returns the format implied by the extension of path.
func FormatOf(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported settings file extension %q", ext)
	}
}

// Decode parses one settings document. An empty document yields an empty
// Config; trailing JSON after the first value is an error.
func Decode(data []byte, format Format) (Config, error) {
	var m map[string]any
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("decode yaml settings: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("decode json settings: %w", err)
		}
		if err := dec.Decode(new(json.RawMessage)); !errors.Is(err, io.EOF) {
			return Config{}, errors.New("decode json settings: data after top-level object")
		}
	default:
		return Config{}, fmt.Errorf("unsupported settings format %q", format)
	}
	return New(m), nil
}

// FromFile reads and decodes the settings file at path. A missing file
// wraps fs.ErrNotExist.
func FromFile(path string) (Config, error) {
	//nolint:gosec // G304: the settings path is chosen by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read settings file: %w", err)
	}
	format, err := FormatOf(path)
	if err != nil {
		return Config{}, err
	}
	return Decode(data, format)
}
