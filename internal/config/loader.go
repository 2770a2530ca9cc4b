package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// Format is a configuration file format.
type Format string

// Supported formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// Load reads, parses and decodes the document at path.
func Load(path string) (*Document, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	raw, err := Parse(path, format, data)
	if err != nil {
		return nil, err
	}
	return Decode(raw)
}

// LoadBytes parses and decodes an in-memory document.
func LoadBytes(format Format, data []byte) (*Document, error) {
	raw, err := Parse("<bytes>", format, data)
	if err != nil {
		return nil, err
	}
	return Decode(raw)
}

// Parse parses data into a configuration map. Source names the data in
// errors.
func Parse(source string, format Format, data []byte) (map[string]any, error) {
	switch format {
	case FormatTOML:
		return parseTOML(source, data)
	case FormatYAML:
		return parseYAML(source, data)
	case FormatJSON:
		return parseJSON(source, data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func parseTOML(source string, data []byte) (map[string]any, error) {
	var config map[string]any
	if err := toml.Unmarshal(data, &config); err != nil {
		perr := parseError(source, "toml", err)
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		return nil, perr
	}
	return config, nil
}

func parseYAML(source string, data []byte) (map[string]any, error) {
	var config map[string]any
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, parseError(source, "yaml", err)
	}
	if config == nil {
		return nil, &ParseError{Source: source, Format: "yaml", Reason: "empty document", Err: ErrNotObject}
	}
	return config, nil
}

func parseJSON(source string, data []byte) (map[string]any, error) {
	if !gjson.ValidBytes(data) {
		return nil, &ParseError{Source: source, Format: "json", Reason: "malformed document"}
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, parseError(source, "json", ErrNotObject)
	}
	config, ok := root.Value().(map[string]any)
	if !ok {
		return nil, parseError(source, "json", ErrNotObject)
	}
	return config, nil
}
