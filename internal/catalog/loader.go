package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies the serialisation of a catalog document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatForPath infers the document format from a file name, ignoring any
// compression suffix. Unknown extensions default to YAML.
func FormatForPath(path string) Format {
	base := path
	if CompressorForPath(path) != nil {
		base = strings.TrimSuffix(path, filepath.Ext(path))
	}
	if strings.EqualFold(filepath.Ext(base), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Parse decodes a document without validating it.
func Parse(data []byte, format Format) (Document, error) {
	var doc Document
	switch format {
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&doc); err != nil {
			return Document{}, fmt.Errorf("decode json catalog: %w", err)
		}
	case FormatYAML:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&doc); err != nil {
			return Document{}, fmt.Errorf("decode yaml catalog: %w", err)
		}
	default:
		return Document{}, fmt.Errorf("unsupported catalog format %q", format)
	}
	return doc, nil
}

// ReadFile loads a possibly compressed document from disk.
func ReadFile(path string) (Document, error) {
	//1.- Read the raw bytes and strip the bundle compression when present.
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read catalog: %w", err)
	}
	if codec := CompressorForPath(path); codec != nil {
		data, err = codec.Decompress(data)
		if err != nil {
			return Document{}, fmt.Errorf("decompress catalog %s: %w", filepath.Base(path), err)
		}
	}
	//2.- Decode using the format implied by the inner extension.
	return Parse(data, FormatForPath(path))
}

// LoadFile reads and validates a catalog. Documents without their own trait table
// inherit the built-in one.
func LoadFile(path string) (*Catalog, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(doc.Traits) == 0 {
		doc.Traits = BuiltinTraits()
	}
	cat, err := New(doc)
	if err != nil {
		return nil, fmt.Errorf("validate catalog %s: %w", filepath.Base(path), err)
	}
	return cat, nil
}
