package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"go-sqladvisor/pkg/analyzer"
)

// zstd frames start with 0x28, 0xB5, 0x2F, 0xFD
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// IsZstd reports whether data starts with a zstd frame header
func IsZstd(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}

// Decompress returns data unchanged unless it is zstd compressed
func Decompress(data []byte) ([]byte, error) {
	if !IsZstd(data) {
		return data, nil
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer decoder.Close()

	out, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	return out, nil
}

// Compress encodes data as a single zstd frame at the given level (1-4)
func Compress(data []byte, level int) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer encoder.Close()
	return encoder.EncodeAll(data, nil), nil
}

// ReadSource reads a file, transparently decompressing zstd content
func ReadSource(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Decompress(content)
}

// fileFormat picks the encoding from the extension, ignoring a trailing .zst
func fileFormat(path string) (format string, compressed bool) {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".zst") {
		compressed = true
		lower = strings.TrimSuffix(lower, ".zst")
	}
	switch filepath.Ext(lower) {
	case ".ini", ".cnf":
		return "ini", compressed
	case ".yaml", ".yml":
		return "yaml", compressed
	default:
		return "json", compressed
	}
}

// LoadFile reads table cards from an INI, YAML or JSON file
func LoadFile(path string) ([]analyzer.IndexEntry, error) {
	data, err := ReadSource(path)
	if err != nil {
		return nil, err
	}

	format, _ := fileFormat(path)
	entries, err := Decode(format, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return entries, nil
}

// SaveFile writes cards to path; a .zst suffix compresses the output
func SaveFile(path string, entries []analyzer.IndexEntry) error {
	format, compressed := fileFormat(path)
	data, err := Encode(format, entries)
	if err != nil {
		return err
	}
	if compressed {
		if data, err = Compress(data, 3); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Decode parses cards in the named format (ini, yaml or json)
func Decode(format string, data []byte) ([]analyzer.IndexEntry, error) {
	var entries []analyzer.IndexEntry

	switch format {
	case "ini":
		cfg, err := ini.LoadSources(ini.LoadOptions{AllowPythonMultilineValues: false}, data)
		if err != nil {
			return nil, err
		}
		for _, section := range cfg.Sections() {
			if section.Name() == ini.DefaultSection {
				continue
			}
			entries = append(entries, analyzer.IndexEntry{
				Table:      section.Name(),
				Definition: section.Key("indexes").String(),
			})
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, err
		}
	case "json":
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}

	for i, e := range entries {
		if strings.TrimSpace(e.Table) == "" {
			return nil, &ValidationError{Field: "table", Message: fmt.Sprintf("entry %d has no table name", i+1)}
		}
	}
	return entries, nil
}

// Encode serializes cards in the named format. INI merges cards that share a
// table name since sections are unique.
func Encode(format string, entries []analyzer.IndexEntry) ([]byte, error) {
	switch format {
	case "ini":
		cfg := ini.Empty()
		for _, e := range entries {
			section, err := cfg.NewSection(e.Table)
			if err != nil {
				return nil, fmt.Errorf("failed to create section %s: %w", e.Table, err)
			}
			def := e.Definition
			if prev := section.Key("indexes").String(); prev != "" {
				def = prev + "\n" + def
			}
			section.Key("indexes").SetValue(def)
		}
		var buf bytes.Buffer
		if _, err := cfg.WriteTo(&buf); err != nil {
			return nil, fmt.Errorf("failed to write ini: %w", err)
		}
		return buf.Bytes(), nil
	case "yaml":
		return yaml.Marshal(entries)
	case "json":
		return json.MarshalIndent(entries, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}
