package storage

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Format is the textual grammar of a storage document.
type Format int

const (
	FormatYAML Format = iota + 1
	FormatXML
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatXML:
		return "xml"
	default:
		return "unknown"
	}
}

// DetectFormat picks the grammar from the file name. A trailing ".gz"
// requests gzip compression on top of it.
func DetectFormat(path string) (Format, bool, error) {
	name := strings.ToLower(filepath.Base(path))

	compressed := false
	if trimmed, ok := strings.CutSuffix(name, ".gz"); ok {
		name = trimmed
		compressed = true
	}

	switch filepath.Ext(name) {
	case ".xml":
		return FormatXML, compressed, nil
	case ".yml", ".yaml":
		return FormatYAML, compressed, nil
	default:
		return 0, false, fmt.Errorf("unsupported extension in %q (want .xml, .yml or .yaml, optionally .gz)", filepath.Base(path))
	}
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}

	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip header: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gzip read: %w", err)
	}

	return out, nil
}
