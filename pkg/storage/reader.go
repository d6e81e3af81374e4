package storage

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Reader gives keyed access to a parsed storage document.
type Reader struct {
	path string
	root *yaml.Node
}

// Open reads and parses the document at path.
func Open(path string) (*Reader, error) {
	format, compressed, err := DetectFormat(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrOpen, path, err)
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is intentionally user-controlled
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrOpen, path, err)
	}

	if compressed {
		if data, err = decompress(data); err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrFormat, path, err)
		}
	}

	var root *yaml.Node
	switch format {
	case FormatXML:
		root, err = decodeXML(data)
	default:
		root, err = decodeYAML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrFormat, path, err)
	}

	return &Reader{path: path, root: root}, nil
}

// IsOpened reports whether the reader holds a parsed document.
func (r *Reader) IsOpened() bool { return r != nil && r.root != nil }

// Path returns the file the document was read from.
func (r *Reader) Path() string { return r.path }

// Root returns the top-level mapping.
func (r *Reader) Root() Node {
	if !r.IsOpened() {
		return Node{}
	}
	return Node{n: r.root}
}

// Get looks up a top-level entry.
func (r *Reader) Get(key string) Node {
	return r.Root().Get(key)
}

// Release drops the parsed document.
func (r *Reader) Release() {
	r.root = nil
}
