package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

const filePerms = 0o644

// Marshaler is implemented by types that know how to write themselves
// under a key.
type Marshaler interface {
	MarshalStorage(w *Writer, key string) error
}

// Writer builds a storage document in memory and writes it to disk on
// Release. Entries keep their insertion order.
type Writer struct {
	path       string
	format     Format
	compressed bool
	stack      []*yaml.Node
	released   bool
}

// Create opens path for writing. The format comes from the extension and
// the parent directory must already exist.
func Create(path string) (*Writer, error) {
	format, compressed, err := DetectFormat(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrOpen, path, err)
	}

	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrOpen, path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w %s: %s is not a directory", ErrOpen, path, dir)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, fmt.Errorf("%w %s: is a directory", ErrOpen, path)
	}

	return &Writer{
		path:       path,
		format:     format,
		compressed: compressed,
		stack:      []*yaml.Node{emptyMap()},
	}, nil
}

// Path returns the destination file.
func (w *Writer) Path() string { return w.path }

// Format returns the grammar the document will be written in.
func (w *Writer) Format() Format { return w.format }

func (w *Writer) top() *yaml.Node { return w.stack[len(w.stack)-1] }

func (w *Writer) add(key string, n *yaml.Node) error {
	if w.released {
		return ErrReleased
	}

	top := w.top()
	if top.Kind == yaml.SequenceNode {
		if key != "" {
			return fmt.Errorf("%w %q: sequence items are unnamed", ErrKey, key)
		}
		top.Content = append(top.Content, n)
		return nil
	}

	if !validKey(key) {
		return fmt.Errorf("%w %q", ErrKey, key)
	}
	if !(Node{n: top}).Get(key).Empty() {
		return fmt.Errorf("%w %q: duplicate key", ErrKey, key)
	}
	top.Content = append(top.Content, strNode(key), n)
	return nil
}

// validKey accepts names usable both as YAML keys and XML element names.
func validKey(key string) bool {
	if key == "" || key == xmlItem {
		return false
	}
	for i, r := range key {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r == '-' || r >= '0' && r <= '9'):
		default:
			return false
		}
	}
	return true
}

// WriteInt stores an integer.
func (w *Writer) WriteInt(key string, v int) error {
	return w.add(key, intNode(int64(v)))
}

// WriteReal stores a floating point value.
func (w *Writer) WriteReal(key string, v float64) error {
	return w.add(key, realNode(v))
}

// WriteString stores text.
func (w *Writer) WriteString(key string, s string) error {
	return w.add(key, strNode(s))
}

// WriteStrings stores a sequence of strings.
func (w *Writer) WriteStrings(key string, items []string) error {
	if err := w.BeginSeq(key); err != nil {
		return err
	}
	for _, s := range items {
		if err := w.WriteString("", s); err != nil {
			return err
		}
	}
	return w.EndSeq()
}

// WriteMat stores a matrix as an opencv-matrix mapping.
func (w *Writer) WriteMat(key string, m Mat) error {
	if m.Empty() {
		return fmt.Errorf("matrix %q is empty", key)
	}
	return w.add(key, m.node())
}

// Write stores a custom value.
func (w *Writer) Write(key string, v Marshaler) error {
	if w.released {
		return ErrReleased
	}
	return v.MarshalStorage(w, key)
}

// BeginSeq opens a sequence; subsequent writes use an empty key until
// EndSeq.
func (w *Writer) BeginSeq(key string) error {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	if err := w.add(key, seq); err != nil {
		return err
	}
	w.stack = append(w.stack, seq)
	return nil
}

// EndSeq closes the innermost open sequence.
func (w *Writer) EndSeq() error {
	return w.end(yaml.SequenceNode)
}

// BeginMap opens a nested mapping.
func (w *Writer) BeginMap(key string) error {
	m := emptyMap()
	if err := w.add(key, m); err != nil {
		return err
	}
	w.stack = append(w.stack, m)
	return nil
}

// EndMap closes the innermost open mapping.
func (w *Writer) EndMap() error {
	return w.end(yaml.MappingNode)
}

func (w *Writer) end(kind yaml.Kind) error {
	if w.released {
		return ErrReleased
	}
	if len(w.stack) < 2 || w.top().Kind != kind {
		return ErrUnbalanced
	}
	w.stack = w.stack[:len(w.stack)-1]
	return nil
}

// Release encodes the document and atomically replaces the file. The
// writer cannot be used afterwards.
func (w *Writer) Release() error {
	if w.released {
		return ErrReleased
	}
	if len(w.stack) != 1 {
		return fmt.Errorf("%w: %d unclosed", ErrUnbalanced, len(w.stack)-1)
	}
	w.released = true

	var (
		data []byte
		err  error
	)
	switch w.format {
	case FormatXML:
		data, err = encodeXML(w.stack[0])
	default:
		data, err = encodeYAML(w.stack[0])
	}
	if err != nil {
		return err
	}

	if w.compressed {
		if data, err = compress(data); err != nil {
			return err
		}
	}

	if err := atomic.WriteFile(w.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w %s: %w", ErrOpen, w.path, err)
	}
	if err := os.Chmod(w.path, filePerms); err != nil {
		return fmt.Errorf("failed to set file permissions: %w", err)
	}

	return nil
}
