// Package record holds the small user-defined value the filestorage demo
// serializes alongside the built-in types.
package record

import (
	"fmt"
	"math"
	"strconv"

	"studyguide.cvdemos/pkg/storage"
)

// Record is a plain value with one field of each scalar kind.
type Record struct {
	A  int
	X  float64
	ID string
}

// Sample returns the fixed record the demo writes.
func Sample() Record {
	return Record{A: 97, X: math.Pi, ID: "mydata1234"}
}

// MarshalStorage writes r as a mapping {A, X, id} under key.
func (r Record) MarshalStorage(w *storage.Writer, key string) error {
	if err := w.BeginMap(key); err != nil {
		return err
	}
	if err := w.WriteInt("A", r.A); err != nil {
		return err
	}
	if err := w.WriteReal("X", r.X); err != nil {
		return err
	}
	if err := w.WriteString("id", r.ID); err != nil {
		return err
	}
	return w.EndMap()
}

// UnmarshalStorage replaces r with the record stored in n. An absent node
// resets r to the zero Record.
func (r *Record) UnmarshalStorage(n storage.Node) error {
	got, err := Read(n, Record{})
	if err != nil {
		return err
	}
	*r = got
	return nil
}

// Read rebuilds a Record from n. An absent node yields def; a node that
// is present but not a mapping is a *storage.ShapeError.
func Read(n storage.Node, def Record) (Record, error) {
	switch t := n.Type(); t {
	case storage.None:
		return def, nil
	case storage.Map:
		return Record{
			A:  n.Get("A").Int(),
			X:  n.Get("X").Real(),
			ID: n.Get("id").String(),
		}, nil
	default:
		return Record{}, &storage.ShapeError{Key: n.Name(), Want: storage.Map, Got: t}
	}
}

// String formats the record as "{ id = ..., X = ..., A = ...}".
func (r Record) String() string {
	return fmt.Sprintf("{ id = %s, X = %s, A = %d}", r.ID, strconv.FormatFloat(r.X, 'g', 6, 64), r.A)
}
