package storage

import (
	"errors"
	"fmt"
)

var (
	ErrOpen          = errors.New("cannot open storage")
	ErrFormat        = errors.New("malformed storage document")
	ErrShapeMismatch = errors.New("node shape mismatch")
	ErrKey           = errors.New("invalid key")
	ErrUnbalanced    = errors.New("unbalanced sequence or mapping")
	ErrReleased      = errors.New("storage already released")
)

// ShapeError reports a node whose structural kind differs from what the
// caller asked for. It matches ErrShapeMismatch with errors.Is.
type ShapeError struct {
	Key  string
	Want Type
	Got  Type
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("node %q: expected %s, found %s", e.Key, e.Want, e.Got)
}

func (e *ShapeError) Is(target error) bool {
	return target == ErrShapeMismatch
}
