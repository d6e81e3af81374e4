// Package storage reads and writes structured text documents of named
// scalars, sequences, mappings and matrices.
//
// Documents are written as YAML (with a "%YAML:1.0" directive line) or as
// XML rooted at <opencv_storage>, chosen by file extension; a trailing
// ".gz" adds gzip compression. Matrices use the opencv-matrix layout
// (rows, cols, dt, data) in both grammars.
//
// A Writer collects entries in memory and writes the whole document on
// Release. A Reader parses a document into a tree of Node values; lookups
// that miss return an absent Node rather than an error, so callers decide
// whether a missing entry is fatal or means "use the default".
package storage
