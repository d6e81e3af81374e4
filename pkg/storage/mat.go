package storage

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// Depth is the element type code of a matrix, using the single-letter
// codes of the opencv-matrix "dt" field.
type Depth byte

const (
	U8  Depth = 'u'
	S8  Depth = 'c'
	U16 Depth = 'w'
	S16 Depth = 's'
	S32 Depth = 'i'
	F32 Depth = 'f'
	F64 Depth = 'd'
)

// Valid reports whether d is a known depth code.
func (d Depth) Valid() bool {
	switch d {
	case U8, S8, U16, S16, S32, F32, F64:
		return true
	}
	return false
}

func (d Depth) integral() bool {
	return d.Valid() && d != F32 && d != F64
}

// saturate clamps and rounds v into the range of d.
func (d Depth) saturate(v float64) float64 {
	lo, hi := math.Inf(-1), math.Inf(1)
	switch d {
	case U8:
		lo, hi = 0, math.MaxUint8
	case S8:
		lo, hi = math.MinInt8, math.MaxInt8
	case U16:
		lo, hi = 0, math.MaxUint16
	case S16:
		lo, hi = math.MinInt16, math.MaxInt16
	case S32:
		lo, hi = math.MinInt32, math.MaxInt32
	case F32:
		return float64(float32(v))
	case F64:
		return v
	}
	return math.Max(lo, math.Min(hi, math.RoundToEven(v)))
}

// Mat is a single-channel 2-D numeric grid with a fixed element depth.
// Values are held as float64 in a gonum matrix and saturated to the depth
// on construction. The zero Mat is empty.
type Mat struct {
	Depth Depth
	Dense *mat.Dense
}

// NewMat builds a rows x cols matrix from row-major data.
func NewMat(d Depth, rows, cols int, data []float64) (Mat, error) {
	if !d.Valid() {
		return Mat{}, fmt.Errorf("unknown matrix depth %q", string(d))
	}
	if rows <= 0 || cols <= 0 {
		return Mat{}, fmt.Errorf("matrix dimensions %dx%d must be positive", rows, cols)
	}
	if len(data) != rows*cols {
		return Mat{}, fmt.Errorf("matrix %dx%d needs %d elements, got %d", rows, cols, rows*cols, len(data))
	}

	vals := make([]float64, len(data))
	for i, v := range data {
		vals[i] = d.saturate(v)
	}

	return Mat{Depth: d, Dense: mat.NewDense(rows, cols, vals)}, nil
}

// Eye returns the n x n identity matrix.
func Eye(d Depth, n int) Mat {
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		data[i*n+i] = 1
	}
	m, err := NewMat(d, n, n, data)
	if err != nil {
		panic(err)
	}
	return m
}

// Zeros returns a rows x cols matrix of zeros.
func Zeros(d Depth, rows, cols int) Mat {
	m, err := NewMat(d, rows, cols, make([]float64, rows*cols))
	if err != nil {
		panic(err)
	}
	return m
}

// Empty reports whether the matrix has no storage.
func (m Mat) Empty() bool { return m.Dense == nil }

// Dims returns rows and cols; 0, 0 for an empty matrix.
func (m Mat) Dims() (int, int) {
	if m.Empty() {
		return 0, 0
	}
	return m.Dense.Dims()
}

// At returns the element at row i, column j.
func (m Mat) At(i, j int) float64 { return m.Dense.At(i, j) }

// Equal reports whether both matrices have the same depth, shape and
// contents.
func (m Mat) Equal(o Mat) bool {
	if m.Empty() || o.Empty() {
		return m.Empty() == o.Empty()
	}
	return m.Depth == o.Depth && mat.Equal(m.Dense, o.Dense)
}

// String prints the matrix one row per line, comma separated, rows
// terminated by ';'.
func (m Mat) String() string {
	if m.Empty() {
		return "[]"
	}

	rows, cols := m.Dims()
	var b strings.Builder
	b.WriteString("[")
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteString(";\n ")
		}
		for j := 0; j < cols; j++ {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(m.formatElem(m.At(i, j)))
		}
	}
	b.WriteString("]")
	return b.String()
}

func (m Mat) formatElem(v float64) string {
	if m.Depth.integral() {
		return fmt.Sprintf("%3d", int64(v))
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (m Mat) elemNode(v float64) *yaml.Node {
	if m.Depth.integral() {
		return intNode(int64(v))
	}
	return realNode(v)
}

func (m Mat) node() *yaml.Node {
	rows, cols := m.Dims()

	data := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			data.Content = append(data.Content, m.elemNode(m.At(i, j)))
		}
	}

	return &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  tagMat,
		Content: []*yaml.Node{
			strNode("rows"), intNode(int64(rows)),
			strNode("cols"), intNode(int64(cols)),
			strNode("dt"), strNode(string(m.Depth)),
			strNode("data"), data,
		},
	}
}

// Mat rebuilds a matrix from an opencv-matrix node. An absent node yields
// an empty matrix.
func (n Node) Mat() (Mat, error) {
	switch t := n.Type(); {
	case t == None:
		return Mat{}, nil
	case t != Map || !n.IsMat():
		return Mat{}, &ShapeError{Key: n.name, Want: Map, Got: t}
	}

	rows, cols := n.Get("rows").Int(), n.Get("cols").Int()
	dt := n.Get("dt").String()
	if len(dt) != 1 {
		return Mat{}, fmt.Errorf("%w: matrix %q has depth %q", ErrFormat, n.name, dt)
	}

	items, err := n.Get("data").Elements()
	if err != nil {
		return Mat{}, fmt.Errorf("%w: matrix %q data: %w", ErrFormat, n.name, err)
	}

	data := make([]float64, len(items))
	for i, it := range items {
		switch it.Type() {
		case Int, Real:
			data[i] = it.Real()
		default:
			return Mat{}, fmt.Errorf("%w: matrix %q element %d is %s", ErrFormat, n.name, i, it.Type())
		}
	}

	m, err := NewMat(Depth(dt[0]), rows, cols, data)
	if err != nil {
		return Mat{}, fmt.Errorf("%w: matrix %q: %w", ErrFormat, n.name, err)
	}
	return m, nil
}
