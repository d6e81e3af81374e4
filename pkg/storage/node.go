package storage

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Type is the structural kind of a Node.
type Type int

const (
	None Type = iota
	Int
	Real
	String
	Seq
	Map
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case Int:
		return "int"
	case Real:
		return "real"
	case String:
		return "string"
	case Seq:
		return "sequence"
	case Map:
		return "mapping"
	default:
		return "type(" + strconv.Itoa(int(t)) + ")"
	}
}

const (
	tagInt   = "!!int"
	tagFloat = "!!float"
	tagStr   = "!!str"
	tagNull  = "!!null"
	tagMat   = "!!opencv-matrix"
)

// Unmarshaler is implemented by types that rebuild themselves from a node.
type Unmarshaler interface {
	UnmarshalStorage(n Node) error
}

// Node is a read-only view of one entry in a storage document. The zero
// Node (or any lookup that misses) has Type None.
type Node struct {
	name string
	n    *yaml.Node
}

// Name is the key (or indexed path) the node was looked up by.
func (n Node) Name() string { return n.name }

func (n Node) raw() *yaml.Node {
	y := n.n
	for y != nil && y.Kind == yaml.AliasNode {
		y = y.Alias
	}
	return y
}

// Type reports the node's kind.
func (n Node) Type() Type {
	y := n.raw()
	if y == nil {
		return None
	}

	switch y.Kind {
	case yaml.SequenceNode:
		return Seq
	case yaml.MappingNode:
		return Map
	case yaml.ScalarNode:
		switch y.ShortTag() {
		case tagInt:
			return Int
		case tagFloat:
			return Real
		case tagNull:
			return None
		default:
			return String
		}
	default:
		return None
	}
}

// Empty reports whether the node is absent.
func (n Node) Empty() bool { return n.Type() == None }

// IsMat reports whether the node holds a matrix.
func (n Node) IsMat() bool {
	y := n.raw()
	if y == nil || y.Kind != yaml.MappingNode {
		return false
	}
	return strings.HasSuffix(y.Tag, "opencv-matrix")
}

// Int converts the node to an integer. Reals are rounded half to even,
// everything else reads as 0.
func (n Node) Int() int {
	switch n.Type() {
	case Int:
		var v int
		if err := n.raw().Decode(&v); err == nil {
			return v
		}
	case Real:
		return int(math.RoundToEven(n.Real()))
	}
	return 0
}

// Real converts the node to a float. Non-numeric nodes read as 0.
func (n Node) Real() float64 {
	switch n.Type() {
	case Int:
		return float64(n.Int())
	case Real:
		var v float64
		if err := n.raw().Decode(&v); err == nil {
			return v
		}
	}
	return 0
}

// String returns the text of a string node, or "" for any other kind.
func (n Node) String() string {
	if n.Type() != String {
		return ""
	}
	return n.raw().Value
}

// Get looks up key in a mapping node. Missing keys and non-mapping nodes
// yield an absent node.
func (n Node) Get(key string) Node {
	child := Node{name: n.childName(key)}

	y := n.raw()
	if y == nil || y.Kind != yaml.MappingNode {
		return child
	}

	for i := 0; i+1 < len(y.Content); i += 2 {
		if y.Content[i].Value == key {
			child.n = y.Content[i+1]
			return child
		}
	}

	return child
}

func (n Node) childName(key string) string {
	if n.name == "" {
		return key
	}
	return n.name + "." + key
}

// Keys lists mapping keys in document order.
func (n Node) Keys() []string {
	y := n.raw()
	if y == nil || y.Kind != yaml.MappingNode {
		return nil
	}

	keys := make([]string, 0, len(y.Content)/2)
	for i := 0; i+1 < len(y.Content); i += 2 {
		keys = append(keys, y.Content[i].Value)
	}
	return keys
}

// Len is the element count of a sequence or the key count of a mapping.
func (n Node) Len() int {
	y := n.raw()
	if y == nil {
		return 0
	}

	switch y.Kind {
	case yaml.SequenceNode:
		return len(y.Content)
	case yaml.MappingNode:
		return len(y.Content) / 2
	default:
		return 0
	}
}

// Elements returns the items of a sequence node in insertion order. Any
// other kind, including an absent node, is a *ShapeError.
func (n Node) Elements() ([]Node, error) {
	if t := n.Type(); t != Seq {
		return nil, &ShapeError{Key: n.name, Want: Seq, Got: t}
	}

	y := n.raw()
	items := make([]Node, 0, len(y.Content))
	for i, c := range y.Content {
		items = append(items, Node{name: fmt.Sprintf("%s[%d]", n.name, i), n: c})
	}
	return items, nil
}

// Decode hands the node to a custom reader.
func (n Node) Decode(u Unmarshaler) error {
	return u.UnmarshalStorage(n)
}

func intNode(v int64) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagInt, Value: strconv.FormatInt(v, 10)}
}

func realNode(v float64) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagFloat, Value: formatReal(v)}
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagStr, Value: s}
}

// formatReal renders v so that it parses back as the same float and is
// never mistaken for an integer.
func formatReal(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return ".Inf"
	case math.IsInf(v, -1):
		return "-.Inf"
	case math.IsNaN(v):
		return ".NaN"
	}

	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// parseReal accepts everything formatReal produces plus plain numbers.
func parseReal(s string) (float64, bool) {
	switch strings.ToLower(s) {
	case ".inf", "+.inf":
		return math.Inf(1), true
	case "-.inf":
		return math.Inf(-1), true
	case ".nan":
		return math.NaN(), true
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
