package storage

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	xmlRoot     = "opencv_storage"
	xmlItem     = "_"
	xmlTypeAttr = "type_id"
	xmlMatType  = "opencv-matrix"
	xmlSeqType  = "seq"
	xmlMapType  = "map"
	xmlDeclLine = `<?xml version="1.0"?>` + "\n"
)

func encodeXML(root *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xmlDeclLine)

	enc := &xmlWriter{Encoder: xml.NewEncoder(&buf), w: &buf}
	enc.Indent("", "  ")

	start := xml.StartElement{Name: xml.Name{Local: xmlRoot}}
	if err := enc.EncodeToken(start); err != nil {
		return nil, err
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if err := writeXMLNode(enc, root.Content[i].Value, root.Content[i+1]); err != nil {
			return nil, err
		}
	}
	if err := enc.EncodeToken(start.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}

	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func typeAttr(v string) []xml.Attr {
	return []xml.Attr{{Name: xml.Name{Local: xmlTypeAttr}, Value: v}}
}

// xmlWriter keeps the encoder's output stream so scalar text can be written
// with the minimal escaping the storage format uses: quotes stay literal.
type xmlWriter struct {
	*xml.Encoder
	w io.Writer
}

var xmlTextEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func (x *xmlWriter) text(s string) error {
	if err := x.Flush(); err != nil {
		return err
	}
	_, err := xmlTextEscaper.WriteString(x.w, s)
	return err
}

func writeXMLNode(enc *xmlWriter, name string, y *yaml.Node) error {
	start := xml.StartElement{Name: xml.Name{Local: name}}

	switch y.Kind {
	case yaml.AliasNode:
		return writeXMLNode(enc, name, y.Alias)

	case yaml.MappingNode:
		if strings.HasSuffix(y.Tag, xmlMatType) {
			return writeXMLMat(enc, start, y)
		}
		if len(y.Content) == 0 {
			start.Attr = typeAttr(xmlMapType)
		}
		if err := enc.EncodeToken(start); err != nil {
			return err
		}
		for i := 0; i+1 < len(y.Content); i += 2 {
			if err := writeXMLNode(enc, y.Content[i].Value, y.Content[i+1]); err != nil {
				return err
			}
		}
		return enc.EncodeToken(start.End())

	case yaml.SequenceNode:
		if len(y.Content) == 0 {
			start.Attr = typeAttr(xmlSeqType)
		}
		if err := enc.EncodeToken(start); err != nil {
			return err
		}
		for _, c := range y.Content {
			if err := writeXMLNode(enc, xmlItem, c); err != nil {
				return err
			}
		}
		return enc.EncodeToken(start.End())

	case yaml.ScalarNode:
		if err := enc.EncodeToken(start); err != nil {
			return err
		}
		if text := xmlScalarText(y); text != "" {
			if err := enc.text(text); err != nil {
				return err
			}
		}
		return enc.EncodeToken(start.End())

	default:
		return fmt.Errorf("cannot write yaml node kind %d as xml", y.Kind)
	}
}

func writeXMLMat(enc *xmlWriter, start xml.StartElement, y *yaml.Node) error {
	start.Attr = typeAttr(xmlMatType)
	if err := enc.EncodeToken(start); err != nil {
		return err
	}

	n := Node{n: y}
	for _, key := range []string{"rows", "cols", "dt"} {
		if err := writeXMLNode(enc, key, n.Get(key).raw()); err != nil {
			return err
		}
	}

	data := n.Get("data").raw()
	values := make([]string, 0, len(data.Content))
	for _, c := range data.Content {
		values = append(values, c.Value)
	}

	dataStart := xml.StartElement{Name: xml.Name{Local: "data"}}
	if err := enc.EncodeToken(dataStart); err != nil {
		return err
	}
	if err := enc.text(strings.Join(values, " ")); err != nil {
		return err
	}
	if err := enc.EncodeToken(dataStart.End()); err != nil {
		return err
	}

	return enc.EncodeToken(start.End())
}

func xmlScalarText(y *yaml.Node) string {
	switch y.ShortTag() {
	case tagInt, tagFloat:
		return y.Value
	case tagNull:
		return ""
	}

	s := y.Value
	if xmlNeedsQuote(s) {
		return `"` + s + `"`
	}
	return s
}

// xmlNeedsQuote reports whether s would read back as something other than
// the same string when written bare.
func xmlNeedsQuote(s string) bool {
	if s == "" || s != strings.TrimSpace(s) || strings.HasPrefix(s, `"`) {
		return true
	}
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return true
	}
	_, isReal := parseReal(s)
	return isReal
}

type xmlElem struct {
	name     string
	typeID   string
	text     strings.Builder
	children []*xmlElem
}

func decodeXML(data []byte) (*yaml.Node, error) {
	root, err := parseXMLTree(data)
	if err != nil {
		return nil, err
	}
	if root.name != xmlRoot {
		return nil, fmt.Errorf("root element is <%s>, want <%s>", root.name, xmlRoot)
	}

	m := emptyMap()
	for _, c := range root.children {
		child, err := c.node()
		if err != nil {
			return nil, err
		}
		m.Content = append(m.Content, strNode(c.name), child)
	}
	return m, nil
}

func parseXMLTree(data []byte) (*xmlElem, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var (
		root  *xmlElem
		stack []*xmlElem
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			e := &xmlElem{name: t.Name.Local}
			for _, a := range t.Attr {
				if a.Name.Local == xmlTypeAttr {
					e.typeID = a.Value
				}
			}

			switch {
			case len(stack) > 0:
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, e)
			case root != nil:
				return nil, errors.New("more than one root element")
			default:
				root = e
			}
			stack = append(stack, e)

		case xml.EndElement:
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}

	if root == nil {
		return nil, errors.New("no root element")
	}
	return root, nil
}

func (e *xmlElem) node() (*yaml.Node, error) {
	switch {
	case e.typeID == xmlMatType:
		return e.matNode()
	case e.typeID == xmlSeqType || (len(e.children) > 0 && e.allItems()):
		return e.seqNode()
	case e.typeID == xmlMapType || len(e.children) > 0:
		return e.mapNode()
	default:
		return xmlScalar(e.text.String()), nil
	}
}

func (e *xmlElem) allItems() bool {
	for _, c := range e.children {
		if c.name != xmlItem {
			return false
		}
	}
	return true
}

func (e *xmlElem) seqNode() (*yaml.Node, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, c := range e.children {
		child, err := c.node()
		if err != nil {
			return nil, err
		}
		seq.Content = append(seq.Content, child)
	}
	return seq, nil
}

func (e *xmlElem) mapNode() (*yaml.Node, error) {
	m := emptyMap()
	for _, c := range e.children {
		if c.name == xmlItem {
			return nil, fmt.Errorf("<%s> mixes sequence items and named children", e.name)
		}
		child, err := c.node()
		if err != nil {
			return nil, err
		}
		m.Content = append(m.Content, strNode(c.name), child)
	}
	return m, nil
}

func (e *xmlElem) matNode() (*yaml.Node, error) {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: tagMat}
	for _, c := range e.children {
		var child *yaml.Node
		if c.name == "data" {
			child = &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
			for _, tok := range strings.Fields(c.text.String()) {
				child.Content = append(child.Content, xmlScalar(tok))
			}
		} else {
			child = xmlScalar(c.text.String())
		}
		m.Content = append(m.Content, strNode(c.name), child)
	}
	return m, nil
}

func xmlScalar(text string) *yaml.Node {
	raw := strings.TrimSpace(text)

	switch {
	case raw == "":
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagNull}
	case len(raw) >= 2 && strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`):
		return strNode(raw[1 : len(raw)-1])
	}

	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return intNode(v)
	}
	if v, ok := parseReal(raw); ok {
		return realNode(v)
	}
	return strNode(raw)
}
