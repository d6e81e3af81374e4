package storage

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// yamlHeader is the directive line written at the top of every YAML
// document. yaml.v3 rejects the colon form, so decodeYAML strips it.
const yamlHeader = "%YAML:1.0\n---\n"

func encodeYAML(root *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(yamlHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(3)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}

	return buf.Bytes(), nil
}

func decodeYAML(data []byte) (*yaml.Node, error) {
	if bytes.HasPrefix(data, []byte("%YAML:")) {
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			data = data[i+1:]
		} else {
			data = nil
		}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	if doc.Kind == 0 {
		return emptyMap(), nil
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, errors.New("expected a single yaml document")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level is a %s, not a mapping", Node{n: root}.Type())
	}

	return root, nil
}

func emptyMap() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}
