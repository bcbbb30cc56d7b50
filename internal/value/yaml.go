package value

import (
	"bytes"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

const maxYAMLDepth = 1000

// ParseYAML decodes the first YAML document in data, keeping mapping keys in
// source order. An empty document is Null.
func ParseYAML(data []byte) (Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	if doc.Kind == 0 {
		return Null(), nil
	}
	return fromNode(&doc, 0)
}

func fromNode(n *yaml.Node, depth int) (Value, error) {
	if depth > maxYAMLDepth {
		return Value{}, fmt.Errorf("%w: nesting deeper than %d (recursive alias?)", ErrSyntax, maxYAMLDepth)
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null(), nil
		}
		return fromNode(n.Content[0], depth+1)
	case yaml.AliasNode:
		return fromNode(n.Alias, depth+1)
	case yaml.SequenceNode:
		items := make([]Value, 0, len(n.Content))
		for _, c := range n.Content {
			item, err := fromNode(c, depth+1)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Array(items...), nil
	case yaml.MappingNode:
		obj := Object()
		for i := 0; i+1 < len(n.Content); i += 2 {
			item, err := fromNode(n.Content[i+1], depth+1)
			if err != nil {
				return Value{}, err
			}
			obj.Set(n.Content[i].Value, item)
		}
		return obj, nil
	case yaml.ScalarNode:
		return fromScalar(n), nil
	}
	return Null(), nil
}

func fromScalar(n *yaml.Node) Value {
	switch n.ShortTag() {
	case "!!null":
		return Null()
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err == nil {
			return Bool(b)
		}
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return Int(i)
		}
		var f float64
		if err := n.Decode(&f); err == nil {
			return Float(f)
		}
	case "!!float":
		var f float64
		if err := n.Decode(&f); err == nil {
			return Float(f)
		}
	}
	return Str(n.Value)
}

// MarshalYAML encodes v as a single YAML document. Strings that would read
// back as another type are quoted.
func MarshalYAML(v Value, indent int) ([]byte, error) {
	node, err := toNode(v)
	if err != nil {
		return nil, err
	}
	if indent <= 0 {
		indent = 2
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(indent)
	if err := enc.Encode(node); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toNode(v Value) (*yaml.Node, error) {
	switch v.kind {
	case KindNull:
		return scalarNode("!!null", "null"), nil
	case KindBool:
		return scalarNode("!!bool", strconv.FormatBool(v.b)), nil
	case KindInt:
		return scalarNode("!!int", strconv.FormatInt(v.i, 10)), nil
	case KindFloat:
		s, err := formatFloat(v.f)
		if err != nil {
			return nil, err
		}
		return scalarNode("!!float", s), nil
	case KindString:
		return scalarNode("!!str", v.s), nil
	case KindArray:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.items {
			c, err := toNode(item)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, c)
		}
		return seq, nil
	case KindObject:
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, f := range v.fields {
			c, err := toNode(f.Value)
			if err != nil {
				return nil, err
			}
			m.Content = append(m.Content, scalarNode("!!str", f.Key), c)
		}
		return m, nil
	}
	return nil, fmt.Errorf("unknown value kind %d", v.kind)
}

func scalarNode(tag, text string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: text}
}
