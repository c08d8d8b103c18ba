package blueprint

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// nodeDoc mirrors the structured-text blueprint format. YAML is a superset
// of JSON, so one decoder covers both .yaml and .json assets.
type nodeDoc struct {
	Components []componentDoc `yaml:"components" json:"components"`
	Children   []nodeDoc      `yaml:"children,omitempty" json:"children,omitempty"`
}

type componentDoc struct {
	Type string    `yaml:"type" json:"type"`
	Data yaml.Node `yaml:"data,omitempty" json:"data,omitempty"`
}

// DecodeYAML parses a structured-text blueprint into a Tree. Component
// type names are hashed into DefTypes; each component's payload is kept as
// re-marshaled bytes so that subsystems can decode it into their own
// schema.
func DecodeYAML(data []byte) (*Tree, error) {
	var doc nodeDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode blueprint: %w", err)
	}
	return buildTree(&doc)
}

func buildTree(doc *nodeDoc) (*Tree, error) {
	tree := &Tree{}
	for i := range doc.Components {
		c := &doc.Components[i]
		if c.Type == "" {
			return nil, fmt.Errorf("decode blueprint: component %d has no type", i)
		}
		def := Def{
			Type: HashName(c.Type),
			Name: c.Type,
		}
		if c.Data.Kind != 0 {
			payload, err := yaml.Marshal(&c.Data)
			if err != nil {
				return nil, fmt.Errorf("decode blueprint: component %q payload: %w", c.Type, err)
			}
			def.Data = payload
		}
		tree.Defs = append(tree.Defs, def)
	}
	for i := range doc.Children {
		child, err := buildTree(&doc.Children[i])
		if err != nil {
			return nil, err
		}
		tree.Children = append(tree.Children, child)
	}
	return tree, nil
}
