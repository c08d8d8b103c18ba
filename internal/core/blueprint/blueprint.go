// Package blueprint defines the in-memory form of serialized entity
// descriptions: ordered component definitions plus an ordered child
// hierarchy. The construction engine walks these trees; individual
// subsystems decode the opaque per-component payloads.
package blueprint

import "github.com/cespare/xxhash/v2"

// DefType is the hash of a component-definition type name. It is produced
// at authoring time and stays stable for as long as the name string is
// unchanged.
type DefType uint64

// HashName returns the DefType for a component-definition type name.
func HashName(name string) DefType {
	return DefType(xxhash.Sum64String(name))
}

// Def is a single component definition: a hashed type plus an opaque
// payload that only the owning subsystem knows how to decode. Name carries
// the original type string for diagnostics and may be empty for binary
// blueprints.
type Def struct {
	Type DefType
	Name string
	Data []byte
}

// Blueprint is the ordered component set of one entity.
type Blueprint struct {
	Defs []Def
}

// ForEach invokes fn for every component definition in authoring order.
func (b *Blueprint) ForEach(fn func(*Def)) {
	for i := range b.Defs {
		fn(&b.Defs[i])
	}
}

// Tree is a Blueprint plus an ordered sequence of child trees, describing
// a parent/child entity group that is instantiated together. A Tree is
// owned by the construction call that consumes it and is not retained
// afterward.
type Tree struct {
	Blueprint
	Children []*Tree
}

// DecodeFunc converts raw blueprint bytes into a Tree.
type DecodeFunc func(data []byte) (*Tree, error)

// FinalizeFunc serializes a mutated in-memory blueprint back to bytes.
type FinalizeFunc func(b *Blueprint) ([]byte, error)
