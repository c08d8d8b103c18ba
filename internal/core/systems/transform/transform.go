// Package transform manages spatial components: position, scale, and an
// axis-aligned bounding box aggregated from children. It exists to
// exercise the construction contract end to end; the factory itself has no
// knowledge of it.
package transform

import (
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/entityforge/entityforge/internal/core/blueprint"
	"github.com/entityforge/entityforge/internal/core/entity"
	"github.com/entityforge/entityforge/internal/core/observability/log"
)

var (
	SystemType = entity.HashSystemName("transform")
	DefType    = blueprint.HashName("transform")
)

type Vec3 [3]float64

// Box is an axis-aligned bounding box.
type Box struct {
	Min Vec3
	Max Vec3
}

func (b Box) union(other Box) Box {
	out := b
	for i := 0; i < 3; i++ {
		if other.Min[i] < out.Min[i] {
			out.Min[i] = other.Min[i]
		}
		if other.Max[i] > out.Max[i] {
			out.Max[i] = other.Max[i]
		}
	}
	return out
}

// Transform is the spatial component of one entity.
type Transform struct {
	Position Vec3
	Scale    Vec3
	Bounds   Box
}

type defDoc struct {
	Position []float64 `yaml:"position" json:"position"`
	Scale    []float64 `yaml:"scale" json:"scale"`
}

// System owns every Transform and the parent/child links created during
// blueprint construction.
type System struct {
	log        log.Log
	components map[entity.Entity]*Transform
	children   map[entity.Entity][]entity.Entity
	parents    map[entity.Entity]entity.Entity
}

func New(logger log.Log) *System {
	return &System{
		log:        logger,
		components: make(map[entity.Entity]*Transform),
		children:   make(map[entity.Entity][]entity.Entity),
		parents:    make(map[entity.Entity]entity.Entity),
	}
}

// Register wires the system into the factory and installs a child
// delegate that records parent links as the tree is walked.
func (s *System) Register(f *entity.Factory) {
	f.AddSystem(SystemType, s)
	f.RegisterDef(SystemType, DefType)
	f.SetCreateChild(func(parent entity.Entity, child *blueprint.Tree) {
		s.SetParent(f.CreateFromTree(child), parent)
	})
}

func (s *System) Initialize() {}

func (s *System) CreateComponent(e entity.Entity, def *blueprint.Def) {
	tf := &Transform{Scale: Vec3{1, 1, 1}}
	if len(def.Data) > 0 {
		var doc defDoc
		if err := yaml.Unmarshal(def.Data, &doc); err != nil {
			s.log.Error("bad transform def",
				zap.Uint64("entity", uint64(e)), zap.Error(err))
		} else {
			copyVec(&tf.Position, doc.Position)
			copyVec(&tf.Scale, doc.Scale)
		}
	}
	s.components[e] = tf
}

// PostCreateComponent computes the entity's bounds. Children are fully
// constructed by the time this runs, so their bounds are final.
func (s *System) PostCreateComponent(e entity.Entity, _ *blueprint.Def) {
	tf, ok := s.components[e]
	if !ok {
		return
	}
	bounds := localBounds(tf)
	for _, child := range s.children[e] {
		if childTf, ok := s.components[child]; ok {
			bounds = bounds.union(childTf.Bounds)
		}
	}
	tf.Bounds = bounds
}

func (s *System) Destroy(e entity.Entity) {
	delete(s.components, e)
	if parent, ok := s.parents[e]; ok {
		siblings := s.children[parent]
		for i, c := range siblings {
			if c == e {
				s.children[parent] = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
		delete(s.parents, e)
	}
	delete(s.children, e)
}

// SetParent links child under parent. Called by the factory's child
// delegate during construction.
func (s *System) SetParent(child, parent entity.Entity) {
	if child.IsNull() || parent.IsNull() {
		return
	}
	s.children[parent] = append(s.children[parent], child)
	s.parents[child] = parent
}

// Get returns the entity's transform, if it has one.
func (s *System) Get(e entity.Entity) (*Transform, bool) {
	tf, ok := s.components[e]
	return tf, ok
}

// Children returns the entities parented under e during construction.
func (s *System) Children(e entity.Entity) []entity.Entity {
	return s.children[e]
}

func localBounds(tf *Transform) Box {
	var box Box
	for i := 0; i < 3; i++ {
		half := tf.Scale[i] / 2
		box.Min[i] = tf.Position[i] - half
		box.Max[i] = tf.Position[i] + half
	}
	return box
}

func copyVec(dst *Vec3, src []float64) {
	for i := 0; i < len(src) && i < 3; i++ {
		dst[i] = src[i]
	}
}
