// Package tag attaches human-readable names to entities and supports
// reverse lookup by name.
package tag

import (
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/entityforge/entityforge/internal/core/blueprint"
	"github.com/entityforge/entityforge/internal/core/entity"
	"github.com/entityforge/entityforge/internal/core/observability/log"
)

var (
	SystemType = entity.HashSystemName("tag")
	DefType    = blueprint.HashName("tag")
)

type defDoc struct {
	Name string `yaml:"name" json:"name"`
}

type System struct {
	log      log.Log
	names    map[entity.Entity]string
	entities map[string]entity.Entity
}

func New(logger log.Log) *System {
	return &System{
		log:      logger,
		names:    make(map[entity.Entity]string),
		entities: make(map[string]entity.Entity),
	}
}

func (s *System) Register(f *entity.Factory) {
	f.AddSystem(SystemType, s)
	f.RegisterDef(SystemType, DefType)
}

func (s *System) Initialize() {}

func (s *System) CreateComponent(e entity.Entity, def *blueprint.Def) {
	var doc defDoc
	if err := yaml.Unmarshal(def.Data, &doc); err != nil {
		s.log.Error("bad tag def", zap.Uint64("entity", uint64(e)), zap.Error(err))
		return
	}
	if doc.Name == "" {
		return
	}
	s.names[e] = doc.Name
	s.entities[doc.Name] = e
}

func (s *System) PostCreateComponent(entity.Entity, *blueprint.Def) {}

func (s *System) Destroy(e entity.Entity) {
	if name, ok := s.names[e]; ok {
		delete(s.names, e)
		if s.entities[name] == e {
			delete(s.entities, name)
		}
	}
}

// Name returns the tag assigned to e, if any.
func (s *System) Name(e entity.Entity) (string, bool) {
	name, ok := s.names[e]
	return name, ok
}

// Find returns the entity carrying the given tag.
func (s *System) Find(name string) (entity.Entity, bool) {
	e, ok := s.entities[name]
	return e, ok
}
