package entity

import (
	"fmt"

	"github.com/entityforge/entityforge/internal/core/blueprint"
)

// registry holds the def-type routing table and the system instances.
// Systems iterate in registration order so that construction, destruction
// and initialization stay deterministic.
type registry struct {
	defTypes map[blueprint.DefType]SystemType
	systems  map[SystemType]System
	order    []SystemType
}

func newRegistry() *registry {
	return &registry{
		defTypes: make(map[blueprint.DefType]SystemType),
		systems:  make(map[SystemType]System),
	}
}

// registerDef routes defType to the system identified by systemType.
// Last registration wins.
func (r *registry) registerDef(systemType SystemType, defType blueprint.DefType) {
	r.defTypes[defType] = systemType
}

// addSystem registers a system instance. Nil systems are ignored; the
// first registration for a SystemType wins.
func (r *registry) addSystem(systemType SystemType, system System) {
	if system == nil {
		return
	}
	if _, ok := r.systems[systemType]; ok {
		return
	}
	r.systems[systemType] = system
	r.order = append(r.order, systemType)
}

// system resolves defType to its owning system instance, or nil when
// either the def type or the system is unregistered.
func (r *registry) system(defType blueprint.DefType) System {
	systemType, ok := r.defTypes[defType]
	if !ok {
		return nil
	}
	return r.systems[systemType]
}

func (r *registry) empty() bool {
	return len(r.systems) == 0
}

func (r *registry) forEach(fn func(SystemType, System)) {
	for _, systemType := range r.order {
		fn(systemType, r.systems[systemType])
	}
}

// checkDependencies verifies that every dependency declared by a
// registered system is itself registered.
func (r *registry) checkDependencies() error {
	if r.empty() {
		return ErrNoSystems
	}
	for _, systemType := range r.order {
		declarer, ok := r.systems[systemType].(DependencyDeclarer)
		if !ok {
			continue
		}
		for _, dep := range declarer.Dependencies() {
			if _, present := r.systems[dep]; !present {
				return fmt.Errorf("system %#x depends on %#x: %w",
					uint64(systemType), uint64(dep), ErrMissingDependency)
			}
		}
	}
	return nil
}
