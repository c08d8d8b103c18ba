package entity

import "github.com/entityforge/entityforge/internal/core/blueprint"

// System is the capability set every registered subsystem exposes to the
// factory. Destroy must be a no-op for entities the system holds no
// component for.
type System interface {
	// Initialize runs after every system has been registered but before
	// any system is guaranteed to be initialized.
	Initialize()

	CreateComponent(e Entity, def *blueprint.Def)

	// PostCreateComponent runs after the entity's children are fully
	// constructed, allowing parent/child cross-references.
	PostCreateComponent(e Entity, def *blueprint.Def)

	Destroy(e Entity)
}

// DependencyDeclarer is implemented by systems that require other systems
// to be registered. Declared dependencies are verified after
// initialization.
type DependencyDeclarer interface {
	Dependencies() []SystemType
}
