// Package entity is the construction and lifecycle authority for the
// runtime: it allocates entity handles, routes component definitions to
// their owning systems, walks blueprint trees in the two-phase creation
// order, and drains deferred destruction safely across threads.
package entity

import "github.com/cespare/xxhash/v2"

// Entity is an opaque handle identifying a logical runtime object.
// Handles are unique for the lifetime of the process and issued in
// strictly increasing order; Null never denotes a live entity.
type Entity uint64

const Null Entity = 0

func (e Entity) IsNull() bool { return e == Null }

// SystemType identifies a system's implementation type. Exactly one
// system instance exists per SystemType.
type SystemType uint64

// HashSystemName returns the SystemType for a system name.
func HashSystemName(name string) SystemType {
	return SystemType(xxhash.Sum64String(name))
}
