package entity

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/entityforge/entityforge/internal/core/assets"
	"github.com/entityforge/entityforge/internal/core/blueprint"
	"github.com/entityforge/entityforge/internal/core/events"
	"github.com/entityforge/entityforge/internal/core/observability/log"
	"github.com/entityforge/entityforge/pkg/sequence"
)

// ChildFunc constructs one child of parent during the recursion phase. The
// default allocates a fresh handle and recurses; replacements can reserve
// ids, instrument the walk, or parent the child in a scene graph first.
type ChildFunc func(parent Entity, child *blueprint.Tree)

// Config carries the factory's collaborators. Only Logger and Loader are
// usually required; a nil Decode degrades named construction to empty
// blueprints, and a nil Events gets a private dispatcher.
type Config struct {
	Logger   log.Log
	Loader   assets.Loader
	Decode   blueprint.DecodeFunc
	Finalize blueprint.FinalizeFunc

	CreateChild ChildFunc
	Events      *events.Dispatcher
}

// Factory owns entity handles and drives blueprint construction and
// destruction across the registered systems.
//
// Construction is single-threaded: systems mutate shared state without
// factory-level locking. Handle allocation and the deferred-destroy queue
// are the only concurrency-safe surfaces.
type Factory struct {
	log         log.Log
	gen         *Generator
	reg         *registry
	cache       *assets.Cache
	loader      assets.Loader
	decode      blueprint.DecodeFunc
	finalize    blueprint.FinalizeFunc
	createChild ChildFunc
	events      *events.Dispatcher

	types []blueprint.DefType
	names map[Entity]string

	mu      sync.Mutex
	pending *sequence.Queue[Entity]
}

func New(cfg Config) *Factory {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}
	dispatcher := cfg.Events
	if dispatcher == nil {
		dispatcher = events.NewDispatcher()
	}
	f := &Factory{
		log:         logger,
		gen:         NewGenerator(logger),
		reg:         newRegistry(),
		cache:       assets.NewCache(logger),
		loader:      cfg.Loader,
		decode:      cfg.Decode,
		finalize:    cfg.Finalize,
		createChild: cfg.CreateChild,
		events:      dispatcher,
		names:       make(map[Entity]string),
		pending:     sequence.NewQueue[Entity](),
	}
	if f.createChild == nil {
		f.createChild = func(_ Entity, child *blueprint.Tree) {
			f.CreateFromTree(child)
		}
	}
	return f
}

// RegisterDef routes component definitions tagged defType to the system
// identified by systemType. Last registration wins.
func (f *Factory) RegisterDef(systemType SystemType, defType blueprint.DefType) {
	f.reg.registerDef(systemType, defType)
}

// AddSystem registers a system instance. Nil is ignored; re-registering a
// SystemType keeps the first instance.
func (f *Factory) AddSystem(systemType SystemType, system System) {
	f.reg.addSystem(systemType, system)
}

// GetSystem resolves a def type to its owning system, or nil when either
// mapping is missing. A nil result during construction is a configuration
// defect.
func (f *Factory) GetSystem(defType blueprint.DefType) System {
	return f.reg.system(defType)
}

// SetCreateChild replaces the child-construction delegate.
func (f *Factory) SetCreateChild(fn ChildFunc) {
	if fn != nil {
		f.createChild = fn
	}
}

// Events exposes the lifecycle dispatcher entities are announced on.
func (f *Factory) Events() *events.Dispatcher {
	return f.events
}

// Initialize runs the two-step startup barrier: every registered system's
// Initialize, then the dependency-consistency check. Calling it with no
// systems registered is a programming error.
func (f *Factory) Initialize() {
	if f.reg.empty() {
		f.log.DPanic("initialize called before any systems were added")
		return
	}
	f.reg.forEach(func(_ SystemType, system System) {
		system.Initialize()
	})
	if err := f.CheckDependencies(); err != nil {
		f.log.DPanic("system dependency check failed", zap.Error(err))
	}
}

// CheckDependencies verifies every declared system dependency resolves to
// a registered system.
func (f *Factory) CheckDependencies() error {
	return f.reg.checkDependencies()
}

// CreateTypeList records an ordered list of def-type hashes for the given
// names, for tooling that maps hashes back to stable indices.
func (f *Factory) CreateTypeList(names []string) {
	f.types = make([]blueprint.DefType, 0, len(names))
	for _, name := range names {
		f.types = append(f.types, blueprint.HashName(name))
	}
}

// ReverseTypeLookup returns the index of defType in the recorded type
// list, or 0 when it is absent.
func (f *Factory) ReverseTypeLookup(defType blueprint.DefType) int {
	for i, t := range f.types {
		if t == defType {
			return i
		}
	}
	return 0
}

// Create allocates a fresh entity with no components. Safe for concurrent
// use.
func (f *Factory) Create() Entity {
	return f.gen.Next()
}

// CreateFromName constructs an entity from a named blueprint asset.
// Returns Null when the asset does not resolve or construction fails.
func (f *Factory) CreateFromName(name string) Entity {
	asset := f.blueprintAsset(name)
	if asset == nil {
		f.log.Error("no such blueprint", zap.String("name", name))
		return Null
	}
	e := f.gen.Next()
	if !f.createFromData(e, name, asset.Data) {
		return Null
	}
	return e
}

// CreateNamed constructs a caller-supplied entity id from a named
// blueprint, for ids pre-reserved for cross-reference purposes. Returns
// Null when the asset does not resolve.
func (f *Factory) CreateNamed(e Entity, name string) Entity {
	asset := f.blueprintAsset(name)
	if asset == nil {
		f.log.Error("no such blueprint", zap.String("name", name))
		return Null
	}
	f.createFromData(e, name, asset.Data)
	return e
}

// CreateFromBlueprint constructs an entity from a single in-memory
// blueprint with no children.
func (f *Factory) CreateFromBlueprint(bp *blueprint.Blueprint) Entity {
	e := f.gen.Next()
	f.names[e] = ""
	f.constructNode(e, bp, nil)
	return e
}

// CreateFromTree constructs an entity hierarchy from an in-memory
// blueprint tree, bypassing the asset cache.
func (f *Factory) CreateFromTree(tree *blueprint.Tree) Entity {
	return f.CreateTree(f.gen.Next(), tree)
}

// CreateTree constructs a caller-supplied entity id from an in-memory
// blueprint tree.
func (f *Factory) CreateTree(e Entity, tree *blueprint.Tree) Entity {
	f.names[e] = ""
	f.construct(e, tree)
	return e
}

// Finalize serializes a mutated in-memory blueprint back to bytes via the
// configured finalizer. Returns nil when no finalizer is configured or
// serialization fails.
func (f *Factory) Finalize(bp *blueprint.Blueprint) []byte {
	if f.finalize == nil {
		return nil
	}
	data, err := f.finalize(bp)
	if err != nil {
		f.log.Error("blueprint finalize failed", zap.Error(err))
		return nil
	}
	return data
}

// EntityToBlueprintMap returns a snapshot of the diagnostic side table
// mapping live entities to the blueprint names they were constructed from.
func (f *Factory) EntityToBlueprintMap() map[Entity]string {
	snapshot := make(map[Entity]string, len(f.names))
	for e, name := range f.names {
		snapshot[e] = name
	}
	return snapshot
}

// Destroy removes the entity from the diagnostic map and invokes every
// system's Destroy for it. No-op on Null; destroying an unknown or
// already-destroyed entity is safe.
func (f *Factory) Destroy(e Entity) {
	if e.IsNull() {
		return
	}
	name := f.names[e]
	delete(f.names, e)
	f.reg.forEach(func(_ SystemType, system System) {
		system.Destroy(e)
	})
	f.events.Publish(events.Event{
		Kind:      events.EntityDestroyed,
		Entity:    uint64(e),
		Blueprint: name,
	})
}

// QueueForDestruction appends the entity to the pending-destroy queue.
// Safe for concurrent use; no-op on Null.
func (f *Factory) QueueForDestruction(e Entity) {
	if e.IsNull() {
		return
	}
	f.mu.Lock()
	f.pending.Enqueue(e)
	f.mu.Unlock()
}

// DestroyQueuedEntities flushes the pending-destroy queue. The shared
// queue is swapped for an empty one under the lock, then drained with no
// lock held, so producers keep enqueueing while destruction callbacks run
// and every queued entity is destroyed exactly once per flush.
func (f *Factory) DestroyQueuedEntities() {
	f.mu.Lock()
	pending := f.pending
	f.pending = sequence.NewQueue[Entity]()
	f.mu.Unlock()

	for {
		e, ok := pending.Dequeue()
		if !ok {
			return
		}
		f.Destroy(e)
	}
}

func (f *Factory) blueprintAsset(name string) *assets.Asset {
	if f.loader == nil {
		f.log.Error("no asset loader configured", zap.String("name", name))
		return nil
	}
	filename := assets.CanonicalFilename(name)
	key := xxhash.Sum64String(filename)
	asset := f.cache.GetOrLoad(key, filename, func() (*assets.Asset, error) {
		return f.loader.LoadNow(filename)
	})
	if asset.Size() == 0 {
		f.log.Error("could not load entity blueprint", zap.String("name", name))
		return nil
	}
	return asset
}

func (f *Factory) createFromData(e Entity, name string, data []byte) bool {
	if e.IsNull() {
		f.log.DPanic("cannot create null entity", zap.String("blueprint", name))
		return false
	}
	if data == nil {
		f.log.DPanic("cannot create entity from nil data", zap.String("blueprint", name))
		return false
	}

	tree := &blueprint.Tree{}
	if f.decode == nil {
		f.log.Error("no blueprint decoder configured, using empty blueprint",
			zap.String("blueprint", name))
	} else if decoded, err := f.decode(data); err != nil {
		f.log.Error("blueprint decode failed, using empty blueprint",
			zap.String("blueprint", name), zap.Error(err))
	} else {
		tree = decoded
	}

	f.names[e] = name
	return f.construct(e, tree)
}

func (f *Factory) construct(e Entity, tree *blueprint.Tree) bool {
	if tree == nil {
		f.log.DPanic("cannot create entity from nil blueprint",
			zap.Uint64("entity", uint64(e)))
		return false
	}
	return f.constructNode(e, &tree.Blueprint, tree.Children)
}

// constructNode runs the three-phase construction contract: create the
// node's components, construct children, then post-create the node's
// components. Children are built between the two phases so a parent's
// PostCreateComponent can discover and manipulate fully constructed
// children. This ordering is a hard contract.
func (f *Factory) constructNode(e Entity, bp *blueprint.Blueprint, children []*blueprint.Tree) bool {
	if e.IsNull() {
		f.log.DPanic("cannot create null entity")
		return false
	}
	if bp == nil {
		f.log.DPanic("cannot create entity from nil blueprint",
			zap.Uint64("entity", uint64(e)))
		return false
	}

	bp.ForEach(func(def *blueprint.Def) {
		if system := f.reg.system(def.Type); system != nil {
			system.CreateComponent(e, def)
		} else {
			// A missing system is a severe configuration defect, but it
			// must not sink sibling components or sibling entities.
			f.log.DPanic("unknown system for component definition",
				zap.Uint64("entity", uint64(e)),
				zap.String("def", def.Name),
				zap.String("blueprint", f.names[e]))
		}
	})

	for _, child := range children {
		f.createChild(e, child)
	}

	bp.ForEach(func(def *blueprint.Def) {
		if system := f.reg.system(def.Type); system != nil {
			system.PostCreateComponent(e, def)
		}
	})

	f.events.Publish(events.Event{
		Kind:      events.EntityCreated,
		Entity:    uint64(e),
		Blueprint: f.names[e],
	})
	return true
}
