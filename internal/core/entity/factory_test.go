package entity

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/entityforge/entityforge/internal/core/assets"
	"github.com/entityforge/entityforge/internal/core/blueprint"
	"github.com/entityforge/entityforge/internal/core/events"
)

// tracingSystem appends every call to a shared trace so tests can assert
// on the exact phase ordering.
type tracingSystem struct {
	trace       *[]string
	initialized bool
}

func (s *tracingSystem) Initialize() { s.initialized = true }

func (s *tracingSystem) CreateComponent(e Entity, def *blueprint.Def) {
	*s.trace = append(*s.trace, fmt.Sprintf("create:%d:%s", e, def.Name))
}

func (s *tracingSystem) PostCreateComponent(e Entity, def *blueprint.Def) {
	*s.trace = append(*s.trace, fmt.Sprintf("post:%d:%s", e, def.Name))
}

func (s *tracingSystem) Destroy(e Entity) {
	*s.trace = append(*s.trace, fmt.Sprintf("destroy:%d", e))
}

// mapLoader serves assets from memory.
type mapLoader map[string][]byte

func (l mapLoader) LoadNow(filename string) (*assets.Asset, error) {
	data, ok := l[filename]
	if !ok {
		return nil, fmt.Errorf("no such file %q", filename)
	}
	return &assets.Asset{Filename: filename, Data: data}, nil
}

var (
	widgetSystemType = HashSystemName("widget")
	widgetDefType    = blueprint.HashName("widget")
)

func newTracedFactory(t *testing.T, cfg Config) (*Factory, *[]string) {
	t.Helper()
	trace := &[]string{}
	f := New(cfg)
	f.AddSystem(widgetSystemType, &tracingSystem{trace: trace})
	f.RegisterDef(widgetSystemType, widgetDefType)
	return f, trace
}

func widgetTree(children ...*blueprint.Tree) *blueprint.Tree {
	return &blueprint.Tree{
		Blueprint: blueprint.Blueprint{
			Defs: []blueprint.Def{{Type: widgetDefType, Name: "widget"}},
		},
		Children: children,
	}
}

func TestCreateBareEntity(t *testing.T) {
	f, trace := newTracedFactory(t, Config{})
	e := f.Create()
	require.False(t, e.IsNull())
	require.Empty(t, *trace, "bare creation must not touch systems")
	require.NotContains(t, f.EntityToBlueprintMap(), e)
}

func TestConstructionPhaseOrdering(t *testing.T) {
	f, trace := newTracedFactory(t, Config{})

	root := f.CreateFromTree(widgetTree(widgetTree(), widgetTree()))
	require.False(t, root.IsNull())

	// Children are fully constructed, including their own post-creation,
	// before the root's post-creation runs.
	require.Equal(t, []string{
		"create:1:widget",
		"create:2:widget",
		"post:2:widget",
		"create:3:widget",
		"post:3:widget",
		"post:1:widget",
	}, *trace)

	names := f.EntityToBlueprintMap()
	require.Len(t, names, 3)
	require.Equal(t, "", names[root])
}

func TestUnknownDefTypeSkipsComponentButNotSiblings(t *testing.T) {
	f, trace := newTracedFactory(t, Config{})
	tree := &blueprint.Tree{
		Blueprint: blueprint.Blueprint{Defs: []blueprint.Def{
			{Type: blueprint.HashName("bogus"), Name: "bogus"},
			{Type: widgetDefType, Name: "widget"},
		}},
	}

	e := f.CreateFromTree(tree)
	require.False(t, e.IsNull())
	require.Equal(t, []string{"create:1:widget", "post:1:widget"}, *trace)
}

func TestCreateFromBlueprintIgnoresChildren(t *testing.T) {
	f, trace := newTracedFactory(t, Config{})
	e := f.CreateFromBlueprint(&blueprint.Blueprint{
		Defs: []blueprint.Def{{Type: widgetDefType, Name: "widget"}},
	})
	require.False(t, e.IsNull())
	require.Equal(t, []string{"create:1:widget", "post:1:widget"}, *trace)
	require.Equal(t, "", f.EntityToBlueprintMap()[e])
}

func TestCreateTreeNilTreeFails(t *testing.T) {
	f, trace := newTracedFactory(t, Config{})
	e := f.CreateTree(f.Create(), nil)
	require.False(t, e.IsNull(), "the handle itself is still returned")
	require.Empty(t, *trace)
}

func TestCreateFromNameConstructsHierarchy(t *testing.T) {
	src := []byte(`
components:
  - type: widget
children:
  - components:
      - type: widget
`)
	f, trace := newTracedFactory(t, Config{
		Loader: mapLoader{"hero.yaml": src},
		Decode: blueprint.DecodeYAML,
	})

	e := f.CreateFromName("hero.yaml")
	require.False(t, e.IsNull())
	require.Equal(t, []string{
		"create:1:widget",
		"create:2:widget",
		"post:2:widget",
		"post:1:widget",
	}, *trace)
	require.Equal(t, "hero.yaml", f.EntityToBlueprintMap()[e])
}

func TestCreateFromNameMissingAsset(t *testing.T) {
	f, trace := newTracedFactory(t, Config{
		Loader: mapLoader{},
		Decode: blueprint.DecodeYAML,
	})

	e := f.CreateFromName("ghost")
	require.True(t, e.IsNull())
	require.Empty(t, *trace)
	require.Empty(t, f.EntityToBlueprintMap(), "diagnostic map must stay unchanged")
}

func TestCreateFromNameWithoutDecoderStillCreates(t *testing.T) {
	f, trace := newTracedFactory(t, Config{
		Loader: mapLoader{"foo.bin": []byte{0xde, 0xad}},
		// no Decode configured
	})

	e := f.CreateFromName("foo")
	require.False(t, e.IsNull(), "construction must still produce an entity")
	require.Empty(t, *trace, "empty blueprint has no components")
	require.Equal(t, "foo", f.EntityToBlueprintMap()[e])
}

func TestCreateNamedUsesReservedID(t *testing.T) {
	f, trace := newTracedFactory(t, Config{
		Loader: mapLoader{"hero.yaml": []byte("components:\n  - type: widget\n")},
		Decode: blueprint.DecodeYAML,
	})

	reserved := f.Create()
	e := f.CreateNamed(reserved, "hero.yaml")
	require.Equal(t, reserved, e)
	require.Equal(t, []string{
		fmt.Sprintf("create:%d:widget", reserved),
		fmt.Sprintf("post:%d:widget", reserved),
	}, *trace)

	missing := f.CreateNamed(f.Create(), "ghost")
	require.True(t, missing.IsNull())
}

func TestDestroyRemovesEntity(t *testing.T) {
	f, trace := newTracedFactory(t, Config{})
	e := f.CreateFromTree(widgetTree())
	require.Contains(t, f.EntityToBlueprintMap(), e)

	f.Destroy(e)
	require.NotContains(t, f.EntityToBlueprintMap(), e)
	require.Contains(t, *trace, fmt.Sprintf("destroy:%d", e))

	// Destroying again, or destroying Null, is a safe no-op.
	before := len(*trace)
	f.Destroy(Null)
	require.Len(t, *trace, before)
	f.Destroy(e)
	require.Len(t, *trace, before+1, "systems are still invoked, and must tolerate it")
}

func TestQueuedDestructionExactlyOnce(t *testing.T) {
	f, _ := newTracedFactory(t, Config{})

	var mu sync.Mutex
	destroyed := make(map[uint64]int)
	f.Events().Subscribe(events.EntityDestroyed, func(ev events.Event) {
		mu.Lock()
		destroyed[ev.Entity]++
		mu.Unlock()
	})

	const producers = 8
	const perProducer = 100
	entities := make([]Entity, 0, producers*perProducer)
	for i := 0; i < producers*perProducer; i++ {
		entities = append(entities, f.Create())
	}

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(chunk []Entity) {
			defer wg.Done()
			for _, e := range chunk {
				f.QueueForDestruction(e)
			}
		}(entities[p*perProducer : (p+1)*perProducer])
	}
	wg.Wait()

	f.QueueForDestruction(Null) // ignored
	f.DestroyQueuedEntities()

	require.Len(t, destroyed, producers*perProducer)
	for _, e := range entities {
		require.Equal(t, 1, destroyed[uint64(e)], "entity %d", e)
	}

	// A second flush has nothing left to do.
	f.DestroyQueuedEntities()
	require.Len(t, destroyed, producers*perProducer)
}

func TestCreateChildDelegate(t *testing.T) {
	f, _ := newTracedFactory(t, Config{})

	type link struct{ parent, child Entity }
	var links []link
	f.SetCreateChild(func(parent Entity, child *blueprint.Tree) {
		links = append(links, link{parent, f.CreateFromTree(child)})
	})

	root := f.CreateFromTree(widgetTree(widgetTree(), widgetTree()))
	require.Len(t, links, 2)
	for _, l := range links {
		require.Equal(t, root, l.parent)
		require.False(t, l.child.IsNull())
	}
}

func TestLifecycleEventsChildBeforeParent(t *testing.T) {
	f, _ := newTracedFactory(t, Config{})

	var created []uint64
	f.Events().Subscribe(events.EntityCreated, func(ev events.Event) {
		created = append(created, ev.Entity)
	})

	root := f.CreateFromTree(widgetTree(widgetTree()))
	require.Equal(t, []uint64{2, uint64(root)}, created)
}

func TestInitializeRunsEverySystem(t *testing.T) {
	f := New(Config{})
	a := &tracingSystem{trace: &[]string{}}
	b := &tracingSystem{trace: &[]string{}}
	f.AddSystem(HashSystemName("a"), a)
	f.AddSystem(HashSystemName("b"), b)

	f.Initialize()
	require.True(t, a.initialized)
	require.True(t, b.initialized)
	require.NoError(t, f.CheckDependencies())
}

func TestFinalize(t *testing.T) {
	f := New(Config{})
	require.Nil(t, f.Finalize(&blueprint.Blueprint{}), "no finalizer configured")

	f = New(Config{
		Finalize: func(bp *blueprint.Blueprint) ([]byte, error) {
			return []byte{byte(len(bp.Defs))}, nil
		},
	})
	data := f.Finalize(&blueprint.Blueprint{Defs: make([]blueprint.Def, 3)})
	require.Equal(t, []byte{3}, data)
}

func TestTypeListReverseLookup(t *testing.T) {
	f := New(Config{})
	f.CreateTypeList([]string{"transform", "render", "audio"})

	require.Equal(t, 1, f.ReverseTypeLookup(blueprint.HashName("render")))
	require.Equal(t, 2, f.ReverseTypeLookup(blueprint.HashName("audio")))
	require.Equal(t, 0, f.ReverseTypeLookup(blueprint.HashName("transform")))
	require.Equal(t, 0, f.ReverseTypeLookup(blueprint.HashName("absent")))
}

func TestBlueprintAssetIsCached(t *testing.T) {
	loads := 0
	loader := loaderFunc(func(filename string) (*assets.Asset, error) {
		loads++
		return &assets.Asset{Filename: filename, Data: []byte("components: []")}, nil
	})
	f := New(Config{Loader: loader, Decode: blueprint.DecodeYAML})

	first := f.CreateFromName("hero.yaml")
	second := f.CreateFromName("hero.yaml")
	require.False(t, first.IsNull())
	require.False(t, second.IsNull())
	require.NotEqual(t, first, second)
	require.Equal(t, 1, loads)
}

type loaderFunc func(string) (*assets.Asset, error)

func (fn loaderFunc) LoadNow(filename string) (*assets.Asset, error) { return fn(filename) }
