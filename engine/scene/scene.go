// Package scene is the node hierarchy that owns transforms and render-facing components. Nodes live in an arena addressed by
// generational ids; parent and child links are ids, never pointers. Observer systems register for one exact component type
// and are notified as components of that type are attached to or destroyed with nodes.
package scene

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/Carmen-Shannon/oxy-deferred/engine/ecs"
	"github.com/Carmen-Shannon/oxy-deferred/engine/transform"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// NodeID addresses a node slot. Generation zero is never issued, so the zero NodeID is the "no node" value.
type NodeID struct {
	index uint32
	gen   uint32
}

// IsZero reports whether id is the "no node" value.
func (id NodeID) IsZero() bool {
	return id.gen == 0
}

func (id NodeID) String() string {
	return fmt.Sprintf("%d:%d", id.index, id.gen)
}

// nodeSlot is one arena entry.
type nodeSlot struct {
	gen        uint32
	alive      bool
	name       string
	parent     NodeID
	children   []NodeID
	components []any
	transform  transform.Transform
}

type scene struct {
	log   *zap.Logger
	types *ecs.TypeRegistry
	name  string

	slots []nodeSlot
	free  []uint32
	root  NodeID
	frame uint64

	systems []NodeSystem
	byType  map[ecs.ComponentType][]NodeSystem
}

// Scene is a tree of nodes rooted at a permanent root node, plus the observer systems that track node components.
// A Scene is not safe for concurrent use. It must only be mutated from the update phases of the frame.
type Scene interface {
	// Name returns the scene name.
	Name() string

	// Root returns the root node. The root's global matrix is always identity.
	//
	// Returns:
	//   - Node: the root node handle
	Root() Node

	// CreateNode allocates a detached node. It takes part in propagation only once attached under the root.
	//
	// Parameters:
	//   - name: the node name used by tree dumps
	//   - options: initial transform options
	//
	// Returns:
	//   - Node: the new node handle
	CreateNode(name string, options ...transform.TransformBuilderOption) Node

	// Node returns the handle for id. A stale or unknown id panics.
	//
	// Parameters:
	//   - id: the node id
	//
	// Returns:
	//   - Node: the node handle
	Node(id NodeID) Node

	// Valid reports whether id addresses a live node.
	Valid(id NodeID) bool

	// AddSystem registers an observer system and replays OnCreate for every matching component already in the scene.
	//
	// Parameters:
	//   - sys: the system to register
	AddSystem(sys NodeSystem)

	// Systems returns the registered observer systems in registration order.
	Systems() []NodeSystem

	// BeginFrame advances the frame counter. Global matrices read after this call and before Propagate panic.
	//
	// Returns:
	//   - uint64: the new frame number
	BeginFrame() uint64

	// Frame returns the current frame number.
	Frame() uint64

	// EarlyUpdate runs the early update hook of every system in registration order.
	EarlyUpdate(dt float32)

	// Update runs the update hook of every system in registration order.
	Update(dt float32)

	// LateUpdate runs the late update hook of every system in registration order.
	LateUpdate(dt float32)

	// Propagate computes global matrices top-down from the root for the current frame:
	// global = parentGlobal · local, globalInverse = localInverse · parentGlobalInverse.
	Propagate()

	// Walk visits every node reachable from the root depth-first, parents before children. Returning false from fn skips
	// the node's subtree.
	Walk(fn func(n Node, depth int) bool)

	// NodeCount returns the number of live nodes, including detached ones and the root.
	NodeCount() int

	// Types returns the component type registry used for system dispatch.
	Types() *ecs.TypeRegistry

	// Dump writes an indented text rendering of the tree with component names.
	//
	// Parameters:
	//   - w: the destination writer
	//
	// Returns:
	//   - error: the first write error
	Dump(w io.Writer) error

	// DumpString returns Dump as a string.
	DumpString() string
}

var _ Scene = &scene{}

// NewScene creates a scene holding only its root node.
//
// Parameters:
//   - options: optional scene builder options
//
// Returns:
//   - Scene: the new scene
func NewScene(options ...SceneBuilderOption) Scene {
	s := &scene{
		log:    zap.NewNop(),
		name:   "scene",
		slots:  make([]nodeSlot, 0, 256),
		frame:  1,
		byType: make(map[ecs.ComponentType][]NodeSystem),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.types == nil {
		s.types = ecs.NewTypeRegistry()
	}
	s.root = s.alloc("root", nil)
	ident := mgl32.Ident4()
	s.slots[s.root.index].transform.SetGlobal(ident, ident, s.frame)
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Root() Node {
	return Node{s: s, id: s.root}
}

func (s *scene) CreateNode(name string, options ...transform.TransformBuilderOption) Node {
	return Node{s: s, id: s.alloc(name, options)}
}

func (s *scene) Node(id NodeID) Node {
	s.slot(id)
	return Node{s: s, id: id}
}

func (s *scene) Valid(id NodeID) bool {
	if id.IsZero() || int(id.index) >= len(s.slots) {
		return false
	}
	sl := &s.slots[id.index]
	return sl.alive && sl.gen == id.gen
}

func (s *scene) AddSystem(sys NodeSystem) {
	id := s.types.ID(sys.ComponentType())
	s.systems = append(s.systems, sys)
	s.byType[id] = append(s.byType[id], sys)

	s.Walk(func(n Node, _ int) bool {
		for _, c := range s.slot(n.id).components {
			if s.types.IDOf(c) == id {
				sys.OnCreate(n, c)
			}
		}
		return true
	})
}

func (s *scene) Systems() []NodeSystem {
	return append([]NodeSystem(nil), s.systems...)
}

func (s *scene) BeginFrame() uint64 {
	s.frame++
	return s.frame
}

func (s *scene) Frame() uint64 {
	return s.frame
}

func (s *scene) EarlyUpdate(dt float32) {
	for _, sys := range s.systems {
		if u, ok := sys.(EarlyUpdater); ok {
			u.EarlyUpdate(dt)
		}
	}
}

func (s *scene) Update(dt float32) {
	for _, sys := range s.systems {
		if u, ok := sys.(Updater); ok {
			u.Update(dt)
		}
	}
}

func (s *scene) LateUpdate(dt float32) {
	for _, sys := range s.systems {
		if u, ok := sys.(LateUpdater); ok {
			u.LateUpdate(dt)
		}
	}
}

func (s *scene) Propagate() {
	root := s.slot(s.root)
	ident := mgl32.Ident4()
	root.transform.SetGlobal(ident, ident, s.frame)
	for _, child := range root.children {
		s.propagate(child, ident, ident)
	}
}

func (s *scene) propagate(id NodeID, parentGlobal, parentInverse mgl32.Mat4) {
	sl := s.slot(id)
	t := sl.transform
	global := parentGlobal.Mul4(t.Local())
	inverse := t.LocalInverse().Mul4(parentInverse)
	t.SetGlobal(global, inverse, s.frame)
	for _, child := range sl.children {
		s.propagate(child, global, inverse)
	}
}

func (s *scene) Walk(fn func(n Node, depth int) bool) {
	s.walk(s.root, 0, fn)
}

func (s *scene) walk(id NodeID, depth int, fn func(n Node, depth int) bool) {
	if !fn(Node{s: s, id: id}, depth) {
		return
	}
	for _, child := range s.slot(id).children {
		s.walk(child, depth+1, fn)
	}
}

func (s *scene) NodeCount() int {
	return len(s.slots) - len(s.free)
}

func (s *scene) Types() *ecs.TypeRegistry {
	return s.types
}

func (s *scene) Dump(w io.Writer) error {
	var err error
	s.Walk(func(n Node, depth int) bool {
		if err != nil {
			return false
		}
		sl := s.slot(n.id)
		line := strings.Repeat("  ", depth) + sl.name
		if len(sl.components) > 0 {
			names := make([]string, len(sl.components))
			for i, c := range sl.components {
				names[i] = ecs.TypeName(c)
			}
			line += " [" + strings.Join(names, ", ") + "]"
		}
		_, err = io.WriteString(w, line+"\n")
		return true
	})
	return err
}

func (s *scene) DumpString() string {
	var b strings.Builder
	_ = s.Dump(&b)
	return b.String()
}

// alloc takes a slot from the free list or grows the arena.
func (s *scene) alloc(name string, options []transform.TransformBuilderOption) NodeID {
	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		s.slots = append(s.slots, nodeSlot{})
		idx = uint32(len(s.slots) - 1)
	}
	sl := &s.slots[idx]
	sl.gen++
	sl.alive = true
	sl.name = name
	sl.transform = transform.NewTransform(options...)
	return NodeID{index: idx, gen: sl.gen}
}

// release returns a slot to the free list. The generation bump invalidates outstanding handles.
func (s *scene) release(id NodeID) {
	sl := s.slot(id)
	gen := sl.gen
	*sl = nodeSlot{gen: gen + 1}
	s.free = append(s.free, id.index)
}

func (s *scene) slot(id NodeID) *nodeSlot {
	if !s.Valid(id) {
		panic(fmt.Sprintf("scene: stale or unknown node %s", id))
	}
	return &s.slots[id.index]
}

// dispatch returns the systems observing the exact dynamic type of c.
func (s *scene) dispatch(c any) []NodeSystem {
	return s.byType[s.types.IDOf(c)]
}

// isAncestor reports whether a is b or one of b's ancestors.
func (s *scene) isAncestor(a, b NodeID) bool {
	for cur := b; !cur.IsZero(); cur = s.slot(cur).parent {
		if cur == a {
			return true
		}
	}
	return false
}

func (s *scene) detach(id NodeID) {
	sl := s.slot(id)
	if sl.parent.IsZero() {
		return
	}
	p := s.slot(sl.parent)
	for i, c := range p.children {
		if c == id {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	sl.parent = NodeID{}
}

func (s *scene) destroy(id NodeID) {
	sl := s.slot(id)
	children := append([]NodeID(nil), sl.children...)
	for _, child := range children {
		s.destroy(child)
	}

	n := Node{s: s, id: id}
	components := s.slot(id).components
	for _, c := range components {
		s.destroyComponent(n, c)
	}

	if id == s.root {
		root := s.slot(id)
		root.children = root.children[:0]
		root.components = nil
		return
	}
	s.detach(id)
	s.release(id)
}

func (s *scene) destroyComponent(n Node, c any) {
	for _, sys := range s.dispatch(c) {
		sys.OnDestroy(n, c)
	}
	if d, ok := c.(ecs.Destroyer); ok {
		d.Destroy()
	}
}

func typeName(c any) string {
	return reflect.TypeOf(c).String()
}
