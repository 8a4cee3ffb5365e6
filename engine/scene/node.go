package scene

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/transform"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Node is a handle to a scene node. Handles are small values and may be copied freely; using one after its node was destroyed
// panics.
type Node struct {
	s  *scene
	id NodeID
}

// ID returns the node's arena id.
func (n Node) ID() NodeID {
	return n.id
}

// IsZero reports whether n is the zero handle.
func (n Node) IsZero() bool {
	return n.s == nil || n.id.IsZero()
}

// Valid reports whether the node is still alive.
func (n Node) Valid() bool {
	return n.s != nil && n.s.Valid(n.id)
}

// Scene returns the owning scene.
func (n Node) Scene() Scene {
	return n.s
}

// Name returns the node name.
func (n Node) Name() string {
	return n.s.slot(n.id).name
}

// SetName renames the node.
func (n Node) SetName(name string) {
	n.s.slot(n.id).name = name
}

// Transform returns the node's transform.
func (n Node) Transform() transform.Transform {
	return n.s.slot(n.id).transform
}

// Parent returns the parent node, if any.
//
// Returns:
//   - Node: the parent handle
//   - bool: false for the root and detached nodes
func (n Node) Parent() (Node, bool) {
	p := n.s.slot(n.id).parent
	if p.IsZero() {
		return Node{}, false
	}
	return Node{s: n.s, id: p}, true
}

// Children returns the direct children in attach order.
func (n Node) Children() []Node {
	ids := n.s.slot(n.id).children
	out := make([]Node, len(ids))
	for i, id := range ids {
		out[i] = Node{s: n.s, id: id}
	}
	return out
}

// Components returns the attached components in attach order.
func (n Node) Components() []any {
	return append([]any(nil), n.s.slot(n.id).components...)
}

// NewChild creates a node and attaches it under n.
//
// Parameters:
//   - name: the child name
//   - options: initial transform options
//
// Returns:
//   - Node: the new child
func (n Node) NewChild(name string, options ...transform.TransformBuilderOption) Node {
	child := n.s.CreateNode(name, options...)
	n.AddChild(child)
	return child
}

// AddChild attaches child under n. A child that already has a parent is moved, with one warning. Attaching a node under
// itself or one of its descendants panics.
//
// Parameters:
//   - child: the node to attach
func (n Node) AddChild(child Node) {
	s := n.s
	if child.s != s {
		panic("scene: AddChild across scenes")
	}
	if child.id == s.root {
		panic("scene: the root node cannot be reparented")
	}
	if s.isAncestor(child.id, n.id) {
		panic(fmt.Sprintf("scene: attaching %q under %q would create a cycle", child.Name(), n.Name()))
	}

	sl := s.slot(child.id)
	if !sl.parent.IsZero() {
		s.log.Warn("reparenting node that already has a parent",
			zap.String("node", sl.name),
			zap.String("from", s.slot(sl.parent).name),
			zap.String("to", n.Name()),
		)
		s.detach(child.id)
	}
	sl.parent = n.id
	p := s.slot(n.id)
	p.children = append(p.children, child.id)
}

// RemoveChild detaches child from n. The child stays alive and can be attached elsewhere. Removing a node that is not a
// child of n logs a warning and does nothing.
//
// Parameters:
//   - child: the node to detach
func (n Node) RemoveChild(child Node) {
	s := n.s
	sl := s.slot(child.id)
	if sl.parent != n.id {
		s.log.Warn("removing node that is not a child", zap.String("node", sl.name), zap.String("parent", n.Name()))
		return
	}
	s.detach(child.id)
}

// AddComponent appends c to the node and notifies every system observing the exact dynamic type of c.
//
// Parameters:
//   - c: the component, typically a pointer
func (n Node) AddComponent(c any) {
	if c == nil {
		panic(fmt.Sprintf("scene: nil component on node %q", n.Name()))
	}
	sl := n.s.slot(n.id)
	sl.components = append(sl.components, c)
	for _, sys := range n.s.dispatch(c) {
		sys.OnCreate(n, c)
	}
}

// RemoveComponent detaches c from the node, notifying observers and running its Destroy hook.
//
// Parameters:
//   - c: the component to remove
//
// Returns:
//   - bool: false if c was not attached to this node
func (n Node) RemoveComponent(c any) bool {
	if !n.detachComponent(c) {
		return false
	}
	n.s.destroyComponent(n, c)
	return true
}

// detachComponent drops c from the node's list without notifying observers.
func (n Node) detachComponent(c any) bool {
	sl := n.s.slot(n.id)
	for i, existing := range sl.components {
		if existing == c {
			sl.components = append(sl.components[:i], sl.components[i+1:]...)
			return true
		}
	}
	return false
}

// Destroy recursively destroys the subtree rooted at n. Children go first, then each component is reported to its observers
// and its Destroy hook runs, then the node is detached and its slot freed. On the root this clears the tree and keeps the root.
func (n Node) Destroy() {
	n.s.destroy(n.id)
}

// FindChild searches below n for the first node matching pred. All direct children are tested before any subtree is entered;
// subtrees are then searched depth-first in child order. maxDepth 1 limits the search to direct children; zero or negative
// is unbounded.
//
// Parameters:
//   - pred: the match predicate
//   - maxDepth: the maximum depth below n to search
//
// Returns:
//   - Node: the first match
//   - bool: false if nothing matched
func (n Node) FindChild(pred func(Node) bool, maxDepth int) (Node, bool) {
	return n.s.findChild(n.id, pred, maxDepth)
}

func (s *scene) findChild(id NodeID, pred func(Node) bool, depth int) (Node, bool) {
	children := s.slot(id).children
	for _, c := range children {
		if n := (Node{s: s, id: c}); pred(n) {
			return n, true
		}
	}
	if depth == 1 {
		return Node{}, false
	}
	for _, c := range children {
		if found, ok := s.findChild(c, pred, depth-1); ok {
			return found, true
		}
	}
	return Node{}, false
}

// Global returns the node's global matrix. Reading it before the scene propagated the current frame panics.
func (n Node) Global() mgl32.Mat4 {
	return n.propagated().Global()
}

// GlobalInverse returns the node's global inverse matrix. Reading it before the scene propagated the current frame panics.
func (n Node) GlobalInverse() mgl32.Mat4 {
	return n.propagated().GlobalInverse()
}

// PreviousGlobal returns the global matrix committed before the current frame's propagation. Systems that run during
// the update phases read it instead of Global. A node never propagated reports identity.
func (n Node) PreviousGlobal() mgl32.Mat4 {
	t := n.Transform()
	if t.PropagatedFrame() == n.s.frame {
		return t.PreviousGlobal()
	}
	return t.Global()
}

// Propagated reports whether the current frame's propagation reached the node. Nodes detached from the root are
// never reached, and observer systems skip them.
func (n Node) Propagated() bool {
	return n.Transform().PropagatedFrame() == n.s.frame
}

func (n Node) propagated() transform.Transform {
	t := n.Transform()
	if t.PropagatedFrame() != n.s.frame {
		panic(fmt.Sprintf("scene: global matrix of %q read before propagation of frame %d", n.Name(), n.s.frame))
	}
	return t
}

func (n Node) String() string {
	if !n.Valid() {
		return "<invalid node>"
	}
	return n.Name()
}
