package scene

import (
	"reflect"

	"go.uber.org/zap"
)

// NodeSystem observes one exact component type across a scene.
type NodeSystem interface {
	// ComponentType returns the exact dynamic type this system observes, e.g. reflect.TypeFor[*mesh.Renderer]().
	//
	// Returns:
	//   - reflect.Type: the observed component type
	ComponentType() reflect.Type

	// OnCreate is called when a component of the observed type is attached to a node.
	//
	// Parameters:
	//   - n: the owning node
	//   - c: the component
	OnCreate(n Node, c any)

	// OnDestroy is called when a component of the observed type is removed or its node is destroyed.
	//
	// Parameters:
	//   - n: the owning node
	//   - c: the component
	OnDestroy(n Node, c any)
}

// EarlyUpdater is implemented by node systems with an early update hook.
type EarlyUpdater interface {
	EarlyUpdate(dt float32)
}

// Updater is implemented by node systems with an update hook.
type Updater interface {
	Update(dt float32)
}

// LateUpdater is implemented by node systems with a late update hook.
type LateUpdater interface {
	LateUpdate(dt float32)
}

type trackerEntry[C comparable] struct {
	component C
	node      Node
	live      bool
}

// Tracker maps tracked components to their owning nodes in insertion order. Track and Untrack are O(1) amortized; removed
// entries are tombstoned and compacted once they outnumber live ones.
type Tracker[C comparable] struct {
	log     *zap.Logger
	kind    string
	index   map[C]int
	entries []trackerEntry[C]
	dead    int
}

// NewTracker creates an empty tracker. kind names the tracked component in diagnostics.
//
// Parameters:
//   - log: the logger for diagnostics
//   - kind: a display name for the tracked component type
//
// Returns:
//   - *Tracker[C]: the new tracker
func NewTracker[C comparable](log *zap.Logger, kind string) *Tracker[C] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker[C]{
		log:     log,
		kind:    kind,
		index:   make(map[C]int, 64),
		entries: make([]trackerEntry[C], 0, 64),
	}
}

// Track records c as owned by n. Tracking a component already owned by a different node reassigns it, takes it off the
// previous node's component list so destroying that node leaves it alone, and logs that it moved.
//
// Parameters:
//   - n: the owning node
//   - c: the component
func (t *Tracker[C]) Track(n Node, c C) {
	if i, ok := t.index[c]; ok {
		prev := t.entries[i].node
		if prev.id != n.id {
			t.log.Warn(t.kind+" moved to new node",
				zap.String("from", prev.String()),
				zap.String("to", n.String()),
				zap.String("type", typeName(c)),
			)
			if prev.Valid() {
				prev.detachComponent(c)
			}
			t.entries[i].node = n
		}
		return
	}
	t.index[c] = len(t.entries)
	t.entries = append(t.entries, trackerEntry[C]{component: c, node: n, live: true})
}

// Untrack forgets c.
//
// Parameters:
//   - c: the component
//
// Returns:
//   - bool: false if c was not tracked
func (t *Tracker[C]) Untrack(c C) bool {
	i, ok := t.index[c]
	if !ok {
		return false
	}
	delete(t.index, c)
	var zero C
	t.entries[i] = trackerEntry[C]{component: zero}
	t.dead++
	if t.dead > len(t.entries)/2 {
		t.compact()
	}
	return true
}

// Node returns the node owning c.
func (t *Tracker[C]) Node(c C) (Node, bool) {
	i, ok := t.index[c]
	if !ok {
		return Node{}, false
	}
	return t.entries[i].node, true
}

// Len returns the number of tracked components.
func (t *Tracker[C]) Len() int {
	return len(t.index)
}

// Each visits tracked components in insertion order.
//
// Parameters:
//   - fn: called with each owning node and component
func (t *Tracker[C]) Each(fn func(n Node, c C)) {
	for i := range t.entries {
		if e := t.entries[i]; e.live {
			fn(e.node, e.component)
		}
	}
}

func (t *Tracker[C]) compact() {
	live := t.entries[:0]
	for _, e := range t.entries {
		if e.live {
			t.index[e.component] = len(live)
			live = append(live, e)
		}
	}
	clear(t.entries[len(live):])
	t.entries = live
	t.dead = 0
}
