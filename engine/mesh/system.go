package mesh

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"go.uber.org/zap"
)

// Renderer is the node component that draws a mesh with a material at the node's global transform.
type Renderer struct {
	Mesh     Mesh
	Material material.Material
	// CastShadows excludes the instance from shadow sub-passes when false.
	CastShadows bool
}

// NewRenderer creates a shadow-casting renderer component.
func NewRenderer(m Mesh, mat material.Material) *Renderer {
	return &Renderer{Mesh: m, Material: mat, CastShadows: true}
}

func (r *Renderer) Name() string {
	return "Renderer(" + r.Mesh.Name() + ")"
}

// DrawCall is one instanced draw of a mesh with a material. Its instances occupy
// [FirstInstance, FirstInstance+InstanceCount) of the frame's instance buffer.
type DrawCall struct {
	Material      material.Material
	Mesh          Mesh
	FirstInstance uint32
	InstanceCount uint32
	// ShadowCasters is the number of leading instances in the call that cast shadows.
	ShadowCasters uint32
}

// DrawList is the per-frame output of the mesh system.
type DrawList struct {
	// Calls are ordered by material type bits, material identity and mesh identity.
	Calls []DrawCall
	// Instances holds InstanceFloats values per instance: the global matrix then its inverse, both column-major.
	Instances []float32
}

// InstanceCount returns the number of instances in the list.
func (d *DrawList) InstanceCount() int {
	return len(d.Instances) / InstanceFloats
}

type drawItem struct {
	renderer *Renderer
	node     scene.Node
}

// System tracks Renderer components and rebuilds the draw list each frame after propagation.
type System struct {
	log     *zap.Logger
	tracker *scene.Tracker[*Renderer]
	items   []drawItem
	list    DrawList
}

var _ scene.NodeSystem = &System{}

// NewSystem creates an empty mesh system.
//
// Parameters:
//   - log: the logger for diagnostics, or nil
//
// Returns:
//   - *System: the new system
func NewSystem(log *zap.Logger) *System {
	if log == nil {
		log = zap.NewNop()
	}
	return &System{
		log:     log,
		tracker: scene.NewTracker[*Renderer](log, "renderer"),
		items:   make([]drawItem, 0, 256),
	}
}

func (s *System) ComponentType() reflect.Type {
	return reflect.TypeFor[*Renderer]()
}

func (s *System) OnCreate(n scene.Node, c any) {
	r := c.(*Renderer)
	if r.Mesh == nil || r.Material == nil {
		panic(fmt.Sprintf("mesh: renderer on node %q needs both a mesh and a material", n.Name()))
	}
	s.tracker.Track(n, r)
}

func (s *System) OnDestroy(n scene.Node, c any) {
	s.tracker.Untrack(c.(*Renderer))
}

// Len returns the number of tracked renderers.
func (s *System) Len() int {
	return s.tracker.Len()
}

// Rebuild sorts every tracked renderer by (material type bits, material id, mesh id), writes each instance's global matrix
// and inverse into one flat buffer, and coalesces consecutive instances sharing a material and mesh into one draw call.
// Within a call, shadow casters are written first. Must run after the scene propagated the current frame. The returned list
// is reused by the next call.
//
// Returns:
//   - *DrawList: the frame's draw list
func (s *System) Rebuild() *DrawList {
	s.items = s.items[:0]
	s.tracker.Each(func(n scene.Node, r *Renderer) {
		if !n.Propagated() {
			s.log.Debug("renderer skipped, node not under the root", zap.String("node", n.String()))
			return
		}
		s.items = append(s.items, drawItem{renderer: r, node: n})
	})

	slices.SortStableFunc(s.items, func(a, b drawItem) int {
		am, bm := a.renderer.Material, b.renderer.Material
		if c := cmp.Compare(am.TypeBits(), bm.TypeBits()); c != 0 {
			return c
		}
		if c := cmp.Compare(am.ID(), bm.ID()); c != 0 {
			return c
		}
		if c := cmp.Compare(a.renderer.Mesh.ID(), b.renderer.Mesh.ID()); c != 0 {
			return c
		}
		// casters first so a call's shadow instances are contiguous
		if a.renderer.CastShadows != b.renderer.CastShadows {
			if a.renderer.CastShadows {
				return -1
			}
			return 1
		}
		return 0
	})

	s.list.Calls = s.list.Calls[:0]
	s.list.Instances = slices.Grow(s.list.Instances[:0], len(s.items)*InstanceFloats)

	for i, it := range s.items {
		global := it.node.Global()
		inverse := it.node.GlobalInverse()
		s.list.Instances = append(s.list.Instances, global[:]...)
		s.list.Instances = append(s.list.Instances, inverse[:]...)

		r := it.renderer
		if n := len(s.list.Calls); n > 0 {
			last := &s.list.Calls[n-1]
			if last.Material == r.Material && last.Mesh == r.Mesh {
				last.InstanceCount++
				if r.CastShadows {
					last.ShadowCasters++
				}
				continue
			}
		}
		call := DrawCall{
			Material:      r.Material,
			Mesh:          r.Mesh,
			FirstInstance: uint32(i),
			InstanceCount: 1,
		}
		if r.CastShadows {
			call.ShadowCasters = 1
		}
		s.list.Calls = append(s.list.Calls, call)
	}
	return &s.list
}
