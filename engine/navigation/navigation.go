// Package navigation provides path queries over walkable space. Grid is an A* navigator over a uniform XZ grid.
package navigation

import (
	"container/heap"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Navigator finds walkable paths between world positions.
type Navigator interface {
	// FindPath returns waypoints from from to to. The first waypoint is the start cell center and the last is to.
	//
	// Parameters:
	//   - from: world-space start
	//   - to: world-space goal
	//
	// Returns:
	//   - []mgl32.Vec3: the waypoints
	//   - bool: false if either end is outside the walkable area or no path exists
	FindPath(from, to mgl32.Vec3) ([]mgl32.Vec3, bool)
}

// Grid is a walkability grid on the XZ plane.
type Grid struct {
	origin   mgl32.Vec3
	cellSize float32
	width    int
	depth    int
	blocked  []bool
	diagonal bool
}

var _ Navigator = &Grid{}

// NewGrid creates a grid of width × depth cells, all walkable. origin is the world position of the corner of cell (0, 0).
//
// Parameters:
//   - origin: world position of the grid corner
//   - cellSize: cell edge length in world units
//   - width: cells along X
//   - depth: cells along Z
//   - opts: variadic list of GridBuilderOption functions
//
// Returns:
//   - *Grid: the new grid
func NewGrid(origin mgl32.Vec3, cellSize float32, width, depth int, opts ...GridBuilderOption) *Grid {
	if width <= 0 || depth <= 0 || cellSize <= 0 {
		panic("navigation: grid dimensions must be positive")
	}
	g := &Grid{
		origin:   origin,
		cellSize: cellSize,
		width:    width,
		depth:    depth,
		blocked:  make([]bool, width*depth),
		diagonal: true,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Size returns the grid dimensions in cells.
func (g *Grid) Size() (width, depth int) {
	return g.width, g.depth
}

// SetBlocked marks a cell as blocked or walkable. Out-of-range cells are ignored.
func (g *Grid) SetBlocked(x, z int, blocked bool) {
	if g.inside(x, z) {
		g.blocked[z*g.width+x] = blocked
	}
}

// Blocked reports whether a cell is blocked. Out-of-range cells are blocked.
func (g *Grid) Blocked(x, z int) bool {
	return !g.inside(x, z) || g.blocked[z*g.width+x]
}

// BlockArea blocks every cell whose center lies inside the XZ rectangle spanned by min and max.
func (g *Grid) BlockArea(min, max mgl32.Vec3) {
	for z := 0; z < g.depth; z++ {
		for x := 0; x < g.width; x++ {
			c := g.CellCenter(x, z)
			if c[0] >= min[0] && c[0] <= max[0] && c[2] >= min[2] && c[2] <= max[2] {
				g.blocked[z*g.width+x] = true
			}
		}
	}
}

// CellOf returns the cell containing p.
func (g *Grid) CellOf(p mgl32.Vec3) (x, z int, ok bool) {
	fx := (p[0] - g.origin[0]) / g.cellSize
	fz := (p[2] - g.origin[2]) / g.cellSize
	x, z = int(math.Floor(float64(fx))), int(math.Floor(float64(fz)))
	return x, z, g.inside(x, z)
}

// CellCenter returns the world position of a cell center at the grid's height.
func (g *Grid) CellCenter(x, z int) mgl32.Vec3 {
	return mgl32.Vec3{
		g.origin[0] + (float32(x)+0.5)*g.cellSize,
		g.origin[1],
		g.origin[2] + (float32(z)+0.5)*g.cellSize,
	}
}

func (g *Grid) inside(x, z int) bool {
	return x >= 0 && z >= 0 && x < g.width && z < g.depth
}

type pathNode struct {
	cell   int
	g, f   float32
	parent int
	index  int // position in the open heap, -1 once closed
}

type openSet []*pathNode

func (o openSet) Len() int { return len(o) }
func (o openSet) Less(i, j int) bool {
	if o[i].f == o[j].f {
		return o[i].g > o[j].g
	}
	return o[i].f < o[j].f
}
func (o openSet) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}
func (o *openSet) Push(x any) {
	n := x.(*pathNode)
	n.index = len(*o)
	*o = append(*o, n)
}
func (o *openSet) Pop() any {
	old := *o
	n := old[len(old)-1]
	old[len(old)-1] = nil
	n.index = -1
	*o = old[:len(old)-1]
	return n
}

var neighbors = [8][3]int{
	{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0},
	{1, 1, 1}, {1, -1, 1}, {-1, 1, 1}, {-1, -1, 1},
}

func (g *Grid) FindPath(from, to mgl32.Vec3) ([]mgl32.Vec3, bool) {
	sx, sz, ok := g.CellOf(from)
	if !ok || g.Blocked(sx, sz) {
		return nil, false
	}
	gx, gz, ok := g.CellOf(to)
	if !ok || g.Blocked(gx, gz) {
		return nil, false
	}
	start, goal := sz*g.width+sx, gz*g.width+gx

	nodes := make(map[int]*pathNode, 64)
	open := &openSet{}
	first := &pathNode{cell: start, f: g.heuristic(sx, sz, gx, gz), parent: -1}
	nodes[start] = first
	heap.Push(open, first)

	for open.Len() > 0 {
		cur := heap.Pop(open).(*pathNode)
		if cur.cell == goal {
			return g.walkBack(nodes, cur, to), true
		}
		cx, cz := cur.cell%g.width, cur.cell/g.width
		for i, d := range neighbors {
			if i >= 4 && !g.diagonal {
				break
			}
			nx, nz := cx+d[0], cz+d[1]
			if g.Blocked(nx, nz) {
				continue
			}
			cost := float32(1)
			if d[2] == 1 {
				// no corner cutting past blocked cells
				if g.Blocked(cx+d[0], cz) || g.Blocked(cx, cz+d[1]) {
					continue
				}
				cost = math.Sqrt2
			}
			cell := nz*g.width + nx
			gScore := cur.g + cost
			n, seen := nodes[cell]
			if seen && gScore >= n.g {
				continue
			}
			if !seen {
				n = &pathNode{cell: cell, index: -1}
				nodes[cell] = n
			}
			n.g = gScore
			n.f = gScore + g.heuristic(nx, nz, gx, gz)
			n.parent = cur.cell
			if n.index >= 0 {
				heap.Fix(open, n.index)
			} else {
				heap.Push(open, n)
			}
		}
	}
	return nil, false
}

// heuristic is the octile distance, or Manhattan without diagonal moves.
func (g *Grid) heuristic(x0, z0, x1, z1 int) float32 {
	dx := math.Abs(float64(x1 - x0))
	dz := math.Abs(float64(z1 - z0))
	if !g.diagonal {
		return float32(dx + dz)
	}
	return float32(math.Max(dx, dz) + (math.Sqrt2-1)*math.Min(dx, dz))
}

func (g *Grid) walkBack(nodes map[int]*pathNode, end *pathNode, to mgl32.Vec3) []mgl32.Vec3 {
	var cells []int
	for n := end; ; n = nodes[n.parent] {
		cells = append(cells, n.cell)
		if n.parent < 0 {
			break
		}
	}
	path := make([]mgl32.Vec3, 0, len(cells))
	for i := len(cells) - 1; i >= 0; i-- {
		c := cells[i]
		p := g.CellCenter(c%g.width, c/g.width)
		// drop points that continue the previous direction
		if n := len(path); n >= 2 {
			a, b := path[n-2], path[n-1]
			if b.Sub(a).Cross(p.Sub(b)).Len() < 1e-6 {
				path[n-1] = p
				continue
			}
		}
		path = append(path, p)
	}
	if len(path) > 1 {
		path[len(path)-1] = to
	} else {
		path = append(path, to)
	}
	return path
}
