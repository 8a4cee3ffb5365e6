package navigation

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func newTestGrid(opts ...GridBuilderOption) *Grid {
	return NewGrid(mgl32.Vec3{0, 0, 0}, 1, 10, 10, opts...)
}

func TestStraightPathCollapsesToEnds(t *testing.T) {
	g := newTestGrid()
	to := mgl32.Vec3{8.5, 0, 0.5}
	path, ok := g.FindPath(mgl32.Vec3{0.2, 0, 0.7}, to)
	if !ok {
		t.Fatal("no path on an open grid")
	}
	if len(path) != 2 || path[0] != (mgl32.Vec3{0.5, 0, 0.5}) || path[1] != to {
		t.Fatalf("path = %v", path)
	}
}

func TestPathAroundWall(t *testing.T) {
	var wall [][2]int
	for z := 0; z < 9; z++ {
		wall = append(wall, [2]int{5, z})
	}
	g := newTestGrid(WithBlocked(wall...))
	path, ok := g.FindPath(mgl32.Vec3{1.5, 0, 1.5}, mgl32.Vec3{8.5, 0, 1.5})
	if !ok {
		t.Fatal("no path around the wall")
	}
	for i := 1; i < len(path); i++ {
		x, z, _ := g.CellOf(path[i])
		if g.Blocked(x, z) {
			t.Fatalf("waypoint %v is blocked", path[i])
		}
	}
	// the only gap is at z = 9
	var through bool
	for _, p := range path {
		if _, z, _ := g.CellOf(p); z == 9 {
			through = true
		}
	}
	if !through {
		t.Fatalf("path %v does not pass the gap", path)
	}
}

func TestNoPathWhenEnclosed(t *testing.T) {
	g := newTestGrid(WithBlocked([2]int{4, 5}, [2]int{6, 5}, [2]int{5, 4}, [2]int{5, 6}, [2]int{4, 4}, [2]int{6, 6}, [2]int{4, 6}, [2]int{6, 4}))
	if _, ok := g.FindPath(mgl32.Vec3{0.5, 0, 0.5}, mgl32.Vec3{5.5, 0, 5.5}); ok {
		t.Fatal("path found into an enclosed cell")
	}
}

func TestNoCornerCutting(t *testing.T) {
	g := newTestGrid(WithBlocked([2]int{1, 0}, [2]int{0, 1}))
	if _, ok := g.FindPath(mgl32.Vec3{0.5, 0, 0.5}, mgl32.Vec3{1.5, 0, 1.5}); ok {
		t.Fatal("diagonal squeezed between two blocked cells")
	}
}

func TestEndpointsOutsideOrBlocked(t *testing.T) {
	g := newTestGrid(WithBlocked([2]int{3, 3}))
	if _, ok := g.FindPath(mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{1, 0, 1}); ok {
		t.Fatal("start outside grid accepted")
	}
	if _, ok := g.FindPath(mgl32.Vec3{0.5, 0, 0.5}, mgl32.Vec3{3.5, 0, 3.5}); ok {
		t.Fatal("blocked goal accepted")
	}
}

func TestManhattanWithoutDiagonals(t *testing.T) {
	g := newTestGrid(WithDiagonal(false))
	path, ok := g.FindPath(mgl32.Vec3{0.5, 0, 0.5}, mgl32.Vec3{3.5, 0, 3.5})
	if !ok {
		t.Fatal("no path")
	}
	for i := 1; i < len(path); i++ {
		d := path[i].Sub(path[i-1])
		if d[0] != 0 && d[2] != 0 {
			t.Fatalf("diagonal segment %v -> %v", path[i-1], path[i])
		}
	}
}

func TestBlockArea(t *testing.T) {
	g := newTestGrid()
	g.BlockArea(mgl32.Vec3{2, 0, 2}, mgl32.Vec3{4, 0, 3})
	blocked := 0
	for z := 0; z < 10; z++ {
		for x := 0; x < 10; x++ {
			if g.Blocked(x, z) {
				blocked++
			}
		}
	}
	// centers 2.5 and 3.5 on X, 2.5 on Z
	if blocked != 2 {
		t.Fatalf("blocked = %d, want 2", blocked)
	}
}
