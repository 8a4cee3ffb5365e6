package navigation

// GridBuilderOption is a function that configures a Grid during construction.
type GridBuilderOption func(*Grid)

// WithDiagonal enables or disables diagonal moves. Diagonal moves are enabled by default.
//
// Parameters:
//   - diagonal: true to allow diagonal moves
//
// Returns:
//   - GridBuilderOption: a function that applies the diagonal option
func WithDiagonal(diagonal bool) GridBuilderOption {
	return func(g *Grid) {
		g.diagonal = diagonal
	}
}

// WithBlocked marks cells as blocked at construction.
//
// Parameters:
//   - cells: [x, z] pairs to block
//
// Returns:
//   - GridBuilderOption: a function that applies the blocked cells
func WithBlocked(cells ...[2]int) GridBuilderOption {
	return func(g *Grid) {
		for _, c := range cells {
			g.SetBlocked(c[0], c[1], true)
		}
	}
}
