package tableau

// grid is a dense width x height table addressed by (register, row).
type grid[T any] struct {
	width  int
	height int
	cells  []T
}

func newGrid[T any](width, height int) grid[T] {
	return grid[T]{width: width, height: height, cells: make([]T, width*height)}
}

func (g grid[T]) at(register, row int) T {
	return g.cells[row*g.width+register]
}

func (g grid[T]) set(register, row int, v T) {
	g.cells[row*g.width+register] = v
}

// row returns the backing slice of one row. Callers must not retain it
// past the next set.
func (g grid[T]) row(row int) []T {
	return g.cells[row*g.width : (row+1)*g.width]
}
