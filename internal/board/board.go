// Package board holds the canonical in-memory pixel grid. Every read and
// write of a cell goes through a Board.
package board

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// DefaultColor is the color of every cell on a fresh board.
const DefaultColor = "#FFFFFF"

var (
	// ErrOutOfBounds is returned when a coordinate lies outside the grid.
	ErrOutOfBounds = errors.New("coordinates out of bounds")
	// ErrDimensions is returned when loaded rows do not match the grid size.
	ErrDimensions = errors.New("board dimensions mismatch")
)

// PixelEvent is the delta produced by an accepted cell write.
type PixelEvent struct {
	X      int
	Y      int
	Color  string
	Player string
}

// Board is a fixed-size W×H grid of color values. It is safe for
// concurrent use; reads always observe the latest completed write.
type Board struct {
	mu     sync.RWMutex
	width  int
	height int
	cells  []string
	dirty  atomic.Bool
}

// New creates a width×height board with every cell set to DefaultColor.
func New(width, height int) *Board {
	cells := make([]string, width*height)
	for i := range cells {
		cells[i] = DefaultColor
	}
	return &Board{width: width, height: height, cells: cells}
}

// FromRows builds a board from persisted rows. The rows must describe
// exactly a width×height grid.
func FromRows(width, height int, rows [][]string) (*Board, error) {
	if len(rows) != height {
		return nil, fmt.Errorf("%w: got %d rows, want %d", ErrDimensions, len(rows), height)
	}
	b := New(width, height)
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrDimensions, y, len(row), width)
		}
		copy(b.cells[y*width:(y+1)*width], row)
	}
	return b, nil
}

// Width returns the number of columns.
func (b *Board) Width() int { return b.width }

// Height returns the number of rows.
func (b *Board) Height() int { return b.height }

// InBounds reports whether (x, y) addresses a cell of the grid.
func (b *Board) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.width && y < b.height
}

// Get returns a full snapshot of the grid as height rows of width colors.
// The returned rows are a copy and may be retained by the caller.
func (b *Board) Get() [][]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rows := make([][]string, b.height)
	for y := range rows {
		row := make([]string, b.width)
		copy(row, b.cells[y*b.width:(y+1)*b.width])
		rows[y] = row
	}
	return rows
}

// Cell returns the color at (x, y).
func (b *Board) Cell(x, y int) (string, error) {
	if !b.InBounds(x, y) {
		return "", ErrOutOfBounds
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cells[y*b.width+x], nil
}

// SetCell writes color at (x, y) and marks the board dirty. Color format
// and authorization are the caller's concern.
func (b *Board) SetCell(x, y int, color, player string) (PixelEvent, error) {
	if !b.InBounds(x, y) {
		return PixelEvent{}, fmt.Errorf("%w: (%d,%d) on %dx%d", ErrOutOfBounds, x, y, b.width, b.height)
	}

	b.mu.Lock()
	b.cells[y*b.width+x] = color
	b.mu.Unlock()
	b.dirty.Store(true)

	return PixelEvent{X: x, Y: y, Color: color, Player: player}, nil
}

// TakeDirty reports whether the board changed since the last call and
// clears the flag.
func (b *Board) TakeDirty() bool {
	return b.dirty.Swap(false)
}

// MarkDirty flags the board for the next save, e.g. after a failed write.
func (b *Board) MarkDirty() {
	b.dirty.Store(true)
}

// Histogram counts cells per color.
func (b *Board) Histogram() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	counts := make(map[string]int)
	for _, c := range b.cells {
		counts[c]++
	}
	return counts
}
