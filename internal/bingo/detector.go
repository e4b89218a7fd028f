package bingo

import "github.com/rocketscienceinc/bingo-backend/internal/entity"

// Detect returns every fully marked line of a size x size grid.
//
// Lines are ordered rows (top to bottom), columns (left to right), the main
// diagonal, then the anti-diagonal; indices inside a line follow the scan order.
// A grid whose items do not match size*size, or whose size is out of range, has no lines.
// Detect is O(size²) and is recomputed on every read.
func Detect(items []string, marks entity.Marks, size int) []entity.Line {
	if size < entity.MinSize || size > entity.MaxSize || len(items) != size*size {
		return []entity.Line{}
	}

	lines := make([]entity.Line, 0)

	for r := range size {
		if indices, ok := scan(marks, size, func(i int) int { return r*size + i }); ok {
			lines = append(lines, entity.Line{Kind: entity.LineRow, Indices: indices})
		}
	}

	for c := range size {
		if indices, ok := scan(marks, size, func(i int) int { return i*size + c }); ok {
			lines = append(lines, entity.Line{Kind: entity.LineColumn, Indices: indices})
		}
	}

	if indices, ok := scan(marks, size, func(i int) int { return i*size + i }); ok {
		lines = append(lines, entity.Line{Kind: entity.LineDiagonalMain, Indices: indices})
	}

	if indices, ok := scan(marks, size, func(i int) int { return i*size + (size - 1 - i) }); ok {
		lines = append(lines, entity.Line{Kind: entity.LineDiagonalAnti, Indices: indices})
	}

	return lines
}

// HasLine reports a win.
func HasLine(lines []entity.Line) bool {
	return len(lines) > 0
}

// DetectSession runs Detect over a session's current state.
func DetectSession(session *entity.Session) []entity.Line {
	return Detect(session.Items, session.Marks, session.Size)
}

func scan(marks entity.Marks, size int, position func(i int) int) ([]int, bool) {
	indices := make([]int, 0, size)

	for i := range size {
		index := position(i)
		if !marks.Has(index) {
			return nil, false
		}
		indices = append(indices, index)
	}

	return indices, true
}
