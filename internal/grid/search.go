package grid

import (
	"iter"
	"regexp"
)

// RowMatchingWords returns the first row at or after startRow whose leading cells equal
// words, or -1. A body row also matches with its indent cell skipped, so an indented row
// is found with or without a leading "".
func (d Document) RowMatchingWords(startRow int, words ...string) int {
	if len(words) == 0 {
		return -1
	}
	if startRow < 0 {
		startRow = 0
	}
	for r := startRow; r < len(d.lines); r++ {
		if lineMatches(d.lines[r], words) {
			return r
		}
	}
	return -1
}

// AllRowsMatchingWords returns every row matching words as in RowMatchingWords, ascending.
func (d Document) AllRowsMatchingWords(words ...string) []int {
	if len(words) == 0 {
		return nil
	}
	var rows []int
	for r, line := range d.lines {
		if lineMatches(line, words) {
			rows = append(rows, r)
		}
	}
	return rows
}

func lineMatches(line, words []string) bool {
	if matchesAt(line, words, 0) {
		return true
	}
	return len(line) > 1 && line[0] == "" && matchesAt(line, words, 1)
}

func matchesAt(line, words []string, offset int) bool {
	if len(line)-offset < len(words) {
		return false
	}
	for i, w := range words {
		if line[offset+i] != w {
			return false
		}
	}
	return true
}

// CellsFrom yields every cell exactly once in row-major order, starting at start and
// wrapping around to the top of the document. The sequence ends after one full pass and
// can be ranged over again to get the same cells.
func (d Document) CellsFrom(start CellPosition) iter.Seq2[CellPosition, string] {
	start = d.clampStart(start)
	return func(yield func(CellPosition, string) bool) {
		// Pass one: from start to the end of the document.
		for r := start.Row; r < len(d.lines); r++ {
			c0 := 0
			if r == start.Row {
				c0 = start.Column
			}
			for c := c0; c < len(d.lines[r]); c++ {
				if !yield(CellPosition{Row: r, Column: c}, d.lines[r][c]) {
					return
				}
			}
		}
		// Pass two: from the top back up to start.
		for r := 0; r <= start.Row && r < len(d.lines); r++ {
			c1 := len(d.lines[r])
			if r == start.Row {
				c1 = start.Column
			}
			for c := 0; c < c1; c++ {
				if !yield(CellPosition{Row: r, Column: c}, d.lines[r][c]) {
					return
				}
			}
		}
	}
}

// ValuesFrom yields the contents of every cell once, as CellsFrom does.
func (d Document) ValuesFrom(start CellPosition) iter.Seq[string] {
	cells := d.CellsFrom(start)
	return func(yield func(string) bool) {
		for _, value := range cells {
			if !yield(value) {
				return
			}
		}
	}
}

// clampStart maps an out-of-range start to the next valid position in row-major order.
func (d Document) clampStart(start CellPosition) CellPosition {
	if start.Row < 0 || start.Row >= len(d.lines) {
		return CellPosition{}
	}
	if start.Column < 0 {
		start.Column = 0
	}
	if start.Column >= len(d.lines[start.Row]) {
		if start.Row+1 >= len(d.lines) {
			return CellPosition{}
		}
		return CellPosition{Row: start.Row + 1}
	}
	return start
}

// GrepFirst returns the first cell, scanning row-major from the top, whose contents
// match pattern.
func (d Document) GrepFirst(pattern *regexp.Regexp) (CellPosition, bool) {
	if pattern == nil {
		return CellPosition{}, false
	}
	for r, line := range d.lines {
		for c, cell := range line {
			if pattern.MatchString(cell) {
				return CellPosition{Row: r, Column: c}, true
			}
		}
	}
	return CellPosition{}, false
}

// FindNext returns the start of the next keyword row strictly after from's row.
func (d Document) FindNext(from CellPosition) (CellPosition, bool) {
	r := from.Row + 1
	if r < 0 {
		r = 0
	}
	for ; r < len(d.lines); r++ {
		if d.lines[r][0] != "" {
			return CellPosition{Row: r}, true
		}
	}
	return CellPosition{}, false
}

// FindAll returns every cell whose contents equal the contents at pos, in row-major
// order. An empty or missing cell matches nothing.
func (d Document) FindAll(pos CellPosition) []CellPosition {
	contents, ok := d.Cell(pos)
	if !ok || contents == "" {
		return nil
	}
	var matches []CellPosition
	for r, line := range d.lines {
		for c, cell := range line {
			if cell == contents {
				matches = append(matches, CellPosition{Row: r, Column: c})
			}
		}
	}
	return matches
}
