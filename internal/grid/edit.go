package grid

import "strings"

// LineValue returns the second cell of the first row whose first cell equals keyword.
func (d Document) LineValue(keyword string) (string, bool) {
	row := d.rowStartingWith(keyword)
	if row < 0 {
		return "", false
	}
	line := d.lines[row]
	if len(line) < 2 {
		return "", true
	}
	return line[1], true
}

// SetLineValue replaces the second cell of the keyword's row, or appends the row when
// the keyword is absent. Cells after the second one are kept.
func (d Document) SetLineValue(keyword, value string) Document {
	lines := cloneLines(d.lines)
	row := d.rowStartingWith(keyword)
	if row < 0 {
		return d.withLines(append(lines, []string{sanitizeCell(keyword), sanitizeCell(value)}))
	}
	line := lines[row]
	if len(line) < 2 {
		line = append(line, "")
	}
	line[1] = sanitizeCell(value)
	lines[row] = line
	return d.withLines(lines)
}

// AppendLine appends text as new lines at the end of the document. Tabs in text start
// new cells and line breaks start new lines.
func (d Document) AppendLine(text string) Document {
	lines := cloneLines(d.lines)
	lines = append(lines, Parse("", text).lines...)
	return d.withLines(lines)
}

// Patch applies SetLineValue for each entry, in order.
func (d Document) Patch(values ...KeywordValue) Document {
	out := d
	for _, kv := range values {
		out = out.SetLineValue(kv.Keyword, kv.Value)
	}
	return out
}

// RowNumbersStartingWith returns every row whose first cell equals keyword, ascending.
func (d Document) RowNumbersStartingWith(keyword string) []int {
	var rows []int
	for i, line := range d.lines {
		if line[0] == keyword {
			rows = append(rows, i)
		}
	}
	return rows
}

// IsBodyRow reports whether row belongs to the body of a block: its first cell is
// empty and it has content after it. A blank line is not a body row and so ends a block.
func (d Document) IsBodyRow(row int) bool {
	if row < 0 || row >= len(d.lines) {
		return false
	}
	return isBodyLine(d.lines[row])
}

// IsKeywordRow reports whether row starts with a non-empty cell.
func (d Document) IsKeywordRow(row int) bool {
	if row < 0 || row >= len(d.lines) {
		return false
	}
	return d.lines[row][0] != ""
}

// BlockStartFor returns the keyword row that row belongs to: row itself for a keyword
// row, the nearest keyword row above a body row, or -1.
func (d Document) BlockStartFor(row int) int {
	if d.IsKeywordRow(row) {
		return row
	}
	if !d.IsBodyRow(row) {
		return -1
	}
	for r := row - 1; r >= 0; r-- {
		if d.IsBodyRow(r) {
			continue
		}
		if d.IsKeywordRow(r) {
			return r
		}
		return -1
	}
	return -1
}

// Block returns the body rows of the block whose keyword row is startRow, with the
// leading empty cell removed from each row.
func (d Document) Block(startRow int) [][]string {
	if startRow < 0 || startRow >= len(d.lines) {
		return nil
	}
	end := d.blockEnd(startRow)
	if end == startRow+1 {
		return nil
	}
	body := make([][]string, 0, end-startRow-1)
	for _, line := range d.lines[startRow+1 : end] {
		body = append(body, append([]string(nil), line[1:]...))
	}
	return body
}

// UpdateBlock replaces the body of the block at startRow. The keyword row and every
// line outside the block are preserved.
func (d Document) UpdateBlock(startRow int, body [][]string) Document {
	if startRow < 0 || startRow >= len(d.lines) {
		return d
	}
	end := d.blockEnd(startRow)
	lines := make([][]string, 0, len(d.lines)-(end-startRow-1)+len(body))
	lines = append(lines, cloneLines(d.lines[:startRow+1])...)
	for _, row := range body {
		lines = append(lines, append([]string{""}, normalizeRow(row)...))
	}
	lines = append(lines, cloneLines(d.lines[end:])...)
	return d.withLines(lines)
}

// DeleteBlock removes the body of the block at startRow but keeps its keyword row.
func (d Document) DeleteBlock(startRow int) Document {
	return d.UpdateBlock(startRow, nil)
}

// InsertLinesAfter inserts text as new lines directly after row.
func (d Document) InsertLinesAfter(row int, text string) Document {
	if row < -1 || row >= len(d.lines) {
		return d
	}
	inserted := Parse("", text).lines
	lines := make([][]string, 0, len(d.lines)+len(inserted))
	lines = append(lines, cloneLines(d.lines[:row+1])...)
	lines = append(lines, inserted...)
	lines = append(lines, cloneLines(d.lines[row+1:])...)
	return d.withLines(lines)
}

// blockEnd returns the index of the first row after the body of the block at startRow.
func (d Document) blockEnd(startRow int) int {
	end := startRow + 1
	for end < len(d.lines) && isBodyLine(d.lines[end]) {
		end++
	}
	return end
}

func (d Document) rowStartingWith(keyword string) int {
	for i, line := range d.lines {
		if line[0] == keyword {
			return i
		}
	}
	return -1
}

func isBodyLine(line []string) bool {
	return len(line) > 1 && line[0] == ""
}

// JoinRow renders one row of cells as a single line of text.
func JoinRow(cells ...string) string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = sanitizeCell(c)
	}
	return strings.Join(out, CellDelimiter)
}
