// Package grid models a tab-delimited text document as an addressable 2-D grid.
//
// A Document is an ordered list of lines, each an ordered list of cells. Documents are
// values: every edit returns a new Document and the receiver is never modified, so the
// same document can be held by an editor and a background worker without copying.
//
// A document always has at least one line and every line has at least one cell. With
// that invariant Parse and String are inverse functions, which is what makes
// Parse(d.String()).Equal(d) hold for any document.
package grid

import (
	"strings"
)

const (
	// NodeDelimiter separates lines.
	NodeDelimiter = "\n"
	// CellDelimiter separates cells within a line.
	CellDelimiter = "\t"
)

// CellPosition addresses one cell.
type CellPosition struct {
	Row    int
	Column int
}

// Before reports whether p comes before other in row-major order.
func (p CellPosition) Before(other CellPosition) bool {
	if p.Row != other.Row {
		return p.Row < other.Row
	}
	return p.Column < other.Column
}

// KeywordValue is one entry of a Patch.
type KeywordValue struct {
	Keyword string
	Value   string
}

// Document is an immutable tab-delimited grid.
type Document struct {
	name  string
	lines [][]string
}

// Parse splits text on line breaks and then on tabs. It never fails: short or empty
// lines simply produce fewer cells.
func Parse(name, text string) Document {
	rawLines := strings.Split(text, NodeDelimiter)
	lines := make([][]string, len(rawLines))
	for i, raw := range rawLines {
		lines[i] = strings.Split(strings.TrimSuffix(raw, "\r"), CellDelimiter)
	}
	return Document{name: name, lines: lines}
}

// Name returns the document name given to Parse.
func (d Document) Name() string {
	return d.name
}

// NumRows returns the number of lines.
func (d Document) NumRows() int {
	return len(d.lines)
}

// Lines returns a deep copy of the document's cells.
func (d Document) Lines() [][]string {
	return cloneLines(d.lines)
}

// Row returns a copy of one line, or nil when row is out of range.
func (d Document) Row(row int) []string {
	if row < 0 || row >= len(d.lines) {
		return nil
	}
	return append([]string(nil), d.lines[row]...)
}

// Cell returns the contents of the cell at pos.
func (d Document) Cell(pos CellPosition) (string, bool) {
	if pos.Row < 0 || pos.Row >= len(d.lines) {
		return "", false
	}
	line := d.lines[pos.Row]
	if pos.Column < 0 || pos.Column >= len(line) {
		return "", false
	}
	return line[pos.Column], true
}

// String renders the document back to tab-delimited text.
func (d Document) String() string {
	if len(d.lines) == 0 {
		return ""
	}
	var b strings.Builder
	for i, line := range d.lines {
		if i > 0 {
			b.WriteString(NodeDelimiter)
		}
		b.WriteString(strings.Join(line, CellDelimiter))
	}
	return b.String()
}

// Equal reports whether both documents have identical cells. The name is not compared.
func (d Document) Equal(other Document) bool {
	if len(d.lines) != len(other.lines) {
		return false
	}
	for i := range d.lines {
		if len(d.lines[i]) != len(other.lines[i]) {
			return false
		}
		for j := range d.lines[i] {
			if d.lines[i][j] != other.lines[i][j] {
				return false
			}
		}
	}
	return true
}

func (d Document) withLines(lines [][]string) Document {
	if len(lines) == 0 {
		lines = [][]string{{""}}
	}
	return Document{name: d.name, lines: lines}
}

func cloneLines(lines [][]string) [][]string {
	out := make([][]string, len(lines))
	for i, line := range lines {
		out[i] = append([]string(nil), line...)
	}
	return out
}

var cellSanitizer = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")

// sanitizeCell keeps delimiters out of cell contents.
func sanitizeCell(s string) string {
	return cellSanitizer.Replace(s)
}

func normalizeRow(row []string) []string {
	if len(row) == 0 {
		return []string{""}
	}
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = sanitizeCell(cell)
	}
	return out
}
