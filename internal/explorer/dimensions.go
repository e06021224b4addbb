package explorer

import (
	"strconv"
	"strings"

	"github.com/owid/owid-grapher-sub039/internal/slug"
)

// Control suffixes that mark a graphers header cell as a dimension.
const (
	ControlRadio    = "Radio"
	ControlDropdown = "Dropdown"
	ControlCheckbox = "Checkbox"
)

var controls = []string{ControlRadio, ControlDropdown, ControlCheckbox}

// Choice is one selectable value of a dimension.
type Choice struct {
	Slug string
	Name string
}

// Dimension is a named axis of choice declared by the graphers header.
type Dimension struct {
	Slug    string
	Name    string
	Control string
	Choices []Choice
}

// ChoiceSlugs returns the choice slugs in declaration order.
func (d Dimension) ChoiceSlugs() []string {
	out := make([]string, len(d.Choices))
	for i, c := range d.Choices {
		out[i] = c.Slug
	}
	return out
}

// ViewRow is one body row of the graphers table below the header.
type ViewRow struct {
	// Row is the document row index.
	Row int
	// Choices maps dimension slug to choice slug; empty cells are absent.
	Choices   map[string]string
	GrapherID int
	// Overrides holds the non-empty cells of every other column, keyed by header name.
	Overrides map[string]string
}

type graphersTable struct {
	start  int
	header []string
	rows   [][]string
}

func (p *Program) graphers() (graphersTable, bool) {
	start := p.keywordRow(KeywordGraphers)
	if start < 0 {
		return graphersTable{}, false
	}
	block := p.doc.Block(start)
	if len(block) == 0 {
		return graphersTable{start: start}, true
	}
	return graphersTable{start: start, header: block[0], rows: block[1:]}, true
}

// parseDimensionHeader splits "Gas Radio" into ("Gas", "Radio").
func parseDimensionHeader(cell string) (name, control string, ok bool) {
	for _, c := range controls {
		if prefix, found := strings.CutSuffix(cell, " "+c); found && strings.TrimSpace(prefix) != "" {
			return strings.TrimSpace(prefix), c, true
		}
	}
	return "", "", false
}

// Dimensions returns the dimensions declared by the graphers header, in column order.
// A dimension's choices are the distinct non-empty values of its column, in order of
// first appearance; values that slugify identically are one choice.
func (p *Program) Dimensions() []Dimension {
	table, ok := p.graphers()
	if !ok {
		return nil
	}
	var dims []Dimension
	for col, cell := range table.header {
		name, control, ok := parseDimensionHeader(cell)
		if !ok {
			continue
		}
		dim := Dimension{Slug: slug.Slugify(name), Name: name, Control: control}
		seen := make(map[string]bool)
		for _, row := range table.rows {
			if col >= len(row) {
				continue
			}
			value := strings.TrimSpace(row[col])
			s := slug.Slugify(value)
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			dim.Choices = append(dim.Choices, Choice{Slug: s, Name: value})
		}
		dims = append(dims, dim)
	}
	return dims
}

// ViewRows returns the rows of the graphers table below its header.
func (p *Program) ViewRows() []ViewRow {
	table, ok := p.graphers()
	if !ok || len(table.rows) == 0 {
		return nil
	}
	rows := make([]ViewRow, 0, len(table.rows))
	for i, cells := range table.rows {
		vr := ViewRow{
			Row:       table.start + 2 + i,
			Choices:   make(map[string]string),
			Overrides: make(map[string]string),
		}
		for col, header := range table.header {
			if col >= len(cells) || header == "" {
				continue
			}
			value := strings.TrimSpace(cells[col])
			if value == "" {
				continue
			}
			if name, _, ok := parseDimensionHeader(header); ok {
				vr.Choices[slug.Slugify(name)] = slug.Slugify(value)
				continue
			}
			if header == GrapherIDColumn {
				vr.GrapherID, _ = strconv.Atoi(value)
				continue
			}
			vr.Overrides[header] = value
		}
		rows = append(rows, vr)
	}
	return rows
}

// RowForChoices returns the first row whose choices equal choices on every dimension.
func (p *Program) RowForChoices(choices map[string]string) (ViewRow, bool) {
	dims := p.Dimensions()
	for _, row := range p.ViewRows() {
		if matchCount(dims, row, choices) == len(dims) {
			return row, true
		}
	}
	return ViewRow{}, false
}

// ClosestRowForChoices returns the row agreeing with choices on the most dimensions.
// The earliest row wins a tie; a row must agree on at least one dimension.
func (p *Program) ClosestRowForChoices(choices map[string]string) (ViewRow, bool) {
	if row, ok := p.RowForChoices(choices); ok {
		return row, true
	}
	dims := p.Dimensions()
	best, bestScore := ViewRow{}, 0
	for _, row := range p.ViewRows() {
		if score := matchCount(dims, row, choices); score > bestScore {
			best, bestScore = row, score
		}
	}
	return best, bestScore > 0
}

func matchCount(dims []Dimension, row ViewRow, choices map[string]string) int {
	n := 0
	for _, d := range dims {
		want := slug.Slugify(choices[d.Slug])
		if want != "" && row.Choices[d.Slug] == want {
			n++
		}
	}
	return n
}
