// Package explorer interprets a grid document as an explorer program: a handful of
// keyword rows plus the graphers table that cross-references dimensions and choices.
package explorer

import (
	"strings"

	"github.com/owid/owid-grapher-sub039/internal/grid"
)

// Program is an immutable explorer definition. Edits return a new Program.
type Program struct {
	slug string
	doc  grid.Document
}

// New parses text as the program of the explorer identified by slug.
func New(slug, text string) *Program {
	return &Program{slug: slug, doc: grid.Parse(slug, text)}
}

// FromDocument wraps an already parsed document.
func FromDocument(slug string, doc grid.Document) *Program {
	return &Program{slug: slug, doc: doc}
}

func (p *Program) Slug() string            { return p.slug }
func (p *Program) Document() grid.Document { return p.doc }
func (p *Program) String() string          { return p.doc.String() }

func (p *Program) Title() string {
	v, _ := p.doc.LineValue(KeywordTitle)
	return v
}

func (p *Program) Subtitle() string {
	v, _ := p.doc.LineValue(KeywordSubtitle)
	return v
}

// IsPublished reports whether the isPublished row is set to "true".
func (p *Program) IsPublished() bool {
	v, _ := p.doc.LineValue(KeywordIsPublished)
	return strings.TrimSpace(v) == "true"
}

// Selection returns the default selected entities.
func (p *Program) Selection() []string {
	row := p.keywordRow(KeywordSelection)
	if row < 0 {
		return nil
	}
	var entities []string
	for _, cell := range p.doc.Row(row)[1:] {
		if cell != "" {
			entities = append(entities, cell)
		}
	}
	return entities
}

// SetPublished returns a copy with the isPublished row set.
func (p *Program) SetPublished(published bool) *Program {
	value := "false"
	if published {
		value = "true"
	}
	return p.withDocument(p.doc.SetLineValue(KeywordIsPublished, value))
}

// Patch applies keyword values in order.
func (p *Program) Patch(values ...grid.KeywordValue) *Program {
	return p.withDocument(p.doc.Patch(values...))
}

// FindAll returns every cell with the same contents as the cell at pos.
func (p *Program) FindAll(pos grid.CellPosition) []grid.CellPosition {
	return p.doc.FindAll(pos)
}

// keywordRow returns the first keyword row starting with words, or -1. Body rows that
// happen to contain a keyword are skipped.
func (p *Program) keywordRow(words ...string) int {
	for _, row := range p.doc.AllRowsMatchingWords(words...) {
		if p.doc.IsKeywordRow(row) {
			return row
		}
	}
	return -1
}

func (p *Program) withDocument(doc grid.Document) *Program {
	return &Program{slug: p.slug, doc: doc}
}
