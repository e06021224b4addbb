package explorer

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/owid/owid-grapher-sub039/internal/datasource"
	"github.com/owid/owid-grapher-sub039/internal/grid"
)

// TableSlugs returns the slug of every table row, in document order.
func (p *Program) TableSlugs() []string {
	var slugs []string
	for _, row := range p.doc.RowNumbersStartingWith(KeywordTable) {
		cells := p.doc.Row(row)
		if len(cells) > 2 && cells[2] != "" && !slices.Contains(slugs, cells[2]) {
			slugs = append(slugs, cells[2])
		}
	}
	return slugs
}

// TablePath returns the data source path declared for tableSlug.
func (p *Program) TablePath(tableSlug string) (string, bool) {
	row := p.tableRow(tableSlug)
	if row < 0 {
		return "", false
	}
	cells := p.doc.Row(row)
	if len(cells) < 2 || cells[1] == "" {
		return "", false
	}
	return cells[1], true
}

func (p *Program) tableRow(tableSlug string) int {
	for _, row := range p.doc.RowNumbersStartingWith(KeywordTable) {
		cells := p.doc.Row(row)
		if len(cells) > 2 && cells[2] == tableSlug {
			return row
		}
	}
	return -1
}

// DeclaredColumns returns the column slugs defined in the columns block of tableSlug.
func (p *Program) DeclaredColumns(tableSlug string) []string {
	start := p.keywordRow(KeywordColumns, tableSlug)
	if start < 0 {
		return nil
	}
	block := p.doc.Block(start)
	if len(block) == 0 {
		return nil
	}
	slugCol := slices.Index(block[0], ColumnSlugHeader)
	if slugCol < 0 {
		return nil
	}
	var declared []string
	for _, row := range block[1:] {
		if slugCol < len(row) && row[slugCol] != "" {
			declared = append(declared, row[slugCol])
		}
	}
	return declared
}

// AutofillMissingColumnDefinitionsForTable reads the columns of tableSlug's data source
// and returns a program whose columns block also defines every column not yet declared.
// The block is created after the table row when the program has none.
func (p *Program) AutofillMissingColumnDefinitionsForTable(ctx context.Context, catalog datasource.Catalog, tableSlug string) (*Program, error) {
	path, ok := p.TablePath(tableSlug)
	if !ok {
		return nil, fmt.Errorf("%w: no table row for %q", ErrInvalidProgram, tableSlug)
	}
	available, err := catalog.Columns(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", path, err)
	}

	declared := p.DeclaredColumns(tableSlug)
	var missing []datasource.Column
	for _, col := range available {
		if !slices.Contains(declared, col.Slug) {
			missing = append(missing, col)
		}
	}
	if len(missing) == 0 {
		return p, nil
	}

	start := p.keywordRow(KeywordColumns, tableSlug)
	if start < 0 {
		lines := []string{grid.JoinRow(KeywordColumns, tableSlug), grid.JoinRow("", ColumnSlugHeader, ColumnNameHeader, ColumnTypeHeader)}
		for _, col := range missing {
			lines = append(lines, grid.JoinRow("", col.Slug, col.Name, col.Type))
		}
		return p.withDocument(p.doc.InsertLinesAfter(p.tableRow(tableSlug), strings.Join(lines, grid.NodeDelimiter))), nil
	}

	block := p.doc.Block(start)
	if len(block) == 0 {
		block = [][]string{{ColumnSlugHeader, ColumnNameHeader, ColumnTypeHeader}}
	}
	header := block[0]
	if !slices.Contains(header, ColumnSlugHeader) {
		return nil, fmt.Errorf("%w: columns block for %q has no %s header", ErrInvalidProgram, tableSlug, ColumnSlugHeader)
	}
	for _, col := range missing {
		row := make([]string, len(header))
		for i, h := range header {
			switch h {
			case ColumnSlugHeader:
				row[i] = col.Slug
			case ColumnNameHeader:
				row[i] = col.Name
			case ColumnTypeHeader:
				row[i] = col.Type
			}
		}
		block = append(block, trimTrailingEmpty(row))
	}
	return p.withDocument(p.doc.UpdateBlock(start, block)), nil
}

func trimTrailingEmpty(row []string) []string {
	for len(row) > 1 && row[len(row)-1] == "" {
		row = row[:len(row)-1]
	}
	return row
}
