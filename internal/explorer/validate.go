package explorer

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/owid/owid-grapher-sub039/internal/slug"
)

// ErrInvalidProgram wraps every structural problem found in a program.
var ErrInvalidProgram = errors.New("invalid explorer program")

// Validate reports every structural problem of the program at once. The returned error
// wraps ErrInvalidProgram.
func (p *Program) Validate() error {
	var result *multierror.Error

	if v, ok := p.doc.LineValue(KeywordIsPublished); ok {
		if v = strings.TrimSpace(v); v != "true" && v != "false" {
			result = multierror.Append(result, fmt.Errorf("isPublished must be true or false, got %q", v))
		}
	}

	for _, row := range p.doc.RowNumbersStartingWith(KeywordTable) {
		cells := p.doc.Row(row)
		if len(cells) < 2 || cells[1] == "" {
			result = multierror.Append(result, fmt.Errorf("row %d: table has no path", row+1))
		}
	}

	for _, row := range p.doc.RowNumbersStartingWith(KeywordColumns) {
		block := p.doc.Block(row)
		if len(block) > 0 && !slices.Contains(block[0], ColumnSlugHeader) {
			result = multierror.Append(result, fmt.Errorf("row %d: columns block has no %s header", row+1, ColumnSlugHeader))
		}
	}

	if table, ok := p.graphers(); ok {
		if len(table.header) == 0 {
			result = multierror.Append(result, fmt.Errorf("row %d: graphers block has no header row", table.start+1))
		}
		seen := make(map[string]bool)
		for _, cell := range table.header {
			name, _, ok := parseDimensionHeader(cell)
			if !ok {
				continue
			}
			s := slug.Slugify(name)
			if seen[s] {
				result = multierror.Append(result, fmt.Errorf("duplicate dimension %q", s))
			}
			seen[s] = true
		}
		if idCol := slices.Index(table.header, GrapherIDColumn); idCol >= 0 {
			for i, cells := range table.rows {
				if idCol >= len(cells) || strings.TrimSpace(cells[idCol]) == "" {
					continue
				}
				if _, err := strconv.Atoi(strings.TrimSpace(cells[idCol])); err != nil {
					result = multierror.Append(result, fmt.Errorf("row %d: grapherId %q is not an integer", table.start+3+i, cells[idCol]))
				}
			}
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		result.ErrorFormat = listFormat
		return fmt.Errorf("%w: %w", ErrInvalidProgram, result)
	}
	return nil
}

func listFormat(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}
