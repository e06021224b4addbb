// Package commands implements the editor commands offered for a selected cell of an
// explorer program.
package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/owid/owid-grapher-sub039/internal/datasource"
	"github.com/owid/owid-grapher-sub039/internal/explorer"
	"github.com/owid/owid-grapher-sub039/internal/grid"
)

// Selection is the cell the command is evaluated against.
type Selection = grid.CellPosition

// Command is one editor action. Every method is evaluated against the selected cell.
type Command interface {
	// ID is the stable identifier hosts invoke the command by.
	ID() string
	Name(sel Selection) string
	Disabled(sel Selection) bool
	Hidden(sel Selection) bool
	Run(ctx context.Context, sel Selection) error
}

// Env is what commands read and the host callbacks they deliver results through.
type Env struct {
	Program *explorer.Program
	// SelectCells replaces the editor selection.
	SelectCells func(cells []grid.CellPosition)
	// ApplyProgram replaces the program text held by the editor.
	ApplyProgram func(text string)
	Catalog      datasource.Catalog
}

// All returns every command, in menu order.
func All(env Env) []Command {
	return []Command{
		SelectAllMatches{env: env},
		AutofillMissingColumns{env: env},
	}
}

// Visible filters out commands hidden for sel.
func Visible(cmds []Command, sel Selection) []Command {
	var out []Command
	for _, c := range cmds {
		if !c.Hidden(sel) {
			out = append(out, c)
		}
	}
	return out
}

// ByID returns the command with id.
func ByID(cmds []Command, id string) (Command, bool) {
	for _, c := range cmds {
		if c.ID() == id {
			return c, true
		}
	}
	return nil, false
}

// SelectAllMatches selects every cell with the same contents as the selected one.
type SelectAllMatches struct {
	env Env
}

func (SelectAllMatches) ID() string { return "select-all-matches" }

func (c SelectAllMatches) Name(sel Selection) string {
	cell := c.env.Program.GetCell(sel)
	return fmt.Sprintf("Select %d matches of '%s'", len(c.env.Program.FindAll(sel)), cell.Contents)
}

// Disabled reports whether fewer than two cells match.
func (c SelectAllMatches) Disabled(sel Selection) bool {
	return len(c.env.Program.FindAll(sel)) < 2
}

func (c SelectAllMatches) Hidden(Selection) bool { return false }

func (c SelectAllMatches) Run(_ context.Context, sel Selection) error {
	if c.env.SelectCells == nil {
		return errors.New("no selection callback")
	}
	c.env.SelectCells(c.env.Program.FindAll(sel))
	return nil
}

// AutofillMissingColumns adds definitions for every undeclared column of the table
// named on the selected table row.
type AutofillMissingColumns struct {
	env Env
}

func (c AutofillMissingColumns) tableSlug(sel Selection) string {
	row := c.env.Program.Document().Row(sel.Row)
	if len(row) < 3 {
		return ""
	}
	return row[2]
}

func (AutofillMissingColumns) ID() string { return "autofill-missing-columns" }

func (c AutofillMissingColumns) Name(sel Selection) string {
	return fmt.Sprintf("Autofill missing column definitions for '%s'", c.tableSlug(sel))
}

func (c AutofillMissingColumns) Disabled(sel Selection) bool {
	return c.tableSlug(sel) == ""
}

// Hidden reports whether sel is outside a table keyword row.
func (c AutofillMissingColumns) Hidden(sel Selection) bool {
	row := c.env.Program.Document().Row(sel.Row)
	return len(row) == 0 || row[0] != explorer.KeywordTable
}

func (c AutofillMissingColumns) Run(ctx context.Context, sel Selection) error {
	slug := c.tableSlug(sel)
	if slug == "" {
		return errors.New("selected row names no table")
	}
	if c.env.Catalog == nil || c.env.ApplyProgram == nil {
		return errors.New("autofill needs a catalog and an apply callback")
	}
	filled, err := c.env.Program.AutofillMissingColumnDefinitionsForTable(ctx, c.env.Catalog, slug)
	if err != nil {
		return err
	}
	c.env.ApplyProgram(filled.String())
	return nil
}
