package explorer

import "github.com/owid/owid-grapher-sub039/internal/grid"

// Keywords recognized in the first cell of a row.
const (
	KeywordTitle       = "explorerTitle"
	KeywordSubtitle    = "explorerSubtitle"
	KeywordIsPublished = "isPublished"
	KeywordSelection   = "selection"
	KeywordTable       = "table"
	KeywordColumns     = "columns"
	KeywordGraphers    = "graphers"
)

// Column header names with a fixed meaning.
const (
	GrapherIDColumn  = "grapherId"
	ColumnSlugHeader = "slug"
	ColumnNameHeader = "name"
	ColumnTypeHeader = "type"
)

// CellKind classifies what a cell holds.
type CellKind string

const (
	KindKeyword        CellKind = "keyword"
	KindValue          CellKind = "value"
	KindHeader         CellKind = "header"
	KindChoice         CellKind = "choice"
	KindGrapherID      CellKind = "grapherId"
	KindOverride       CellKind = "override"
	KindColumnProperty CellKind = "columnProperty"
)

// CellDef describes a recognized cell.
type CellDef struct {
	Keyword     string
	Column      string
	Kind        CellKind
	Description string
}

// Cell is the raw contents of a position plus its definition, when recognized.
type Cell struct {
	Contents string
	Def      *CellDef
}

type keywordDef struct {
	description string
	args        []string
}

var keywordDefs = map[string]keywordDef{
	KeywordTitle:       {description: "Title of the explorer page", args: []string{"title"}},
	KeywordSubtitle:    {description: "Subtitle of the explorer page", args: []string{"subtitle"}},
	KeywordIsPublished: {description: "Whether the explorer is published (true or false)", args: []string{"value"}},
	KeywordSelection:   {description: "Entities selected by default", args: []string{"entity"}},
	KeywordTable:       {description: "Tabular data source", args: []string{"path", "tableSlug"}},
	KeywordColumns:     {description: "Column definitions for a table", args: []string{"tableSlug"}},
	KeywordGraphers:    {description: "Dimension and choice table; one row per view"},
}

// GetCell resolves pos to its contents and, for recognized keyword rows and block
// bodies, the definition of the cell.
func (p *Program) GetCell(pos grid.CellPosition) Cell {
	contents, _ := p.doc.Cell(pos)
	return Cell{Contents: contents, Def: p.cellDef(pos)}
}

func (p *Program) cellDef(pos grid.CellPosition) *CellDef {
	if pos.Column < 0 {
		return nil
	}
	start := p.doc.BlockStartFor(pos.Row)
	if start < 0 {
		return nil
	}
	keyword, _ := p.doc.Cell(grid.CellPosition{Row: start})
	def, ok := keywordDefs[keyword]
	if !ok {
		return nil
	}

	if start == pos.Row {
		if pos.Column == 0 {
			return &CellDef{Keyword: keyword, Kind: KindKeyword, Description: def.description}
		}
		if len(def.args) == 0 {
			return nil
		}
		i := min(pos.Column-1, len(def.args)-1)
		return &CellDef{Keyword: keyword, Column: def.args[i], Kind: KindValue, Description: def.description}
	}

	// Block body: the first body row is the header, column 0 is the indent.
	if pos.Column == 0 {
		return nil
	}
	header := p.doc.Row(start + 1)
	if pos.Column >= len(header) {
		return nil
	}
	name := header[pos.Column]
	if pos.Row == start+1 {
		return &CellDef{Keyword: keyword, Column: name, Kind: KindHeader, Description: "Column header"}
	}

	switch keyword {
	case KeywordGraphers:
		if dimName, control, ok := parseDimensionHeader(name); ok {
			return &CellDef{Keyword: keyword, Column: name, Kind: KindChoice, Description: control + " choice for " + dimName}
		}
		if name == GrapherIDColumn {
			return &CellDef{Keyword: keyword, Column: name, Kind: KindGrapherID, Description: "Id of the base chart"}
		}
		return &CellDef{Keyword: keyword, Column: name, Kind: KindOverride, Description: "Chart config override"}
	case KeywordColumns:
		return &CellDef{Keyword: keyword, Column: name, Kind: KindColumnProperty, Description: "Column " + name}
	}
	return nil
}
