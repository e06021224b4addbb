package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/owid/owid-grapher-sub039/internal/commands"
	"github.com/owid/owid-grapher-sub039/internal/explorer"
	"github.com/owid/owid-grapher-sub039/internal/grid"
	"github.com/owid/owid-grapher-sub039/internal/logger"
	"github.com/owid/owid-grapher-sub039/pkg/api"
)

// commandResult collects what a command delivers through its callbacks.
type commandResult struct {
	tsv       string
	selection []grid.CellPosition
}

func (h *Handlers) commandEnv(r *http.Request, res *commandResult) (commands.Env, commands.Selection, bool) {
	var req api.CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Row < 0 || req.Column < 0 {
		return commands.Env{}, commands.Selection{}, false
	}
	res.tsv = req.TSV
	env := commands.Env{
		Program:      explorer.New(r.PathValue("slug"), req.TSV),
		SelectCells:  func(cells []grid.CellPosition) { res.selection = cells },
		ApplyProgram: func(text string) { res.tsv = text },
		Catalog:      h.catalog,
	}
	return env, commands.Selection{Row: req.Row, Column: req.Column}, true
}

// ListCommands handles POST /explorers/{slug}/commands.
// It returns the commands offered for the selected cell of the posted program.
func (h *Handlers) ListCommands(w http.ResponseWriter, r *http.Request) {
	env, sel, ok := h.commandEnv(r, &commandResult{})
	if !ok {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	out := []api.CommandResponse{}
	for _, c := range commands.Visible(commands.All(env), sel) {
		out = append(out, api.CommandResponse{
			ID:       c.ID(),
			Label:    c.Name(sel),
			Disabled: c.Disabled(sel),
		})
	}
	h.respondJson(w, http.StatusOK, out)
}

// RunCommand handles POST /explorers/{slug}/commands/{id}.
// The program is not saved; the caller publishes the returned text when it wants to.
func (h *Handlers) RunCommand(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var res commandResult
	env, sel, ok := h.commandEnv(r, &res)
	if !ok {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cmd, found := commands.ByID(commands.All(env), r.PathValue("id"))
	if !found || cmd.Hidden(sel) {
		h.httpError(w, "Command not found", http.StatusNotFound)
		return
	}
	if cmd.Disabled(sel) {
		h.httpError(w, "Command is disabled for this cell", http.StatusConflict)
		return
	}

	if err := cmd.Run(ctx, sel); err != nil {
		logger.FromContext(ctx, h.log).Warn("command failed", "command", cmd.ID(), "error", err)
		h.httpErrorDetails(w, "Command failed", err.Error(), http.StatusUnprocessableEntity)
		return
	}

	out := api.RunCommandResponse{TSV: res.tsv}
	for _, c := range res.selection {
		out.Selection = append(out.Selection, api.Cell{Row: c.Row, Column: c.Column})
	}
	h.respondJson(w, http.StatusOK, out)
}
