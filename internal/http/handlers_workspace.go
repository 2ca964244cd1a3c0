package http

import (
	"net/http"

	"mesa/internal/core"
	applog "mesa/internal/log"
)

type createWorkspaceRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req createWorkspaceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	user := identityFrom(r.Context())
	ws, err := s.svc.Workspaces.Create(r.Context(), req.Name, user.ID, user.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Workspace created", applog.FieldWorkspaceID, ws.ID)
	writeJSON(w, http.StatusCreated, ws)
}

// handleCreateCard registers a card owned by the caller.
func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var card core.Card
	if err := decodeJSON(r, &card); err != nil {
		writeServiceError(w, r, err)
		return
	}
	created, err := s.svc.Workspaces.CreateCard(r.Context(), identityFrom(r.Context()).ID, card)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handlePaymentTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.svc.Workspaces.PaymentTypes(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

type createdResponse struct {
	IDs []int64 `json:"ids"`
}

func (s *Server) handleCreateExpenses(w http.ResponseWriter, r *http.Request) {
	s.createEntries(w, r, core.EntryExpense)
}

func (s *Server) handleCreateIncomes(w http.ResponseWriter, r *http.Request) {
	s.createEntries(w, r, core.EntryIncome)
}

func (s *Server) createEntries(w http.ResponseWriter, r *http.Request, kind core.EntryKind) {
	var req core.EntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	req.WorkspaceID = workspaceFrom(r.Context())
	ids, err := s.svc.Entries.Create(r.Context(), kind, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{IDs: ids})
}

// handleMonthEntries lists what is visible in the workspace for ?month.
func (s *Server) handleMonthEntries(w http.ResponseWriter, r *http.Request) {
	m, err := monthParam(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	view, err := s.svc.Resolver.MonthView(r.Context(), workspaceFrom(r.Context()), m)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleProjection aggregates ?workspaces=1,2 for ?month. The caller must
// belong to every listed workspace.
func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDList(r.URL.Query().Get("workspaces"))
	if err != nil {
		writeServiceError(w, r, core.Invalid("workspaces: %v", err))
		return
	}
	if len(ids) == 0 {
		writeServiceError(w, r, core.Invalid("at least one workspace is required"))
		return
	}
	m, err := monthParam(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	user := identityFrom(r.Context())
	for _, ws := range ids {
		ok, err := s.svc.Workspaces.IsMember(r.Context(), ws, user.ID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if !ok {
			writeError(w, http.StatusForbidden, "forbidden", "not a member of every requested workspace")
			return
		}
	}
	report, err := s.svc.Projection.Projection(r.Context(), ids, m)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
