package http

import (
	"net/http"
	"strings"

	"mesa/internal/core"
	"mesa/internal/services"
)

type confirmRequest struct {
	Month  core.Month `json:"month"`
	Amount core.Money `json:"amount"`
	Date   core.Date  `json:"date"`
}

func (s *Server) handleGetIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	inc, err := s.svc.Incomes.Get(r.Context(), id, workspaceFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inc)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var u services.IncomeUpdate
	if err := decodeJSON(r, &u); err != nil {
		writeServiceError(w, r, err)
		return
	}
	inc, err := s.svc.Incomes.Update(r.Context(), id, workspaceFrom(r.Context()), u)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inc)
}

// handleDeleteIncome removes an income; deleting a template also removes
// its confirmations.
func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := s.svc.Incomes.Delete(r.Context(), id, workspaceFrom(r.Context())); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetIncomeActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		ws := workspaceFrom(r.Context())
		if err := s.svc.Incomes.SetActive(r.Context(), id, ws, active); err != nil {
			writeServiceError(w, r, err)
			return
		}
		inc, err := s.svc.Incomes.Get(r.Context(), id, ws)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, inc)
	}
}

// handleConfirmIncome confirms a one-off income in place, or one month of
// a recurring template when the body names that month.
func (s *Server) handleConfirmIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req confirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	res, err := s.svc.Resolver.ConfirmIncome(r.Context(), id, workspaceFrom(r.Context()), req.Month, req.Amount, req.Date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.NewID != 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

// handleUndoConfirmation takes ?month when {id} is a recurring template.
func (s *Server) handleUndoConfirmation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var m core.Month
	if raw := strings.TrimSpace(r.URL.Query().Get("month")); raw != "" {
		if m, err = core.ParseMonth(raw); err != nil {
			writeServiceError(w, r, core.Invalid("invalid month %q", raw))
			return
		}
	}
	res, err := s.svc.Resolver.UndoConfirmation(r.Context(), id, workspaceFrom(r.Context()), m)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
