package http

import (
	"net/http"

	"mesa/internal/core"
	"mesa/internal/services"
)

type receiptRequest struct {
	Filename string `json:"filename"`
}

type cancellationRequest struct {
	From core.Month `json:"from"`
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	e, err := s.svc.Expenses.Get(r.Context(), id, workspaceFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var u services.ExpenseUpdate
	if err := decodeJSON(r, &u); err != nil {
		writeServiceError(w, r, err)
		return
	}
	e, err := s.svc.Expenses.Update(r.Context(), id, workspaceFrom(r.Context()), u)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := s.svc.Expenses.Delete(r.Context(), id, workspaceFrom(r.Context())); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePayExpense accepts an optional {amount, date}; both default to the
// provisioned amount and today.
func (s *Server) handlePayExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req services.PaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	e, err := s.svc.Expenses.Pay(r.Context(), id, workspaceFrom(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUnpayExpense(w http.ResponseWriter, r *http.Request) {
	s.expenseAction(w, r, func(id, ws int64) error {
		return s.svc.Expenses.Unpay(r.Context(), id, ws)
	})
}

func (s *Server) handleSetExpenseActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.expenseAction(w, r, func(id, ws int64) error {
			return s.svc.Expenses.SetActive(r.Context(), id, ws, active)
		})
	}
}

func (s *Server) handleAttachReceipt(w http.ResponseWriter, r *http.Request) {
	var req receiptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.expenseAction(w, r, func(id, ws int64) error {
		return s.svc.Expenses.AttachReceipt(r.Context(), id, ws, req.Filename)
	})
}

func (s *Server) handleCancelSeries(w http.ResponseWriter, r *http.Request) {
	var req cancellationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.expenseAction(w, r, func(id, ws int64) error {
		return s.svc.Resolver.CancelSeries(r.Context(), id, ws, req.From)
	})
}

func (s *Server) handleResumeSeries(w http.ResponseWriter, r *http.Request) {
	s.expenseAction(w, r, func(id, ws int64) error {
		return s.svc.Resolver.ResumeSeries(r.Context(), id, ws)
	})
}

// expenseAction runs a state change and answers with the updated expense.
func (s *Server) expenseAction(w http.ResponseWriter, r *http.Request, fn func(id, ws int64) error) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	ws := workspaceFrom(r.Context())
	if err := fn(id, ws); err != nil {
		writeServiceError(w, r, err)
		return
	}
	e, err := s.svc.Expenses.Get(r.Context(), id, ws)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}
