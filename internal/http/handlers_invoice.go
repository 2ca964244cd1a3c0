package http

import (
	"net/http"

	"mesa/internal/core"
	"mesa/internal/services"
)

type resolveInvoiceRequest struct {
	CardID int64     `json:"card_id"`
	Date   core.Date `json:"date"`
}

// handleResolveInvoice returns the statement a purchase on date falls
// into, opening it when needed.
func (s *Server) handleResolveInvoice(w http.ResponseWriter, r *http.Request) {
	var req resolveInvoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if req.CardID <= 0 {
		writeServiceError(w, r, core.Invalid("card_id is required"))
		return
	}
	inv, err := s.svc.Invoices.Resolve(r.Context(), req.CardID, workspaceFrom(r.Context()), req.Date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	detail, err := s.svc.Invoices.Get(r.Context(), id, workspaceFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleRecalculateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	// scope check: Recalculate itself is workspace-agnostic
	if _, err := s.svc.Invoices.Get(r.Context(), id, workspaceFrom(r.Context())); err != nil {
		writeServiceError(w, r, err)
		return
	}
	inv, err := s.svc.Invoices.Recalculate(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) handlePayInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req services.PayInvoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	res, err := s.svc.Invoices.Pay(r.Context(), id, workspaceFrom(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleUnpayInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	ws := workspaceFrom(r.Context())
	if err := s.svc.Invoices.UndoPay(r.Context(), id, ws); err != nil {
		writeServiceError(w, r, err)
		return
	}
	detail, err := s.svc.Invoices.Get(r.Context(), id, ws)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
