package core

import "time"

// LedgerEventType names a committed write other processes may react to.
type LedgerEventType string

const (
	EventEntriesCreated      LedgerEventType = "entries.created"
	EventExpenseUpdated      LedgerEventType = "expense.updated"
	EventExpenseDeleted      LedgerEventType = "expense.deleted"
	EventIncomeUpdated       LedgerEventType = "income.updated"
	EventIncomeDeleted       LedgerEventType = "income.deleted"
	EventIncomeConfirmed     LedgerEventType = "income.confirmed"
	EventIncomeUnconfirmed   LedgerEventType = "income.unconfirmed"
	EventSeriesCancelled     LedgerEventType = "series.cancelled"
	EventSeriesResumed       LedgerEventType = "series.resumed"
	EventInvoiceRecalculated LedgerEventType = "invoice.recalculated"
	EventInvoicePaid         LedgerEventType = "invoice.paid"
	EventInvoiceReopened     LedgerEventType = "invoice.reopened"
)

// LedgerEvent carries only identifiers; consumers reload what they need.
type LedgerEvent struct {
	Type        LedgerEventType `json:"type"`
	WorkspaceID int64           `json:"workspace_id"`
	Month       Month           `json:"month"`
	EntityID    int64           `json:"entity_id"`
	Timestamp   time.Time       `json:"timestamp"`
}

// NewLedgerEvent stamps an event with the current time.
func NewLedgerEvent(t LedgerEventType, workspaceID int64, month Month, entityID int64) LedgerEvent {
	return LedgerEvent{
		Type:        t,
		WorkspaceID: workspaceID,
		Month:       month,
		EntityID:    entityID,
		Timestamp:   time.Now().UTC(),
	}
}
