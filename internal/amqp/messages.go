package amqp

import (
	"encoding/json"

	"mesa/internal/core"
)

// LedgerEventMessage wraps a ledger event for the wire. Consumers reload
// whatever state they need from the database.
type LedgerEventMessage struct {
	core.LedgerEvent
}

// NewLedgerEventMessage wraps an event for publishing.
func NewLedgerEventMessage(ev core.LedgerEvent) *LedgerEventMessage {
	return &LedgerEventMessage{LedgerEvent: ev}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
