package core

// StatementMonth maps a card transaction to the reference month of the
// statement it is billed on. Purchases before the closing day land on the
// statement of their own month; purchases on or after it roll to the next.
func StatementMonth(closingDay int, tx Date) Month {
	m := MonthOf(tx.Time)
	if tx.Day() < closingDay {
		return m
	}
	return m.Add(1)
}

// StatementDates returns the closing and due dates of the statement for
// ref: both fall inside the reference month, on the card's closing and due
// days clamped to the month's last day. A due day numerically before the
// closing day is kept as is, so such a statement is due before it closes.
func StatementDates(ref Month, closingDay, dueDay int) (closing, due Date) {
	return ref.Day(closingDay), ref.Day(dueDay)
}

// NewStatement builds the empty open statement a transaction on tx falls
// into for the given card.
func NewStatement(card Card, workspaceID int64, tx Date) Invoice {
	ref := StatementMonth(card.ClosingDay, tx)
	closing, due := StatementDates(ref, card.ClosingDay, card.DueDay)
	return Invoice{
		CardID:         card.ID,
		WorkspaceID:    workspaceID,
		ReferenceMonth: ref,
		ClosingDate:    closing,
		DueDate:        due,
		Status:         InvoiceOpen,
		Active:         true,
	}
}
