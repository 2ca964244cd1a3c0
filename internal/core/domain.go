package core

import (
	"strings"
	"time"
)

// MaxInstallments bounds how many monthly rows one entry may generate.
const MaxInstallments = 60

const (
	KindVariable     ExpenseKind = "variable"
	KindFixed        ExpenseKind = "fixed"
	KindSubscription ExpenseKind = "subscription"

	IncomePending  IncomeStatus = "pending"
	IncomeReceived IncomeStatus = "received"

	InvoiceOpen InvoiceStatus = "open"
	InvoicePaid InvoiceStatus = "paid"

	CardCredit CardType = "credit"
	CardDebit  CardType = "debit"

	EntryExpense EntryKind = "expense"
	EntryIncome  EntryKind = "income"
)

type (
	ExpenseKind   string
	IncomeStatus  string
	InvoiceStatus string
	CardType      string
	EntryKind     string

	// Expense is a payable obligation. CardID and InvoiceID are either both
	// set (credit card purchase) or both zero.
	Expense struct {
		ID               int64       `json:"id"`
		WorkspaceID      int64       `json:"workspace_id"`
		Description      string      `json:"description"`
		Kind             ExpenseKind `json:"kind"`
		Amount           Money       `json:"amount"`
		DueDate          Date        `json:"due_date"`
		CategoryID       int64       `json:"category_id,omitempty"`
		PaymentTypeID    int64       `json:"payment_type_id,omitempty"`
		CardID           int64       `json:"card_id,omitempty"`
		Recurring        bool        `json:"recurring"`
		InstallmentCount int         `json:"installment_count"`
		InstallmentIndex int         `json:"installment_index"`
		InstallmentGroup string      `json:"installment_group"`
		InvoiceID        int64       `json:"invoice_id,omitempty"`
		Paid             bool        `json:"paid"`
		PaidAmount       Money       `json:"paid_amount"`
		PaymentDate      Date        `json:"payment_date"`
		CancelledFrom    Date        `json:"cancelled_from"`
		Active           bool        `json:"active"`
		Receipt          string      `json:"receipt,omitempty"`
	}

	// Income is a receivable. A row with OriginID set is the confirmation of
	// one month of the recurring template OriginID.
	Income struct {
		ID               int64        `json:"id"`
		WorkspaceID      int64        `json:"workspace_id"`
		Description      string       `json:"description"`
		Amount           Money        `json:"amount"`
		ReceiptDate      Date         `json:"receipt_date"`
		CategoryID       int64        `json:"category_id,omitempty"`
		PaymentTypeID    int64        `json:"payment_type_id,omitempty"`
		Recurring        bool         `json:"recurring"`
		Status           IncomeStatus `json:"status"`
		ReceivedAmount   Money        `json:"received_amount"`
		ConfirmedOn      Date         `json:"confirmed_on"`
		InstallmentCount int          `json:"installment_count"`
		InstallmentIndex int          `json:"installment_index"`
		InstallmentGroup string       `json:"installment_group"`
		OriginID         int64        `json:"origin_id,omitempty"`
		ReferenceMonth   Month        `json:"reference_month"`
		Active           bool         `json:"active"`
	}

	// Card belongs to one user. ClosingDay and DueDay are days of month.
	Card struct {
		ID            int64    `json:"id"`
		UserID        int64    `json:"user_id"`
		Name          string   `json:"name"`
		Type          CardType `json:"type"`
		ClosingDay    int      `json:"closing_day"`
		DueDay        int      `json:"due_day"`
		CreditLimit   Money    `json:"credit_limit"`
		PersonalLimit Money    `json:"personal_limit"`
		Active        bool     `json:"active"`
	}

	// Invoice is a card's monthly statement. Total is derived from the active
	// linked expenses and only ever written by a recalculation.
	Invoice struct {
		ID             int64         `json:"id"`
		CardID         int64         `json:"card_id"`
		WorkspaceID    int64         `json:"workspace_id"`
		ReferenceMonth Month         `json:"reference_month"`
		ClosingDate    Date          `json:"closing_date"`
		DueDate        Date          `json:"due_date"`
		Total          Money         `json:"total"`
		Status         InvoiceStatus `json:"status"`
		PaidAmount     Money         `json:"paid_amount"`
		PaymentDate    Date          `json:"payment_date"`
		Active         bool          `json:"active"`
	}

	// PaymentType is reference data; credit card payment types require a card.
	PaymentType struct {
		ID         int64  `json:"id"`
		Name       string `json:"name"`
		CreditCard bool   `json:"credit_card"`
		Active     bool   `json:"active"`
	}

	Workspace struct {
		ID      int64  `json:"id"`
		Name    string `json:"name"`
		OwnerID int64  `json:"owner_id"`
	}

	// EntryRequest is a user-entered transaction before it is expanded into
	// ledger rows. Card and Kind only apply to expenses.
	EntryRequest struct {
		WorkspaceID   int64       `json:"-"`
		Description   string      `json:"description"`
		Total         Money       `json:"amount"`
		Kind          ExpenseKind `json:"kind"`
		StartDate     Date        `json:"date"`
		CategoryID    int64       `json:"category_id"`
		PaymentTypeID int64       `json:"payment_type_id"`
		CardID        int64       `json:"card_id"`
		Recurring     bool        `json:"recurring"`
		Installments  int         `json:"installments"`
	}
)

func (k ExpenseKind) IsValid() bool {
	switch k {
	case KindVariable, KindFixed, KindSubscription:
		return true
	}
	return false
}

func (k EntryKind) IsValid() bool {
	return k == EntryExpense || k == EntryIncome
}

func (t CardType) IsValid() bool {
	return t == CardCredit || t == CardDebit
}

// Validate checks the request fields that do not need the store.
func (r EntryRequest) Validate(kind EntryKind) error {
	if !kind.IsValid() {
		return Invalid("unknown entry kind %q", kind)
	}
	if r.WorkspaceID <= 0 {
		return Invalid("workspace is required")
	}
	if strings.TrimSpace(r.Description) == "" {
		return Invalid("description is required")
	}
	if len(r.Description) > 200 {
		return Invalid("description too long (max 200 characters)")
	}
	if err := r.Total.Validate(); err != nil {
		return err
	}
	if r.StartDate.IsZero() {
		return Invalid("date is required")
	}
	if r.Installments < 0 {
		return Invalid("installment count must be at least 1")
	}
	if r.Installments > MaxInstallments {
		return Invalid("installment count %d exceeds the maximum of %d", r.Installments, MaxInstallments)
	}
	if count := r.InstallmentCount(); r.Total.Split(count)[0].Cents <= 0 {
		return Invalid("amount is too small to split into %d installments", count)
	}
	if kind == EntryExpense && !r.Kind.IsValid() {
		return Invalid("unknown expense kind %q", r.Kind)
	}
	if kind == EntryIncome && r.CardID != 0 {
		return Invalid("incomes cannot be linked to a card")
	}
	return nil
}

// InstallmentCount returns the effective number of rows: recurring entries
// always produce a single template.
func (r EntryRequest) InstallmentCount() int {
	if r.Recurring || r.Installments < 1 {
		return 1
	}
	return r.Installments
}

// Validate checks a card's billing parameters.
func (c Card) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return Invalid("card name is required")
	}
	if !c.Type.IsValid() {
		return Invalid("unknown card type %q", c.Type)
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		return Invalid("closing day %d must be between 1 and 31", c.ClosingDay)
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return Invalid("due day %d must be between 1 and 31", c.DueDay)
	}
	if c.CreditLimit.Cents < 0 || c.PersonalLimit.Cents < 0 {
		return Invalid("card limits cannot be negative")
	}
	return nil
}

// Limit is the personal limit when set, otherwise the credit limit.
func (c Card) Limit() Money {
	if c.PersonalLimit.Cents > 0 {
		return c.PersonalLimit
	}
	return c.CreditLimit
}

// Settled returns what was actually paid, falling back to the provisioned
// amount when no actual amount was recorded.
func (e Expense) Settled() Money {
	if e.Paid && e.PaidAmount.Cents > 0 {
		return e.PaidAmount
	}
	return e.Amount
}

// Settled returns the received amount, falling back to the provisioned one.
func (i Income) Settled() Money {
	if i.Status == IncomeReceived && i.ReceivedAmount.Cents > 0 {
		return i.ReceivedAmount
	}
	return i.Amount
}

// Settled returns the paid amount, falling back to the statement total.
func (inv Invoice) Settled() Money {
	if inv.Status == InvoicePaid && inv.PaidAmount.Cents > 0 {
		return inv.PaidAmount
	}
	return inv.Total
}

// Today is the calendar day of now in UTC.
func Today(now time.Time) Date {
	return DateOf(now.UTC())
}
