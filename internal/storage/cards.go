package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mesa/internal/core"
)

const cardColumns = `id, user_id, name, type, closing_day, due_day, credit_limit_cents, personal_limit_cents, active`

func scanCard(s scanner) (core.Card, error) {
	var (
		c      core.Card
		typ    string
		active int64
	)
	err := s.Scan(&c.ID, &c.UserID, &c.Name, &typ, &c.ClosingDay, &c.DueDay,
		&c.CreditLimit.Cents, &c.PersonalLimit.Cents, &active)
	c.Type = core.CardType(typ)
	c.Active = active == 1
	return c, err
}

func (q *Queries) CreateCard(ctx context.Context, c core.Card) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO cards (user_id, name, type, closing_day, due_day, credit_limit_cents, personal_limit_cents)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, c.Name, string(c.Type), c.ClosingDay, c.DueDay, c.CreditLimit.Cents, c.PersonalLimit.Cents)
	if err != nil {
		return 0, fmt.Errorf("insert card: %w", err)
	}
	return res.LastInsertId()
}

// GetActiveCard returns the card or a not-found error when it is missing
// or inactive.
func (q *Queries) GetActiveCard(ctx context.Context, id int64) (core.Card, error) {
	c, err := scanCard(q.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = ? AND active = 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return c, core.NotFound("card %d not found or inactive", id)
	}
	if err != nil {
		return c, fmt.Errorf("get card: %w", err)
	}
	return c, nil
}

func (q *Queries) ListActiveCardsForUsers(ctx context.Context, userIDs []int64) ([]core.Card, error) {
	in, args := inInt64(userIDs)
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE active = 1 AND user_id IN (`+in+`) ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []core.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (q *Queries) GetPaymentType(ctx context.Context, id int64) (core.PaymentType, error) {
	var (
		pt             core.PaymentType
		credit, active int64
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, is_credit_card, active FROM payment_types WHERE id = ?`, id,
	).Scan(&pt.ID, &pt.Name, &credit, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return pt, core.NotFound("payment type %d not found", id)
	}
	if err != nil {
		return pt, fmt.Errorf("get payment type: %w", err)
	}
	pt.CreditCard = credit == 1
	pt.Active = active == 1
	return pt, nil
}

func (q *Queries) ListPaymentTypes(ctx context.Context) ([]core.PaymentType, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, is_credit_card FROM payment_types WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list payment types: %w", err)
	}
	defer rows.Close()

	var out []core.PaymentType
	for rows.Next() {
		var (
			pt     core.PaymentType
			credit int64
		)
		if err := rows.Scan(&pt.ID, &pt.Name, &credit); err != nil {
			return nil, fmt.Errorf("scan payment type: %w", err)
		}
		pt.CreditCard = credit == 1
		pt.Active = true
		out = append(out, pt)
	}
	return out, rows.Err()
}

// ActiveCategory reports whether an active category of the given kind
// ("expense" or "income") exists.
func (q *Queries) ActiveCategory(ctx context.Context, id int64, kind string) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE id = ? AND kind = ? AND active = 1`, id, kind,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check category: %w", err)
	}
	return n > 0, nil
}
