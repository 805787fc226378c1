package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/logger"
)

// pgTx implements repository.Tx on top of a single *sql.Tx. Callers lock in
// the order rental, items, user to keep lock acquisition deadlock free.
type pgTx struct {
	tx *sql.Tx
}

// LockItems locks the rows in id order and fails with ErrNotFound if any id
// is unknown.
func (t *pgTx) LockItems(ctx context.Context, ids []string) ([]domain.Item, error) {
	logger.DatabaseCall("SELECT FOR UPDATE", "items", "count", len(ids))
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	rows, err := t.tx.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, mapError(err)
	}
	items, err := scanItems(rows)
	if err != nil {
		return nil, mapError(err)
	}
	if len(items) != len(ids) {
		found := make(map[string]bool, len(items))
		for _, it := range items {
			found[it.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return nil, notFound("item", id)
			}
		}
	}
	return items, nil
}

func (t *pgTx) SetItemsAvailability(ctx context.Context, ids []string, available bool) error {
	logger.DatabaseCall("UPDATE", "items", "count", len(ids), "available", available)
	res, err := t.tx.ExecContext(ctx, `UPDATE items SET is_available = $1, updated_at = $2 WHERE id = ANY($3)`,
		available, time.Now().UTC(), pq.Array(ids))
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return mapError(err)
	}
	rows, _ := res.RowsAffected()
	logger.DatabaseResult("UPDATE", rows, nil)
	return nil
}

// CreateRental inserts the rental and its lines, assigning ids and
// timestamps that are not already set.
func (t *pgTx) CreateRental(ctx context.Context, rt *domain.Rental) error {
	logger.DatabaseCall("INSERT", "rentals", "lendeeID", rt.LendeeID, "lenderID", rt.LenderID)
	if rt.ID == "" {
		rt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rt.CreatedAt.IsZero() {
		rt.CreatedAt = now
	}
	rt.UpdatedAt = rt.CreatedAt

	query := `INSERT INTO rentals (id, lendee_id, lender_id, start_date, end_date, total_price, total_deposit, status, rejection_reason, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := t.tx.ExecContext(ctx, query, rt.ID, rt.LendeeID, rt.LenderID, rt.StartDate, rt.EndDate,
		rt.TotalPrice, rt.TotalDeposit, rt.Status, rt.RejectionReason, rt.CreatedAt, rt.UpdatedAt); err != nil {
		logger.DatabaseResult("INSERT", 0, err)
		return mapError(err)
	}

	lineQuery := `INSERT INTO rental_items (id, rental_id, line_no, item_id, quantity, price_at_rental, subtotal)
	              VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i := range rt.Items {
		line := &rt.Items[i]
		if line.ID == "" {
			line.ID = uuid.NewString()
		}
		line.RentalID = rt.ID
		if _, err := t.tx.ExecContext(ctx, lineQuery, line.ID, line.RentalID, i, line.ItemID, line.Quantity,
			line.PriceAtRental, line.Subtotal); err != nil {
			logger.DatabaseResult("INSERT", 0, err, "table", "rental_items")
			return mapError(err)
		}
	}
	logger.DatabaseResult("INSERT", int64(1+len(rt.Items)), nil, "rentalID", rt.ID)
	return nil
}

func (t *pgTx) LockRental(ctx context.Context, id string) (*domain.Rental, error) {
	logger.DatabaseCall("SELECT FOR UPDATE", "rentals", "rentalID", id)
	return getRental(ctx, t.tx, id, true)
}

// UpdateRentalStatus is a compare-and-set on status. Zero affected rows means
// another writer moved the rental first.
func (t *pgTx) UpdateRentalStatus(ctx context.Context, id string, from, to domain.RentalStatus, reason *string, at time.Time) error {
	logger.DatabaseCall("UPDATE", "rentals", "rentalID", id, "from", from, "to", to)
	res, err := t.tx.ExecContext(ctx,
		`UPDATE rentals SET status = $1, rejection_reason = COALESCE($2, rejection_reason), updated_at = $3
		 WHERE id = $4 AND status = $5`,
		to, reason, at.UTC(), id, from)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return mapError(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	logger.DatabaseResult("UPDATE", rows, nil)
	if rows == 0 {
		return fmt.Errorf("%w: rental %s is no longer %s", domain.ErrConcurrencyConflict, id, from)
	}
	return nil
}

func (t *pgTx) LockUserBalance(ctx context.Context, userID string) (int64, error) {
	logger.DatabaseCall("SELECT FOR UPDATE", "users", "userID", userID)
	var balance int64
	err := t.tx.QueryRowContext(ctx, `SELECT balance FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, notFound("user", userID)
		}
		return 0, mapError(err)
	}
	return balance, nil
}

// AdjustUserBalance adds delta and returns the new balance. The balance
// CHECK constraint turns an overdraft into ErrInsufficientFunds.
func (t *pgTx) AdjustUserBalance(ctx context.Context, userID string, delta int64) (int64, error) {
	logger.DatabaseCall("UPDATE", "users", "userID", userID, "delta", delta)
	var balance int64
	err := t.tx.QueryRowContext(ctx,
		`UPDATE users SET balance = balance + $1, updated_at = $2 WHERE id = $3 RETURNING balance`,
		delta, time.Now().UTC(), userID).Scan(&balance)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, notFound("user", userID)
		}
		return 0, mapError(err)
	}
	logger.DatabaseResult("UPDATE", 1, nil, "balance", balance)
	return balance, nil
}

func (t *pgTx) RecordBalanceTransaction(ctx context.Context, e *domain.BalanceTransaction) error {
	logger.DatabaseCall("INSERT", "balance_transactions", "userID", e.UserID, "type", e.Type)
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO balance_transactions (id, user_id, amount, type, related_rental_id, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.UserID, e.Amount, e.Type, e.RelatedRentalID, e.Description, e.CreatedAt)
	if err != nil {
		logger.DatabaseResult("INSERT", 0, err)
		return mapError(err)
	}
	return nil
}
