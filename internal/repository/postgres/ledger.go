package postgres

import (
	"context"
	"database/sql"
	"errors"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/logger"
	"rentloop-backend/internal/repository"
)

type ledgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) repository.LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) GetBalance(ctx context.Context, userID string) (int64, error) {
	logger.DatabaseCall("SELECT", "users", "userID", userID, "column", "balance")
	var balance int64
	if err := r.db.QueryRowContext(ctx, `SELECT balance FROM users WHERE id = $1`, userID).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, notFound("user", userID)
		}
		return 0, mapError(err)
	}
	return balance, nil
}

func (r *ledgerRepository) ListTransactions(ctx context.Context, userID string, page, pageSize int32) ([]domain.BalanceTransaction, int32, error) {
	logger.DatabaseCall("SELECT", "balance_transactions", "userID", userID, "page", page)

	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM balance_transactions WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return nil, 0, mapError(err)
	}

	query := `SELECT id, user_id, amount, type, related_rental_id, COALESCE(description, ''), created_at
	          FROM balance_transactions WHERE user_id = $1 ORDER BY created_at DESC, id`
	args := []any{userID}
	if pageSize > 0 {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, pageSize, offset(page, pageSize))
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	var entries []domain.BalanceTransaction
	for rows.Next() {
		var e domain.BalanceTransaction
		var rentalID sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Type, &rentalID, &e.Description, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		if rentalID.Valid {
			e.RelatedRentalID = &rentalID.String
		}
		entries = append(entries, e)
	}
	return entries, count, rows.Err()
}
