package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/logger"
	"rentloop-backend/internal/repository"
)

// dialect renders the dynamic list queries with $n placeholders.
var dialect = goqu.Dialect("postgres")

// SQLSTATE codes that need a domain meaning.
const (
	codeInvalidText          = "22P02"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

type Store struct {
	db *sql.DB
	repository.UserRepository
	repository.ItemRepository
	repository.RentalRepository
	repository.LedgerRepository
	repository.CartRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:               db,
		UserRepository:   NewUserRepository(db),
		ItemRepository:   NewItemRepository(db),
		RentalRepository: NewRentalRepository(db),
		LedgerRepository: NewLedgerRepository(db),
		CartRepository:   NewCartRepository(db),
	}
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithinTx runs fn in a READ COMMITTED transaction. Row locks taken through
// the Tx serialize competing writers on the same rental, items and users.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", mapError(err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, &pgTx{tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Error("Rollback failed", "error", rbErr, "cause", err)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", mapError(err))
	}
	return nil
}

// mapError translates driver errors into domain sentinels while keeping the
// original error in the chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", domain.ErrConflict, pqErr.Message)
		case codeInvalidText, codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, pqErr.Message)
		case codeCheckViolation:
			if pqErr.Constraint == "users_balance_check" {
				return fmt.Errorf("%w: %s", domain.ErrInsufficientFunds, pqErr.Message)
			}
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, pqErr.Message)
		case codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%w: %s", domain.ErrConcurrencyConflict, pqErr.Message)
		}
	}
	return err
}

// notFound reports a missing row for the given entity.
func notFound(entity, id string) error {
	return fmt.Errorf("%w: %s %s", domain.ErrNotFound, entity, id)
}

// offset converts a 1-based page into a row offset. A non-positive pageSize
// means no paging.
func offset(page, pageSize int32) int32 {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}

type rowScanner interface {
	Scan(dest ...any) error
}
