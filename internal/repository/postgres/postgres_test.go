package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/repository"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

var itemRowColumns = []string{"id", "owner_id", "category_id", "title", "description", "price_per_day",
	"security_deposit", "condition", "images", "is_available", "created_at", "updated_at"}

var rentalRowColumns = []string{"id", "lendee_id", "lender_id", "start_date", "end_date", "total_price",
	"total_deposit", "status", "rejection_reason", "created_at", "updated_at"}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique", &pq.Error{Code: codeUniqueViolation}, domain.ErrConflict},
		{"malformed uuid", &pq.Error{Code: codeInvalidText, Message: `invalid input syntax for type uuid: "abc"`}, domain.ErrInvalidInput},
		{"foreign key", &pq.Error{Code: codeForeignKeyViolation}, domain.ErrInvalidInput},
		{"serialization", &pq.Error{Code: codeSerializationFailure}, domain.ErrConcurrencyConflict},
		{"deadlock", &pq.Error{Code: codeDeadlockDetected}, domain.ErrConcurrencyConflict},
		{"balance check", &pq.Error{Code: codeCheckViolation, Constraint: "users_balance_check"}, domain.ErrInsufficientFunds},
		{"other check", &pq.Error{Code: codeCheckViolation, Constraint: "rentals_check"}, domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tt.err), tt.want)
		})
	}

	plain := errors.New("connection reset")
	assert.Equal(t, plain, mapError(plain))
	assert.NoError(t, mapError(nil))
}

func TestUserRepository_GetByID(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		now := time.Now()
		rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "name", "phone_number", "address", "bio", "avatar_url", "balance", "created_at", "updated_at"}).
			AddRow("u1", "ann@example.com", "hash", "Ann", "", "Main St", "", "", int64(500), now, now)
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).WithArgs("u1").WillReturnRows(rows)

		u, err := store.UserRepository.GetByID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Ann", u.Name)
		assert.Equal(t, int64(500), u.Balance)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := store.UserRepository.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: codeUniqueViolation, Message: "duplicate key"})

	err := store.UserRepository.Create(context.Background(), &domain.User{Email: " Ann@Example.com ", Name: "Ann"})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepository_List(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "items" WHERE (.+)"owner_id" = \$1(.+)"is_available" IS TRUE`).
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT id, owner_id(.+) FROM "items" WHERE (.+) ORDER BY "created_at" DESC(.+)LIMIT`).
		WithArgs("owner-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(itemRowColumns).
			AddRow("i1", "owner-1", nil, "Drill", "", int64(10), int64(50), "GOOD", "{a.jpg,b.jpg}", true, now, now))

	items, total, err := store.ItemRepository.List(context.Background(), domain.ItemFilter{
		OwnerID:       "owner-1",
		AvailableOnly: true,
		Page:          2,
		PageSize:      1,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), total)
	require.Len(t, items, 1)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, items[0].Images)
	assert.Nil(t, items[0].CategoryID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepository_ReconcileAvailability(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`UPDATE items SET is_available = FALSE(.+)WHERE is_available AND EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("i1"))
	mock.ExpectQuery(`UPDATE items SET is_available = TRUE(.+)WHERE NOT is_available AND NOT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("i2").AddRow("i3"))

	held, released, err := store.ItemRepository.ReconcileAvailability(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"i1"}, held)
	assert.Equal(t, []string{"i2", "i3"}, released)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRepository_GetByID(t *testing.T) {
	store, mock := newMock(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)

	mock.ExpectQuery(`SELECT (.+) FROM rentals WHERE id = \$1$`).WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(rentalRowColumns).
			AddRow("r1", "lendee", "lender", start, end, int64(40), int64(100), "WAITING_APPROVAL", nil, start, start))
	mock.ExpectQuery(`SELECT (.+) FROM rental_items WHERE rental_id = ANY\(\$1\) ORDER BY rental_id, line_no`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "rental_id", "item_id", "quantity", "price_at_rental", "subtotal"}).
			AddRow("l1", "r1", "i1", 1, int64(10), int64(20)).
			AddRow("l2", "r1", "i2", 1, int64(10), int64(20)))

	rt, err := store.RentalRepository.GetByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.RentalStatusWaitingApproval, rt.Status)
	assert.Nil(t, rt.RejectionReason)
	assert.Equal(t, []string{"i1", "i2"}, rt.ItemIDs())
	assert.Equal(t, int64(140), rt.AmountDue())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRepository_ListByUser(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "rentals" WHERE (.+)"lender_id" = \$1(.+)"lendee_id" = \$2(.+)"status" = \$3`).
		WithArgs("u1", "u1", "APPROVED").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT id, lendee_id(.+) FROM "rentals"`).
		WithArgs("u1", "u1", "APPROVED").
		WillReturnRows(sqlmock.NewRows(rentalRowColumns))

	rentals, total, err := store.RentalRepository.List(context.Background(), domain.RentalFilter{
		UserID: "u1",
		Status: domain.RentalStatusApproved,
	})
	require.NoError(t, err)
	assert.Empty(t, rentals)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinTx(t *testing.T) {
	t.Run("Commit", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT balance FROM users WHERE id = \$1 FOR UPDATE`).WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(100)))
		mock.ExpectQuery(`UPDATE users SET balance = balance \+ \$1`).WithArgs(int64(-40), sqlmock.AnyArg(), "u1").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(60)))
		mock.ExpectExec("INSERT INTO balance_transactions").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
			balance, err := tx.LockUserBalance(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, int64(100), balance)

			balance, err = tx.AdjustUserBalance(ctx, "u1", -40)
			require.NoError(t, err)
			assert.Equal(t, int64(60), balance)

			return tx.RecordBalanceTransaction(ctx, &domain.BalanceTransaction{
				UserID: "u1", Amount: -40, Type: domain.TransactionTypeRentalDebit,
			})
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollbackOnError", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE users SET balance = balance \+ \$1`).
			WillReturnError(&pq.Error{Code: codeCheckViolation, Constraint: "users_balance_check"})
		mock.ExpectRollback()

		err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
			_, err := tx.AdjustUserBalance(ctx, "u1", -1000)
			return err
		})
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgTx_UpdateRentalStatusLostRace(t *testing.T) {
	store, mock := newMock(t)
	at := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE rentals SET status = \$1(.+)WHERE id = \$4 AND status = \$5`).
		WithArgs(domain.RentalStatusApproved, nil, at, "r1", domain.RentalStatusWaitingApproval).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.UpdateRentalStatus(ctx, "r1", domain.RentalStatusWaitingApproval, domain.RentalStatusApproved, nil, at)
	})
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgTx_CreateRentalNumbersLines(t *testing.T) {
	store, mock := newMock(t)
	rt := &domain.Rental{
		LendeeID: "lendee",
		LenderID: "lender",
		Status:   domain.RentalStatusWaitingApproval,
		Items: []domain.RentalItem{
			{ItemID: "zeta", Quantity: 1, PriceAtRental: 10, Subtotal: 20},
			{ItemID: "alpha", Quantity: 1, PriceAtRental: 5, Subtotal: 10},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO rentals").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO rental_items \(id, rental_id, line_no, item_id`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int64(0), "zeta", int64(1), int64(10), int64(20)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO rental_items \(id, rental_id, line_no, item_id`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int64(1), "alpha", int64(1), int64(5), int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.CreateRental(ctx, rt)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha"}, rt.ItemIDs())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgTx_LockItemsMissing(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM items WHERE id = ANY\(\$1\) ORDER BY id FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(itemRowColumns).
			AddRow("i1", "owner-1", nil, "Drill", "", int64(10), int64(50), "GOOD", "{}", true, now, now))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.LockItems(ctx, []string{"i1", "i2"})
		return err
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_UpdateDates(t *testing.T) {
	store, mock := newMock(t)
	start := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 3)

	mock.ExpectExec(`UPDATE cart_items SET start_date = \$1, end_date = \$2 WHERE id = \$3`).
		WithArgs(start, end, "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE cart_items SET start_date = \$1, end_date = \$2 WHERE id = \$3`).
		WithArgs(start, end, "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.CartRepository.UpdateDates(context.Background(), "c1", start, end))
	assert.ErrorIs(t, store.CartRepository.UpdateDates(context.Background(), "gone", start, end), domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepository_GetCategory(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`SELECT id, name, slug FROM categories WHERE id = \$1`).WithArgs("cat-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug"}).AddRow("cat-1", "Tools", "tools"))
	mock.ExpectQuery(`SELECT id, name, slug FROM categories WHERE id = \$1`).WithArgs("cat-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug"}))
	mock.ExpectQuery(`SELECT id, name, slug FROM categories WHERE id = \$1`).WithArgs("abc").
		WillReturnError(&pq.Error{Code: codeInvalidText, Message: `invalid input syntax for type uuid: "abc"`})

	c, err := store.ItemRepository.GetCategory(context.Background(), "cat-1")
	require.NoError(t, err)
	assert.Equal(t, domain.Category{ID: "cat-1", Name: "Tools", Slug: "tools"}, *c)

	_, err = store.ItemRepository.GetCategory(context.Background(), "cat-2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.ItemRepository.GetCategory(context.Background(), "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}
