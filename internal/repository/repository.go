package repository

import (
	"context"
	"time"

	"rentloop-backend/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

type ItemRepository interface {
	Create(ctx context.Context, item *domain.Item) error
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Item, error)
	// Update writes catalog fields only; availability is left untouched.
	Update(ctx context.Context, item *domain.Item) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, int32, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id string) (*domain.Category, error)

	// ReconcileAvailability re-derives is_available from rental state: items
	// referenced by a WAITING_APPROVAL or APPROVED rental are marked held, all
	// others released. It returns the ids it had to flip.
	ReconcileAvailability(ctx context.Context) (held []string, released []string, err error)
}

type RentalRepository interface {
	// GetByID returns the rental with its lines.
	GetByID(ctx context.Context, id string) (*domain.Rental, error)
	// List orders by creation time, newest first. Lines are included.
	List(ctx context.Context, filter domain.RentalFilter) ([]domain.Rental, int32, error)
}

type LedgerRepository interface {
	GetBalance(ctx context.Context, userID string) (int64, error)
	ListTransactions(ctx context.Context, userID string, page, pageSize int32) ([]domain.BalanceTransaction, int32, error)
}

type CartRepository interface {
	Add(ctx context.Context, item *domain.CartItem) error
	GetByID(ctx context.Context, id string) (*domain.CartItem, error)
	ListByUser(ctx context.Context, userID string) ([]domain.CartItem, error)
	UpdateDates(ctx context.Context, id string, start, end time.Time) error
	Remove(ctx context.Context, ids ...string) error
}

// Tx is the set of row-level operations the rental engine runs inside one
// transaction. Lock* methods take the row lock before returning.
type Tx interface {
	LockItems(ctx context.Context, ids []string) ([]domain.Item, error)
	SetItemsAvailability(ctx context.Context, ids []string, available bool) error

	CreateRental(ctx context.Context, rental *domain.Rental) error
	LockRental(ctx context.Context, id string) (*domain.Rental, error)
	// UpdateRentalStatus moves the rental only if it is still in status from
	// and stamps updated_at with at.
	UpdateRentalStatus(ctx context.Context, id string, from, to domain.RentalStatus, reason *string, at time.Time) error

	LockUserBalance(ctx context.Context, userID string) (int64, error)
	AdjustUserBalance(ctx context.Context, userID string, delta int64) (int64, error)
	RecordBalanceTransaction(ctx context.Context, entry *domain.BalanceTransaction) error
}

// TxManager runs fn in a single transaction: it commits when fn returns nil
// and rolls everything back otherwise.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
