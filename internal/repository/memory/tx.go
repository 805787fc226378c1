package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"rentloop-backend/internal/domain"
)

// memTx writes to a staged copy of the store. The owning Store holds its
// write lock for the lifetime of the transaction, so Lock* calls only need to
// read.
type memTx struct {
	st *state
}

func (t *memTx) LockItems(ctx context.Context, ids []string) ([]domain.Item, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	items := make([]domain.Item, 0, len(sorted))
	for _, id := range sorted {
		it, ok := t.st.items[id]
		if !ok {
			return nil, notFound("item", id)
		}
		items = append(items, copyItem(it))
	}
	return items, nil
}

func (t *memTx) SetItemsAvailability(ctx context.Context, ids []string, available bool) error {
	for _, id := range ids {
		it, ok := t.st.items[id]
		if !ok {
			continue
		}
		it.IsAvailable = available
		it.UpdatedAt = now()
		t.st.items[id] = it
	}
	return nil
}

func (t *memTx) CreateRental(ctx context.Context, rt *domain.Rental) error {
	if rt.ID == "" {
		rt.ID = uuid.NewString()
	}
	if rt.CreatedAt.IsZero() {
		rt.CreatedAt = now()
	}
	rt.UpdatedAt = rt.CreatedAt
	for i := range rt.Items {
		if rt.Items[i].ID == "" {
			rt.Items[i].ID = uuid.NewString()
		}
		rt.Items[i].RentalID = rt.ID
	}
	stored := copyRental(*rt)
	stored.Lender, stored.Lendee = nil, nil
	t.st.rentals[rt.ID] = stored
	return nil
}

func (t *memTx) LockRental(ctx context.Context, id string) (*domain.Rental, error) {
	rt, ok := t.st.rentals[id]
	if !ok {
		return nil, notFound("rental", id)
	}
	rt = copyRental(rt)
	return &rt, nil
}

func (t *memTx) UpdateRentalStatus(ctx context.Context, id string, from, to domain.RentalStatus, reason *string, at time.Time) error {
	rt, ok := t.st.rentals[id]
	if !ok {
		return notFound("rental", id)
	}
	if rt.Status != from {
		return fmt.Errorf("%w: rental %s is no longer %s", domain.ErrConcurrencyConflict, id, from)
	}
	rt.Status = to
	if reason != nil {
		r := *reason
		rt.RejectionReason = &r
	}
	rt.UpdatedAt = at.UTC()
	t.st.rentals[id] = rt
	return nil
}

func (t *memTx) LockUserBalance(ctx context.Context, userID string) (int64, error) {
	u, ok := t.st.users[userID]
	if !ok {
		return 0, notFound("user", userID)
	}
	return u.Balance, nil
}

func (t *memTx) AdjustUserBalance(ctx context.Context, userID string, delta int64) (int64, error) {
	u, ok := t.st.users[userID]
	if !ok {
		return 0, notFound("user", userID)
	}
	if u.Balance+delta < 0 {
		return 0, fmt.Errorf("%w: balance %d cannot cover %d", domain.ErrInsufficientFunds, u.Balance, -delta)
	}
	u.Balance += delta
	u.UpdatedAt = now()
	t.st.users[userID] = u
	return u.Balance, nil
}

func (t *memTx) RecordBalanceTransaction(ctx context.Context, e *domain.BalanceTransaction) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	t.st.ledger = append(t.st.ledger, *e)
	return nil
}
