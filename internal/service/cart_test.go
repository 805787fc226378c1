package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/service"
)

func TestCartService_Checkout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0, nil)
	cart := service.NewCartService(f.store.CartRepository, f.store.ItemRepository, f.svc)

	second := &domain.User{Email: "second@example.com", Name: "Sam"}
	require.NoError(t, f.store.UserRepository.Create(ctx, second))
	ladder := &domain.Item{OwnerID: second.ID, Title: "Ladder", PricePerDay: 5000}
	require.NoError(t, f.store.ItemRepository.Create(ctx, ladder))

	for _, id := range []string{f.items[0].ID, f.items[1].ID, ladder.ID} {
		_, err := cart.AddToCart(ctx, f.lendee.ID, id, "2024-02-01", "2024-02-04")
		require.NoError(t, err)
	}

	rentals, err := cart.Checkout(ctx, f.lendee.ID)
	require.NoError(t, err)
	require.Len(t, rentals, 2)
	assert.Equal(t, f.lender.ID, rentals[0].LenderID)
	assert.Len(t, rentals[0].Items, 2)
	assert.Equal(t, int64(600000), rentals[0].TotalPrice)
	assert.Equal(t, second.ID, rentals[1].LenderID)
	assert.Equal(t, int64(15000), rentals[1].TotalPrice)

	left, err := cart.ListCart(ctx, f.lendee.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	_, err = cart.Checkout(ctx, f.lendee.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCartService_CheckoutStopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0, nil)
	cart := service.NewCartService(f.store.CartRepository, f.store.ItemRepository, f.svc)

	_, err := cart.AddToCart(ctx, f.lendee.ID, f.items[0].ID, "2024-02-01", "2024-02-02")
	require.NoError(t, err)
	_, err = cart.AddToCart(ctx, f.lendee.ID, f.items[1].ID, "2024-03-01", "2024-03-02")
	require.NoError(t, err)

	// Someone else takes the tripod first.
	other := &domain.User{Email: "other@example.com", Name: "Otto"}
	require.NoError(t, f.store.UserRepository.Create(ctx, other))
	_, err = f.svc.CreateRental(ctx, domain.CreateRentalInput{
		LendeeID: other.ID, LenderID: f.lender.ID, ItemIDs: []string{f.items[1].ID},
		StartDate: "2024-03-01", EndDate: "2024-03-02",
	})
	require.NoError(t, err)

	rentals, err := cart.Checkout(ctx, f.lendee.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
	require.Len(t, rentals, 1)

	left, err := cart.ListCart(ctx, f.lendee.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, f.items[1].ID, left[0].ItemID)
}

func TestCartService_AddAndRemove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0, nil)
	cart := service.NewCartService(f.store.CartRepository, f.store.ItemRepository, f.svc)

	_, err := cart.AddToCart(ctx, f.lender.ID, f.items[0].ID, "2024-02-01", "2024-02-02")
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "owners cannot rent their own items")

	_, err = cart.AddToCart(ctx, f.lendee.ID, f.items[0].ID, "2024-02-03", "2024-02-01")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = cart.AddToCart(ctx, f.lendee.ID, "missing", "2024-02-01", "2024-02-02")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	entry, err := cart.AddToCart(ctx, f.lendee.ID, f.items[0].ID, "2024-02-01", "2024-02-02")
	require.NoError(t, err)
	assert.Equal(t, "Camera", entry.Item.Title)

	assert.ErrorIs(t, cart.RemoveFromCart(ctx, f.lender.ID, entry.ID), domain.ErrNotFound)
	require.NoError(t, cart.RemoveFromCart(ctx, f.lendee.ID, entry.ID))
	assert.ErrorIs(t, cart.RemoveFromCart(ctx, f.lendee.ID, entry.ID), domain.ErrNotFound)
}

func TestCartService_UpdateCartItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0, nil)
	cart := service.NewCartService(f.store.CartRepository, f.store.ItemRepository, f.svc)

	entry, err := cart.AddToCart(ctx, f.lendee.ID, f.items[0].ID, "2024-02-01", "2024-02-02")
	require.NoError(t, err)

	updated, err := cart.UpdateCartItem(ctx, f.lendee.ID, entry.ID, "2024-02-10", "2024-02-14")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), updated.StartDate)
	assert.Equal(t, time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC), updated.EndDate)
	require.NotNil(t, updated.Item)
	assert.Equal(t, "Camera", updated.Item.Title)

	left, err := cart.ListCart(ctx, f.lendee.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, updated.StartDate, left[0].StartDate)
	assert.Equal(t, updated.EndDate, left[0].EndDate)

	_, err = cart.UpdateCartItem(ctx, f.lendee.ID, entry.ID, "2024-02-14", "2024-02-10")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = cart.UpdateCartItem(ctx, f.lendee.ID, entry.ID, "tomorrow", "2024-02-10")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = cart.UpdateCartItem(ctx, f.lender.ID, entry.ID, "2024-03-01", "2024-03-02")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = cart.UpdateCartItem(ctx, f.lendee.ID, "missing", "2024-03-01", "2024-03-02")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	left, err = cart.ListCart(ctx, f.lendee.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), left[0].StartDate, "rejected updates leave the entry alone")

	rentals, err := cart.Checkout(ctx, f.lendee.ID)
	require.NoError(t, err)
	require.Len(t, rentals, 1)
	assert.Equal(t, int64(400000), rentals[0].TotalPrice)
}
