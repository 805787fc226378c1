package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/repository/memory"
	"rentloop-backend/internal/security"
	"rentloop-backend/internal/service"
	"rentloop-backend/internal/utils"
)

func TestAuthService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	tokens := security.NewTokenManager("test-secret", time.Hour, 24*time.Hour)
	auth := service.NewAuthService(store.UserRepository, tokens)

	user, issued, err := auth.Register(ctx, service.RegisterInput{Email: "Ann@Example.com", Password: "correct-horse", Name: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", user.Email)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)
	assert.Equal(t, int64(3600), issued.ExpiresIn)

	claims, err := tokens.ValidateToken(issued.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID())

	_, _, err = auth.Register(ctx, service.RegisterInput{Email: "ann@example.com", Password: "another-one", Name: "Ann 2"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, _, err = auth.Register(ctx, service.RegisterInput{Email: "bob@example.com", Password: "short", Name: "Bob"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = auth.Register(ctx, service.RegisterInput{Email: "not-an-email", Password: "long-enough", Name: "Bob"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	loggedIn, _, err := auth.Login(ctx, "ANN@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	_, _, err = auth.Login(ctx, "ann@example.com", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, _, err = auth.Login(ctx, "nobody@example.com", "correct-horse")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	refreshed, err := auth.Refresh(ctx, issued.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = auth.Refresh(ctx, issued.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLedgerService_TopUp(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ledger := service.NewLedgerService(store.LedgerRepository, store)

	user := &domain.User{Email: "ann@example.com", Name: "Ann"}
	require.NoError(t, store.UserRepository.Create(ctx, user))

	entry, balance, err := ledger.TopUp(ctx, user.ID, 75000)
	require.NoError(t, err)
	assert.Equal(t, int64(75000), balance)
	assert.Equal(t, domain.TransactionTypeTopUp, entry.Type)

	_, _, err = ledger.TopUp(ctx, user.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, _, err = ledger.TopUp(ctx, "missing", 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := ledger.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(75000), got)

	entries, total, err := ledger.ListTransactions(ctx, user.ID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int32(1), total)
	assert.Equal(t, int64(75000), entries[0].Amount)
}

func TestUserService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	users := service.NewUserService(store.UserRepository)

	user := &domain.User{Email: "ann@example.com", Name: "Ann", Balance: 10}
	require.NoError(t, store.UserRepository.Create(ctx, user))

	bio := "Weekend climber"
	updated, err := users.UpdateProfile(ctx, user.ID, service.ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "Weekend climber", updated.Bio)
	assert.Equal(t, "Ann", updated.Name)
	assert.Equal(t, int64(10), updated.Balance)

	blank := "  "
	_, err = users.UpdateProfile(ctx, user.ID, service.ProfileUpdate{Name: &blank})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	public, err := users.GetPublicProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, public.Email)
	assert.Zero(t, public.Balance)
}

func TestItemService(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	items := service.NewItemService(store.ItemRepository)

	owner := &domain.User{Email: "owner@example.com", Name: "Owner"}
	require.NoError(t, store.UserRepository.Create(ctx, owner))

	item := &domain.Item{OwnerID: owner.ID, Title: "  Kayak ", PricePerDay: 30000}
	require.NoError(t, items.CreateItem(ctx, item))
	assert.Equal(t, "Kayak", item.Title)
	assert.Equal(t, domain.ItemConditionGood, item.Condition)
	assert.True(t, item.IsAvailable)

	assert.ErrorIs(t, items.CreateItem(ctx, &domain.Item{OwnerID: owner.ID, Title: "x", PricePerDay: -1}), domain.ErrInvalidInput)
	assert.ErrorIs(t, items.CreateItem(ctx, &domain.Item{OwnerID: owner.ID, Title: "x", Condition: "MINT"}), domain.ErrInvalidInput)
	assert.ErrorIs(t, items.CreateItem(ctx, &domain.Item{OwnerID: owner.ID, Title: "x", PricePerDay: 9223372036854775308}), domain.ErrInvalidInput)
	assert.ErrorIs(t, items.CreateItem(ctx, &domain.Item{OwnerID: owner.ID, Title: "x", SecurityDeposit: utils.MaxUnitPrice + 1}), domain.ErrInvalidInput)
	require.NoError(t, items.CreateItem(ctx, &domain.Item{OwnerID: owner.ID, Title: "Yacht", PricePerDay: utils.MaxUnitPrice}))

	_, err := items.UpdateItem(ctx, "intruder", &domain.Item{ID: item.ID, Title: "Mine now"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = items.UpdateItem(ctx, owner.ID, &domain.Item{ID: item.ID, Title: "Kayak", PricePerDay: utils.MaxUnitPrice + 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	updated, err := items.UpdateItem(ctx, owner.ID, &domain.Item{ID: item.ID, Title: "Sea kayak", PricePerDay: 35000, IsAvailable: false})
	require.NoError(t, err)
	assert.Equal(t, "Sea kayak", updated.Title)
	assert.True(t, updated.IsAvailable, "catalog edits never change availability")

	assert.ErrorIs(t, items.DeleteItem(ctx, "intruder", item.ID), domain.ErrForbidden)
	require.NoError(t, items.DeleteItem(ctx, owner.ID, item.ID))
	_, err = items.GetItem(ctx, item.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestItemService_GetCategory(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	items := service.NewItemService(store.ItemRepository)
	tools := store.AddCategory(domain.Category{Name: "Tools", Slug: "tools"})

	got, err := items.GetCategory(ctx, tools.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tools", got.Name)

	_, err = items.GetCategory(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
