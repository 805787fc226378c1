package service_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/repository"
)

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendRentalRequestNotification(ctx context.Context, lender, lendee *domain.User, rental *domain.Rental) error {
	args := m.Called(ctx, lender, lendee, rental)
	return args.Error(0)
}
func (m *MockEmailService) SendRentalApprovalNotification(ctx context.Context, lendee, lender *domain.User, rental *domain.Rental) error {
	args := m.Called(ctx, lendee, lender, rental)
	return args.Error(0)
}
func (m *MockEmailService) SendRentalRejectionNotification(ctx context.Context, lendee, lender *domain.User, rental *domain.Rental) error {
	args := m.Called(ctx, lendee, lender, rental)
	return args.Error(0)
}
func (m *MockEmailService) SendRentalCompletionNotification(ctx context.Context, lendee, lender *domain.User, rental *domain.Rental) error {
	args := m.Called(ctx, lendee, lender, rental)
	return args.Error(0)
}

// MockTx
type MockTx struct {
	mock.Mock
}

func (m *MockTx) LockItems(ctx context.Context, ids []string) ([]domain.Item, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Item), args.Error(1)
}
func (m *MockTx) SetItemsAvailability(ctx context.Context, ids []string, available bool) error {
	args := m.Called(ctx, ids, available)
	return args.Error(0)
}
func (m *MockTx) CreateRental(ctx context.Context, rental *domain.Rental) error {
	args := m.Called(ctx, rental)
	return args.Error(0)
}
func (m *MockTx) LockRental(ctx context.Context, id string) (*domain.Rental, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}
func (m *MockTx) UpdateRentalStatus(ctx context.Context, id string, from, to domain.RentalStatus, reason *string, at time.Time) error {
	args := m.Called(ctx, id, from, to, reason, at)
	return args.Error(0)
}
func (m *MockTx) LockUserBalance(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockTx) AdjustUserBalance(ctx context.Context, userID string, delta int64) (int64, error) {
	args := m.Called(ctx, userID, delta)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockTx) RecordBalanceTransaction(ctx context.Context, entry *domain.BalanceTransaction) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockTxManager runs fn against its Tx without any real transaction.
type MockTxManager struct {
	Tx *MockTx
}

func (m *MockTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, m.Tx)
}
