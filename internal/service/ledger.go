package service

import (
	"context"
	"fmt"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/logger"
	"rentloop-backend/internal/repository"
)

type ledgerService struct {
	ledgerRepo repository.LedgerRepository
	txm        repository.TxManager
}

func NewLedgerService(ledgerRepo repository.LedgerRepository, txm repository.TxManager) LedgerService {
	return &ledgerService{
		ledgerRepo: ledgerRepo,
		txm:        txm,
	}
}

func (s *ledgerService) GetBalance(ctx context.Context, userID string) (int64, error) {
	return s.ledgerRepo.GetBalance(ctx, userID)
}

// TopUp credits the user's balance. There is no payment gateway; the amount
// is trusted once it is positive.
func (s *ledgerService) TopUp(ctx context.Context, userID string, amount int64) (*domain.BalanceTransaction, int64, error) {
	logger.EnterMethod("ledgerService.TopUp", "userID", userID, "amount", amount)
	if amount < 1 {
		return nil, 0, fmt.Errorf("%w: top-up amount must be at least 1", domain.ErrInvalidInput)
	}

	entry := &domain.BalanceTransaction{
		UserID:      userID,
		Amount:      amount,
		Type:        domain.TransactionTypeTopUp,
		Description: "Balance top-up",
	}
	var balance int64
	err := s.txm.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.LockUserBalance(ctx, userID); err != nil {
			return err
		}
		newBalance, err := tx.AdjustUserBalance(ctx, userID, amount)
		if err != nil {
			return err
		}
		balance = newBalance
		return tx.RecordBalanceTransaction(ctx, entry)
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerService.TopUp", err, "userID", userID)
		return nil, 0, err
	}

	logger.ExitMethod("ledgerService.TopUp", "userID", userID, "balance", balance)
	return entry, balance, nil
}

func (s *ledgerService) ListTransactions(ctx context.Context, userID string, page, pageSize int32) ([]domain.BalanceTransaction, int32, error) {
	return s.ledgerRepo.ListTransactions(ctx, userID, page, pageSize)
}
