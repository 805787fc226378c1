package domain

import "time"

type TransactionType string

const (
	TransactionTypeTopUp       TransactionType = "TOP_UP"
	TransactionTypeRentalDebit TransactionType = "RENTAL_DEBIT"
)

type BalanceTransaction struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Amount          int64           `json:"amount"` // positive for credit, negative for debit
	Type            TransactionType `json:"type"`
	RelatedRentalID *string         `json:"related_rental_id,omitempty"`
	Description     string          `json:"description"`
	CreatedAt       time.Time       `json:"created_at"`
}
