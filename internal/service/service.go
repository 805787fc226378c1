package service

import (
	"context"

	"rentloop-backend/internal/domain"
)

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, *AuthTokens, error)
	Login(ctx context.Context, email, password string) (*domain.User, *AuthTokens, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error)
}

type UserService interface {
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
	GetPublicProfile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*domain.User, error)
}

type LedgerService interface {
	GetBalance(ctx context.Context, userID string) (int64, error)
	TopUp(ctx context.Context, userID string, amount int64) (*domain.BalanceTransaction, int64, error) // returns entry, new balance
	ListTransactions(ctx context.Context, userID string, page, pageSize int32) ([]domain.BalanceTransaction, int32, error)
}

type ItemService interface {
	CreateItem(ctx context.Context, item *domain.Item) error
	GetItem(ctx context.Context, id string) (*domain.Item, error)
	UpdateItem(ctx context.Context, callerID string, item *domain.Item) (*domain.Item, error)
	DeleteItem(ctx context.Context, callerID, id string) error
	ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, int32, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
}

type CartService interface {
	AddToCart(ctx context.Context, userID, itemID, startDate, endDate string) (*domain.CartItem, error)
	ListCart(ctx context.Context, userID string) ([]domain.CartItem, error)
	UpdateCartItem(ctx context.Context, userID, cartItemID, startDate, endDate string) (*domain.CartItem, error)
	RemoveFromCart(ctx context.Context, userID, cartItemID string) error
	Checkout(ctx context.Context, userID string) ([]domain.Rental, error)
}

// RentalService is the rental lifecycle engine plus its read side.
type RentalService interface {
	CreateRental(ctx context.Context, input domain.CreateRentalInput) (*domain.Rental, error)
	ApproveRental(ctx context.Context, rentalID string) (*domain.Rental, error)
	RejectRental(ctx context.Context, rentalID, reason string) (*domain.Rental, error)
	CompleteRental(ctx context.Context, rentalID string) (*domain.Rental, error)

	GetRental(ctx context.Context, rentalID string) (*domain.Rental, error)
	ListRentals(ctx context.Context, filter domain.RentalFilter) ([]domain.Rental, int32, error)
	ListByLender(ctx context.Context, lenderID string, status domain.RentalStatus, page, pageSize int32) ([]domain.Rental, int32, error)
	ListByLendee(ctx context.Context, lendeeID string, status domain.RentalStatus, page, pageSize int32) ([]domain.Rental, int32, error)
	ListByUser(ctx context.Context, userID string, status domain.RentalStatus, page, pageSize int32) ([]domain.Rental, int32, error)
}

type EmailService interface {
	SendRentalRequestNotification(ctx context.Context, lender, lendee *domain.User, rental *domain.Rental) error
	SendRentalApprovalNotification(ctx context.Context, lendee, lender *domain.User, rental *domain.Rental) error
	SendRentalRejectionNotification(ctx context.Context, lendee, lender *domain.User, rental *domain.Rental) error
	SendRentalCompletionNotification(ctx context.Context, lendee, lender *domain.User, rental *domain.Rental) error
}
