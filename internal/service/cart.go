package service

import (
	"context"
	"fmt"
	"time"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/logger"
	"rentloop-backend/internal/repository"
	"rentloop-backend/internal/utils"
)

type cartService struct {
	cartRepo  repository.CartRepository
	itemRepo  repository.ItemRepository
	rentalSvc RentalService
}

func NewCartService(cartRepo repository.CartRepository, itemRepo repository.ItemRepository, rentalSvc RentalService) CartService {
	return &cartService{
		cartRepo:  cartRepo,
		itemRepo:  itemRepo,
		rentalSvc: rentalSvc,
	}
}

func (s *cartService) AddToCart(ctx context.Context, userID, itemID, startDate, endDate string) (*domain.CartItem, error) {
	logger.EnterMethod("cartService.AddToCart", "userID", userID, "itemID", itemID)
	start, err := utils.ParseDate(startDate)
	if err != nil {
		return nil, err
	}
	end, err := utils.ParseDate(endDate)
	if err != nil {
		return nil, err
	}
	if _, err := utils.RentalDays(start, end); err != nil {
		return nil, err
	}

	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		logger.ExitMethodWithError("cartService.AddToCart", err, "itemID", itemID)
		return nil, err
	}
	if item.OwnerID == userID {
		return nil, fmt.Errorf("%w: cannot rent your own item", domain.ErrInvalidInput)
	}

	entry := &domain.CartItem{
		UserID:    userID,
		ItemID:    itemID,
		Quantity:  1,
		StartDate: start,
		EndDate:   end,
	}
	if err := s.cartRepo.Add(ctx, entry); err != nil {
		logger.ExitMethodWithError("cartService.AddToCart", err, "itemID", itemID)
		return nil, err
	}
	entry.Item = item
	logger.ExitMethod("cartService.AddToCart", "cartItemID", entry.ID)
	return entry, nil
}

func (s *cartService) ListCart(ctx context.Context, userID string) ([]domain.CartItem, error) {
	return s.cartRepo.ListByUser(ctx, userID)
}

// UpdateCartItem moves the rental dates of an entry the caller owns. Entries
// of other users are reported as missing.
func (s *cartService) UpdateCartItem(ctx context.Context, userID, cartItemID, startDate, endDate string) (*domain.CartItem, error) {
	const method = "cartService.UpdateCartItem"
	logger.EnterMethod(method, "userID", userID, "cartItemID", cartItemID)
	start, err := utils.ParseDate(startDate)
	if err != nil {
		logger.ExitMethodWithError(method, err, "field", "startDate")
		return nil, err
	}
	end, err := utils.ParseDate(endDate)
	if err != nil {
		logger.ExitMethodWithError(method, err, "field", "endDate")
		return nil, err
	}
	if _, err := utils.RentalDays(start, end); err != nil {
		logger.ExitMethodWithError(method, err)
		return nil, err
	}

	entry, err := s.cartRepo.GetByID(ctx, cartItemID)
	if err != nil {
		logger.ExitMethodWithError(method, err, "cartItemID", cartItemID)
		return nil, err
	}
	if entry.UserID != userID {
		return nil, fmt.Errorf("%w: cart item %s", domain.ErrNotFound, cartItemID)
	}
	if err := s.cartRepo.UpdateDates(ctx, cartItemID, start, end); err != nil {
		logger.ExitMethodWithError(method, err, "cartItemID", cartItemID)
		return nil, err
	}
	entry.StartDate, entry.EndDate = start, end
	if item, err := s.itemRepo.GetByID(ctx, entry.ItemID); err == nil {
		entry.Item = item
	}
	logger.ExitMethod(method, "cartItemID", cartItemID)
	return entry, nil
}

func (s *cartService) RemoveFromCart(ctx context.Context, userID, cartItemID string) error {
	entry, err := s.cartRepo.GetByID(ctx, cartItemID)
	if err != nil {
		return err
	}
	if entry.UserID != userID {
		return fmt.Errorf("%w: cart item %s", domain.ErrNotFound, cartItemID)
	}
	return s.cartRepo.Remove(ctx, cartItemID)
}

type checkoutGroup struct {
	lenderID   string
	start, end time.Time
	itemIDs    []string
	cartIDs    []string
}

// Checkout turns the cart into rentals, one per lender and date range, in
// cart order. It stops at the first failure and returns the rentals already
// created; their cart rows are removed, the rest stay in the cart.
func (s *cartService) Checkout(ctx context.Context, userID string) ([]domain.Rental, error) {
	const method = "cartService.Checkout"
	logger.EnterMethod(method, "userID", userID)

	cart, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", domain.ErrInvalidInput)
	}

	var groups []*checkoutGroup
	index := make(map[string]*checkoutGroup)
	for _, entry := range cart {
		if entry.Item == nil {
			return nil, fmt.Errorf("%w: item %s", domain.ErrNotFound, entry.ItemID)
		}
		key := entry.Item.OwnerID + "|" + utils.FormatDate(entry.StartDate) + "|" + utils.FormatDate(entry.EndDate)
		g, ok := index[key]
		if !ok {
			g = &checkoutGroup{lenderID: entry.Item.OwnerID, start: entry.StartDate, end: entry.EndDate}
			index[key] = g
			groups = append(groups, g)
		}
		g.itemIDs = append(g.itemIDs, entry.ItemID)
		g.cartIDs = append(g.cartIDs, entry.ID)
	}

	var created []domain.Rental
	for _, g := range groups {
		rental, err := s.rentalSvc.CreateRental(ctx, domain.CreateRentalInput{
			LendeeID:  userID,
			LenderID:  g.lenderID,
			ItemIDs:   g.itemIDs,
			StartDate: utils.FormatDate(g.start),
			EndDate:   utils.FormatDate(g.end),
		})
		if err != nil {
			logger.ExitMethodWithError(method, err, "userID", userID, "created", len(created))
			return created, err
		}
		created = append(created, *rental)
		if err := s.cartRepo.Remove(ctx, g.cartIDs...); err != nil {
			logger.Warn("Failed to clear checked out cart items", "userID", userID, "rentalID", rental.ID, "error", err)
		}
	}

	logger.ExitMethod(method, "userID", userID, "rentals", len(created))
	return created, nil
}
