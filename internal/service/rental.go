package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/logger"
	"rentloop-backend/internal/repository"
	"rentloop-backend/internal/utils"
)

type rentalService struct {
	txm        repository.TxManager
	rentalRepo repository.RentalRepository
	itemRepo   repository.ItemRepository
	userRepo   repository.UserRepository
	emailSvc   EmailService
}

func NewRentalService(
	txm repository.TxManager,
	rentalRepo repository.RentalRepository,
	itemRepo repository.ItemRepository,
	userRepo repository.UserRepository,
	emailSvc EmailService,
) RentalService {
	if emailSvc == nil {
		emailSvc = NewLogEmailService()
	}
	return &rentalService{
		txm:        txm,
		rentalRepo: rentalRepo,
		itemRepo:   itemRepo,
		userRepo:   userRepo,
		emailSvc:   emailSvc,
	}
}

func validateCreateInput(input domain.CreateRentalInput) error {
	if input.LendeeID == "" || input.LenderID == "" {
		return fmt.Errorf("%w: lendee and lender are required", domain.ErrInvalidInput)
	}
	if _, err := uuid.Parse(input.LendeeID); err != nil {
		return fmt.Errorf("%w: malformed lendee id %q", domain.ErrInvalidInput, input.LendeeID)
	}
	if _, err := uuid.Parse(input.LenderID); err != nil {
		return fmt.Errorf("%w: malformed lender id %q", domain.ErrInvalidInput, input.LenderID)
	}
	if input.LendeeID == input.LenderID {
		return fmt.Errorf("%w: lender cannot rent their own items", domain.ErrInvalidInput)
	}
	if len(input.ItemIDs) == 0 {
		return fmt.Errorf("%w: at least one item is required", domain.ErrInvalidInput)
	}
	seen := make(map[string]bool, len(input.ItemIDs))
	for _, id := range input.ItemIDs {
		if id == "" {
			return fmt.Errorf("%w: empty item id", domain.ErrInvalidInput)
		}
		if _, err := uuid.Parse(id); err != nil {
			return fmt.Errorf("%w: malformed item id %q", domain.ErrInvalidInput, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: item %s listed more than once", domain.ErrInvalidInput, id)
		}
		seen[id] = true
	}
	return nil
}

// CreateRental prices the requested items, stores the rental as
// WAITING_APPROVAL and takes every item out of the pool, all in one
// transaction. Caller-supplied totals are checked against the computed ones.
func (s *rentalService) CreateRental(ctx context.Context, input domain.CreateRentalInput) (*domain.Rental, error) {
	const method = "rentalService.CreateRental"
	logger.EnterMethod(method, "lendeeID", input.LendeeID, "lenderID", input.LenderID, "items", len(input.ItemIDs))

	if err := validateCreateInput(input); err != nil {
		logger.ExitMethodWithError(method, err)
		return nil, err
	}
	start, err := utils.ParseDate(input.StartDate)
	if err != nil {
		logger.ExitMethodWithError(method, err, "field", "startDate")
		return nil, err
	}
	end, err := utils.ParseDate(input.EndDate)
	if err != nil {
		logger.ExitMethodWithError(method, err, "field", "endDate")
		return nil, err
	}
	days, err := utils.RentalDays(start, end)
	if err != nil {
		logger.ExitMethodWithError(method, err)
		return nil, err
	}

	rental := &domain.Rental{
		LendeeID:  input.LendeeID,
		LenderID:  input.LenderID,
		StartDate: start,
		EndDate:   end,
		Status:    domain.RentalStatusWaitingApproval,
	}

	err = s.txm.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		locked, err := tx.LockItems(ctx, input.ItemIDs)
		if err != nil {
			return err
		}
		byID := make(map[string]domain.Item, len(locked))
		for _, it := range locked {
			byID[it.ID] = it
		}
		items := make([]domain.Item, 0, len(input.ItemIDs))
		for _, id := range input.ItemIDs {
			it, ok := byID[id]
			if !ok {
				return fmt.Errorf("%w: item %s", domain.ErrNotFound, id)
			}
			if it.OwnerID != input.LenderID {
				return fmt.Errorf("%w: item %s does not belong to lender %s", domain.ErrInvalidInput, id, input.LenderID)
			}
			items = append(items, it)
		}
		for _, it := range items {
			if !it.IsAvailable {
				return fmt.Errorf("%w: item %s is not available", domain.ErrConflict, it.ID)
			}
		}

		quote, err := utils.QuoteRental(items, days)
		if err != nil {
			return err
		}
		if input.TotalPrice != nil && *input.TotalPrice != quote.TotalPrice {
			return fmt.Errorf("%w: total price %d does not match computed %d", domain.ErrInvalidInput, *input.TotalPrice, quote.TotalPrice)
		}
		if input.TotalDeposit != nil && *input.TotalDeposit != quote.TotalDeposit {
			return fmt.Errorf("%w: total deposit %d does not match computed %d", domain.ErrInvalidInput, *input.TotalDeposit, quote.TotalDeposit)
		}

		rental.TotalPrice = quote.TotalPrice
		rental.TotalDeposit = quote.TotalDeposit
		rental.Items = make([]domain.RentalItem, 0, len(quote.Lines))
		for _, line := range quote.Lines {
			rental.Items = append(rental.Items, domain.RentalItem{
				ItemID:        line.ItemID,
				Quantity:      1,
				PriceAtRental: line.PriceAtRental,
				Subtotal:      line.Subtotal,
			})
		}

		if err := tx.CreateRental(ctx, rental); err != nil {
			return err
		}
		return tx.SetItemsAvailability(ctx, rental.ItemIDs(), false)
	})
	if err != nil {
		logger.ExitMethodWithError(method, err, "lendeeID", input.LendeeID)
		return nil, err
	}

	s.populateAfterWrite(ctx, rental)
	s.notify(ctx, rental, s.emailSvc.SendRentalRequestNotification, true)
	logger.ExitMethod(method, "rentalID", rental.ID, "totalPrice", rental.TotalPrice, "days", days)
	return rental, nil
}

// ApproveRental debits price plus deposit from the lendee and moves the
// rental to APPROVED. Nothing is written unless both succeed.
func (s *rentalService) ApproveRental(ctx context.Context, rentalID string) (*domain.Rental, error) {
	const method = "rentalService.ApproveRental"
	logger.EnterMethod(method, "rentalID", rentalID)

	var rental *domain.Rental
	err := s.txm.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		rt, err := tx.LockRental(ctx, rentalID)
		if err != nil {
			return err
		}
		if !rt.Status.CanTransitionTo(domain.RentalStatusApproved) {
			return fmt.Errorf("%w: cannot approve rental in status %s", domain.ErrInvalidState, rt.Status)
		}

		if rt.TotalPrice < 0 || rt.TotalDeposit < 0 || rt.AmountDue() < 0 {
			return fmt.Errorf("%w: rental %s carries a negative amount", domain.ErrInvalidState, rt.ID)
		}
		due := rt.AmountDue()
		balance, err := tx.LockUserBalance(ctx, rt.LendeeID)
		if err != nil {
			return err
		}
		if balance < due {
			return fmt.Errorf("%w: balance %d, amount due %d", domain.ErrInsufficientFunds, balance, due)
		}
		if _, err := tx.AdjustUserBalance(ctx, rt.LendeeID, -due); err != nil {
			return err
		}
		if err := tx.RecordBalanceTransaction(ctx, &domain.BalanceTransaction{
			UserID:          rt.LendeeID,
			Amount:          -due,
			Type:            domain.TransactionTypeRentalDebit,
			RelatedRentalID: &rt.ID,
			Description:     fmt.Sprintf("Rental %s approved", rt.ID),
		}); err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := tx.UpdateRentalStatus(ctx, rt.ID, rt.Status, domain.RentalStatusApproved, nil, now); err != nil {
			return err
		}
		rt.Status = domain.RentalStatusApproved
		rt.UpdatedAt = now
		rental = rt
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError(method, err, "rentalID", rentalID)
		return nil, err
	}

	s.populateAfterWrite(ctx, rental)
	s.notify(ctx, rental, s.emailSvc.SendRentalApprovalNotification, false)
	logger.ExitMethod(method, "rentalID", rentalID, "debited", rental.AmountDue())
	return rental, nil
}

// RejectRental declines a WAITING_APPROVAL rental and releases its items.
func (s *rentalService) RejectRental(ctx context.Context, rentalID, reason string) (*domain.Rental, error) {
	const method = "rentalService.RejectRental"
	logger.EnterMethod(method, "rentalID", rentalID)

	var why *string
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		why = &trimmed
	}

	rental, err := s.closeRental(ctx, rentalID, domain.RentalStatusRejected, why)
	if err != nil {
		logger.ExitMethodWithError(method, err, "rentalID", rentalID)
		return nil, err
	}

	s.populateAfterWrite(ctx, rental)
	s.notify(ctx, rental, s.emailSvc.SendRentalRejectionNotification, false)
	logger.ExitMethod(method, "rentalID", rentalID)
	return rental, nil
}

// CompleteRental closes an APPROVED rental and releases its items. Deposit
// refunds are not handled here.
func (s *rentalService) CompleteRental(ctx context.Context, rentalID string) (*domain.Rental, error) {
	const method = "rentalService.CompleteRental"
	logger.EnterMethod(method, "rentalID", rentalID)

	rental, err := s.closeRental(ctx, rentalID, domain.RentalStatusCompleted, nil)
	if err != nil {
		logger.ExitMethodWithError(method, err, "rentalID", rentalID)
		return nil, err
	}

	s.populateAfterWrite(ctx, rental)
	s.notify(ctx, rental, s.emailSvc.SendRentalCompletionNotification, false)
	logger.ExitMethod(method, "rentalID", rentalID)
	return rental, nil
}

// closeRental moves a rental into a terminal status and makes its items
// available again.
func (s *rentalService) closeRental(ctx context.Context, rentalID string, to domain.RentalStatus, reason *string) (*domain.Rental, error) {
	var rental *domain.Rental
	err := s.txm.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		rt, err := tx.LockRental(ctx, rentalID)
		if err != nil {
			return err
		}
		if !rt.Status.CanTransitionTo(to) {
			return fmt.Errorf("%w: cannot move rental from %s to %s", domain.ErrInvalidState, rt.Status, to)
		}

		ids := rt.ItemIDs()
		if _, err := tx.LockItems(ctx, ids); err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := tx.UpdateRentalStatus(ctx, rt.ID, rt.Status, to, reason, now); err != nil {
			return err
		}
		if err := tx.SetItemsAvailability(ctx, ids, true); err != nil {
			return err
		}
		rt.Status = to
		rt.UpdatedAt = now
		if reason != nil {
			rt.RejectionReason = reason
		}
		rental = rt
		return nil
	})
	return rental, err
}

func (s *rentalService) GetRental(ctx context.Context, rentalID string) (*domain.Rental, error) {
	rental, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, rental); err != nil {
		return nil, err
	}
	return rental, nil
}

func (s *rentalService) ListRentals(ctx context.Context, filter domain.RentalFilter) ([]domain.Rental, int32, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, filter.Status)
	}
	rentals, total, err := s.rentalRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	ptrs := make([]*domain.Rental, len(rentals))
	for i := range rentals {
		ptrs[i] = &rentals[i]
	}
	if err := s.populate(ctx, ptrs...); err != nil {
		return nil, 0, err
	}
	return rentals, total, nil
}

func (s *rentalService) ListByLender(ctx context.Context, lenderID string, status domain.RentalStatus, page, pageSize int32) ([]domain.Rental, int32, error) {
	return s.ListRentals(ctx, domain.RentalFilter{LenderID: lenderID, Status: status, Page: page, PageSize: pageSize})
}

func (s *rentalService) ListByLendee(ctx context.Context, lendeeID string, status domain.RentalStatus, page, pageSize int32) ([]domain.Rental, int32, error) {
	return s.ListRentals(ctx, domain.RentalFilter{LendeeID: lendeeID, Status: status, Page: page, PageSize: pageSize})
}

func (s *rentalService) ListByUser(ctx context.Context, userID string, status domain.RentalStatus, page, pageSize int32) ([]domain.Rental, int32, error) {
	return s.ListRentals(ctx, domain.RentalFilter{UserID: userID, Status: status, Page: page, PageSize: pageSize})
}

// populate attaches the public profiles of both parties and the current item
// records to each rental line.
func (s *rentalService) populate(ctx context.Context, rentals ...*domain.Rental) error {
	if len(rentals) == 0 {
		return nil
	}
	var userIDs, itemIDs []string
	for _, rt := range rentals {
		userIDs = append(userIDs, rt.LenderID, rt.LendeeID)
		itemIDs = append(itemIDs, rt.ItemIDs()...)
	}

	users, err := s.userRepo.GetByIDs(ctx, dedupe(userIDs))
	if err != nil {
		return err
	}
	items, err := s.itemRepo.GetByIDs(ctx, dedupe(itemIDs))
	if err != nil {
		return err
	}
	usersByID := make(map[string]*domain.User, len(users))
	for i := range users {
		usersByID[users[i].ID] = users[i].Public()
	}
	itemsByID := make(map[string]*domain.Item, len(items))
	for i := range items {
		itemsByID[items[i].ID] = &items[i]
	}

	for _, rt := range rentals {
		rt.Lender = usersByID[rt.LenderID]
		rt.Lendee = usersByID[rt.LendeeID]
		for i := range rt.Items {
			rt.Items[i].Item = itemsByID[rt.Items[i].ItemID]
		}
	}
	return nil
}

// populateAfterWrite runs after a commit, so a failed read is logged rather
// than reported as a failed operation.
func (s *rentalService) populateAfterWrite(ctx context.Context, rental *domain.Rental) {
	if err := s.populate(ctx, rental); err != nil {
		logger.Warn("Failed to load rental details", "rentalID", rental.ID, "error", err)
	}
}

type rentalNotifier func(ctx context.Context, recipient, counterpart *domain.User, rental *domain.Rental) error

// notify sends a best-effort e-mail. toLender selects the recipient; errors
// are logged and never returned.
func (s *rentalService) notify(ctx context.Context, rental *domain.Rental, send rentalNotifier, toLender bool) {
	lender, err := s.userRepo.GetByID(ctx, rental.LenderID)
	if err != nil {
		logger.Warn("Rental notification skipped", "rentalID", rental.ID, "error", err)
		return
	}
	lendee, err := s.userRepo.GetByID(ctx, rental.LendeeID)
	if err != nil {
		logger.Warn("Rental notification skipped", "rentalID", rental.ID, "error", err)
		return
	}

	recipient, counterpart := lendee, lender
	if toLender {
		recipient, counterpart = lender, lendee
	}
	if err := send(ctx, recipient, counterpart, rental); err != nil {
		logger.Warn("Failed to send rental notification", "rentalID", rental.ID, "to", recipient.ID, "error", err)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
