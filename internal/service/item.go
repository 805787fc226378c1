package service

import (
	"context"
	"fmt"
	"strings"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/logger"
	"rentloop-backend/internal/repository"
	"rentloop-backend/internal/utils"
)

const maxItemImages = 10

type itemService struct {
	itemRepo repository.ItemRepository
}

func NewItemService(itemRepo repository.ItemRepository) ItemService {
	return &itemService{itemRepo: itemRepo}
}

func validateItem(item *domain.Item) error {
	item.Title = strings.TrimSpace(item.Title)
	if item.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if item.PricePerDay < 0 || item.SecurityDeposit < 0 {
		return fmt.Errorf("%w: prices cannot be negative", domain.ErrInvalidInput)
	}
	if item.PricePerDay > utils.MaxUnitPrice || item.SecurityDeposit > utils.MaxUnitPrice {
		return fmt.Errorf("%w: prices cannot exceed %d", domain.ErrInvalidInput, utils.MaxUnitPrice)
	}
	if item.Condition == "" {
		item.Condition = domain.ItemConditionGood
	}
	if !item.Condition.Valid() {
		return fmt.Errorf("%w: unknown condition %q", domain.ErrInvalidInput, item.Condition)
	}
	if len(item.Images) > maxItemImages {
		return fmt.Errorf("%w: at most %d images", domain.ErrInvalidInput, maxItemImages)
	}
	return nil
}

func (s *itemService) CreateItem(ctx context.Context, item *domain.Item) error {
	logger.EnterMethod("itemService.CreateItem", "ownerID", item.OwnerID)
	if item.OwnerID == "" {
		return fmt.Errorf("%w: owner is required", domain.ErrInvalidInput)
	}
	if err := validateItem(item); err != nil {
		logger.ExitMethodWithError("itemService.CreateItem", err)
		return err
	}
	if err := s.itemRepo.Create(ctx, item); err != nil {
		logger.ExitMethodWithError("itemService.CreateItem", err)
		return err
	}
	logger.ExitMethod("itemService.CreateItem", "itemID", item.ID)
	return nil
}

func (s *itemService) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	return s.itemRepo.GetByID(ctx, id)
}

// UpdateItem edits catalog fields of an item the caller owns. The stored
// availability flag is returned unchanged whatever the input carries.
func (s *itemService) UpdateItem(ctx context.Context, callerID string, item *domain.Item) (*domain.Item, error) {
	logger.EnterMethod("itemService.UpdateItem", "itemID", item.ID, "callerID", callerID)
	existing, err := s.itemRepo.GetByID(ctx, item.ID)
	if err != nil {
		logger.ExitMethodWithError("itemService.UpdateItem", err, "itemID", item.ID)
		return nil, err
	}
	if existing.OwnerID != callerID {
		return nil, fmt.Errorf("%w: only the owner can edit item %s", domain.ErrForbidden, item.ID)
	}
	if err := validateItem(item); err != nil {
		return nil, err
	}
	item.OwnerID = existing.OwnerID
	if err := s.itemRepo.Update(ctx, item); err != nil {
		logger.ExitMethodWithError("itemService.UpdateItem", err, "itemID", item.ID)
		return nil, err
	}

	updated, err := s.itemRepo.GetByID(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	logger.ExitMethod("itemService.UpdateItem", "itemID", item.ID)
	return updated, nil
}

func (s *itemService) DeleteItem(ctx context.Context, callerID, id string) error {
	logger.EnterMethod("itemService.DeleteItem", "itemID", id, "callerID", callerID)
	existing, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.OwnerID != callerID {
		return fmt.Errorf("%w: only the owner can delete item %s", domain.ErrForbidden, id)
	}
	if !existing.IsAvailable {
		return fmt.Errorf("%w: item %s is held by a rental", domain.ErrConflict, id)
	}
	if err := s.itemRepo.Delete(ctx, id); err != nil {
		logger.ExitMethodWithError("itemService.DeleteItem", err, "itemID", id)
		return err
	}
	logger.ExitMethod("itemService.DeleteItem", "itemID", id)
	return nil
}

func (s *itemService) ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, int32, error) {
	return s.itemRepo.List(ctx, filter)
}

func (s *itemService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.itemRepo.ListCategories(ctx)
}

func (s *itemService) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	return s.itemRepo.GetCategory(ctx, id)
}
