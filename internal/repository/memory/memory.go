// Package memory is an in-process implementation of the repository
// interfaces. It backs local development and the service tests; every
// transaction runs against a staged copy that replaces the live state on
// commit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/repository"
)

type state struct {
	users      map[string]domain.User
	items      map[string]domain.Item
	categories []domain.Category
	rentals    map[string]domain.Rental
	ledger     []domain.BalanceTransaction
	cart       map[string]domain.CartItem
	// cartSeq keeps insertion order; timestamps can tie.
	cartSeq map[string]uint64
	nextSeq uint64
}

func newState() *state {
	return &state{
		users:   make(map[string]domain.User),
		items:   make(map[string]domain.Item),
		rentals: make(map[string]domain.Rental),
		cart:    make(map[string]domain.CartItem),
		cartSeq: make(map[string]uint64),
	}
}

// clone copies the rows a transaction can write. Categories and cart are
// never touched inside a transaction and are shared.
func (s *state) clone() *state {
	c := &state{
		users:      make(map[string]domain.User, len(s.users)),
		items:      make(map[string]domain.Item, len(s.items)),
		categories: s.categories,
		rentals:    make(map[string]domain.Rental, len(s.rentals)),
		ledger:     append([]domain.BalanceTransaction(nil), s.ledger...),
		cart:       s.cart,
		cartSeq:    s.cartSeq,
		nextSeq:    s.nextSeq,
	}
	for id, u := range s.users {
		c.users[id] = u
	}
	for id, it := range s.items {
		c.items[id] = copyItem(it)
	}
	for id, rt := range s.rentals {
		c.rentals[id] = copyRental(rt)
	}
	return c
}

func copyItem(it domain.Item) domain.Item {
	it.Images = append([]string{}, it.Images...)
	return it
}

func copyRental(rt domain.Rental) domain.Rental {
	rt.Items = append([]domain.RentalItem{}, rt.Items...)
	return rt
}

// Store holds all data behind one RWMutex. Transactions take the write lock
// for their whole duration, so they are fully serialized.
type Store struct {
	mu sync.RWMutex
	st *state
	repository.UserRepository
	repository.ItemRepository
	repository.RentalRepository
	repository.LedgerRepository
	repository.CartRepository
}

func NewStore() *Store {
	s := &Store{st: newState()}
	s.UserRepository = &userRepository{s: s}
	s.ItemRepository = &itemRepository{s: s}
	s.RentalRepository = &rentalRepository{s: s}
	s.LedgerRepository = &ledgerRepository{s: s}
	s.CartRepository = &cartRepository{s: s}
	return s
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

// AddCategory seeds a category; the catalog has no write API for them.
func (s *Store) AddCategory(c domain.Category) domain.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.st.categories = append(s.st.categories, c)
	return c
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stage := s.st.clone()
	if err := fn(ctx, &memTx{st: stage}); err != nil {
		return err
	}
	s.st = stage
	return nil
}

func now() time.Time {
	return time.Now().UTC()
}

func notFound(entity, id string) error {
	return fmt.Errorf("%w: %s %s", domain.ErrNotFound, entity, id)
}

// page slices an already ordered result. A non-positive pageSize returns
// everything.
func page[T any](rows []T, pageNum, pageSize int32) []T {
	if pageSize <= 0 {
		return rows
	}
	if pageNum < 1 {
		pageNum = 1
	}
	start := int((pageNum - 1) * pageSize)
	if start >= len(rows) {
		return []T{}
	}
	end := start + int(pageSize)
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

type userRepository struct{ s *Store }

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range r.s.st.users {
		if existing.Email == u.Email {
			return fmt.Errorf("%w: email %s already registered", domain.ErrConflict, u.Email)
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt, u.UpdatedAt = now(), now()
	r.s.st.users[u.ID] = *u
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.st.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.s.st.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, notFound("user", email)
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var users []domain.User
	for _, id := range ids {
		if u, ok := r.s.st.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.st.users[u.ID]
	if !ok {
		return notFound("user", u.ID)
	}
	existing.Name = u.Name
	existing.PhoneNumber = u.PhoneNumber
	existing.Address = u.Address
	existing.Bio = u.Bio
	existing.AvatarURL = u.AvatarURL
	existing.UpdatedAt = now()
	r.s.st.users[u.ID] = existing
	*u = existing
	return nil
}

type itemRepository struct{ s *Store }

func (r *itemRepository) Create(ctx context.Context, it *domain.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.users[it.OwnerID]; !ok {
		return fmt.Errorf("%w: unknown owner %s", domain.ErrInvalidInput, it.OwnerID)
	}
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.Images == nil {
		it.Images = []string{}
	}
	it.IsAvailable = true
	it.CreatedAt, it.UpdatedAt = now(), now()
	r.s.st.items[it.ID] = copyItem(*it)
	return nil
}

func (r *itemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	it, ok := r.s.st.items[id]
	if !ok {
		return nil, notFound("item", id)
	}
	it = copyItem(it)
	return &it, nil
}

func (r *itemRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var items []domain.Item
	for _, id := range ids {
		if it, ok := r.s.st.items[id]; ok {
			items = append(items, copyItem(it))
		}
	}
	return items, nil
}

func (r *itemRepository) Update(ctx context.Context, it *domain.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.st.items[it.ID]
	if !ok {
		return notFound("item", it.ID)
	}
	existing.CategoryID = it.CategoryID
	existing.Title = it.Title
	existing.Description = it.Description
	existing.PricePerDay = it.PricePerDay
	existing.SecurityDeposit = it.SecurityDeposit
	existing.Condition = it.Condition
	existing.Images = append([]string{}, it.Images...)
	existing.UpdatedAt = now()
	r.s.st.items[it.ID] = existing
	*it = copyItem(existing)
	return nil
}

func (r *itemRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.items[id]; !ok {
		return notFound("item", id)
	}
	for _, rt := range r.s.st.rentals {
		for _, line := range rt.Items {
			if line.ItemID == id {
				return fmt.Errorf("%w: item %s has rental history", domain.ErrConflict, id)
			}
		}
	}
	delete(r.s.st.items, id)
	for cid, c := range r.s.st.cart {
		if c.ItemID == id {
			delete(r.s.st.cart, cid)
			delete(r.s.st.cartSeq, cid)
		}
	}
	return nil
}

func (r *itemRepository) List(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, int32, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	query := strings.ToLower(filter.Query)
	var matched []domain.Item
	for _, it := range r.s.st.items {
		if query != "" && !strings.Contains(strings.ToLower(it.Title), query) &&
			!strings.Contains(strings.ToLower(it.Description), query) {
			continue
		}
		if filter.CategoryID != "" && (it.CategoryID == nil || *it.CategoryID != filter.CategoryID) {
			continue
		}
		if filter.OwnerID != "" && it.OwnerID != filter.OwnerID {
			continue
		}
		if filter.AvailableOnly && !it.IsAvailable {
			continue
		}
		if filter.MaxPrice > 0 && it.PricePerDay > filter.MaxPrice {
			continue
		}
		matched = append(matched, copyItem(it))
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	return page(matched, filter.Page, filter.PageSize), int32(len(matched)), nil
}

func (r *itemRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	categories := append([]domain.Category(nil), r.s.st.categories...)
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (r *itemRepository) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.st.categories {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, notFound("category", id)
}

func (r *itemRepository) ReconcileAvailability(ctx context.Context) ([]string, []string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	holding := make(map[string]bool)
	for _, rt := range r.s.st.rentals {
		if !rt.Status.HoldsItems() {
			continue
		}
		for _, line := range rt.Items {
			holding[line.ItemID] = true
		}
	}

	var held, released []string
	for id, it := range r.s.st.items {
		switch {
		case holding[id] && it.IsAvailable:
			it.IsAvailable = false
			held = append(held, id)
		case !holding[id] && !it.IsAvailable:
			it.IsAvailable = true
			released = append(released, id)
		default:
			continue
		}
		it.UpdatedAt = now()
		r.s.st.items[id] = it
	}
	sort.Strings(held)
	sort.Strings(released)
	return held, released, nil
}

type rentalRepository struct{ s *Store }

func (r *rentalRepository) GetByID(ctx context.Context, id string) (*domain.Rental, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rt, ok := r.s.st.rentals[id]
	if !ok {
		return nil, notFound("rental", id)
	}
	rt = copyRental(rt)
	return &rt, nil
}

func (r *rentalRepository) List(ctx context.Context, filter domain.RentalFilter) ([]domain.Rental, int32, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []domain.Rental
	for _, rt := range r.s.st.rentals {
		if filter.LenderID != "" && rt.LenderID != filter.LenderID {
			continue
		}
		if filter.LendeeID != "" && rt.LendeeID != filter.LendeeID {
			continue
		}
		if filter.UserID != "" && rt.LenderID != filter.UserID && rt.LendeeID != filter.UserID {
			continue
		}
		if filter.Status != "" && rt.Status != filter.Status {
			continue
		}
		matched = append(matched, copyRental(rt))
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	return page(matched, filter.Page, filter.PageSize), int32(len(matched)), nil
}

type ledgerRepository struct{ s *Store }

func (r *ledgerRepository) GetBalance(ctx context.Context, userID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.st.users[userID]
	if !ok {
		return 0, notFound("user", userID)
	}
	return u.Balance, nil
}

func (r *ledgerRepository) ListTransactions(ctx context.Context, userID string, pageNum, pageSize int32) ([]domain.BalanceTransaction, int32, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var entries []domain.BalanceTransaction
	// Ledger is append-only; walk it backwards for newest first.
	for i := len(r.s.st.ledger) - 1; i >= 0; i-- {
		if r.s.st.ledger[i].UserID == userID {
			entries = append(entries, r.s.st.ledger[i])
		}
	}
	return page(entries, pageNum, pageSize), int32(len(entries)), nil
}

type cartRepository struct{ s *Store }

func (r *cartRepository) Add(ctx context.Context, c *domain.CartItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.items[c.ItemID]; !ok {
		return fmt.Errorf("%w: unknown item %s", domain.ErrInvalidInput, c.ItemID)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Quantity == 0 {
		c.Quantity = 1
	}
	c.CreatedAt = now()
	stored := *c
	stored.Item = nil
	r.s.st.cart[c.ID] = stored
	r.s.st.nextSeq++
	r.s.st.cartSeq[c.ID] = r.s.st.nextSeq
	return nil
}

func (r *cartRepository) GetByID(ctx context.Context, id string) (*domain.CartItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.st.cart[id]
	if !ok {
		return nil, notFound("cart item", id)
	}
	return &c, nil
}

func (r *cartRepository) ListByUser(ctx context.Context, userID string) ([]domain.CartItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var cart []domain.CartItem
	for _, c := range r.s.st.cart {
		if c.UserID != userID {
			continue
		}
		if it, ok := r.s.st.items[c.ItemID]; ok {
			it = copyItem(it)
			c.Item = &it
		}
		cart = append(cart, c)
	}
	seq := r.s.st.cartSeq
	sort.Slice(cart, func(i, j int) bool { return seq[cart[i].ID] < seq[cart[j].ID] })
	return cart, nil
}

func (r *cartRepository) UpdateDates(ctx context.Context, id string, start, end time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.st.cart[id]
	if !ok {
		return notFound("cart item", id)
	}
	c.StartDate, c.EndDate = start, end
	r.s.st.cart[id] = c
	return nil
}

func (r *cartRepository) Remove(ctx context.Context, ids ...string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		delete(r.s.st.cart, id)
		delete(r.s.st.cartSeq, id)
	}
	return nil
}
