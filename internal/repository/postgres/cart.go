package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/logger"
	"rentloop-backend/internal/repository"
)

type cartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) repository.CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) Add(ctx context.Context, c *domain.CartItem) error {
	logger.DatabaseCall("INSERT", "cart_items", "userID", c.UserID, "itemID", c.ItemID)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Quantity == 0 {
		c.Quantity = 1
	}
	c.CreatedAt = time.Now().UTC()
	query := `INSERT INTO cart_items (id, user_id, item_id, quantity, start_date, end_date, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, c.ID, c.UserID, c.ItemID, c.Quantity, c.StartDate, c.EndDate, c.CreatedAt); err != nil {
		logger.DatabaseResult("INSERT", 0, err)
		return mapError(err)
	}
	logger.DatabaseResult("INSERT", 1, nil, "cartItemID", c.ID)
	return nil
}

func (r *cartRepository) GetByID(ctx context.Context, id string) (*domain.CartItem, error) {
	logger.DatabaseCall("SELECT", "cart_items", "cartItemID", id)
	c := &domain.CartItem{}
	query := `SELECT id, user_id, item_id, quantity, start_date, end_date, created_at FROM cart_items WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.UserID, &c.ItemID, &c.Quantity, &c.StartDate, &c.EndDate, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("cart item", id)
		}
		return nil, mapError(err)
	}
	return c, nil
}

// ListByUser returns the cart with each entry's item attached, oldest first.
func (r *cartRepository) ListByUser(ctx context.Context, userID string) ([]domain.CartItem, error) {
	logger.DatabaseCall("SELECT", "cart_items", "userID", userID)
	query := `SELECT c.id, c.user_id, c.item_id, c.quantity, c.start_date, c.end_date, c.created_at,
	                 i.id, i.owner_id, i.category_id, i.title, COALESCE(i.description, ''), i.price_per_day,
	                 i.security_deposit, i.condition, i.images, i.is_available, i.created_at, i.updated_at
	          FROM cart_items c JOIN items i ON i.id = c.item_id
	          WHERE c.user_id = $1 ORDER BY c.created_at, c.id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var cart []domain.CartItem
	for rows.Next() {
		var c domain.CartItem
		it := &domain.Item{}
		var categoryID sql.NullString
		if err := rows.Scan(&c.ID, &c.UserID, &c.ItemID, &c.Quantity, &c.StartDate, &c.EndDate, &c.CreatedAt,
			&it.ID, &it.OwnerID, &categoryID, &it.Title, &it.Description, &it.PricePerDay,
			&it.SecurityDeposit, &it.Condition, pq.Array(&it.Images), &it.IsAvailable, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		if categoryID.Valid {
			it.CategoryID = &categoryID.String
		}
		c.Item = it
		cart = append(cart, c)
	}
	return cart, rows.Err()
}

func (r *cartRepository) UpdateDates(ctx context.Context, id string, start, end time.Time) error {
	logger.DatabaseCall("UPDATE", "cart_items", "cartItemID", id)
	res, err := r.db.ExecContext(ctx, `UPDATE cart_items SET start_date = $1, end_date = $2 WHERE id = $3`, start, end, id)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return mapError(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	logger.DatabaseResult("UPDATE", rows, nil)
	if rows == 0 {
		return notFound("cart item", id)
	}
	return nil
}

func (r *cartRepository) Remove(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	logger.DatabaseCall("DELETE", "cart_items", "count", len(ids))
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		logger.DatabaseResult("DELETE", 0, err)
		return mapError(err)
	}
	rows, _ := res.RowsAffected()
	logger.DatabaseResult("DELETE", rows, nil)
	return nil
}
