package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/logger"
	"rentloop-backend/internal/repository"
)

const itemColumns = `id, owner_id, category_id, title, COALESCE(description, ''), price_per_day,
	security_deposit, condition, images, is_available, created_at, updated_at`

// holdingRental matches items referenced by a rental that still holds them.
const holdingRental = `EXISTS (SELECT 1 FROM rental_items ri JOIN rentals r ON r.id = ri.rental_id
	WHERE ri.item_id = items.id AND r.status IN ('WAITING_APPROVAL', 'APPROVED'))`

type itemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) repository.ItemRepository {
	return &itemRepository{db: db}
}

func scanItem(row rowScanner, it *domain.Item) error {
	var categoryID sql.NullString
	if err := row.Scan(&it.ID, &it.OwnerID, &categoryID, &it.Title, &it.Description, &it.PricePerDay,
		&it.SecurityDeposit, &it.Condition, pq.Array(&it.Images), &it.IsAvailable, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return err
	}
	if categoryID.Valid {
		it.CategoryID = &categoryID.String
	}
	return nil
}

func scanItems(rows *sql.Rows) ([]domain.Item, error) {
	defer rows.Close()
	var items []domain.Item
	for rows.Next() {
		var it domain.Item
		if err := scanItem(rows, &it); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *itemRepository) Create(ctx context.Context, it *domain.Item) error {
	logger.DatabaseCall("INSERT", "items", "ownerID", it.OwnerID)
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.Images == nil {
		it.Images = []string{}
	}
	now := time.Now().UTC()
	it.CreatedAt, it.UpdatedAt = now, now
	it.IsAvailable = true

	query := `INSERT INTO items (id, owner_id, category_id, title, description, price_per_day, security_deposit, condition, images, is_available, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.ExecContext(ctx, query, it.ID, it.OwnerID, it.CategoryID, it.Title, it.Description, it.PricePerDay,
		it.SecurityDeposit, it.Condition, pq.Array(it.Images), it.IsAvailable, it.CreatedAt, it.UpdatedAt)
	if err != nil {
		logger.DatabaseResult("INSERT", 0, err)
		return mapError(err)
	}
	logger.DatabaseResult("INSERT", 1, nil, "itemID", it.ID)
	return nil
}

func (r *itemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	logger.DatabaseCall("SELECT", "items", "itemID", id)
	it := &domain.Item{}
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	if err := scanItem(r.db.QueryRowContext(ctx, query, id), it); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("item", id)
		}
		return nil, mapError(err)
	}
	return it, nil
}

func (r *itemRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	logger.DatabaseCall("SELECT", "items", "count", len(ids))
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, mapError(err)
	}
	return scanItems(rows)
}

func (r *itemRepository) Update(ctx context.Context, it *domain.Item) error {
	logger.DatabaseCall("UPDATE", "items", "itemID", it.ID)
	it.UpdatedAt = time.Now().UTC()
	if it.Images == nil {
		it.Images = []string{}
	}
	query := `UPDATE items SET category_id=$1, title=$2, description=$3, price_per_day=$4, security_deposit=$5,
	          condition=$6, images=$7, updated_at=$8 WHERE id=$9`
	res, err := r.db.ExecContext(ctx, query, it.CategoryID, it.Title, it.Description, it.PricePerDay, it.SecurityDeposit,
		it.Condition, pq.Array(it.Images), it.UpdatedAt, it.ID)
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
		return notFound("item", it.ID)
	}
	return nil
}

// Delete removes an item that no rental references. Items with rental
// history are kept for the record and the delete fails with a conflict.
func (r *itemRepository) Delete(ctx context.Context, id string) error {
	logger.DatabaseCall("DELETE", "items", "itemID", id)
	query := `DELETE FROM items WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM rental_items WHERE item_id = $1)`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		logger.DatabaseResult("DELETE", 0, err)
		return mapError(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	logger.DatabaseResult("DELETE", rows, nil)
	if rows == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: item %s has rental history", domain.ErrConflict, id)
	}
	return nil
}

func (r *itemRepository) List(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, int32, error) {
	logger.DatabaseCall("SELECT", "items", "filter", filter)
	ds := dialect.From("items")
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		ds = ds.Where(goqu.Or(
			goqu.C("title").ILike(pattern),
			goqu.C("description").ILike(pattern),
		))
	}
	if filter.CategoryID != "" {
		ds = ds.Where(goqu.C("category_id").Eq(filter.CategoryID))
	}
	if filter.OwnerID != "" {
		ds = ds.Where(goqu.C("owner_id").Eq(filter.OwnerID))
	}
	if filter.AvailableOnly {
		ds = ds.Where(goqu.C("is_available").IsTrue())
	}
	if filter.MaxPrice > 0 {
		ds = ds.Where(goqu.C("price_per_day").Lte(filter.MaxPrice))
	}

	countQuery, countArgs, err := ds.Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, err
	}
	var total int32
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	ds = ds.Select(goqu.L(itemColumns)).Order(goqu.C("created_at").Desc(), goqu.C("id").Asc())
	if filter.PageSize > 0 {
		ds = ds.Limit(uint(filter.PageSize)).Offset(uint(offset(filter.Page, filter.PageSize)))
	}
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, mapError(err)
	}
	items, err := scanItems(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *itemRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	logger.DatabaseCall("SELECT", "categories")
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, slug FROM categories ORDER BY name`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *itemRepository) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	logger.DatabaseCall("SELECT", "categories", "categoryID", id)
	c := &domain.Category{}
	err := r.db.QueryRowContext(ctx, `SELECT id, name, slug FROM categories WHERE id = $1`, id).Scan(&c.ID, &c.Name, &c.Slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("category", id)
		}
		return nil, mapError(err)
	}
	return c, nil
}

// ReconcileAvailability flips is_available on items whose flag disagrees with
// rental state. Each UPDATE re-checks its condition under the row lock, so a
// rental committed in between is never overridden.
func (r *itemRepository) ReconcileAvailability(ctx context.Context) ([]string, []string, error) {
	logger.DatabaseCall("UPDATE", "items", "operation", "reconcile_availability")
	now := time.Now().UTC()

	held, err := r.flip(ctx, `UPDATE items SET is_available = FALSE, updated_at = $1
		WHERE is_available AND `+holdingRental+` RETURNING id`, now)
	if err != nil {
		return nil, nil, err
	}
	released, err := r.flip(ctx, `UPDATE items SET is_available = TRUE, updated_at = $1
		WHERE NOT is_available AND NOT `+holdingRental+` RETURNING id`, now)
	if err != nil {
		return nil, nil, err
	}
	logger.DatabaseResult("UPDATE", int64(len(held)+len(released)), nil)
	return held, released, nil
}

func (r *itemRepository) flip(ctx context.Context, query string, now time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
