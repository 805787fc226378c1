package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/logger"
	"rentloop-backend/internal/repository"
)

const rentalColumns = `id, lendee_id, lender_id, start_date, end_date, total_price, total_deposit,
	status, rejection_reason, created_at, updated_at`

const rentalItemColumns = `id, rental_id, item_id, quantity, price_at_rental, subtotal`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rentalRepository struct {
	db *sql.DB
}

func NewRentalRepository(db *sql.DB) repository.RentalRepository {
	return &rentalRepository{db: db}
}

func scanRental(row rowScanner, rt *domain.Rental) error {
	var reason sql.NullString
	if err := row.Scan(&rt.ID, &rt.LendeeID, &rt.LenderID, &rt.StartDate, &rt.EndDate, &rt.TotalPrice,
		&rt.TotalDeposit, &rt.Status, &reason, &rt.CreatedAt, &rt.UpdatedAt); err != nil {
		return err
	}
	if reason.Valid {
		rt.RejectionReason = &reason.String
	}
	rt.StartDate = rt.StartDate.UTC()
	rt.EndDate = rt.EndDate.UTC()
	return nil
}

// loadRentalItems fills the lines of every rental in one query, keeping the
// order they were created in.
func loadRentalItems(ctx context.Context, q querier, rentals []*domain.Rental) error {
	if len(rentals) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Rental, len(rentals))
	ids := make([]string, 0, len(rentals))
	for _, rt := range rentals {
		rt.Items = []domain.RentalItem{}
		byID[rt.ID] = rt
		ids = append(ids, rt.ID)
	}

	query := `SELECT ` + rentalItemColumns + ` FROM rental_items WHERE rental_id = ANY($1) ORDER BY rental_id, line_no`
	rows, err := q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.RentalItem
		if err := rows.Scan(&line.ID, &line.RentalID, &line.ItemID, &line.Quantity, &line.PriceAtRental, &line.Subtotal); err != nil {
			return err
		}
		if rt, ok := byID[line.RentalID]; ok {
			rt.Items = append(rt.Items, line)
		}
	}
	return rows.Err()
}

func getRental(ctx context.Context, q querier, id string, forUpdate bool) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	rt := &domain.Rental{}
	if err := scanRental(q.QueryRowContext(ctx, query, id), rt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("rental", id)
		}
		return nil, mapError(err)
	}
	if err := loadRentalItems(ctx, q, []*domain.Rental{rt}); err != nil {
		return nil, err
	}
	return rt, nil
}

func (r *rentalRepository) GetByID(ctx context.Context, id string) (*domain.Rental, error) {
	logger.DatabaseCall("SELECT", "rentals", "rentalID", id)
	return getRental(ctx, r.db, id, false)
}

func (r *rentalRepository) List(ctx context.Context, filter domain.RentalFilter) ([]domain.Rental, int32, error) {
	logger.DatabaseCall("SELECT", "rentals", "filter", filter)
	ds := dialect.From("rentals")
	if filter.LenderID != "" {
		ds = ds.Where(goqu.C("lender_id").Eq(filter.LenderID))
	}
	if filter.LendeeID != "" {
		ds = ds.Where(goqu.C("lendee_id").Eq(filter.LendeeID))
	}
	if filter.UserID != "" {
		ds = ds.Where(goqu.Or(
			goqu.C("lender_id").Eq(filter.UserID),
			goqu.C("lendee_id").Eq(filter.UserID),
		))
	}
	if filter.Status != "" {
		ds = ds.Where(goqu.C("status").Eq(string(filter.Status)))
	}

	countQuery, countArgs, err := ds.Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, err
	}
	var total int32
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	ds = ds.Select(goqu.L(rentalColumns)).Order(goqu.C("created_at").Desc(), goqu.C("id").Asc())
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
	var rentals []domain.Rental
	for rows.Next() {
		var rt domain.Rental
		if err := scanRental(rows, &rt); err != nil {
			rows.Close()
			return nil, 0, err
		}
		rentals = append(rentals, rt)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	ptrs := make([]*domain.Rental, len(rentals))
	for i := range rentals {
		ptrs[i] = &rentals[i]
	}
	if err := loadRentalItems(ctx, r.db, ptrs); err != nil {
		return nil, 0, err
	}
	return rentals, total, nil
}
