package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/logger"
	"rentloop-backend/internal/repository"
)

const userColumns = `id, email, password_hash, name, COALESCE(phone_number, ''), COALESCE(address, ''),
	COALESCE(bio, ''), COALESCE(avatar_url, ''), balance, created_at, updated_at`

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func scanUser(row rowScanner, u *domain.User) error {
	return row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.PhoneNumber, &u.Address,
		&u.Bio, &u.AvatarURL, &u.Balance, &u.CreatedAt, &u.UpdatedAt)
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	logger.DatabaseCall("INSERT", "users", "email", u.Email)
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	query := `INSERT INTO users (id, email, password_hash, name, phone_number, address, bio, avatar_url, balance, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	res, err := r.db.ExecContext(ctx, query, u.ID, u.Email, u.PasswordHash, u.Name, u.PhoneNumber, u.Address,
		u.Bio, u.AvatarURL, u.Balance, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		logger.DatabaseResult("INSERT", 0, err)
		return mapError(err)
	}
	rows, _ := res.RowsAffected()
	logger.DatabaseResult("INSERT", rows, nil, "userID", u.ID)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	logger.DatabaseCall("SELECT", "users", "userID", id)
	u := &domain.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := scanUser(r.db.QueryRowContext(ctx, query, id), u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("user", id)
		}
		return nil, mapError(err)
	}
	return u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	logger.DatabaseCall("SELECT", "users", "email", email)
	u := &domain.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	if err := scanUser(r.db.QueryRowContext(ctx, query, strings.TrimSpace(email)), u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("user", email)
		}
		return nil, mapError(err)
	}
	return u, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	logger.DatabaseCall("SELECT", "users", "count", len(ids))
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := scanUser(rows, &u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Update writes profile fields. Balance only moves inside a rental or top-up
// transaction and is not touched here.
func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	logger.DatabaseCall("UPDATE", "users", "userID", u.ID)
	u.UpdatedAt = time.Now().UTC()
	query := `UPDATE users SET name=$1, phone_number=$2, address=$3, bio=$4, avatar_url=$5, updated_at=$6 WHERE id=$7`
	res, err := r.db.ExecContext(ctx, query, u.Name, u.PhoneNumber, u.Address, u.Bio, u.AvatarURL, u.UpdatedAt, u.ID)
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
		return notFound("user", u.ID)
	}
	return nil
}
