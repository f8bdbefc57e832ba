package repository

import (
	"context"
	"errors"
	"fmt"
	"storefront-backend/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type userRepo struct {
	db DB
}

var validate = validator.New()

func NewUserRepository(db DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	if err := validate.Struct(u); err != nil {
		var validationErr validator.ValidationErrors
		if errors.As(err, &validationErr) {
			switch validationErr[0].Field() {
			case "Email":
				return fmt.Errorf("%w: invalid email format", ErrInvalidInput)
			case "FullName":
				return fmt.Errorf("%w: full_name must be 2-100 characters", ErrInvalidInput)
			}
		}
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if u.PasswordHash == "" {
		return fmt.Errorf("%w: password required", ErrInvalidInput)
	}

	if u.Role == "" {
		u.Role = models.RoleCustomer
	}

	sql := `
		INSERT INTO users (
			full_name,
			email,
			password,
			role,
			phone,
			address
	) VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, sql,
		u.FullName,
		u.Email,
		u.PasswordHash,
		u.Role,
		u.Phone,
		u.Address,
	).Scan(&u.UserID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: email already registered", ErrUserExists)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: ID must be positive", ErrInvalidInput)
	}

	sql := `SELECT id, full_name, email, password, role, COALESCE(phone, ''), COALESCE(address, ''), created_at
	FROM users WHERE id = $1`

	return r.scanUser(r.db.QueryRow(ctx, sql, id))
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: email cannot be empty", ErrInvalidInput)
	}

	sql := `SELECT id, full_name, email, password, role, COALESCE(phone, ''), COALESCE(address, ''), created_at
	FROM users WHERE email = $1`

	return r.scanUser(r.db.QueryRow(ctx, sql, email))
}

func (r *userRepo) scanUser(row pgx.Row) (*models.User, error) {
	var user models.User

	err := row.Scan(
		&user.UserID,
		&user.FullName,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Phone,
		&user.Address,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}
