package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/axonake/RANGERSTORE/internal/domain"
	"github.com/axonake/RANGERSTORE/pkg/logger"
	"github.com/shopspring/decimal"
)

func (p *Postgres) CreateUser(ctx context.Context, login, hashedPassword, role string) (int64, error) {
	var id int64
	err := p.DB.QueryRowContext(ctx, "INSERT INTO users (login, password, role) VALUES ($1, $2, $3) RETURNING id", login, hashedPassword, role).
		Scan(&id)

	if err != nil {
		if isUniqueViolation(err) {
			logger.Log.Warn("user already exists", logger.String("login", login))
			return 0, domain.ErrUserExists
		}
		return 0, fmt.Errorf("error creating user: %w", err)
	}

	return id, nil
}

// EnsureUser creates the user unless the login is taken. It reports
// whether a row was inserted.
func (p *Postgres) EnsureUser(ctx context.Context, login, hashedPassword, role string, balance decimal.Decimal) (bool, error) {
	var id int64
	err := p.DB.QueryRowContext(ctx,
		"INSERT INTO users (login, password, role, balance) VALUES ($1, $2, $3, $4) ON CONFLICT (login) DO NOTHING RETURNING id",
		login, hashedPassword, role, balance,
	).Scan(&id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("error ensuring user: %w", err)
	}

	return true, nil
}

func (p *Postgres) User(ctx context.Context, login string) (*domain.User, error) {
	row := p.DB.QueryRowContext(ctx, "SELECT id, login, password, role, balance, registered_at FROM users WHERE login = $1", login)

	var user domain.User
	err := row.Scan(&user.ID, &user.Login, &user.Password, &user.Role, &user.Balance, &user.RegisteredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrIncorrectCredentials
		}
		return nil, fmt.Errorf("error fetching user: %w", err)
	}

	return &user, nil
}

func (p *Postgres) UserByID(ctx context.Context, id int64) (*domain.User, error) {
	row := p.DB.QueryRowContext(ctx, "SELECT id, login, password, role, balance, registered_at FROM users WHERE id = $1", id)

	var user domain.User
	err := row.Scan(&user.ID, &user.Login, &user.Password, &user.Role, &user.Balance, &user.RegisteredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("error fetching user: %w", err)
	}

	return &user, nil
}

func (p *Postgres) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := p.DB.QueryRowContext(ctx, "SELECT balance FROM users WHERE id = $1", userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, domain.ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("error fetching balance: %w", err)
	}

	return balance, nil
}
