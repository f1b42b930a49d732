package postgres

import (
	"context"
	"fmt"

	"github.com/axonake/RANGERSTORE/internal/domain"
	"github.com/axonake/RANGERSTORE/pkg/logger"
)

// CreditTopUp records the top-up and credits the user's balance. A voucher
// reference that was already used yields domain.ErrVoucherRedeemed.
func (p *Postgres) CreditTopUp(ctx context.Context, topUp domain.TopUp) (int64, error) {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error starting transaction: %w", err)
	}
	defer rollback(tx)

	var id int64
	err = tx.QueryRowContext(ctx,
		"INSERT INTO topups (user_id, amount, method, reference_code, owner_name, status) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id",
		topUp.UserID, topUp.Amount, topUp.Method, topUp.ReferenceCode, topUp.OwnerName, topUp.Status,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			logger.Log.Warn("voucher already redeemed", logger.String("reference", topUp.ReferenceCode))
			return 0, domain.ErrVoucherRedeemed
		}
		return 0, fmt.Errorf("error saving top-up: %w", err)
	}

	res, err := tx.ExecContext(ctx, "UPDATE users SET balance = balance + $1 WHERE id = $2", topUp.Amount, topUp.UserID)
	if err != nil {
		return 0, fmt.Errorf("error crediting balance: %w", err)
	}
	if err = expectAffected(res, domain.ErrUserNotFound); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing top-up: %w", err)
	}

	return id, nil
}

func (p *Postgres) TopUpExists(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := p.DB.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM topups WHERE reference_code = $1)", reference).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking top-up: %w", err)
	}
	return exists, nil
}

func (p *Postgres) TopUps(ctx context.Context, userID int64) ([]domain.TopUp, error) {
	rows, err := p.DB.QueryContext(ctx,
		"SELECT id, user_id, amount, method, reference_code, owner_name, status, created_at FROM topups WHERE user_id = $1 ORDER BY created_at DESC, id DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("error fetching top-ups: %w", err)
	}
	defer closeRows(rows)

	topUps := make([]domain.TopUp, 0)
	for rows.Next() {
		var t domain.TopUp
		if err = rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Method, &t.ReferenceCode, &t.OwnerName, &t.Status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning top-up: %w", err)
		}
		topUps = append(topUps, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top-ups: %w", err)
	}

	return topUps, nil
}
