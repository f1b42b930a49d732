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

const orderSelect = `SELECT o.id, o.number, o.user_id, u.login, COALESCE(o.product_id, 0), o.product_name,
	o.link_method, o.customer_id, o.customer_pass, o.status, o.stock_file, o.created_at, o.updated_at
	FROM orders o JOIN users u ON u.id = o.user_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var order domain.Order
	err := row.Scan(&order.ID, &order.Number, &order.UserID, &order.UserLogin, &order.ProductID, &order.ProductName,
		&order.LinkMethod, &order.CustomerID, &order.CustomerPass, &order.Status, &order.StockFile, &order.CreatedAt, &order.UpdatedAt)
	return order, err
}

// Purchase sells the oldest unsold stock item of the product to the user.
// Stock selection, balance debit, order creation and stock assignment
// happen in one transaction.
func (p *Postgres) Purchase(ctx context.Context, userID, productID int64, number string) (*domain.Order, error) {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}
	defer rollback(tx)

	var (
		name  string
		price decimal.Decimal
	)
	err = tx.QueryRowContext(ctx, "SELECT name, price FROM products WHERE id = $1", productID).Scan(&name, &price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("error fetching product: %w", err)
	}

	var (
		stockID int64
		file    string
	)
	err = tx.QueryRowContext(ctx,
		"SELECT id, file FROM stock WHERE product_id = $1 AND NOT sold ORDER BY id LIMIT 1 FOR UPDATE SKIP LOCKED",
		productID,
	).Scan(&stockID, &file)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOutOfStock
		}
		return nil, fmt.Errorf("error fetching stock: %w", err)
	}

	res, err := tx.ExecContext(ctx, "UPDATE users SET balance = balance - $1 WHERE id = $2 AND balance >= $1", price, userID)
	if err != nil {
		return nil, fmt.Errorf("error updating balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("error updating balance: %w", err)
	}
	if affected == 0 {
		logger.Log.Warn("insufficient funds", logger.Int64("user_id", userID), logger.Int64("product_id", productID))
		return nil, domain.ErrInsufficientFunds
	}

	order := domain.Order{
		Number:      number,
		UserID:      userID,
		ProductID:   productID,
		ProductName: name,
		StockFile:   file,
	}
	err = tx.QueryRowContext(ctx,
		"INSERT INTO orders (number, user_id, product_id, product_name, stock_file) VALUES ($1, $2, $3, $4, $5) RETURNING id, status, created_at, updated_at",
		number, userID, productID, name, file,
	).Scan(&order.ID, &order.Status, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("error creating order: %w", err)
	}

	if _, err = tx.ExecContext(ctx, "UPDATE stock SET sold = TRUE, order_id = $1 WHERE id = $2", order.ID, stockID); err != nil {
		return nil, fmt.Errorf("error assigning stock: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing purchase: %w", err)
	}

	return &order, nil
}

func (p *Postgres) Orders(ctx context.Context, userID int64) ([]domain.Order, error) {
	return p.queryOrders(ctx, orderSelect+" WHERE o.user_id = $1 ORDER BY o.created_at DESC, o.id DESC", userID)
}

func (p *Postgres) OrdersByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	return p.queryOrders(ctx, orderSelect+" WHERE o.status = $1 ORDER BY o.created_at DESC, o.id DESC", status)
}

func (p *Postgres) AllOrders(ctx context.Context) ([]domain.Order, error) {
	return p.queryOrders(ctx, orderSelect+" ORDER BY o.created_at DESC, o.id DESC")
}

func (p *Postgres) queryOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := p.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error fetching orders: %w", err)
	}
	defer closeRows(rows)

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

func (p *Postgres) OrderByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return p.queryOrder(ctx, orderSelect+" WHERE o.number = $1", number)
}

func (p *Postgres) OrderByID(ctx context.Context, id int64) (*domain.Order, error) {
	return p.queryOrder(ctx, orderSelect+" WHERE o.id = $1", id)
}

func (p *Postgres) queryOrder(ctx context.Context, query string, arg any) (*domain.Order, error) {
	order, err := scanOrder(p.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("error fetching order: %w", err)
	}

	return &order, nil
}

func (p *Postgres) SetLinkCredentials(ctx context.Context, orderID int64, method domain.LinkMethod, customerID, customerPass string) error {
	res, err := p.DB.ExecContext(ctx,
		"UPDATE orders SET link_method = $1, customer_id = $2, customer_pass = $3, updated_at = now() WHERE id = $4",
		method, customerID, customerPass, orderID,
	)
	if err != nil {
		return fmt.Errorf("error saving link credentials: %w", err)
	}

	return expectAffected(res, domain.ErrOrderNotFound)
}

func (p *Postgres) UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	res, err := p.DB.ExecContext(ctx, "UPDATE orders SET status = $1, updated_at = now() WHERE id = $2", status, orderID)
	if err != nil {
		return fmt.Errorf("error updating order status: %w", err)
	}

	return expectAffected(res, domain.ErrOrderNotFound)
}

func (p *Postgres) Dashboard(ctx context.Context) (*domain.Dashboard, error) {
	var d domain.Dashboard
	err := p.DB.QueryRowContext(ctx, `SELECT
		count(*) FILTER (WHERE status = 'pending'),
		count(*) FILTER (WHERE status = 'processing'),
		count(*) FILTER (WHERE status = 'done'),
		(SELECT count(*) FROM products)
		FROM orders`).Scan(&d.Pending, &d.Processing, &d.Done, &d.Products)
	if err != nil {
		return nil, fmt.Errorf("error fetching dashboard: %w", err)
	}

	return &d, nil
}

func expectAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
