package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/axonake/RANGERSTORE/internal/domain"
)

const productColumns = `p.id, p.name, p.description, p.price, p.image_path, p.created_at,
	(SELECT count(*) FROM stock s WHERE s.product_id = p.id AND NOT s.sold)`

// Products returns the catalog newest first. A non-positive limit returns
// every product.
func (p *Postgres) Products(ctx context.Context, limit int) ([]domain.Product, error) {
	query := "SELECT " + productColumns + " FROM products p ORDER BY p.created_at DESC, p.id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := p.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error fetching products: %w", err)
	}
	defer closeRows(rows)

	products := make([]domain.Product, 0)
	for rows.Next() {
		var product domain.Product
		err = rows.Scan(&product.ID, &product.Name, &product.Description, &product.Price, &product.ImagePath, &product.CreatedAt, &product.StockCount)
		if err != nil {
			return nil, fmt.Errorf("error scanning product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

func (p *Postgres) Product(ctx context.Context, id int64) (*domain.Product, error) {
	row := p.DB.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products p WHERE p.id = $1", id)

	var product domain.Product
	err := row.Scan(&product.ID, &product.Name, &product.Description, &product.Price, &product.ImagePath, &product.CreatedAt, &product.StockCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("error fetching product: %w", err)
	}

	return &product, nil
}

// CreateProduct inserts the product together with one stock row per file.
func (p *Postgres) CreateProduct(ctx context.Context, product domain.Product, files []string) (int64, error) {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error starting transaction: %w", err)
	}
	defer rollback(tx)

	var id int64
	err = tx.QueryRowContext(ctx,
		"INSERT INTO products (name, description, price, image_path) VALUES ($1, $2, $3, $4) RETURNING id",
		product.Name, product.Description, product.Price, product.ImagePath,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("error creating product: %w", err)
	}

	if err = insertStock(ctx, tx, id, files); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing product: %w", err)
	}

	return id, nil
}

// UpdateProduct rewrites the product fields and appends stock rows for files.
func (p *Postgres) UpdateProduct(ctx context.Context, product domain.Product, files []string) error {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer rollback(tx)

	res, err := tx.ExecContext(ctx,
		"UPDATE products SET name = $1, description = $2, price = $3, image_path = $4 WHERE id = $5",
		product.Name, product.Description, product.Price, product.ImagePath, product.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating product: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error updating product: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}

	if err = insertStock(ctx, tx, product.ID, files); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("error committing product: %w", err)
	}

	return nil
}

// DeleteProduct removes the product and its stock rows. It returns the
// image path and the unsold stock files so the caller can remove them from
// disk. Files of sold stock stay on disk because orders keep pointing to them.
func (p *Postgres) DeleteProduct(ctx context.Context, id int64) (string, []string, error) {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", nil, fmt.Errorf("error starting transaction: %w", err)
	}
	defer rollback(tx)

	var image string
	err = tx.QueryRowContext(ctx, "SELECT image_path FROM products WHERE id = $1 FOR UPDATE", id).Scan(&image)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, domain.ErrProductNotFound
		}
		return "", nil, fmt.Errorf("error fetching product: %w", err)
	}

	rows, err := tx.QueryContext(ctx, "SELECT file FROM stock WHERE product_id = $1 AND NOT sold", id)
	if err != nil {
		return "", nil, fmt.Errorf("error fetching stock: %w", err)
	}

	files := make([]string, 0)
	for rows.Next() {
		var file string
		if err = rows.Scan(&file); err != nil {
			closeRows(rows)
			return "", nil, fmt.Errorf("error scanning stock: %w", err)
		}
		files = append(files, file)
	}
	closeRows(rows)
	if err = rows.Err(); err != nil {
		return "", nil, fmt.Errorf("error iterating stock: %w", err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id); err != nil {
		return "", nil, fmt.Errorf("error deleting product: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return "", nil, fmt.Errorf("error committing product deletion: %w", err)
	}

	return image, files, nil
}

func (p *Postgres) Stock(ctx context.Context, productID int64) ([]domain.Stock, error) {
	rows, err := p.DB.QueryContext(ctx,
		"SELECT id, product_id, file, sold, order_id, created_at FROM stock WHERE product_id = $1 ORDER BY id",
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("error fetching stock: %w", err)
	}
	defer closeRows(rows)

	stock := make([]domain.Stock, 0)
	for rows.Next() {
		var (
			s       domain.Stock
			orderID sql.NullInt64
		)
		if err = rows.Scan(&s.ID, &s.ProductID, &s.File, &s.Sold, &orderID, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning stock: %w", err)
		}
		if orderID.Valid {
			s.OrderID = &orderID.Int64
		}
		stock = append(stock, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock: %w", err)
	}

	return stock, nil
}

// DeleteStock removes an unsold stock row and returns its file path.
func (p *Postgres) DeleteStock(ctx context.Context, id int64) (string, error) {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("error starting transaction: %w", err)
	}
	defer rollback(tx)

	var (
		file string
		sold bool
	)
	err = tx.QueryRowContext(ctx, "SELECT file, sold FROM stock WHERE id = $1 FOR UPDATE", id).Scan(&file, &sold)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrStockNotFound
		}
		return "", fmt.Errorf("error fetching stock: %w", err)
	}
	if sold {
		return "", domain.ErrStockSold
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM stock WHERE id = $1", id); err != nil {
		return "", fmt.Errorf("error deleting stock: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("error committing stock deletion: %w", err)
	}

	return file, nil
}

func insertStock(ctx context.Context, tx *sql.Tx, productID int64, files []string) error {
	for _, file := range files {
		if _, err := tx.ExecContext(ctx, "INSERT INTO stock (product_id, file) VALUES ($1, $2)", productID, file); err != nil {
			return fmt.Errorf("error adding stock: %w", err)
		}
	}
	return nil
}
