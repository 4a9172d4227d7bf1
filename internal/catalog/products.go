package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/leostore/storefront/internal/database"
	"github.com/leostore/storefront/internal/models"
	"github.com/leostore/storefront/internal/pagination"
	"github.com/shopspring/decimal"
)

type CreateProductParams struct {
	SKU         string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CategoryID  int64
}

func CreateProduct(ctx context.Context, db *sql.DB, p CreateProductParams) (*models.Product, error) {
	product := &models.Product{}

	query := `
		INSERT INTO products (sku, name, description, price, stock_quantity, category_id, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW(), 1)
		RETURNING id, sku, name, description, price, stock_quantity, category_id, active, created_at, updated_at, version`

	err := db.QueryRowContext(ctx, query, p.SKU, p.Name, p.Description, p.Price, p.Stock, p.CategoryID).Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.StockQuantity,
		&product.CategoryID,
		&product.Active,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, db *sql.DB, id int64) (*models.Product, error) {
	product := &models.Product{}

	query := `
		SELECT id, sku, name, description, price, stock_quantity, category_id, active, created_at, updated_at, version
		FROM products
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.StockQuantity,
		&product.CategoryID,
		&product.Active,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

type UpdateProductParams struct {
	Name        string
	Description string
	Price       decimal.Decimal
	CategoryID  int64
}

// UpdateProduct changes the descriptive fields of a product. Stock is
// deliberately absent: stock-on-hand moves only through the stock ledger.
func UpdateProduct(ctx context.Context, db *sql.DB, id int64, p UpdateProductParams) (*models.Product, error) {
	product := &models.Product{}

	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, category_id = $4,
		    updated_at = NOW(), version = version + 1
		WHERE id = $5
		RETURNING id, sku, name, description, price, stock_quantity, category_id, active, created_at, updated_at, version`

	err := db.QueryRowContext(ctx, query, p.Name, p.Description, p.Price, p.CategoryID, id).Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.StockQuantity,
		&product.CategoryID,
		&product.Active,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	return product, nil
}

// DeactivateProduct takes a product off sale instead of deleting the row, so
// historical order items keep a valid reference.
func DeactivateProduct(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE products
		 SET active = FALSE, updated_at = NOW(), version = version + 1
		 WHERE id = $1`,
		id)
	if err != nil {
		return fmt.Errorf("deactivate product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

func ListProducts(ctx context.Context, db *sql.DB, page, pageSize int) (*pagination.OffsetPage, error) {
	return listProducts(ctx, db, 0, page, pageSize)
}

func ListProductsByCategory(ctx context.Context, db *sql.DB, categoryID int64, page, pageSize int) (*pagination.OffsetPage, error) {
	return listProducts(ctx, db, categoryID, page, pageSize)
}

func listProducts(ctx context.Context, db *sql.DB, categoryID int64, page, pageSize int) (*pagination.OffsetPage, error) {
	where := `WHERE active`
	args := []interface{}{}
	if categoryID != 0 {
		where += ` AND category_id = $1`
		args = append(args, categoryID)
	}

	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products `+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	query := fmt.Sprintf(`
		SELECT id, sku, name, description, price, stock_quantity, category_id, active, created_at, updated_at, version
		FROM products
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var product models.Product
		err := rows.Scan(
			&product.ID,
			&product.SKU,
			&product.Name,
			&product.Description,
			&product.Price,
			&product.StockQuantity,
			&product.CategoryID,
			&product.Active,
			&product.CreatedAt,
			&product.UpdatedAt,
			&product.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return pagination.NewOffsetPage(products, total, page, pageSize), nil
}
