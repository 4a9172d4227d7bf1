package customers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/leostore/storefront/internal/database"
	"github.com/leostore/storefront/internal/models"
	"github.com/leostore/storefront/internal/pagination"
)

type CreateParams struct {
	Email    string
	FullName string
	Phone    string
	Address  string
}

func Create(ctx context.Context, db *sql.DB, p CreateParams) (*models.Customer, error) {
	customer := &models.Customer{}

	query := `
		INSERT INTO customers (email, fullname, phone, address, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, NOW(), NOW(), 1)
		RETURNING id, email, fullname, phone, address, created_at, updated_at, version`

	err := db.QueryRowContext(ctx, query, p.Email, p.FullName, p.Phone, p.Address).Scan(
		&customer.ID,
		&customer.Email,
		&customer.FullName,
		&customer.Phone,
		&customer.Address,
		&customer.CreatedAt,
		&customer.UpdatedAt,
		&customer.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	return customer, nil
}

func Get(ctx context.Context, db *sql.DB, id int64) (*models.Customer, error) {
	return getBy(ctx, db, `WHERE id = $1`, id)
}

func GetByEmail(ctx context.Context, db *sql.DB, email string) (*models.Customer, error) {
	return getBy(ctx, db, `WHERE email = $1`, email)
}

func getBy(ctx context.Context, db *sql.DB, where string, arg interface{}) (*models.Customer, error) {
	customer := &models.Customer{}

	query := `
		SELECT id, email, fullname, phone, address, created_at, updated_at, version
		FROM customers ` + where

	err := db.QueryRowContext(ctx, query, arg).Scan(
		&customer.ID,
		&customer.Email,
		&customer.FullName,
		&customer.Phone,
		&customer.Address,
		&customer.CreatedAt,
		&customer.UpdatedAt,
		&customer.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}

	return customer, nil
}

type UpdateParams struct {
	FullName string
	Phone    string
	Address  string
}

func Update(ctx context.Context, db *sql.DB, id int64, p UpdateParams) (*models.Customer, error) {
	customer := &models.Customer{}

	query := `
		UPDATE customers
		SET fullname = $1, phone = $2, address = $3, updated_at = NOW(), version = version + 1
		WHERE id = $4
		RETURNING id, email, fullname, phone, address, created_at, updated_at, version`

	err := db.QueryRowContext(ctx, query, p.FullName, p.Phone, p.Address, id).Scan(
		&customer.ID,
		&customer.Email,
		&customer.FullName,
		&customer.Phone,
		&customer.Address,
		&customer.CreatedAt,
		&customer.UpdatedAt,
		&customer.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("update customer: %w", err)
	}

	return customer, nil
}

func Delete(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrCustomerNotFound
	}

	return nil
}

func List(ctx context.Context, db *sql.DB, page, pageSize int) (*pagination.OffsetPage, error) {
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count customers: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT id, email, fullname, phone, address, created_at, updated_at, version
		FROM customers
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var items []models.Customer
	for rows.Next() {
		var customer models.Customer
		err := rows.Scan(
			&customer.ID,
			&customer.Email,
			&customer.FullName,
			&customer.Phone,
			&customer.Address,
			&customer.CreatedAt,
			&customer.UpdatedAt,
			&customer.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		items = append(items, customer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return pagination.NewOffsetPage(items, total, page, pageSize), nil
}
