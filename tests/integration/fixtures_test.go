package integration

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/leostore/storefront/internal/catalog"
	"github.com/leostore/storefront/internal/customers"
	"github.com/leostore/storefront/internal/models"
	"github.com/shopspring/decimal"
)

var fixtureSeq int64

func nextSeq() int64 {
	fixtureSeq++
	return fixtureSeq
}

func createTestCustomer(t *testing.T, db *sql.DB) *models.Customer {
	t.Helper()

	customer, err := customers.Create(context.Background(), db, customers.CreateParams{
		Email:    fmt.Sprintf("customer-%d-%d@example.com", nextSeq(), time.Now().UnixNano()),
		FullName: "Test Customer",
		Phone:    "555-0100",
		Address:  "1 Main St",
	})
	if err != nil {
		t.Fatalf("Create customer: %v", err)
	}
	return customer
}

func createTestCategory(t *testing.T, db *sql.DB) *models.Category {
	t.Helper()

	category, err := catalog.CreateCategory(context.Background(), db,
		fmt.Sprintf("Category %d-%d", nextSeq(), time.Now().UnixNano()))
	if err != nil {
		t.Fatalf("Create category: %v", err)
	}
	return category
}

func createTestProduct(t *testing.T, db *sql.DB, categoryID int64, price decimal.Decimal, stock int) *models.Product {
	t.Helper()

	product, err := catalog.CreateProduct(context.Background(), db, catalog.CreateProductParams{
		SKU:         fmt.Sprintf("SKU-%d-%d", nextSeq(), time.Now().UnixNano()),
		Name:        "Test Product",
		Description: "Test",
		Price:       price,
		Stock:       stock,
		CategoryID:  categoryID,
	})
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}
	return product
}

func currentStock(t *testing.T, db *sql.DB, productID int64) int {
	t.Helper()

	product, err := catalog.GetProduct(context.Background(), db, productID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	return product.StockQuantity
}
