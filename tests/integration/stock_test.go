package integration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/leostore/storefront/internal/database"
	"github.com/leostore/storefront/internal/stock"
	"github.com/shopspring/decimal"
)

func TestReserveAndRelease(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	category := createTestCategory(t, db)
	product := createTestProduct(t, db, category.ID, decimal.NewFromInt(10), 10)

	ledger := stock.NewLedger(db)

	reservation, err := ledger.Reserve(ctx, product.ID, 4)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if got := currentStock(t, db, product.ID); got != 6 {
		t.Errorf("Expected stock 6 after reserve, got %d", got)
	}

	if err := ledger.Release(ctx, reservation); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if got := currentStock(t, db, product.ID); got != 10 {
		t.Errorf("Expected stock 10 after release, got %d", got)
	}
}

func TestReleaseTwiceDoesNotDoubleCredit(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	category := createTestCategory(t, db)
	product := createTestProduct(t, db, category.ID, decimal.NewFromInt(10), 10)

	ledger := stock.NewLedger(db)

	reservation, err := ledger.Reserve(ctx, product.ID, 4)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	if err := ledger.Release(ctx, reservation); err != nil {
		t.Fatalf("First release: %v", err)
	}
	if err := ledger.Release(ctx, reservation); err != nil {
		t.Fatalf("Second release: %v", err)
	}
	if err := ledger.Release(ctx, nil); err != nil {
		t.Fatalf("Nil release: %v", err)
	}

	if got := currentStock(t, db, product.ID); got != 10 {
		t.Errorf("Expected stock 10, got %d", got)
	}
}

func TestReserveInsufficientStock(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	category := createTestCategory(t, db)
	product := createTestProduct(t, db, category.ID, decimal.NewFromInt(10), 3)

	ledger := stock.NewLedger(db)

	_, err := ledger.Reserve(ctx, product.ID, 4)
	if !errors.Is(err, database.ErrInsufficientStock) {
		t.Errorf("Expected insufficient stock error, got: %v", err)
	}

	if got := currentStock(t, db, product.ID); got != 3 {
		t.Errorf("Failed reserve must not change stock, got %d", got)
	}
}

func TestConcurrentReservations(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	category := createTestCategory(t, db)
	product := createTestProduct(t, db, category.ID, decimal.NewFromInt(10), 10)

	ledger := stock.NewLedger(db)

	concurrency := 8
	var wg sync.WaitGroup
	results := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Reserve(ctx, product.ID, 2)
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		if err == nil {
			successCount++
		} else if !errors.Is(err, database.ErrInsufficientStock) {
			t.Errorf("Unexpected error: %v", err)
		}
	}

	// 10 units, 2 per reservation: exactly 5 winners, stock never negative.
	if successCount != 5 {
		t.Errorf("Expected 5 successful reservations, got %d", successCount)
	}
	if got := currentStock(t, db, product.ID); got != 0 {
		t.Errorf("Expected final stock 0, got %d", got)
	}
}
