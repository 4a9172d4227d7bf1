package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/leostore/storefront/internal/cart"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", host, port.Port()),
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to ping redis: %v", err)
	}

	cleanup := func() {
		if err := rdb.Close(); err != nil {
			t.Logf("Failed to close redis client: %v", err)
		}
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return rdb, cleanup
}

func TestCartLifecycle(t *testing.T) {
	rdb, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	store := cart.NewStore(rdb, time.Hour)
	const customerID = int64(42)

	lines, err := store.Get(ctx, customerID)
	if err != nil {
		t.Fatalf("Get empty cart: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("Expected empty cart, got %d lines", len(lines))
	}

	if err := store.SetLine(ctx, customerID, 7, 2); err != nil {
		t.Fatalf("Set line: %v", err)
	}
	if err := store.SetLine(ctx, customerID, 3, 1); err != nil {
		t.Fatalf("Set line: %v", err)
	}

	lines, err = store.Get(ctx, customerID)
	if err != nil {
		t.Fatalf("Get cart: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	// Sorted by product id.
	if lines[0].ProductID != 3 || lines[0].Quantity != 1 {
		t.Errorf("Unexpected first line: %+v", lines[0])
	}
	if lines[1].ProductID != 7 || lines[1].Quantity != 2 {
		t.Errorf("Unexpected second line: %+v", lines[1])
	}

	// Setting an existing product replaces the quantity.
	if err := store.SetLine(ctx, customerID, 7, 5); err != nil {
		t.Fatalf("Set line: %v", err)
	}
	lines, err = store.Get(ctx, customerID)
	if err != nil {
		t.Fatalf("Get cart: %v", err)
	}
	if lines[1].Quantity != 5 {
		t.Errorf("Expected quantity 5 after update, got %d", lines[1].Quantity)
	}

	if err := store.RemoveLine(ctx, customerID, 3); err != nil {
		t.Fatalf("Remove line: %v", err)
	}
	lines, err = store.Get(ctx, customerID)
	if err != nil {
		t.Fatalf("Get cart: %v", err)
	}
	if len(lines) != 1 || lines[0].ProductID != 7 {
		t.Fatalf("Expected only product 7 left, got %+v", lines)
	}

	if err := store.Clear(ctx, customerID); err != nil {
		t.Fatalf("Clear cart: %v", err)
	}
	lines, err = store.Get(ctx, customerID)
	if err != nil {
		t.Fatalf("Get cart after clear: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("Expected empty cart after clear, got %d lines", len(lines))
	}
}

func TestCartZeroQuantityRemovesLine(t *testing.T) {
	rdb, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	store := cart.NewStore(rdb, time.Hour)
	const customerID = int64(1)

	if err := store.SetLine(ctx, customerID, 10, 4); err != nil {
		t.Fatalf("Set line: %v", err)
	}
	if err := store.SetLine(ctx, customerID, 10, 0); err != nil {
		t.Fatalf("Set zero quantity: %v", err)
	}

	lines, err := store.Get(ctx, customerID)
	if err != nil {
		t.Fatalf("Get cart: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("Expected zero quantity to remove the line, got %+v", lines)
	}
}

func TestCartsAreIsolatedPerCustomer(t *testing.T) {
	rdb, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	store := cart.NewStore(rdb, time.Hour)

	if err := store.SetLine(ctx, 1, 5, 1); err != nil {
		t.Fatalf("Set line: %v", err)
	}
	if err := store.SetLine(ctx, 2, 9, 3); err != nil {
		t.Fatalf("Set line: %v", err)
	}

	lines, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get cart: %v", err)
	}
	if len(lines) != 1 || lines[0].ProductID != 5 {
		t.Fatalf("Customer 1 cart leaked: %+v", lines)
	}

	if err := store.Clear(ctx, 1); err != nil {
		t.Fatalf("Clear cart: %v", err)
	}
	lines, err = store.Get(ctx, 2)
	if err != nil {
		t.Fatalf("Get cart: %v", err)
	}
	if len(lines) != 1 || lines[0].ProductID != 9 {
		t.Fatalf("Customer 2 cart affected by clearing customer 1: %+v", lines)
	}
}
