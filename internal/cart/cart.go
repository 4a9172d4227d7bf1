package cart

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps one cart per customer in a Redis hash keyed by product id.
// Only quantities live here; prices are always re-read from the catalog at
// checkout time.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

type Line struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func key(customerID int64) string {
	return fmt.Sprintf("cart:%d", customerID)
}

// SetLine sets the quantity for one product, replacing any previous value.
// A non-positive quantity removes the line.
func (s *Store) SetLine(ctx context.Context, customerID, productID int64, quantity int) error {
	if quantity <= 0 {
		return s.RemoveLine(ctx, customerID, productID)
	}

	k := key(customerID)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, k, strconv.FormatInt(productID, 10), quantity)
	pipe.Expire(ctx, k, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set cart line: %w", err)
	}
	return nil
}

func (s *Store) RemoveLine(ctx context.Context, customerID, productID int64) error {
	if err := s.rdb.HDel(ctx, key(customerID), strconv.FormatInt(productID, 10)).Err(); err != nil {
		return fmt.Errorf("remove cart line: %w", err)
	}
	return nil
}

// Get returns the cart lines sorted by product id. An absent cart is an
// empty cart.
func (s *Store) Get(ctx context.Context, customerID int64) ([]Line, error) {
	fields, err := s.rdb.HGetAll(ctx, key(customerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	lines := make([]Line, 0, len(fields))
	for field, value := range fields {
		productID, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse cart product id %q: %w", field, err)
		}
		quantity, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("parse cart quantity %q: %w", value, err)
		}
		lines = append(lines, Line{ProductID: productID, Quantity: quantity})
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines, nil
}

// Clear drops the whole cart, used after a successful checkout.
func (s *Store) Clear(ctx context.Context, customerID int64) error {
	if err := s.rdb.Del(ctx, key(customerID)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
