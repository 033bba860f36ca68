package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/farmmarket/internal/models"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available")
)

// InsufficientStockError carries the quantity still on hand so handlers can
// tell the buyer how much they may actually order.
type InsufficientStockError struct {
	Available uint
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("only %d available", e.Available)
}

// Entry is one validated cart line with the live product attached.
type Entry struct {
	Product  models.Product `json:"product"`
	Quantity uint           `json:"quantity"`
	Total    float64        `json:"total"`
}

// Service applies the cart contract on top of a Store: quantities are
// validated against live stock on every mutation, and Materialize silently
// drops entries that went stale since they were added.
type Service struct {
	DB    *gorm.DB
	Store Store
}

func (s *Service) product(ctx context.Context, productID uint) (*models.Product, error) {
	var p models.Product
	if err := s.DB.WithContext(ctx).First(&p, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Add puts quantity more of the product into the cart. The cumulative
// quantity is clamped to the stock on hand.
func (s *Service) Add(ctx context.Context, userID, productID, quantity uint) (map[uint]uint, error) {
	if quantity < 1 {
		quantity = 1
	}

	p, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Available {
		return nil, ErrProductUnavailable
	}
	if quantity > p.Quantity {
		return nil, &InsufficientStockError{Available: p.Quantity}
	}

	items, err := s.Store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	items[productID] += quantity
	if items[productID] > p.Quantity {
		items[productID] = p.Quantity
	}

	if err := s.Store.Set(ctx, userID, items); err != nil {
		return nil, err
	}
	return items, nil
}

// Update sets the exact quantity for a product. Zero or negative removes
// the entry.
func (s *Service) Update(ctx context.Context, userID, productID uint, quantity int) (map[uint]uint, error) {
	items, err := s.Store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if quantity <= 0 {
		delete(items, productID)
	} else {
		p, err := s.product(ctx, productID)
		if err != nil {
			return nil, err
		}
		if uint(quantity) > p.Quantity {
			return nil, &InsufficientStockError{Available: p.Quantity}
		}
		items[productID] = uint(quantity)
	}

	if err := s.Store.Set(ctx, userID, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) Remove(ctx context.Context, userID, productID uint) (map[uint]uint, error) {
	items, err := s.Store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	delete(items, productID)
	if err := s.Store.Set(ctx, userID, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) Clear(ctx context.Context, userID uint) error {
	return s.Store.Clear(ctx, userID)
}

// Count returns the summed quantity over all entries, valid or not.
func (s *Service) Count(ctx context.Context, userID uint) (uint, error) {
	items, err := s.Store.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	var n uint
	for _, q := range items {
		n += q
	}
	return n, nil
}

// Materialize resolves the cart against live products. Entries whose
// product disappeared, became unavailable or no longer covers the requested
// quantity are dropped without error.
func (s *Service) Materialize(ctx context.Context, userID uint) ([]Entry, float64, error) {
	items, err := s.Store.Get(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	entries := make([]Entry, 0, len(items))
	var total float64
	for productID, quantity := range items {
		var p models.Product
		if err := s.DB.WithContext(ctx).First(&p, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, 0, err
		}
		if !p.Available || p.Quantity < quantity {
			continue
		}
		lineTotal := p.Price * float64(quantity)
		entries = append(entries, Entry{Product: p, Quantity: quantity, Total: lineTotal})
		total += lineTotal
	}
	return entries, total, nil
}
