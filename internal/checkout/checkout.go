// Package checkout turns a buyer's cart into per-farmer orders inside one
// transaction and drives the order status lifecycle afterwards.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/farmmarket/internal/cart"
	"github.com/Skotchmaster/farmmarket/internal/models"
	"github.com/Skotchmaster/farmmarket/internal/mykafka"
	"github.com/Skotchmaster/farmmarket/internal/notify"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrNoValidItems      = errors.New("no cart entry can be fulfilled")
	ErrAddressRequired   = errors.New("delivery address is required")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrOrderNotFound     = errors.New("order not found")
)

type Service struct {
	DB       *gorm.DB
	Cart     *cart.Service
	Notifier *notify.Dispatcher
	Producer *mykafka.Producer
	Logger   *slog.Logger
}

// Request carries the delivery details collected at checkout time.
type Request struct {
	DeliveryType    string `json:"delivery_type"`
	DeliveryAddress string `json:"delivery_address"`
	Notes           string `json:"notes"`
}

// Checkout converts the buyer's cart into one order per farmer. Entries
// whose product is gone, unavailable or short on stock are excluded without
// failing the rest. Stock is decremented with a conditional update so two
// concurrent checkouts cannot drive a quantity below zero. Everything
// commits as a single transaction, the cart is cleared only afterwards and
// notifications go out only after a successful commit.
func (s *Service) Checkout(ctx context.Context, buyerID uint, req Request) ([]models.Order, error) {
	if req.DeliveryType == "" {
		req.DeliveryType = models.DeliveryTypePickup
	}
	if req.DeliveryType == models.DeliveryTypeDelivery && req.DeliveryAddress == "" {
		return nil, ErrAddressRequired
	}

	items, err := s.Cart.Store.Get(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	var orders []models.Order
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		type line struct {
			product  models.Product
			quantity uint
		}

		// Partition the fulfillable entries by owning farmer. The
		// conditional decrement is the validity check: zero affected rows
		// means the entry went stale and is dropped.
		partitions := make(map[uint][]line)
		for productID, quantity := range items {
			var p models.Product
			if err := tx.First(&p, productID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return err
			}

			res := tx.Model(&models.Product{}).
				Where("id = ? AND available = ? AND quantity >= ?", p.ID, true, quantity).
				Update("quantity", gorm.Expr("quantity - ?", quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}

			if err := tx.Model(&models.Product{}).
				Where("id = ? AND quantity <= 0", p.ID).
				Update("available", false).Error; err != nil {
				return err
			}

			partitions[p.FarmerID] = append(partitions[p.FarmerID], line{product: p, quantity: quantity})
		}
		if len(partitions) == 0 {
			return ErrNoValidItems
		}

		farmerIDs := make([]uint, 0, len(partitions))
		for farmerID := range partitions {
			farmerIDs = append(farmerIDs, farmerID)
		}
		sort.Slice(farmerIDs, func(i, j int) bool { return farmerIDs[i] < farmerIDs[j] })

		for _, farmerID := range farmerIDs {
			lines := partitions[farmerID]

			// One courier trip per farmer: the order fee is the highest fee
			// among its products, pickup orders carry none.
			var fee float64
			if req.DeliveryType == models.DeliveryTypeDelivery {
				for _, l := range lines {
					if l.product.DeliveryFee > fee {
						fee = l.product.DeliveryFee
					}
				}
			}

			order := models.Order{
				BuyerID:         buyerID,
				FarmerID:        farmerID,
				Status:          models.OrderStatusPending,
				DeliveryType:    req.DeliveryType,
				DeliveryAddress: req.DeliveryAddress,
				DeliveryFee:     fee,
				Notes:           req.Notes,
			}
			for _, l := range lines {
				order.Items = append(order.Items, models.OrderItem{
					ProductID: l.product.ID,
					Quantity:  l.quantity,
					Price:     l.product.Price,
				})
			}
			order.CalculateTotal()

			if err := tx.Create(&order).Error; err != nil {
				return err
			}
			orders = append(orders, order)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if err := s.Cart.Clear(ctx, buyerID); err != nil {
		s.Logger.Error("cart clear after checkout failed", "buyer_id", buyerID, "error", err)
	}

	for i := range orders {
		s.notifyPlaced(ctx, &orders[i])
	}
	return orders, nil
}

// UpdateStatus moves an order along the lifecycle. Ownership is checked by
// the caller, transition rules are enforced here.
func (s *Service) UpdateStatus(ctx context.Context, order *models.Order, newStatus string) error {
	if !models.ValidOrderStatus(newStatus) {
		return ErrInvalidStatus
	}
	if !CanTransition(order.Status, newStatus) {
		return ErrInvalidTransition
	}

	if err := s.DB.WithContext(ctx).Model(order).Update("status", newStatus).Error; err != nil {
		return err
	}
	order.Status = newStatus

	var buyer models.User
	if err := s.DB.WithContext(ctx).First(&buyer, order.BuyerID).Error; err == nil {
		s.Notifier.OrderStatusUpdate(order, &buyer)
	} else {
		s.Logger.Error("buyer lookup for status mail failed", "order_id", order.ID, "error", err)
	}

	s.publish(ctx, map[string]any{
		"type":     "order_status_updated",
		"orderID":  order.ID,
		"buyerID":  order.BuyerID,
		"farmerID": order.FarmerID,
		"status":   newStatus,
	}, order.BuyerID)
	return nil
}

// GetOrder loads an order with its items.
func (s *Service) GetOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.DB.WithContext(ctx).Preload("Items").First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *Service) notifyPlaced(ctx context.Context, order *models.Order) {
	var buyer, farmer models.User
	if err := s.DB.WithContext(ctx).First(&buyer, order.BuyerID).Error; err != nil {
		s.Logger.Error("buyer lookup for order mail failed", "order_id", order.ID, "error", err)
	} else {
		s.Notifier.OrderConfirmation(order, &buyer)
	}
	if err := s.DB.WithContext(ctx).First(&farmer, order.FarmerID).Error; err != nil {
		s.Logger.Error("farmer lookup for order mail failed", "order_id", order.ID, "error", err)
	} else {
		s.Notifier.OrderNotification(order, &farmer)
	}

	s.publish(ctx, map[string]any{
		"type":     "order_created",
		"orderID":  order.ID,
		"buyerID":  order.BuyerID,
		"farmerID": order.FarmerID,
		"total":    order.TotalPrice,
		"items":    len(order.Items),
	}, order.BuyerID)
}

func (s *Service) publish(ctx context.Context, event map[string]any, key uint) {
	if s.Producer == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pubCtx, "order_events", fmt.Sprint(key), event); err != nil {
		s.Logger.Error("kafka publish failed", "error", err)
	}
}
