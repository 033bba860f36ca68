package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/farmmarket/internal/cart"
	"github.com/Skotchmaster/farmmarket/internal/mykafka"
)

type CartHandler struct {
	Cart     *cart.Service
	Producer *mykafka.Producer
}

func (h *CartHandler) publish(c echo.Context, event map[string]any, key uint) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "cart_events", fmt.Sprint(key), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func cartError(c echo.Context, err error) error {
	var stockErr *cart.InsufficientStockError
	switch {
	case errors.Is(err, cart.ErrProductNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	case errors.Is(err, cart.ErrProductUnavailable):
		return fail(c, http.StatusBadRequest, "product is not available")
	case errors.As(err, &stockErr):
		return fail(c, http.StatusBadRequest, stockErr.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func cartCount(items map[uint]uint) uint {
	var n uint
	for _, q := range items {
		n += q
	}
	return n
}

// GetCart materializes the cart: stale entries are dropped, the rest come
// back with the live product and a recomputed total.
func (h *CartHandler) GetCart(c echo.Context) error {
	actor, err := Actor(c)
	if err != nil {
		return err
	}

	entries, total, err := h.Cart.Materialize(c.Request().Context(), actor.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"items": entries,
		"total": total,
	})
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	actor, err := Actor(c)
	if err != nil {
		return err
	}

	var req struct {
		ProductID uint `json:"product_id"`
		Quantity  uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	items, err := h.Cart.Add(c.Request().Context(), actor.UserID, req.ProductID, req.Quantity)
	if err != nil {
		return cartError(c, err)
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_added",
		"userID":    actor.UserID,
		"productID": req.ProductID,
		"quantity":  items[req.ProductID],
	}, actor.UserID)

	return c.JSON(http.StatusOK, map[string]any{
		"success":    true,
		"message":    "added to cart",
		"cart_count": cartCount(items),
	})
}

func (h *CartHandler) UpdateCart(c echo.Context) error {
	actor, err := Actor(c)
	if err != nil {
		return err
	}

	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil || productID <= 0 {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	items, err := h.Cart.Update(c.Request().Context(), actor.UserID, uint(productID), req.Quantity)
	if err != nil {
		return cartError(c, err)
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_updated",
		"userID":    actor.UserID,
		"productID": productID,
		"quantity":  req.Quantity,
	}, actor.UserID)

	return c.JSON(http.StatusOK, map[string]any{
		"success":    true,
		"cart_count": cartCount(items),
	})
}

func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	actor, err := Actor(c)
	if err != nil {
		return err
	}

	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil || productID <= 0 {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	items, err := h.Cart.Remove(c.Request().Context(), actor.UserID, uint(productID))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_removed",
		"userID":    actor.UserID,
		"productID": productID,
	}, actor.UserID)

	return c.JSON(http.StatusOK, map[string]any{
		"success":    true,
		"cart_count": cartCount(items),
	})
}

func (h *CartHandler) CartCount(c echo.Context) error {
	actor, err := Actor(c)
	if err != nil {
		return err
	}

	n, err := h.Cart.Count(c.Request().Context(), actor.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"count": n})
}
