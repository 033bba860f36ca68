package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/farmmarket/internal/checkout"
	"github.com/Skotchmaster/farmmarket/internal/middleware/metrics"
	"github.com/Skotchmaster/farmmarket/internal/models"
	"github.com/Skotchmaster/farmmarket/internal/policy"
)

type OrderHandler struct {
	DB      *gorm.DB
	Service *checkout.Service
}

// Checkout converts the caller's cart into per-farmer orders.
func (h *OrderHandler) Checkout(c echo.Context) error {
	actor, err := Actor(c)
	if err != nil {
		return err
	}

	var req checkout.Request
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	orders, err := h.Service.Checkout(c.Request().Context(), actor.UserID, req)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			return fail(c, http.StatusBadRequest, "your cart is empty")
		case errors.Is(err, checkout.ErrNoValidItems):
			return fail(c, http.StatusBadRequest, "no cart entry can be fulfilled")
		case errors.Is(err, checkout.ErrAddressRequired):
			return fail(c, http.StatusBadRequest, "please provide a delivery address")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	metrics.RecordOrderPlaced(len(orders))

	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"message": "orders placed successfully",
		"orders":  orders,
	})
}

// MyOrders lists the caller's orders, buyer or farmer side depending on
// role.
func (h *OrderHandler) MyOrders(c echo.Context) error {
	actor, err := Actor(c)
	if err != nil {
		return err
	}

	q := h.DB.Preload("Items").Order("created_at DESC")
	switch actor.Role {
	case models.RoleBuyer:
		q = q.Where("buyer_id = ?", actor.UserID)
	case models.RoleFarmer:
		q = q.Where("farmer_id = ?", actor.UserID)
	default:
		return c.JSON(http.StatusOK, []models.Order{})
	}

	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) OrderDetail(c echo.Context) error {
	actor, err := Actor(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	order, err := h.Service.GetOrder(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, checkout.ErrOrderNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if !policy.CanViewOrder(actor, order) {
		return fail(c, http.StatusForbidden, "access denied")
	}
	return c.JSON(http.StatusOK, order)
}

// UpdateStatus moves an order along its lifecycle. Only the owning farmer
// may do this, and only forward (or to cancelled).
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	actor, err := Actor(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	order, err := h.Service.GetOrder(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, checkout.ErrOrderNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if !policy.CanUpdateOrderStatus(actor, order) {
		return fail(c, http.StatusForbidden, "access denied")
	}

	if err := h.Service.UpdateStatus(c.Request().Context(), order, req.Status); err != nil {
		switch {
		case errors.Is(err, checkout.ErrInvalidStatus):
			return fail(c, http.StatusBadRequest, "invalid status")
		case errors.Is(err, checkout.ErrInvalidTransition):
			return fail(c, http.StatusConflict, "status transition not allowed")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"status":  order.Status,
	})
}
