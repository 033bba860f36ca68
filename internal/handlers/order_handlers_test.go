package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/farmmarket/internal/models"
)

func TestCheckoutEndpoint(t *testing.T) {
	env := newTestEnv(t)
	farmer1 := env.seedUser("farmer1", models.RoleFarmer, true)
	farmer2 := env.seedUser("farmer2", models.RoleFarmer, true)
	buyer := env.seedUser("anna", models.RoleBuyer, true)

	p1 := env.seedProduct(farmer1.ID, "tomatoes", 5.00, 10)
	p2 := env.seedProduct(farmer2.ID, "honey", 12.00, 5)

	require.NoError(t, env.Store.Set(context.Background(), buyer.ID, map[uint]uint{
		p1.ID: 3, p2.ID: 1,
	}))

	rec, c := env.doJSON(http.MethodPost, "/api/v1/orders/checkout", map[string]string{
		"delivery_type": models.DeliveryTypePickup,
	})
	env.as(c, buyer)
	require.NoError(t, env.Order.Checkout(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Success bool           `json:"success"`
		Orders  []models.Order `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Orders, 2)
}

func TestCheckoutEndpointEmptyCart(t *testing.T) {
	env := newTestEnv(t)
	buyer := env.seedUser("anna", models.RoleBuyer, true)

	rec, c := env.doJSON(http.MethodPost, "/api/v1/orders/checkout", map[string]string{})
	env.as(c, buyer)
	require.NoError(t, env.Order.Checkout(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "your cart is empty", decodeResponse(t, rec)["message"])
}

func TestCheckoutEndpointMissingAddress(t *testing.T) {
	env := newTestEnv(t)
	farmer := env.seedUser("farmer1", models.RoleFarmer, true)
	buyer := env.seedUser("anna", models.RoleBuyer, true)
	p := env.seedProduct(farmer.ID, "tomatoes", 5.00, 10)

	require.NoError(t, env.Store.Set(context.Background(), buyer.ID, map[uint]uint{p.ID: 1}))

	rec, c := env.doJSON(http.MethodPost, "/api/v1/orders/checkout", map[string]string{
		"delivery_type": models.DeliveryTypeDelivery,
	})
	env.as(c, buyer)
	require.NoError(t, env.Order.Checkout(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "please provide a delivery address", decodeResponse(t, rec)["message"])
}

func TestMyOrdersScopedByRole(t *testing.T) {
	env := newTestEnv(t)
	farmer := env.seedUser("farmer1", models.RoleFarmer, true)
	buyer := env.seedUser("anna", models.RoleBuyer, true)
	otherBuyer := env.seedUser("bob", models.RoleBuyer, true)

	env.seedOrder(buyer.ID, farmer.ID, models.OrderStatusPending, 10)
	env.seedOrder(otherBuyer.ID, farmer.ID, models.OrderStatusPending, 20)

	rec, c := env.doJSON(http.MethodGet, "/api/v1/orders", nil)
	env.as(c, buyer)
	require.NoError(t, env.Order.MyOrders(c))
	var buyerOrders []models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &buyerOrders))
	require.Len(t, buyerOrders, 1)
	require.Equal(t, buyer.ID, buyerOrders[0].BuyerID)

	rec, c = env.doJSON(http.MethodGet, "/api/v1/orders", nil)
	env.as(c, farmer)
	require.NoError(t, env.Order.MyOrders(c))
	var farmerOrders []models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &farmerOrders))
	require.Len(t, farmerOrders, 2)
}

func TestOrderDetailAccess(t *testing.T) {
	env := newTestEnv(t)
	farmer := env.seedUser("farmer1", models.RoleFarmer, true)
	buyer := env.seedUser("anna", models.RoleBuyer, true)
	stranger := env.seedUser("bob", models.RoleBuyer, true)
	o := env.seedOrder(buyer.ID, farmer.ID, models.OrderStatusPending, 10)

	rec, c := env.doJSON(http.MethodGet, "/api/v1/orders/1", nil)
	env.as(c, buyer)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.Order.OrderDetail(c))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, c = env.doJSON(http.MethodGet, "/api/v1/orders/1", nil)
	env.as(c, stranger)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.Order.OrderDetail(c))
	require.Equal(t, http.StatusForbidden, rec.Code)
	_ = o
}

func TestUpdateStatusByOwningFarmer(t *testing.T) {
	env := newTestEnv(t)
	farmer := env.seedUser("farmer1", models.RoleFarmer, true)
	buyer := env.seedUser("anna", models.RoleBuyer, true)
	o := env.seedOrder(buyer.ID, farmer.ID, models.OrderStatusPending, 10)

	rec, c := env.doJSON(http.MethodPost, "/api/v1/orders/1/status", map[string]string{
		"status": models.OrderStatusConfirmed,
	})
	env.as(c, farmer)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.Order.UpdateStatus(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, models.OrderStatusConfirmed, decodeResponse(t, rec)["status"])

	var stored models.Order
	require.NoError(t, env.DB.First(&stored, o.ID).Error)
	require.Equal(t, models.OrderStatusConfirmed, stored.Status)
}

func TestUpdateStatusByNonOwnerFarmer(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser("farmer1", models.RoleFarmer, true)
	other := env.seedUser("farmer2", models.RoleFarmer, true)
	buyer := env.seedUser("anna", models.RoleBuyer, true)
	o := env.seedOrder(buyer.ID, owner.ID, models.OrderStatusPending, 10)

	rec, c := env.doJSON(http.MethodPost, "/api/v1/orders/1/status", map[string]string{
		"status": models.OrderStatusConfirmed,
	})
	env.as(c, other)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.Order.UpdateStatus(c))
	require.Equal(t, http.StatusForbidden, rec.Code)

	var stored models.Order
	require.NoError(t, env.DB.First(&stored, o.ID).Error)
	require.Equal(t, models.OrderStatusPending, stored.Status, "denied update must not change the order")
}

func TestUpdateStatusByBuyer(t *testing.T) {
	env := newTestEnv(t)
	farmer := env.seedUser("farmer1", models.RoleFarmer, true)
	buyer := env.seedUser("anna", models.RoleBuyer, true)
	env.seedOrder(buyer.ID, farmer.ID, models.OrderStatusPending, 10)

	rec, c := env.doJSON(http.MethodPost, "/api/v1/orders/1/status", map[string]string{
		"status": models.OrderStatusCancelled,
	})
	env.as(c, buyer)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.Order.UpdateStatus(c))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	env := newTestEnv(t)
	farmer := env.seedUser("farmer1", models.RoleFarmer, true)
	buyer := env.seedUser("anna", models.RoleBuyer, true)
	env.seedOrder(buyer.ID, farmer.ID, models.OrderStatusShipped, 10)

	rec, c := env.doJSON(http.MethodPost, "/api/v1/orders/1/status", map[string]string{
		"status": models.OrderStatusPreparing,
	})
	env.as(c, farmer)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.Order.UpdateStatus(c))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	farmer := env.seedUser("farmer1", models.RoleFarmer, true)
	buyer := env.seedUser("anna", models.RoleBuyer, true)
	env.seedOrder(buyer.ID, farmer.ID, models.OrderStatusPending, 10)

	rec, c := env.doJSON(http.MethodPost, "/api/v1/orders/1/status", map[string]string{
		"status": "sideways",
	})
	env.as(c, farmer)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.Order.UpdateStatus(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
