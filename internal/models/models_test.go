package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculateTotal(t *testing.T) {
	o := Order{
		DeliveryFee: 2.00,
		Items: []OrderItem{
			{Price: 5.00, Quantity: 3},
			{Price: 1.25, Quantity: 2},
		},
	}
	require.InDelta(t, 19.50, o.CalculateTotal(), 1e-9)
	require.InDelta(t, 19.50, o.TotalPrice, 1e-9)
}

func TestCalculateTotalEmptyOrder(t *testing.T) {
	o := Order{DeliveryFee: 1.50}
	require.InDelta(t, 1.50, o.CalculateTotal(), 1e-9)
}

func TestValidOrderStatus(t *testing.T) {
	for _, s := range OrderStatuses {
		require.True(t, ValidOrderStatus(s), s)
	}
	require.True(t, ValidOrderStatus(OrderStatusCancelled))
	require.False(t, ValidOrderStatus("refunded"))
	require.False(t, ValidOrderStatus(""))
}

func TestTerminalOrderStatus(t *testing.T) {
	require.True(t, TerminalOrderStatus(OrderStatusCompleted))
	require.True(t, TerminalOrderStatus(OrderStatusCancelled))
	require.False(t, TerminalOrderStatus(OrderStatusPending))
	require.False(t, TerminalOrderStatus(OrderStatusDelivered))
}

func TestRoleHelpers(t *testing.T) {
	require.True(t, (&User{Role: RoleFarmer}).IsFarmer())
	require.True(t, (&User{Role: RoleAdmin}).IsAdmin())
	require.False(t, (&User{Role: RoleBuyer}).IsFarmer())
	require.False(t, (&User{Role: RoleBuyer}).IsAdmin())
}
