package checkout

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/farmmarket/internal/models"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		allowed  bool
	}{
		{models.OrderStatusPending, models.OrderStatusConfirmed, true},
		{models.OrderStatusPending, models.OrderStatusReady, true},
		{models.OrderStatusPending, models.OrderStatusCompleted, true},
		{models.OrderStatusConfirmed, models.OrderStatusPending, false},
		{models.OrderStatusShipped, models.OrderStatusPreparing, false},
		{models.OrderStatusReady, models.OrderStatusReady, false},
		{models.OrderStatusPending, models.OrderStatusCancelled, true},
		{models.OrderStatusShipped, models.OrderStatusCancelled, true},
		{models.OrderStatusCompleted, models.OrderStatusCancelled, false},
		{models.OrderStatusCompleted, models.OrderStatusPending, false},
		{models.OrderStatusCancelled, models.OrderStatusConfirmed, false},
		{models.OrderStatusCancelled, models.OrderStatusCancelled, false},
		{"bogus", models.OrderStatusConfirmed, false},
		{models.OrderStatusPending, "bogus", false},
	}

	for _, tc := range cases {
		require.Equal(t, tc.allowed, CanTransition(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}
