package checkout

import "github.com/Skotchmaster/farmmarket/internal/models"

var statusRank = map[string]int{
	models.OrderStatusPending:   0,
	models.OrderStatusConfirmed: 1,
	models.OrderStatusPreparing: 2,
	models.OrderStatusReady:     3,
	models.OrderStatusShipped:   4,
	models.OrderStatusDelivered: 5,
	models.OrderStatusCompleted: 6,
}

// CanTransition enforces the order lifecycle: statuses only move forward
// through the fixed sequence, cancellation is allowed from any non-terminal
// state, terminal states never change.
func CanTransition(from, to string) bool {
	if models.TerminalOrderStatus(from) {
		return false
	}
	if to == models.OrderStatusCancelled {
		return true
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}
