// Package policy holds the capability checks for the three account roles.
// Handlers decide what the actor wants to do, policy decides whether the
// actor may do it, transport concerns stay out.
package policy

import "github.com/Skotchmaster/farmmarket/internal/models"

// Actor is the authenticated caller as extracted from the access token.
type Actor struct {
	UserID uint
	Role   string
}

// CanListProducts reports whether the actor may create or manage own
// products. Farmers need an admin approval first.
func CanListProducts(a Actor, approved bool) bool {
	return a.Role == models.RoleFarmer && approved
}

func CanEditProduct(a Actor, p *models.Product) bool {
	return a.Role == models.RoleFarmer && p.FarmerID == a.UserID
}

// CanViewOrder allows the owning buyer, the owning farmer and admins.
func CanViewOrder(a Actor, o *models.Order) bool {
	switch a.Role {
	case models.RoleBuyer:
		return o.BuyerID == a.UserID
	case models.RoleFarmer:
		return o.FarmerID == a.UserID
	case models.RoleAdmin:
		return true
	}
	return false
}

// CanUpdateOrderStatus allows only the farmer the order belongs to.
func CanUpdateOrderStatus(a Actor, o *models.Order) bool {
	return a.Role == models.RoleFarmer && o.FarmerID == a.UserID
}

func CanManage(a Actor) bool {
	return a.Role == models.RoleAdmin
}
