package models

import (
	"time"
)

const (
	RoleBuyer  = "buyer"
	RoleFarmer = "farmer"
	RoleAdmin  = "admin"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

const (
	DeliveryTypePickup   = "pickup"
	DeliveryTypeDelivery = "delivery"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"unique;not null"          json:"username"`
	Email        string    `gorm:"unique;not null"          json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Role         string    `gorm:"not null;default:buyer"   json:"role"`
	IsApproved   bool      `gorm:"default:false"            json:"is_approved"`
	IsBlocked    bool      `gorm:"default:false"            json:"is_blocked"`
	Location     string    `json:"location"`
	Phone        string    `json:"phone"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) IsFarmer() bool { return u.Role == RoleFarmer }
func (u *User) IsAdmin() bool  { return u.Role == RoleAdmin }

type Product struct {
	ID                uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name              string    `gorm:"not null"                 json:"name"`
	Description       string    `json:"description"`
	Price             float64   `gorm:"not null"                 json:"price"`
	Quantity          uint      `gorm:"default:0"                json:"quantity"`
	Unit              string    `gorm:"default:piece"            json:"unit"`
	Organic           bool      `gorm:"default:false"            json:"organic"`
	Image             string    `json:"image"`
	Available         bool      `gorm:"default:true"             json:"available"`
	PickupAvailable   bool      `gorm:"default:true"             json:"pickup_available"`
	DeliveryAvailable bool      `gorm:"default:false"            json:"delivery_available"`
	DeliveryFee       float64   `gorm:"default:0"                json:"delivery_fee"`
	Category          string    `gorm:"index"                    json:"category"`
	FarmerID          uint      `gorm:"index;not null"           json:"farmer_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type Order struct {
	ID              uint        `gorm:"primaryKey;autoIncrement"    json:"id"`
	BuyerID         uint        `gorm:"index;not null"              json:"buyer_id"`
	FarmerID        uint        `gorm:"index;not null"              json:"farmer_id"`
	Status          string      `gorm:"not null;default:pending"    json:"status"`
	TotalPrice      float64     `gorm:"default:0"                   json:"total_price"`
	DeliveryType    string      `gorm:"default:pickup"              json:"delivery_type"`
	DeliveryAddress string      `json:"delivery_address"`
	DeliveryFee     float64     `gorm:"default:0"                   json:"delivery_fee"`
	Notes           string      `json:"notes"`
	Items           []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// CalculateTotal recomputes TotalPrice from the loaded items plus the
// delivery fee and returns it.
func (o *Order) CalculateTotal() float64 {
	var subtotal float64
	for _, it := range o.Items {
		subtotal += it.Price * float64(it.Quantity)
	}
	o.TotalPrice = subtotal + o.DeliveryFee
	return o.TotalPrice
}

// OrderItem records the product price at the moment the order was placed.
// Later product edits must not change already placed orders.
type OrderItem struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"  json:"id"`
	OrderID   uint    `gorm:"index;not null"            json:"order_id"`
	ProductID uint    `gorm:"not null"                  json:"product_id"`
	Quantity  uint    `gorm:"not null;check:quantity>0" json:"quantity"`
	Price     float64 `gorm:"not null"                  json:"price"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"      json:"id"`
	Token     string `gorm:"unique;not null" json:"token"`
	UserID    uint   `gorm:"index;not null"  json:"user_id"`
	Role      string `gorm:"not null"        json:"role"`
	ExpiresAt int64  `gorm:"not null"        json:"expires_at"`
	Revoked   bool   `gorm:"default:false"   json:"revoked"`
}

// OrderStatuses lists every non-cancelled status in forward order.
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCompleted,
}

func ValidOrderStatus(s string) bool {
	if s == OrderStatusCancelled {
		return true
	}
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func TerminalOrderStatus(s string) bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}
