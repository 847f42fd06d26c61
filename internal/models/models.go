package models

// Order status lifecycle. Transitions move forward one step at a time,
// there is no cancellation state and no way back.
const (
	OrderStatusNew        = "new"
	OrderStatusInProgress = "in-progress"
	OrderStatusReady      = "ready"
	OrderStatusCompleted  = "completed"
)

// NextStatus returns the status that follows s, or "" when s is terminal
// or unknown.
func NextStatus(s string) string {
	switch s {
	case OrderStatusNew:
		return OrderStatusInProgress
	case OrderStatusInProgress:
		return OrderStatusReady
	case OrderStatusReady:
		return OrderStatusCompleted
	default:
		return ""
	}
}

const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
)

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string `gorm:"not null"                 json:"name"`
	Email        string `gorm:"unique;not null"          json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"          json:"id"`
	Token     string `gorm:"unique;not null"     json:"token"`
	UserID    uint   `gorm:"index;not null"      json:"user_id"`
	Role      string `gorm:"not null"            json:"role"`
	ExpiresAt int64  `gorm:"not null"            json:"expires_at"`
	Revoked   bool   `gorm:"default:false"       json:"revoked"`
}

// Restaurant codes keep their display casing but must be unique ignoring
// case, so the unique index is on LOWER(code) rather than the raw column.
type Restaurant struct {
	ID      uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name    string `gorm:"not null"                 json:"name"`
	Code    string `gorm:"not null;index:idx_restaurants_code_lower,expression:LOWER(code),unique" json:"code"`
	OwnerID uint   `gorm:"uniqueIndex;not null"     json:"owner_id"`
}

type MenuItem struct {
	ID           uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	RestaurantID uint    `gorm:"index;not null"           json:"restaurant_id"`
	Name         string  `gorm:"not null"                 json:"name"`
	Description  string  `json:"description"`
	Price        float64 `gorm:"not null"                 json:"price"`
	Category     string  `gorm:"index;not null"           json:"category"`
	ImageURL     string  `json:"image_url"`
	ImageHint    string  `json:"image_hint"`
}

// CartItem is a denormalized snapshot of a MenuItem at add time plus a
// quantity, so a later menu edit does not change what is already in the cart.
type CartItem struct {
	ID          uint    `gorm:"primaryKey"                 json:"id"`
	UserID      uint    `gorm:"index;not null"             json:"user_id"`
	MenuItemID  uint    `gorm:"not null"                   json:"menu_item_id"`
	Name        string  `gorm:"not null"                   json:"name"`
	Price       float64 `gorm:"not null"                   json:"price"`
	Quantity    uint    `gorm:"default:1;check:quantity>0" json:"quantity"`
	ImageURL    string  `json:"image_url"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
}

type Order struct {
	ID            uint        `gorm:"primaryKey"           json:"id"`
	Number        string      `gorm:"uniqueIndex;not null" json:"number"`
	RestaurantID  uint        `gorm:"index;not null"       json:"restaurant_id"`
	UserID        uint        `gorm:"index;not null"       json:"user_id"`
	CustomerName  string      `json:"customer_name"`
	CustomerEmail string      `json:"customer_email"`
	Total         float64     `gorm:"not null"             json:"total"`
	Status        string      `gorm:"not null"             json:"status"`
	CreatedAt     int64       `gorm:"not null"             json:"created_at"`
	Rating        *int        `json:"rating,omitempty"`
	Review        string      `json:"review,omitempty"`
	Items         []OrderItem `gorm:"foreignKey:OrderID"   json:"items"`
}

type OrderItem struct {
	ID         uint    `gorm:"primaryKey"     json:"id"`
	OrderID    uint    `gorm:"index;not null" json:"order_id"`
	MenuItemID uint    `gorm:"not null"       json:"menu_item_id"`
	Name       string  `gorm:"not null"       json:"name"`
	Price      float64 `gorm:"not null"       json:"price"`
	Quantity   uint    `gorm:"default:1;check:quantity>0" json:"quantity"`
}
