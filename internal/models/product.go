package models

import "time"

type Product struct {
	ProductID     int       `json:"product_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	DiscountPrice *float64  `json:"discount_price,omitempty"`
	IsOnOffer     bool      `json:"is_on_offer"`
	IsFeatured    bool      `json:"is_featured"`
	Stock         int       `json:"stock"`
	Images        []string  `json:"images,omitempty"`
	Colors        []string  `json:"colors,omitempty"`
	Measures      string    `json:"measures,omitempty"`
	Category      string    `json:"category"`
	CreatedAt     time.Time `json:"created_at"`
}

// EffectivePrice is the unit price charged at purchase time: the
// discount price while the product is on offer, the regular price
// otherwise.
func (p *Product) EffectivePrice() float64 {
	if p.IsOnOffer && p.DiscountPrice != nil {
		return *p.DiscountPrice
	}
	return p.Price
}

type User struct {
	UserID       int       `json:"user_id"`
	FullName     string    `json:"full_name" validate:"required,min=2,max=100"`
	Email        string    `json:"email" validate:"required,email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Order statuses form a fixed set; UpdateStatus rejects anything
// outside it.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

func ValidOrderStatus(status string) bool {
	switch status {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

type ShippingAddress struct {
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	Province  string `json:"province"`
	Zip       string `json:"zip"`
	Reference string `json:"reference,omitempty"`
}

type Order struct {
	OrderID         int             `json:"order_id"`
	UserID          int             `json:"user_id"`
	TotalAmount     float64         `json:"total_amount"`
	Status          string          `json:"status"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

type OrderItem struct {
	OrderItemID     int     `json:"order_item_id"`
	OrderID         int     `json:"order_id"`
	ProductID       int     `json:"product_id"`
	Quantity        int     `json:"quantity"`
	PriceAtPurchase float64 `json:"price_at_purchase"`
}

// OrderLine is one (product, quantity) pair of an order submission.
type OrderLine struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// OrderLineSummary carries what the notification emails render: the
// product title and the unit price snapshotted inside the order
// transaction.
type OrderLineSummary struct {
	Title    string  `json:"title"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// PlacedOrder is what a successful order submission returns.
type PlacedOrder struct {
	OrderID     int                `json:"order_id"`
	TotalAmount float64            `json:"total_amount"`
	Items       []OrderLineSummary `json:"items"`
	CreatedAt   time.Time          `json:"created_at"`
}
