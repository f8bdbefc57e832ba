package models

// ProductPatch is a partial product update; nil fields keep the
// stored value (COALESCE semantics in SQL).
type ProductPatch struct {
	Title         *string  `json:"title"`
	Description   *string  `json:"description"`
	Price         *float64 `json:"price"`
	DiscountPrice *float64 `json:"discount_price"`
	IsOnOffer     *bool    `json:"is_on_offer"`
	IsFeatured    *bool    `json:"is_featured"`
	Stock         *int     `json:"stock"`
	Category      *string  `json:"category"`
}

// OrderWithItems is the customer-facing order history projection.
type OrderWithItems struct {
	Order
	Items []OrderItem `json:"items"`
}

// AdminOrderView joins the order with the purchaser's contact details
// for the admin panel.
type AdminOrderView struct {
	Order
	FullName string      `json:"full_name"`
	Email    string      `json:"email"`
	Phone    string      `json:"phone,omitempty"`
	Items    []OrderItem `json:"items"`
}
