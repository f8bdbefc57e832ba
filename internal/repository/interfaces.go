package repository

import (
	"context"
	"storefront-backend/internal/models"
)

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id int) (*models.Product, error)
	GetAll(ctx context.Context) ([]models.Product, error)
	Update(ctx context.Context, id int, patch *models.ProductPatch) (*models.Product, error)
	Delete(ctx context.Context, id int) error

	GetByCategory(ctx context.Context, category string) ([]models.Product, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

type OrderRepository interface {
	// PlaceOrder validates the requested lines against live stock
	// inside one transaction, decrements stock, and persists the
	// order with its items. All-or-nothing.
	PlaceOrder(ctx context.Context, userID int, lines []models.OrderLine, addr models.ShippingAddress) (*models.PlacedOrder, error)

	GetByID(ctx context.Context, id int) (*models.Order, error)
	GetByUserID(ctx context.Context, userID int) ([]models.OrderWithItems, error)
	GetAllWithCustomer(ctx context.Context) ([]models.AdminOrderView, error)
	UpdateStatus(ctx context.Context, id int, status string) error
}
