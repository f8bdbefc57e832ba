package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"storefront-backend/internal/models"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type orderRepo struct {
	db DB
}

func NewOrderRepository(db DB) OrderRepository {
	return &orderRepo{db: db}
}

// PlaceOrder runs the whole submission as one transaction. Each stock
// row is read with FOR UPDATE so concurrent submissions against the
// same product serialize on the row lock; stock can never go negative.
// Any failure rolls everything back via the deferred Rollback.
func (r *orderRepo) PlaceOrder(ctx context.Context, userID int, lines []models.OrderLine, addr models.ShippingAddress) (*models.PlacedOrder, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user ID must be positive", ErrInvalidInput)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one line", ErrInvalidInput)
	}
	for i, line := range lines {
		if line.ProductID <= 0 {
			return nil, fmt.Errorf("%w: line %d: product ID must be positive", ErrInvalidInput, i+1)
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: line %d: quantity must be positive", ErrInvalidInput, i+1)
		}
	}

	addrJSON, err := json.Marshal(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to encode shipping address: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var total float64
	items := make([]models.OrderLineSummary, 0, len(lines))

	for i, line := range lines {
		sql := `SELECT title, price, discount_price, is_on_offer, stock
		FROM products WHERE id = $1 FOR UPDATE`

		var (
			title    string
			price    float64
			discount *float64
			onOffer  bool
			stock    int
		)

		err := tx.QueryRow(ctx, sql, line.ProductID).Scan(&title, &price, &discount, &onOffer, &stock)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: line %d references product %d", ErrProductNotFound, i+1, line.ProductID)
			}
			return nil, fmt.Errorf("failed to get product %d: %w", line.ProductID, err)
		}

		if stock < line.Quantity {
			return nil, fmt.Errorf("%w: %q has %d in stock, requested %d", ErrNotEnough, title, stock, line.Quantity)
		}

		unit := price
		if onOffer && discount != nil {
			unit = *discount
		}
		total += unit * float64(line.Quantity)

		update := `UPDATE products SET stock = stock - $1 WHERE id = $2`

		if _, err := tx.Exec(ctx, update, line.Quantity, line.ProductID); err != nil {
			return nil, fmt.Errorf("failed to update stock for product %d: %w", line.ProductID, err)
		}

		items = append(items, models.OrderLineSummary{
			Title:    title,
			Quantity: line.Quantity,
			Price:    unit,
		})
	}

	insert := `INSERT INTO orders (user_id, total_amount, status, shipping_address)
	VALUES ($1, $2, $3, $4)
	RETURNING id, created_at`

	var (
		orderID   int
		createdAt time.Time
	)

	err = tx.QueryRow(ctx, insert, userID, total, models.StatusPending, addrJSON).Scan(&orderID, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	for i, line := range lines {
		insertItem := `INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase)
		VALUES ($1, $2, $3, $4)`

		_, err := tx.Exec(ctx, insertItem, orderID, line.ProductID, line.Quantity, items[i].Price)
		if err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.PlacedOrder{
		OrderID:     orderID,
		TotalAmount: total,
		Items:       items,
		CreatedAt:   createdAt,
	}, nil
}

func (r *orderRepo) GetByID(ctx context.Context, id int) (*models.Order, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: order ID must be positive", ErrInvalidInput)
	}

	sql := `SELECT id, user_id, total_amount, status, shipping_address, payment_method, created_at
	FROM orders
	WHERE id = $1`

	var (
		order    models.Order
		addrJSON []byte
	)

	err := r.db.QueryRow(ctx, sql, id).Scan(
		&order.OrderID,
		&order.UserID,
		&order.TotalAmount,
		&order.Status,
		&addrJSON,
		&order.PaymentMethod,
		&order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}

	if err := json.Unmarshal(addrJSON, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decode shipping address for order %d: %w", id, err)
	}

	return &order, nil
}

func (r *orderRepo) GetByUserID(ctx context.Context, userID int) ([]models.OrderWithItems, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user ID must be positive", ErrInvalidInput)
	}

	sql := `SELECT
		o.id,
		o.user_id,
		o.total_amount,
		o.status,
		o.shipping_address,
		o.created_at,
		oi.id,
		oi.product_id,
		oi.quantity,
		oi.price_at_purchase
	FROM orders o
	LEFT JOIN order_items oi ON o.id = oi.order_id
	WHERE o.user_id = $1
	ORDER BY o.created_at DESC, o.id, oi.id`

	rows, err := r.db.Query(ctx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get orders for user %d: %w", userID, err)
	}

	defer rows.Close()

	var orders []models.OrderWithItems
	index := map[int]int{}

	for rows.Next() {
		var (
			order    models.Order
			addrJSON []byte

			itemID    pgtype.Int4
			productID pgtype.Int4
			quantity  pgtype.Int4
			price     pgtype.Float8
		)

		err := rows.Scan(
			&order.OrderID,
			&order.UserID,
			&order.TotalAmount,
			&order.Status,
			&addrJSON,
			&order.CreatedAt,
			&itemID,
			&productID,
			&quantity,
			&price,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order/item: %w", err)
		}

		pos, seen := index[order.OrderID]
		if !seen {
			if err := json.Unmarshal(addrJSON, &order.ShippingAddress); err != nil {
				return nil, fmt.Errorf("decode shipping address for order %d: %w", order.OrderID, err)
			}
			orders = append(orders, models.OrderWithItems{Order: order})
			pos = len(orders) - 1
			index[order.OrderID] = pos
		}

		if itemID.Valid {
			orders[pos].Items = append(orders[pos].Items, models.OrderItem{
				OrderItemID:     int(itemID.Int32),
				OrderID:         order.OrderID,
				ProductID:       int(productID.Int32),
				Quantity:        int(quantity.Int32),
				PriceAtPurchase: price.Float64,
			})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return orders, nil
}

func (r *orderRepo) GetAllWithCustomer(ctx context.Context) ([]models.AdminOrderView, error) {
	sql := `SELECT
		o.id,
		o.user_id,
		o.total_amount,
		o.status,
		o.shipping_address,
		o.created_at,
		u.full_name,
		u.email,
		COALESCE(u.phone, ''),
		oi.id,
		oi.product_id,
		oi.quantity,
		oi.price_at_purchase
	FROM orders o
	JOIN users u ON o.user_id = u.id
	LEFT JOIN order_items oi ON o.id = oi.order_id
	ORDER BY o.created_at DESC, o.id, oi.id`

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to get all orders: %w", err)
	}

	defer rows.Close()

	var orders []models.AdminOrderView
	index := map[int]int{}

	for rows.Next() {
		var (
			view     models.AdminOrderView
			addrJSON []byte

			itemID    pgtype.Int4
			productID pgtype.Int4
			quantity  pgtype.Int4
			price     pgtype.Float8
		)

		err := rows.Scan(
			&view.OrderID,
			&view.UserID,
			&view.TotalAmount,
			&view.Status,
			&addrJSON,
			&view.CreatedAt,
			&view.FullName,
			&view.Email,
			&view.Phone,
			&itemID,
			&productID,
			&quantity,
			&price,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order/customer: %w", err)
		}

		pos, seen := index[view.OrderID]
		if !seen {
			if err := json.Unmarshal(addrJSON, &view.ShippingAddress); err != nil {
				return nil, fmt.Errorf("decode shipping address for order %d: %w", view.OrderID, err)
			}
			orders = append(orders, view)
			pos = len(orders) - 1
			index[view.OrderID] = pos
		}

		if itemID.Valid {
			orders[pos].Items = append(orders[pos].Items, models.OrderItem{
				OrderItemID:     int(itemID.Int32),
				OrderID:         view.OrderID,
				ProductID:       int(productID.Int32),
				Quantity:        int(quantity.Int32),
				PriceAtPurchase: price.Float64,
			})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return orders, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id int, status string) error {
	if id <= 0 {
		return fmt.Errorf("%w: order ID must be positive", ErrInvalidInput)
	}
	if !models.ValidOrderStatus(status) {
		return fmt.Errorf("%w: invalid status '%s'", ErrInvalidInput, status)
	}

	sql := `UPDATE orders
	SET status = $1
	WHERE id = $2`

	result, err := r.db.Exec(ctx, sql, status, id)
	if err != nil {
		return fmt.Errorf("update status order %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
