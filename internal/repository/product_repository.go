package repository

import (
	"context"
	"errors"
	"fmt"
	"storefront-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

type productRepo struct {
	db DB
}

func NewProductRepository(db DB) ProductRepository {
	return &productRepo{db: db}
}

const productColumns = `id, title, description, price, discount_price, is_on_offer,
		is_featured, stock, images, colors, measures, category, created_at`

func (r *productRepo) Create(ctx context.Context, p *models.Product) error {
	if p.Title == "" {
		return fmt.Errorf("%w: product title required", ErrInvalidInput)
	}
	if p.Price <= 0 {
		return fmt.Errorf("%w: product price should be positive", ErrInvalidInput)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: product stock cannot be negative", ErrInvalidInput)
	}

	sql := `
		INSERT INTO products (
			title,
			description,
			price,
			discount_price,
			is_on_offer,
			is_featured,
			stock,
			images,
			colors,
			measures,
			category
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, sql,
		p.Title,
		p.Description,
		p.Price,
		p.DiscountPrice,
		p.IsOnOffer,
		p.IsFeatured,
		p.Stock,
		p.Images,
		p.Colors,
		p.Measures,
		p.Category,
	).Scan(&p.ProductID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id int) (*models.Product, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: ID must be positive", ErrInvalidInput)
	}

	sql := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	var product models.Product

	err := r.db.QueryRow(ctx, sql, id).Scan(
		&product.ProductID,
		&product.Title,
		&product.Description,
		&product.Price,
		&product.DiscountPrice,
		&product.IsOnOffer,
		&product.IsFeatured,
		&product.Stock,
		&product.Images,
		&product.Colors,
		&product.Measures,
		&product.Category,
		&product.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product by id %d: %w", id, err)
	}

	return &product, nil
}

func (r *productRepo) GetAll(ctx context.Context) ([]models.Product, error) {
	sql := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}

	defer rows.Close()

	return scanProducts(rows)
}

func (r *productRepo) GetByCategory(ctx context.Context, category string) ([]models.Product, error) {
	if category == "" {
		return nil, fmt.Errorf("%w: category cannot be empty", ErrInvalidInput)
	}

	sql := `SELECT ` + productColumns + ` FROM products WHERE category = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, sql, category)
	if err != nil {
		return nil, fmt.Errorf("failed to get products with category: %w", err)
	}

	defer rows.Close()

	return scanProducts(rows)
}

// Update applies a partial patch; nil fields keep the stored value.
func (r *productRepo) Update(ctx context.Context, id int, patch *models.ProductPatch) (*models.Product, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: ID must be positive", ErrInvalidInput)
	}
	if patch == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if patch.Price != nil && *patch.Price <= 0 {
		return nil, fmt.Errorf("%w: product price should be positive", ErrInvalidInput)
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return nil, fmt.Errorf("%w: product stock cannot be negative", ErrInvalidInput)
	}

	sql := `
	UPDATE products
	SET
		title = COALESCE($1, title),
		description = COALESCE($2, description),
		price = COALESCE($3, price),
		discount_price = COALESCE($4, discount_price),
		is_on_offer = COALESCE($5, is_on_offer),
		is_featured = COALESCE($6, is_featured),
		stock = COALESCE($7, stock),
		category = COALESCE($8, category)
	WHERE id = $9
	RETURNING ` + productColumns

	var product models.Product

	err := r.db.QueryRow(ctx, sql,
		patch.Title,
		patch.Description,
		patch.Price,
		patch.DiscountPrice,
		patch.IsOnOffer,
		patch.IsFeatured,
		patch.Stock,
		patch.Category,
		id,
	).Scan(
		&product.ProductID,
		&product.Title,
		&product.Description,
		&product.Price,
		&product.DiscountPrice,
		&product.IsOnOffer,
		&product.IsFeatured,
		&product.Stock,
		&product.Images,
		&product.Colors,
		&product.Measures,
		&product.Category,
		&product.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update product %d: %w", id, err)
	}

	return &product, nil
}

func (r *productRepo) Delete(ctx context.Context, id int) error {
	if id <= 0 {
		return fmt.Errorf("%w: ID must be positive", ErrInvalidInput)
	}

	sql := `DELETE FROM products WHERE id = $1`

	result, err := r.db.Exec(ctx, sql, id)
	if err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func scanProducts(rows pgx.Rows) ([]models.Product, error) {
	var products []models.Product

	for rows.Next() {
		var p models.Product

		err := rows.Scan(
			&p.ProductID,
			&p.Title,
			&p.Description,
			&p.Price,
			&p.DiscountPrice,
			&p.IsOnOffer,
			&p.IsFeatured,
			&p.Stock,
			&p.Images,
			&p.Colors,
			&p.Measures,
			&p.Category,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan products: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return products, nil
}
