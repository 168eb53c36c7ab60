package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/medialog/medialog/internal/domain"
	"github.com/medialog/medialog/internal/store"
)

// CategoriesRepository provides persistence helpers for categories.
type CategoriesRepository struct {
	db store.Querier
}

// Create inserts a category. Duplicate names surface as domain.ErrConflict.
func (r *CategoriesRepository) Create(ctx context.Context, name string) (domain.Category, error) {
	var category domain.Category
	err := r.db.QueryRow(ctx, `
        INSERT INTO categories (id, name)
        VALUES ($1,$2)
        RETURNING id, name, created_at
    `, uuid.NewString(), name).Scan(&category.ID, &category.Name, &category.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Category{}, fmt.Errorf("%w: category already exists", domain.ErrConflict)
		}
		return domain.Category{}, err
	}
	return category, nil
}

// List returns all categories ordered by name.
func (r *CategoriesRepository) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

// Delete removes a category; title links cascade.
func (r *CategoriesRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
