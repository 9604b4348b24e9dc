package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository constructs the postgres repository.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

// GetOrCreate relies on the unique name constraint so concurrent callers
// converge on one row.
func (r *categoryRepository) GetOrCreate(ctx context.Context, name string) (*domain.Category, error) {
	const insert = `INSERT INTO categories (id, name) VALUES ($1,$2) ON CONFLICT (name) DO NOTHING`
	if _, err := r.pool.Exec(ctx, insert, uuid.NewString(), name); err != nil {
		return nil, err
	}
	return r.GetByName(ctx, name)
}

func (r *categoryRepository) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	const query = `SELECT id, name, created_at FROM categories WHERE name=$1`
	var category domain.Category
	if err := r.pool.QueryRow(ctx, query, name).Scan(&category.ID, &category.Name, &category.CreatedAt); err != nil {
		return nil, mapNoRows(err)
	}
	category.CreatedAt = category.CreatedAt.UTC()
	return &category, nil
}
