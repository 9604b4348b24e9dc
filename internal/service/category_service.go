package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// CategoryService resolves category names with get-or-create semantics.
type CategoryService struct {
	categories repository.CategoryRepository
}

// NewCategoryService constructs the service.
func NewCategoryService(categories repository.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

// GetOrCreateCategory returns the category with the trimmed name, creating
// it on first use. An empty name resolves to no category.
func (s *CategoryService) GetOrCreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(name) > 100 {
		return nil, apperrors.NewValidationError("category must be at most 100 characters long", map[string]any{"fields": []string{"category"}})
	}
	category, err := s.categories.GetOrCreate(ctx, name)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to resolve category", err)
	}
	return category, nil
}
