package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ptyhub/ptyhub/pkg/hub/models"
)

// ============================================
// CATEGORY OPERATIONS
// ============================================

// CreateCategory inserts the category, assigning sort_order=max+1 when the
// caller left it zero and other categories exist. The ID is generated if
// empty; the generated ID is returned.
func (s *GORMStore) CreateCategory(ctx context.Context, category *models.Category) (string, error) {
	category.CreatedAt = time.Now()

	var id string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if category.SortOrder == 0 {
			next, err := nextCategorySortOrder(tx, ctx)
			if err != nil {
				return err
			}
			category.SortOrder = next
		}
		created, err := createWithID(tx, ctx, category,
			func(m *models.Category, id string) { m.ID = id },
			category.ID, models.ErrDuplicateCategory)
		if err != nil {
			return err
		}
		id = created
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetCategory returns a category by ID.
// Returns models.ErrCategoryNotFound if the category doesn't exist.
func (s *GORMStore) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	return getByField[models.Category](s.db, ctx, "id", id, models.ErrCategoryNotFound)
}

// ListCategories returns all categories in display order.
func (s *GORMStore) ListCategories(ctx context.Context) ([]*models.Category, error) {
	return listOrdered[models.Category](s.db, ctx, "sort_order asc, created_at asc")
}

// RenameCategory updates the category name.
// Returns models.ErrCategoryNotFound if the category doesn't exist.
func (s *GORMStore) RenameCategory(ctx context.Context, id, name string) error {
	result := s.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Update("name", name)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrCategoryNotFound
	}
	return nil
}

// DeleteCategory removes the category and uncategorizes its sessions in one
// transaction. Deletion never cascades into sessions.
// Returns models.ErrCategoryNotFound if the category doesn't exist.
func (s *GORMStore) DeleteCategory(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Session{}).
			Where("category_id = ?", id).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		return deleteByField[models.Category](tx, ctx, "id", id, models.ErrCategoryNotFound)
	})
}

// ReorderCategories rewrites sort_order to match the given ID order, all in
// one transaction. IDs absent from the table are ignored; categories absent
// from the list keep their order value.
func (s *GORMStore) ReorderCategories(ctx context.Context, orderedIDs []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range orderedIDs {
			if err := tx.Model(&models.Category{}).
				Where("id = ?", id).
				Update("sort_order", i).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ToggleCategory persists the collapsed/expanded UI hint.
// Returns models.ErrCategoryNotFound if the category doesn't exist.
func (s *GORMStore) ToggleCategory(ctx context.Context, id string, collapsed bool) error {
	result := s.db.WithContext(ctx).Model(&models.Category{}).
		Where("id = ?", id).
		Update("collapsed", collapsed)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrCategoryNotFound
	}
	return nil
}

// NextCategorySortOrder returns max(sort_order)+1 across all categories.
func (s *GORMStore) NextCategorySortOrder(ctx context.Context) (int, error) {
	return nextCategorySortOrder(s.db, ctx)
}

func nextCategorySortOrder(db *gorm.DB, ctx context.Context) (int, error) {
	var max *int
	if err := db.WithContext(ctx).Model(&models.Category{}).
		Select("MAX(sort_order)").Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max + 1, nil
}
