package repository

import (
	"context"
	"errors"

	"carteras/internal/app/catalog/entity"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Код ошибки PostgreSQL для нарушения уникальности
const pgUniqueViolation = "23505"

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository создает новый репозиторий категорий
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

// Create создает новую категорию
// Имя категории уникально, дубликат возвращается как ErrDuplicateKey
func (r *categoryRepository) Create(ctx context.Context, category *entity.Category) error {
	result := r.db.WithContext(ctx).Create(category)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return ErrDuplicateKey
		}
		return result.Error
	}
	return nil
}

// GetByID получает категорию по ID
func (r *categoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Category, error) {
	var category entity.Category
	result := r.db.WithContext(ctx).First(&category, "id = ?", id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, result.Error
	}

	return &category, nil
}

// GetAll получает все категории
func (r *categoryRepository) GetAll(ctx context.Context) ([]entity.Category, error) {
	var categories []entity.Category
	result := r.db.WithContext(ctx).Order("name ASC").Find(&categories)

	if result.Error != nil {
		return nil, result.Error
	}

	return categories, nil
}

// Update обновляет категорию
func (r *categoryRepository) Update(ctx context.Context, category *entity.Category) error {
	result := r.db.WithContext(ctx).Model(category).Where("id = ?", category.ID).
		Update("name", category.Name)

	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return ErrDuplicateKey
		}
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrCategoryNotFound
	}

	return nil
}

// Delete удаляет категорию
func (r *categoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&entity.Category{}, "id = ?", id)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrCategoryNotFound
	}

	return nil
}

// isUniqueViolation распознаёт нарушение уникального индекса PostgreSQL
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
