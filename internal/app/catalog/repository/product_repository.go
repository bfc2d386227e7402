package repository

import (
	"context"
	"errors"

	"carteras/internal/app/catalog/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository создает новый репозиторий товаров
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create создает новый товар
func (r *productRepository) Create(ctx context.Context, product *entity.Product) error {
	result := r.db.WithContext(ctx).Create(product)
	return result.Error
}

// GetActiveByID получает живой товар по ID
// Логически удалённый товар возвращается как ErrProductNotFound
func (r *productRepository) GetActiveByID(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	var product entity.Product
	result := r.db.WithContext(ctx).First(&product, "id = ? AND active = ?", id, true)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, result.Error
	}

	return &product, nil
}

// GetActiveWithCategory получает живой товар вместе с категорией
func (r *productRepository) GetActiveWithCategory(ctx context.Context, id uuid.UUID) (*entity.ProductWithCategory, error) {
	var product entity.Product
	result := r.db.WithContext(ctx).Preload("Category").
		First(&product, "id = ? AND active = ?", id, true)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, result.Error
	}

	pwc := &entity.ProductWithCategory{
		Product: product,
	}
	if product.Category != nil {
		pwc.Category = *product.Category
	}

	return pwc, nil
}

// List получает страницу живых товаров с категориями
// Сортировка: новые сверху, при равном created_at - по номеру товара
// Страница за пределами выборки возвращает пустой список, а не ошибку
func (r *productRepository) List(ctx context.Context, filter ProductFilter, page, pageSize int) ([]entity.ProductWithCategory, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Product{}).Where("active = ?", true)
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []entity.Product
	result := query.Preload("Category").
		Order("created_at DESC, sequence_number DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&products)

	if result.Error != nil {
		return nil, 0, result.Error
	}

	productsWithCat := make([]entity.ProductWithCategory, 0, len(products))
	for _, p := range products {
		pwc := entity.ProductWithCategory{
			Product: p,
		}
		if p.Category != nil {
			pwc.Category = *p.Category
		}
		productsWithCat = append(productsWithCat, pwc)
	}

	return productsWithCat, total, nil
}

// PartialUpdate обновляет только переданные колонки
// Условие active = true защищает от обновления удалённого товара:
// такой запрос не находит строку и возвращает ErrProductNotFound
func (r *productRepository) PartialUpdate(ctx context.Context, id uuid.UUID, changes map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&entity.Product{}).
		Where("id = ? AND active = ?", id, true).
		Updates(changes)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// SoftDelete помечает товар неактивным и очищает список изображений
// Повторное удаление не находит строку и возвращает ErrProductNotFound
func (r *productRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&entity.Product{}).
		Where("id = ? AND active = ?", id, true).
		Updates(map[string]interface{}{
			"active": false,
			"images": entity.ImageList{},
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}
