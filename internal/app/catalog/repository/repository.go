package repository

import (
	"context"
	"errors"

	"carteras/internal/app/catalog/entity"

	"github.com/google/uuid"
)

var (
	// Стандартные ошибки репозиториев для обработки в service layer
	ErrCategoryNotFound = errors.New("category not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrDuplicateKey     = errors.New("duplicate key")
)

type CategoryRepository interface {
	Create(ctx context.Context, category *entity.Category) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Category, error)
	GetAll(ctx context.Context) ([]entity.Category, error)
	Update(ctx context.Context, category *entity.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProductFilter - необязательные условия выборки списка товаров
type ProductFilter struct {
	CategoryID *uuid.UUID
}

// ProductRepository работает только с живыми записями:
// выборки и мутации ограничены active = true, неактивный товар
// для всех операций выглядит как отсутствующий
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetActiveByID(ctx context.Context, id uuid.UUID) (*entity.Product, error)
	GetActiveWithCategory(ctx context.Context, id uuid.UUID) (*entity.ProductWithCategory, error)
	List(ctx context.Context, filter ProductFilter, page, pageSize int) ([]entity.ProductWithCategory, int64, error)
	PartialUpdate(ctx context.Context, id uuid.UUID, changes map[string]interface{}) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// CounterRepository выдаёт последовательные номера
// Next атомарен: конкурентные вызовы никогда не получают одно значение
type CounterRepository interface {
	Next(ctx context.Context, name string) (int64, error)
}

// OrphanRepository хранит public_id изображений, потерявших владельца
type OrphanRepository interface {
	Record(ctx context.Context, publicIDs []string) error
	List(ctx context.Context, limit int) ([]entity.OrphanedAsset, error)
	Remove(ctx context.Context, publicID string) error
}
