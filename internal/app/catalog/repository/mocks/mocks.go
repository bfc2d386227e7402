package mocks

import (
	"context"
	"time"

	"carteras/internal/app/catalog/entity"
	"carteras/internal/app/catalog/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockCategoryRepository мок для CategoryRepository
type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) Create(ctx context.Context, category *entity.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Category), args.Error(1)
}

func (m *MockCategoryRepository) GetAll(ctx context.Context) ([]entity.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Category), args.Error(1)
}

func (m *MockCategoryRepository) Update(ctx context.Context, category *entity.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *MockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockProductRepository мок для ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(ctx context.Context, product *entity.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) GetActiveByID(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Product), args.Error(1)
}

func (m *MockProductRepository) GetActiveWithCategory(ctx context.Context, id uuid.UUID) (*entity.ProductWithCategory, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ProductWithCategory), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, filter repository.ProductFilter, page, pageSize int) ([]entity.ProductWithCategory, int64, error) {
	args := m.Called(ctx, filter, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]entity.ProductWithCategory), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) PartialUpdate(ctx context.Context, id uuid.UUID, changes map[string]interface{}) error {
	args := m.Called(ctx, id, changes)
	return args.Error(0)
}

func (m *MockProductRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockCounterRepository мок для CounterRepository
type MockCounterRepository struct {
	mock.Mock
}

func (m *MockCounterRepository) Next(ctx context.Context, name string) (int64, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(int64), args.Error(1)
}

// MockOrphanRepository мок для OrphanRepository
type MockOrphanRepository struct {
	mock.Mock
}

func (m *MockOrphanRepository) Record(ctx context.Context, publicIDs []string) error {
	args := m.Called(ctx, publicIDs)
	return args.Error(0)
}

func (m *MockOrphanRepository) List(ctx context.Context, limit int) ([]entity.OrphanedAsset, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.OrphanedAsset), args.Error(1)
}

func (m *MockOrphanRepository) Remove(ctx context.Context, publicID string) error {
	args := m.Called(ctx, publicID)
	return args.Error(0)
}

// MockCategoryCache мок для Redis кеша категорий
type MockCategoryCache struct {
	mock.Mock
}

func (m *MockCategoryCache) SetCategories(ctx context.Context, categories []entity.Category, ttl time.Duration) error {
	args := m.Called(ctx, categories, ttl)
	return args.Error(0)
}

func (m *MockCategoryCache) GetCategories(ctx context.Context) ([]entity.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Category), args.Error(1)
}

func (m *MockCategoryCache) DeleteCategories(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCategoryCache) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockMessagePublisher мок для Kafka producer
type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) PublishMessage(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
