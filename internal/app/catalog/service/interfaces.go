package service

import (
	"context"

	"carteras/internal/app/catalog/entity"

	"github.com/google/uuid"
)

// ImageUpload - бинарное содержимое изображения, пришедшее в запросе
type ImageUpload struct {
	Filename string
	Data     []byte
}

// ImageInput - изображение на входе оркестрации: либо байты для загрузки
// во внешнее хранилище, либо готовый URL (legacy путь)
// Заполнено ровно одно из двух полей
type ImageInput struct {
	Upload *ImageUpload
	URL    string
}

// AssetStore абстракция над внешним хранилищем изображений
type AssetStore interface {
	// Upload загружает изображение и возвращает ссылку с URL и public_id
	// Частичный успех невозможен: либо полная ссылка, либо ошибка
	Upload(ctx context.Context, upload ImageUpload) (entity.Image, error)
	// Delete удаляет изображение по public_id
	// Удаление уже отсутствующего изображения не считается ошибкой
	Delete(ctx context.Context, publicID string) error
	// ExtractPublicID восстанавливает public_id из URL доставки
	// Возвращает пустую строку для URL чужого формата, никогда не ошибку
	ExtractPublicID(rawURL string) string
}

type CatalogServiceInterface interface {
	CreateCategory(ctx context.Context, req *entity.CreateCategoryRequest, identity *entity.Identity) (*entity.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*entity.Category, error)
	GetAllCategories(ctx context.Context) ([]entity.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, req *entity.UpdateCategoryRequest, identity *entity.Identity) (*entity.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID, identity *entity.Identity) error

	CreateProduct(ctx context.Context, req *entity.CreateProductRequest, images []ImageInput, identity *entity.Identity) (*entity.ProductWithCategory, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*entity.ProductWithCategory, error)
	ListProducts(ctx context.Context, query *entity.ListProductsQuery) (*entity.ProductListResponse, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, req *entity.UpdateProductRequest, images []ImageInput, identity *entity.Identity) (*entity.ProductWithCategory, error)
	DeleteProduct(ctx context.Context, id uuid.UUID, identity *entity.Identity) (*entity.DeleteSummary, error)
	WhatsappLink(ctx context.Context, id uuid.UUID) (string, error)
}
