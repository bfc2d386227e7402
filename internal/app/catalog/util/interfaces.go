package util

import (
	"context"
	"time"

	"carteras/internal/app/catalog/entity"
)

// CategoryCache интерфейс для работы с кешем категорий
// Используется для dependency injection и упрощения тестирования
type CategoryCache interface {
	SetCategories(ctx context.Context, categories []entity.Category, ttl time.Duration) error
	GetCategories(ctx context.Context) ([]entity.Category, error)
	DeleteCategories(ctx context.Context) error
	Close() error
}

// MessagePublisher интерфейс для отправки сообщений в очередь (Kafka)
// Используется для dependency injection и упрощения тестирования
type MessagePublisher interface {
	PublishMessage(ctx context.Context, key string, value []byte) error
	Close() error
}
