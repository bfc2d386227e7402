package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Category представляет категорию товаров
type Category struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// Image представляет ссылку на изображение во внешнем хранилище
// PublicID нужен для последующего удаления изображения из хранилища
type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// ImageList хранится в products одной jsonb колонкой
type ImageList []Image

// Value сериализует список изображений в jsonb
// Пустой список всегда сохраняется как [], а не NULL
func (l ImageList) Value() (driver.Value, error) {
	if l == nil {
		l = ImageList{}
	}
	return json.Marshal(l)
}

// Scan десериализует jsonb колонку в список изображений
func (l *ImageList) Scan(src interface{}) error {
	if src == nil {
		*l = ImageList{}
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for ImageList: %T", src)
	}

	return json.Unmarshal(data, l)
}

// Product представляет товар в каталоге
// SequenceNumber - человекочитаемый номер товара, выдаётся Counter'ом и неизменяем
// Active = false означает логически удалённый товар, физическое удаление не выполняется
type Product struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	SequenceNumber int64     `json:"sequence_number" gorm:"uniqueIndex;not null"`
	Name           string    `json:"name" gorm:"not null"`
	Description    string    `json:"description"`
	Price          float64   `json:"price" gorm:"not null"`
	Stock          int       `json:"stock" gorm:"not null;default:0"`
	CategoryID     uuid.UUID `json:"category_id" gorm:"type:uuid;not null"`
	Category       *Category `json:"-" gorm:"foreignKey:CategoryID"`
	Images         ImageList `json:"images" gorm:"type:jsonb"`
	Active         bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ProductWithCategory содержит продукт с информацией о категории
type ProductWithCategory struct {
	Product
	Category Category `json:"category"`
}

// Counter - именованный счётчик для выдачи последовательных номеров
// Одна строка на имя счётчика, инкремент атомарный на уровне SQL
type Counter struct {
	Name  string `gorm:"primaryKey"`
	Value int64  `gorm:"not null"`
}

// OrphanedAsset - изображение, ссылку на которое каталог потерял
// (заменённые при обновлении товара или загруженные в прерванной операции)
// Очищается фоновым reconciliation job'ом
type OrphanedAsset struct {
	PublicID   string    `gorm:"primaryKey"`
	RecordedAt time.Time `gorm:"not null"`
}

// Identity - вердикт Identity Gate о вызывающей стороне
// Сервис каталога полностью доверяет этому вердикту и сам токены не проверяет
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// IsAdmin сообщает, разрешены ли вызывающему мутации каталога
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == "admin"
}

// ProductEvent представляет событие изменения товара для Kafka
type ProductEvent struct {
	EventType      string    `json:"event_type"` // PRODUCT_CREATED, PRODUCT_UPDATED, PRODUCT_DELETED
	ProductID      uuid.UUID `json:"product_id"`
	SequenceNumber int64     `json:"sequence_number"`
	Name           string    `json:"name"`
	Price          float64   `json:"price"`
	CategoryID     uuid.UUID `json:"category_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// DeleteSummary - результат удаления товара
// Количество удалённых из внешнего хранилища изображений информационное:
// неудачи удаления не влияют на успех операции
type DeleteSummary struct {
	ImagesRemoved int `json:"images_removed"`
	ImagesFailed  int `json:"images_failed"`
}
