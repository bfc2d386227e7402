package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type counterRepository struct {
	db *gorm.DB
}

// NewCounterRepository создает новый репозиторий счётчиков
func NewCounterRepository(db *gorm.DB) CounterRepository {
	return &counterRepository{db: db}
}

// Next атомарно увеличивает именованный счётчик и возвращает новое значение
// Первый вызов для нового имени создаёт строку со значением 1 (upsert),
// инкремент и чтение выполняются одним SQL statement, поэтому конкурентные
// вызовы никогда не получают одинаковый номер
func (r *counterRepository) Next(ctx context.Context, name string) (int64, error) {
	var value int64
	err := r.db.WithContext(ctx).Raw(
		`INSERT INTO counters (name, value) VALUES (?, 1)
		 ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		 RETURNING value`,
		name,
	).Scan(&value).Error

	if err != nil {
		return 0, fmt.Errorf("failed to increment counter %q: %w", name, err)
	}

	return value, nil
}
