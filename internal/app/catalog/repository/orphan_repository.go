package repository

import (
	"context"
	"time"

	"carteras/internal/app/catalog/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type orphanRepository struct {
	db *gorm.DB
}

// NewOrphanRepository создает новый репозиторий осиротевших изображений
func NewOrphanRepository(db *gorm.DB) OrphanRepository {
	return &orphanRepository{db: db}
}

// Record запоминает public_id изображений, потерявших владельца
// Повторная запись того же public_id не ошибка (upsert)
func (r *orphanRepository) Record(ctx context.Context, publicIDs []string) error {
	if len(publicIDs) == 0 {
		return nil
	}

	assets := make([]entity.OrphanedAsset, 0, len(publicIDs))
	now := time.Now()
	for _, id := range publicIDs {
		if id == "" {
			continue
		}
		assets = append(assets, entity.OrphanedAsset{PublicID: id, RecordedAt: now})
	}
	if len(assets) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&assets).Error
}

// List возвращает порцию осиротевших изображений для очистки
func (r *orphanRepository) List(ctx context.Context, limit int) ([]entity.OrphanedAsset, error) {
	var assets []entity.OrphanedAsset
	result := r.db.WithContext(ctx).Order("recorded_at ASC").Limit(limit).Find(&assets)
	if result.Error != nil {
		return nil, result.Error
	}
	return assets, nil
}

// Remove удаляет запись после успешной очистки во внешнем хранилище
func (r *orphanRepository) Remove(ctx context.Context, publicID string) error {
	return r.db.WithContext(ctx).
		Delete(&entity.OrphanedAsset{}, "public_id = ?", publicID).Error
}
