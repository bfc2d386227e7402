package service

import (
	"context"
	"fmt"

	"carteras/internal/app/catalog/repository"
	"carteras/pkg/logger"
	"carteras/pkg/metrics"
)

// Сколько осиротевших изображений обрабатываем за один проход
const cleanupBatchSize = 100

// CleanupService дочищает изображения, оставшиеся во внешнем хранилище
// без владельца: заменённые при обновлении, недоудалённые при удалении
// товара, загруженные в рамках прерванного создания
type CleanupService struct {
	orphanRepo repository.OrphanRepository
	assets     AssetStore
}

// NewCleanupService создает сервис фоновой очистки изображений
func NewCleanupService(orphanRepo repository.OrphanRepository, assets AssetStore) *CleanupService {
	return &CleanupService{
		orphanRepo: orphanRepo,
		assets:     assets,
	}
}

// Run выполняет один проход очистки
// Каждое изображение обрабатывается независимо: неудачное удаление
// остаётся в таблице до следующего прохода
func (s *CleanupService) Run(ctx context.Context) error {
	orphans, err := s.orphanRepo.List(ctx, cleanupBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list orphaned assets: %w", err)
	}

	if len(orphans) == 0 {
		return nil
	}

	cleaned := 0
	for _, orphan := range orphans {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.assets.Delete(ctx, orphan.PublicID); err != nil {
			logger.Warn().Err(err).Str("public_id", orphan.PublicID).Msg("failed to delete orphaned asset, will retry next run")
			continue
		}

		if err := s.orphanRepo.Remove(ctx, orphan.PublicID); err != nil {
			// Изображение уже удалено, Delete идемпотентен -
			// повторный проход завершит запись
			logger.Warn().Err(err).Str("public_id", orphan.PublicID).Msg("failed to remove orphaned asset record")
			continue
		}

		cleaned++
		metrics.OrphanedAssetsCleaned.Inc()
	}

	logger.Info().
		Int("found", len(orphans)).
		Int("cleaned", cleaned).
		Msg("orphaned assets cleanup pass finished")

	return nil
}
