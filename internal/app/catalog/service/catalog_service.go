package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"carteras/internal/app/catalog/entity"
	"carteras/internal/app/catalog/repository"
	"carteras/internal/app/catalog/util"
	"carteras/pkg/logger"
	"carteras/pkg/metrics"

	"github.com/google/uuid"
)

// Имя счётчика, выдающего последовательные номера товаров
const productCounterName = "product"

const (
	defaultPageSize   = 20
	categoryCacheTTL  = time.Hour
	categoryKeyPrefix = "categories"
)

// CatalogService обрабатывает бизнес-логику каталога товаров
// Координирует репозитории, внешнее хранилище изображений, Redis кеш
// и Kafka producer
type CatalogService struct {
	categoryRepo   repository.CategoryRepository
	productRepo    repository.ProductRepository
	counterRepo    repository.CounterRepository
	orphanRepo     repository.OrphanRepository
	assets         AssetStore
	cache          util.CategoryCache
	producer       util.MessagePublisher
	whatsappNumber string
}

// NewCatalogService создает новый сервис каталога с внедрением зависимостей
func NewCatalogService(
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	counterRepo repository.CounterRepository,
	orphanRepo repository.OrphanRepository,
	assets AssetStore,
	cache util.CategoryCache,
	producer util.MessagePublisher,
	whatsappNumber string,
) *CatalogService {
	return &CatalogService{
		categoryRepo:   categoryRepo,
		productRepo:    productRepo,
		counterRepo:    counterRepo,
		orphanRepo:     orphanRepo,
		assets:         assets,
		cache:          cache,
		producer:       producer,
		whatsappNumber: whatsappNumber,
	}
}

// authorize проверяет вердикт Identity Gate
// Отсутствие вердикта трактуется как отказ; сервис сам учётные данные
// не проверяет и полностью доверяет переданной Identity
func authorize(identity *entity.Identity) error {
	if identity == nil {
		return ErrUnauthorized
	}
	if !identity.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// === CATEGORIES ===

// CreateCategory создает новую категорию и инвалидирует кеш
func (s *CatalogService) CreateCategory(ctx context.Context, req *entity.CreateCategoryRequest, identity *entity.Identity) (*entity.Category, error) {
	if err := authorize(identity); err != nil {
		return nil, err
	}

	category := &entity.Category{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(req.Name),
		CreatedAt: time.Now(),
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrDuplicateCategory
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.invalidateCategoryCache(ctx)

	return category, nil
}

// GetCategory получает категорию по ID из PostgreSQL
// Кеш не используется, так как запрашивается конкретная категория
func (s *CatalogService) GetCategory(ctx context.Context, id uuid.UUID) (*entity.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return category, nil
}

// GetAllCategories получает все категории с кешированием в Redis
// Сначала проверяет кеш, при промахе загружает из БД и кеширует на час
func (s *CatalogService) GetAllCategories(ctx context.Context) ([]entity.Category, error) {
	categories, err := s.cache.GetCategories(ctx)
	if err == nil && len(categories) > 0 {
		metrics.RecordCacheHit("catalog", categoryKeyPrefix)
		return categories, nil
	}
	metrics.RecordCacheMiss("catalog", categoryKeyPrefix)

	categories, err = s.categoryRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}

	if err := s.cache.SetCategories(ctx, categories, categoryCacheTTL); err != nil {
		// Данные получены из БД, проблемы с кешем не критичны
		logger.Warn().Err(err).Msg("failed to cache categories")
	}

	return categories, nil
}

// UpdateCategory обновляет категорию и инвалидирует кеш
func (s *CatalogService) UpdateCategory(ctx context.Context, id uuid.UUID, req *entity.UpdateCategoryRequest, identity *entity.Identity) (*entity.Category, error) {
	if err := authorize(identity); err != nil {
		return nil, err
	}

	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	category.Name = strings.TrimSpace(req.Name)

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateKey):
			return nil, ErrDuplicateCategory
		case errors.Is(err, repository.ErrCategoryNotFound):
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	s.invalidateCategoryCache(ctx)

	return category, nil
}

// DeleteCategory удаляет категорию и инвалидирует кеш
func (s *CatalogService) DeleteCategory(ctx context.Context, id uuid.UUID, identity *entity.Identity) error {
	if err := authorize(identity); err != nil {
		return err
	}

	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	s.invalidateCategoryCache(ctx)

	return nil
}

func (s *CatalogService) invalidateCategoryCache(ctx context.Context) {
	if err := s.cache.DeleteCategories(ctx); err != nil {
		// Запись уже изменена, проблемы с кешем не критичны
		logger.Warn().Err(err).Msg("failed to invalidate categories cache")
	}
}

// === PRODUCTS ===

// CreateProduct создает новый товар
// Порядок шагов важен: изображения загружаются до выдачи номера и записи
// в БД, поэтому неудачная загрузка не оставляет ни записи,
// ни потраченного номера
func (s *CatalogService) CreateProduct(ctx context.Context, req *entity.CreateProductRequest, images []ImageInput, identity *entity.Identity) (*entity.ProductWithCategory, error) {
	if err := authorize(identity); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" || req.Price == nil || *req.Price < 0 {
		return nil, ErrInvalidInput
	}

	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		return nil, ErrInvalidInput
	}

	// Категория должна существовать на момент записи
	if _, err := s.categoryRepo.GetByID(ctx, categoryID); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to verify category: %w", err)
	}

	imageList, err := s.normalizeImages(ctx, images)
	if err != nil {
		return nil, err
	}

	// Номер выдаётся только после успешной загрузки изображений
	sequenceNumber, err := s.counterRepo.Next(ctx, productCounterName)
	if err != nil {
		s.recordOrphans(ctx, publicIDs(imageList))
		return nil, fmt.Errorf("failed to allocate sequence number: %w", err)
	}

	stock := 0
	if req.Stock != nil {
		stock = *req.Stock
	}

	now := time.Now()
	product := &entity.Product{
		ID:             uuid.New(),
		SequenceNumber: sequenceNumber,
		Name:           name,
		Description:    strings.TrimSpace(req.Description),
		Price:          *req.Price,
		Stock:          stock,
		CategoryID:     categoryID,
		Images:         imageList,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		// Изображения уже во внешнем хранилище, но записи не будет:
		// отдаём их reconciliation job'у. Выданный номер сгорает -
		// дыры в нумерации допустимы, дубликаты нет
		s.recordOrphans(ctx, publicIDs(imageList))
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	created, err := s.productRepo.GetActiveWithCategory(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load created product: %w", err)
	}

	s.publishProductEvent(ctx, "PRODUCT_CREATED", &created.Product)

	return created, nil
}

// GetProduct получает живой товар по ID с информацией о категории
func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*entity.ProductWithCategory, error) {
	product, err := s.productRepo.GetActiveWithCategory(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return product, nil
}

// ListProducts получает страницу живых товаров
// Страница за пределами выборки - пустой список с корректным total_pages
func (s *CatalogService) ListProducts(ctx context.Context, query *entity.ListProductsQuery) (*entity.ProductListResponse, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	filter := repository.ProductFilter{}
	if query.Category != "" {
		categoryID, err := uuid.Parse(query.Category)
		if err != nil {
			return nil, ErrInvalidInput
		}
		filter.CategoryID = &categoryID
	}

	products, total, err := s.productRepo.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	return &entity.ProductListResponse{
		Products:   products,
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	}, nil
}

// UpdateProduct выполняет частичное обновление товара
// Новые изображения сначала загружаются, и только потом список целиком
// заменяет старый: неудачная загрузка оставляет запись нетронутой.
// Старые изображения при замене не удаляются синхронно, их public_id
// уходят в orphaned_assets для фоновой очистки
func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, req *entity.UpdateProductRequest, images []ImageInput, identity *entity.Identity) (*entity.ProductWithCategory, error) {
	if err := authorize(identity); err != nil {
		return nil, err
	}

	if req.IsEmpty() && len(images) == 0 {
		return nil, ErrInvalidInput
	}

	current, err := s.productRepo.GetActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	changes := map[string]interface{}{}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrInvalidInput
		}
		changes["name"] = name
	}
	if req.Description != nil {
		changes["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, ErrInvalidInput
		}
		changes["price"] = *req.Price
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, ErrInvalidInput
		}
		changes["stock"] = *req.Stock
	}
	if req.CategoryID != nil {
		categoryID, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			return nil, ErrInvalidInput
		}
		if _, err := s.categoryRepo.GetByID(ctx, categoryID); err != nil {
			if errors.Is(err, repository.ErrCategoryNotFound) {
				return nil, ErrCategoryNotFound
			}
			return nil, fmt.Errorf("failed to verify category: %w", err)
		}
		changes["category_id"] = categoryID
	}

	// Новый список изображений полностью заменяет старый (не merge)
	var superseded []string
	if len(images) > 0 {
		imageList, err := s.normalizeImages(ctx, images)
		if err != nil {
			return nil, err
		}
		changes["images"] = imageList
		superseded = s.resolvePublicIDs(current.Images)
	}

	changes["updated_at"] = time.Now()

	if err := s.productRepo.PartialUpdate(ctx, id, changes); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	// Замена состоялась, старые изображения осиротели
	s.recordOrphans(ctx, superseded)

	updated, err := s.productRepo.GetActiveWithCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load updated product: %w", err)
	}

	s.publishProductEvent(ctx, "PRODUCT_UPDATED", &updated.Product)

	return updated, nil
}

// DeleteProduct выполняет логическое удаление товара
// Удаление изображений из внешнего хранилища best-effort: каждое
// пробуем независимо, неудачи считаем, но softDelete выполняется
// в любом случае - недоступность хранилища не должна мешать убрать
// товар из каталога
func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID, identity *entity.Identity) (*entity.DeleteSummary, error) {
	if err := authorize(identity); err != nil {
		return nil, err
	}

	product, err := s.productRepo.GetActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	summary := &entity.DeleteSummary{}
	var failed []string
	for _, image := range product.Images {
		publicID := image.PublicID
		if publicID == "" {
			// Legacy запись с голым URL: пробуем восстановить public_id
			publicID = s.assets.ExtractPublicID(image.URL)
		}
		if publicID == "" {
			logger.Warn().Str("url", image.URL).Msg("cannot resolve asset id, skipping remote deletion")
			summary.ImagesFailed++
			continue
		}

		if err := s.assets.Delete(ctx, publicID); err != nil {
			logger.Warn().Err(err).Str("public_id", publicID).Msg("best-effort asset deletion failed")
			summary.ImagesFailed++
			failed = append(failed, publicID)
			continue
		}
		summary.ImagesRemoved++
	}

	// Недоудалённые изображения дочистит reconciliation job
	s.recordOrphans(ctx, failed)

	if err := s.productRepo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			// Конкурентное удаление успело раньше
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}

	s.publishProductEvent(ctx, "PRODUCT_DELETED", product)

	return summary, nil
}

// WhatsappLink генерирует ссылку для консультации по товару
// В сообщении используется человекочитаемый номер товара
func (s *CatalogService) WhatsappLink(ctx context.Context, id uuid.UUID) (string, error) {
	if s.whatsappNumber == "" {
		return "", ErrWhatsappDisabled
	}

	product, err := s.productRepo.GetActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return "", ErrProductNotFound
		}
		return "", fmt.Errorf("failed to get product: %w", err)
	}

	message := fmt.Sprintf(
		"Hola.\nQuiero consultar por este producto:\n\nID Producto: %d\nProducto: %s\nPrecio: $%s\n\n¿Hay stock disponible?",
		product.SequenceNumber,
		product.Name,
		strconv.FormatFloat(product.Price, 'f', -1, 64),
	)

	return fmt.Sprintf("https://wa.me/%s?text=%s", s.whatsappNumber, url.QueryEscape(message)), nil
}

// === HELPERS ===

// normalizeImages приводит входные изображения к единому виду ссылок
// Байты загружаются в хранилище, готовые URL дополняются извлечённым
// public_id. Любая неудачная загрузка прерывает операцию целиком;
// уже загруженные в рамках этой операции изображения записываются
// как осиротевшие
func (s *CatalogService) normalizeImages(ctx context.Context, inputs []ImageInput) (entity.ImageList, error) {
	imageList := make(entity.ImageList, 0, len(inputs))
	var uploaded []string

	for _, input := range inputs {
		switch {
		case input.Upload != nil:
			image, err := s.assets.Upload(ctx, *input.Upload)
			if err != nil {
				s.recordOrphans(ctx, uploaded)
				return nil, fmt.Errorf("%w: %s", ErrAssetUpload, err)
			}
			uploaded = append(uploaded, image.PublicID)
			imageList = append(imageList, image)
		case input.URL != "":
			imageList = append(imageList, entity.Image{
				URL:      input.URL,
				PublicID: s.assets.ExtractPublicID(input.URL),
			})
		}
	}

	return imageList, nil
}

// resolvePublicIDs собирает public_id изображений, извлекая их из URL
// для legacy записей без сохранённого идентификатора
func (s *CatalogService) resolvePublicIDs(images entity.ImageList) []string {
	ids := make([]string, 0, len(images))
	for _, image := range images {
		publicID := image.PublicID
		if publicID == "" {
			publicID = s.assets.ExtractPublicID(image.URL)
		}
		if publicID != "" {
			ids = append(ids, publicID)
		}
	}
	return ids
}

func publicIDs(images entity.ImageList) []string {
	ids := make([]string, 0, len(images))
	for _, image := range images {
		if image.PublicID != "" {
			ids = append(ids, image.PublicID)
		}
	}
	return ids
}

// recordOrphans запоминает потерявшие владельца изображения для фоновой
// очистки. Ошибка записи не прерывает основную операцию
func (s *CatalogService) recordOrphans(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	if err := s.orphanRepo.Record(ctx, ids); err != nil {
		logger.Warn().Err(err).Strs("public_ids", ids).Msg("failed to record orphaned assets")
	}
}

// publishProductEvent отправляет событие о товаре в Kafka
// Key - это ProductID для сохранения порядка событий одного товара
// Проблемы с Kafka не критичны для основной операции
func (s *CatalogService) publishProductEvent(ctx context.Context, eventType string, product *entity.Product) {
	event := entity.ProductEvent{
		EventType:      eventType,
		ProductID:      product.ID,
		SequenceNumber: product.SequenceNumber,
		Name:           product.Name,
		Price:          product.Price,
		CategoryID:     product.CategoryID,
		Timestamp:      time.Now(),
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Msg("failed to marshal product event")
		return
	}

	if err := s.producer.PublishMessage(ctx, event.ProductID.String(), eventData); err != nil {
		logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish product event")
	}
}
