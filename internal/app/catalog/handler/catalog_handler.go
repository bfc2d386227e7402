package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"carteras/internal/app/catalog/entity"
	"carteras/internal/app/catalog/service"
	"carteras/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Максимальный размер одного файла изображения
const maxImageSize = 10 << 20 // 10 MB

// CatalogHandler обрабатывает HTTP запросы каталога
type CatalogHandler struct {
	catalogService service.CatalogServiceInterface
	validator      *validator.Validate
}

// NewCatalogHandler создает новый обработчик каталога
func NewCatalogHandler(catalogService service.CatalogServiceInterface) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		validator:      validator.New(),
	}
}

// === CATEGORIES HANDLERS ===

// CreateCategory обрабатывает POST /api/categories
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req entity.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: formatValidationError(err)})
		return
	}

	category, err := h.catalogService.CreateCategory(c.Request.Context(), &req, identityFrom(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			c.JSON(http.StatusUnauthorized, entity.ErrorResponse{Error: "Unauthorized"})
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, entity.ErrorResponse{Error: "Admin access required"})
		case errors.Is(err, service.ErrDuplicateCategory):
			c.JSON(http.StatusConflict, entity.ErrorResponse{Error: "Category already exists"})
		default:
			c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to create category"})
		}
		return
	}

	c.JSON(http.StatusCreated, category)
}

// GetCategory обрабатывает GET /api/categories/:id
func (h *CatalogHandler) GetCategory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid category ID"})
		return
	}

	category, err := h.catalogService.GetCategory(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			c.JSON(http.StatusNotFound, entity.ErrorResponse{Error: "Category not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to get category"})
		return
	}

	c.JSON(http.StatusOK, category)
}

// GetAllCategories обрабатывает GET /api/categories (с кешированием)
func (h *CatalogHandler) GetAllCategories(c *gin.Context) {
	categories, err := h.catalogService.GetAllCategories(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to get categories"})
		return
	}

	c.JSON(http.StatusOK, entity.CategoryListResponse{
		Categories: categories,
		Total:      len(categories),
	})
}

// UpdateCategory обрабатывает PUT /api/categories/:id
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid category ID"})
		return
	}

	var req entity.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: formatValidationError(err)})
		return
	}

	category, err := h.catalogService.UpdateCategory(c.Request.Context(), id, &req, identityFrom(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			c.JSON(http.StatusUnauthorized, entity.ErrorResponse{Error: "Unauthorized"})
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, entity.ErrorResponse{Error: "Admin access required"})
		case errors.Is(err, service.ErrCategoryNotFound):
			c.JSON(http.StatusNotFound, entity.ErrorResponse{Error: "Category not found"})
		case errors.Is(err, service.ErrDuplicateCategory):
			c.JSON(http.StatusConflict, entity.ErrorResponse{Error: "Category already exists"})
		default:
			c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to update category"})
		}
		return
	}

	c.JSON(http.StatusOK, category)
}

// DeleteCategory обрабатывает DELETE /api/categories/:id
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid category ID"})
		return
	}

	if err := h.catalogService.DeleteCategory(c.Request.Context(), id, identityFrom(c)); err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			c.JSON(http.StatusUnauthorized, entity.ErrorResponse{Error: "Unauthorized"})
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, entity.ErrorResponse{Error: "Admin access required"})
		case errors.Is(err, service.ErrCategoryNotFound):
			c.JSON(http.StatusNotFound, entity.ErrorResponse{Error: "Category not found"})
		default:
			c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to delete category"})
		}
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{Message: "Category deleted successfully"})
}

// === PRODUCTS HANDLERS ===

// CreateProduct обрабатывает POST /api/products (multipart/form-data)
// Файлы изображений приходят в частях "images", готовые URL - в "image_urls"
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req entity.CreateProductRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid form data"})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: formatValidationError(err)})
		return
	}

	images, err := collectImageInputs(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: err.Error()})
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), &req, images, identityFrom(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			c.JSON(http.StatusUnauthorized, entity.ErrorResponse{Error: "Unauthorized"})
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, entity.ErrorResponse{Error: "Admin access required"})
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid product data"})
		case errors.Is(err, service.ErrCategoryNotFound):
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Category does not exist"})
		case errors.Is(err, service.ErrAssetUpload):
			c.JSON(http.StatusBadGateway, entity.ErrorResponse{Error: "Image upload failed"})
		default:
			c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to create product"})
		}
		return
	}

	metrics.ProductsCreated.Inc()
	c.JSON(http.StatusCreated, product)
}

// GetProduct обрабатывает GET /api/products/:id
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid product ID"})
		return
	}

	product, err := h.catalogService.GetProduct(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, entity.ErrorResponse{Error: "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to get product"})
		return
	}

	c.JSON(http.StatusOK, product)
}

// ListProducts обрабатывает GET /api/products с пагинацией
// Query параметры: category (UUID), page, page_size
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	query := &entity.ListProductsQuery{
		Category: c.Query("category"),
		Page:     page,
		PageSize: pageSize,
	}

	response, err := h.catalogService.ListProducts(c.Request.Context(), query)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid category filter"})
			return
		}
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to list products"})
		return
	}

	c.JSON(http.StatusOK, response)
}

// UpdateProduct обрабатывает PUT /api/products/:id (multipart/form-data)
// Обновляются только присланные поля; новые изображения целиком
// заменяют старые
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid product ID"})
		return
	}

	var req entity.UpdateProductRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid form data"})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: formatValidationError(err)})
		return
	}

	images, err := collectImageInputs(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: err.Error()})
		return
	}

	product, err := h.catalogService.UpdateProduct(c.Request.Context(), id, &req, images, identityFrom(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			c.JSON(http.StatusUnauthorized, entity.ErrorResponse{Error: "Unauthorized"})
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, entity.ErrorResponse{Error: "Admin access required"})
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Nothing to update or invalid fields"})
		case errors.Is(err, service.ErrProductNotFound):
			c.JSON(http.StatusNotFound, entity.ErrorResponse{Error: "Product not found"})
		case errors.Is(err, service.ErrCategoryNotFound):
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Category does not exist"})
		case errors.Is(err, service.ErrAssetUpload):
			c.JSON(http.StatusBadGateway, entity.ErrorResponse{Error: "Image upload failed"})
		default:
			c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to update product"})
		}
		return
	}

	c.JSON(http.StatusOK, product)
}

// DeleteProduct обрабатывает DELETE /api/products/:id
// Возвращает сводку по удалению изображений из внешнего хранилища
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid product ID"})
		return
	}

	summary, err := h.catalogService.DeleteProduct(c.Request.Context(), id, identityFrom(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			c.JSON(http.StatusUnauthorized, entity.ErrorResponse{Error: "Unauthorized"})
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, entity.ErrorResponse{Error: "Admin access required"})
		case errors.Is(err, service.ErrProductNotFound):
			c.JSON(http.StatusNotFound, entity.ErrorResponse{Error: "Product not found"})
		default:
			c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to delete product"})
		}
		return
	}

	metrics.ProductsDeleted.Inc()
	c.JSON(http.StatusOK, gin.H{
		"message":        "Product deleted successfully",
		"images_removed": summary.ImagesRemoved,
		"images_failed":  summary.ImagesFailed,
	})
}

// WhatsappLink обрабатывает GET /api/products/:id/whatsapp
func (h *CatalogHandler) WhatsappLink(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid product ID"})
		return
	}

	link, err := h.catalogService.WhatsappLink(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			c.JSON(http.StatusNotFound, entity.ErrorResponse{Error: "Product not found"})
		case errors.Is(err, service.ErrWhatsappDisabled):
			c.JSON(http.StatusServiceUnavailable, entity.ErrorResponse{Error: "Whatsapp consultations are not configured"})
		default:
			c.JSON(http.StatusInternalServerError, entity.ErrorResponse{Error: "Failed to generate link"})
		}
		return
	}

	c.JSON(http.StatusOK, entity.WhatsappLinkResponse{WhatsappURL: link})
}

// === HELPERS ===

// collectImageInputs собирает изображения из multipart формы:
// файлы из частей "images" и готовые URL из значений "image_urls"
func collectImageInputs(c *gin.Context) ([]service.ImageInput, error) {
	var inputs []service.ImageInput

	form, err := c.MultipartForm()
	if err != nil {
		// Не multipart запрос - изображений нет
		return nil, nil
	}

	for _, fileHeader := range form.File["images"] {
		if fileHeader.Size > maxImageSize {
			return nil, errors.New("image file too large")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return nil, errors.New("failed to read image file")
		}
		data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
		file.Close()
		if err != nil {
			return nil, errors.New("failed to read image file")
		}
		if len(data) == 0 {
			return nil, errors.New("empty image file")
		}

		inputs = append(inputs, service.ImageInput{
			Upload: &service.ImageUpload{
				Filename: fileHeader.Filename,
				Data:     data,
			},
		})
	}

	for _, rawURL := range form.Value["image_urls"] {
		if rawURL == "" {
			continue
		}
		inputs = append(inputs, service.ImageInput{URL: rawURL})
	}

	return inputs, nil
}

func formatValidationError(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			return fieldError.Field() + " is " + fieldError.Tag()
		}
	}
	return "Validation failed"
}
