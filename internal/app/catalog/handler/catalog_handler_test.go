package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"carteras/internal/app/catalog/entity"
	"carteras/internal/app/catalog/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) CreateCategory(ctx context.Context, req *entity.CreateCategoryRequest, identity *entity.Identity) (*entity.Category, error) {
	args := m.Called(ctx, req, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Category), args.Error(1)
}

func (m *MockCatalogService) GetCategory(ctx context.Context, id uuid.UUID) (*entity.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Category), args.Error(1)
}

func (m *MockCatalogService) GetAllCategories(ctx context.Context) ([]entity.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Category), args.Error(1)
}

func (m *MockCatalogService) UpdateCategory(ctx context.Context, id uuid.UUID, req *entity.UpdateCategoryRequest, identity *entity.Identity) (*entity.Category, error) {
	args := m.Called(ctx, id, req, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Category), args.Error(1)
}

func (m *MockCatalogService) DeleteCategory(ctx context.Context, id uuid.UUID, identity *entity.Identity) error {
	args := m.Called(ctx, id, identity)
	return args.Error(0)
}

func (m *MockCatalogService) CreateProduct(ctx context.Context, req *entity.CreateProductRequest, images []service.ImageInput, identity *entity.Identity) (*entity.ProductWithCategory, error) {
	args := m.Called(ctx, req, images, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ProductWithCategory), args.Error(1)
}

func (m *MockCatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*entity.ProductWithCategory, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ProductWithCategory), args.Error(1)
}

func (m *MockCatalogService) ListProducts(ctx context.Context, query *entity.ListProductsQuery) (*entity.ProductListResponse, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ProductListResponse), args.Error(1)
}

func (m *MockCatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, req *entity.UpdateProductRequest, images []service.ImageInput, identity *entity.Identity) (*entity.ProductWithCategory, error) {
	args := m.Called(ctx, id, req, images, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ProductWithCategory), args.Error(1)
}

func (m *MockCatalogService) DeleteProduct(ctx context.Context, id uuid.UUID, identity *entity.Identity) (*entity.DeleteSummary, error) {
	args := m.Called(ctx, id, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.DeleteSummary), args.Error(1)
}

func (m *MockCatalogService) WhatsappLink(ctx context.Context, id uuid.UUID) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func setupTestRouter(svc service.CatalogServiceInterface, identity *entity.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	if identity != nil {
		router.Use(func(c *gin.Context) {
			c.Set("identity", identity)
			c.Next()
		})
	}

	h := NewCatalogHandler(svc)
	router.GET("/api/products", h.ListProducts)
	router.GET("/api/products/:id", h.GetProduct)
	router.GET("/api/products/:id/whatsapp", h.WhatsappLink)
	router.POST("/api/products", h.CreateProduct)
	router.PUT("/api/products/:id", h.UpdateProduct)
	router.DELETE("/api/products/:id", h.DeleteProduct)
	router.GET("/api/categories", h.GetAllCategories)
	router.POST("/api/categories", h.CreateCategory)

	return router
}

func testAdmin() *entity.Identity {
	return &entity.Identity{UserID: uuid.NewString(), Email: "admin@example.com", Role: "admin"}
}

// ==================== GetProduct Tests ====================

func TestGetProductHandler_Success(t *testing.T) {
	mockService := new(MockCatalogService)
	productID := uuid.New()
	mockService.On("GetProduct", mock.Anything, productID).Return(&entity.ProductWithCategory{
		Product: entity.Product{ID: productID, Name: "Leather tote", SequenceNumber: 42, Active: true},
	}, nil)

	router := setupTestRouter(mockService, nil)

	req, _ := http.NewRequest(http.MethodGet, "/api/products/"+productID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response entity.ProductWithCategory
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, productID, response.Product.ID)
}

func TestGetProductHandler_NotFound(t *testing.T) {
	mockService := new(MockCatalogService)
	productID := uuid.New()
	mockService.On("GetProduct", mock.Anything, productID).Return(nil, service.ErrProductNotFound)

	router := setupTestRouter(mockService, nil)

	req, _ := http.NewRequest(http.MethodGet, "/api/products/"+productID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetProductHandler_InvalidID(t *testing.T) {
	router := setupTestRouter(new(MockCatalogService), nil)

	req, _ := http.NewRequest(http.MethodGet, "/api/products/not-a-uuid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ==================== ListProducts Tests ====================

func TestListProductsHandler_QueryParams(t *testing.T) {
	mockService := new(MockCatalogService)
	categoryID := uuid.NewString()

	var gotQuery *entity.ListProductsQuery
	mockService.On("ListProducts", mock.Anything, mock.AnythingOfType("*entity.ListProductsQuery")).
		Run(func(args mock.Arguments) {
			gotQuery = args.Get(1).(*entity.ListProductsQuery)
		}).
		Return(&entity.ProductListResponse{Products: []entity.ProductWithCategory{}, Page: 2, TotalPages: 3, Total: 45}, nil)

	router := setupTestRouter(mockService, nil)

	req, _ := http.NewRequest(http.MethodGet, "/api/products?category="+categoryID+"&page=2&page_size=20", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, gotQuery)
	assert.Equal(t, categoryID, gotQuery.Category)
	assert.Equal(t, 2, gotQuery.Page)
	assert.Equal(t, 20, gotQuery.PageSize)
}

// ==================== CreateProduct Tests ====================

func TestCreateProductHandler_Multipart(t *testing.T) {
	mockService := new(MockCatalogService)
	categoryID := uuid.New()

	var gotReq *entity.CreateProductRequest
	var gotImages []service.ImageInput
	mockService.On("CreateProduct", mock.Anything, mock.AnythingOfType("*entity.CreateProductRequest"), mock.Anything, mock.AnythingOfType("*entity.Identity")).
		Run(func(args mock.Arguments) {
			gotReq = args.Get(1).(*entity.CreateProductRequest)
			gotImages = args.Get(2).([]service.ImageInput)
		}).
		Return(&entity.ProductWithCategory{
			Product: entity.Product{ID: uuid.New(), Name: "Leather tote", SequenceNumber: 7, Active: true},
		}, nil)

	router := setupTestRouter(mockService, testAdmin())

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.WriteField("name", "Leather tote")
	writer.WriteField("description", "Handmade")
	writer.WriteField("price", "149.90")
	writer.WriteField("stock", "3")
	writer.WriteField("category_id", categoryID.String())
	part, _ := writer.CreateFormFile("images", "front.jpg")
	part.Write([]byte("jpeg bytes"))
	writer.WriteField("image_urls", "https://cdn.example.com/upload/v1/products/extra.jpg")
	writer.Close()

	req, _ := http.NewRequest(http.MethodPost, "/api/products", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	require.NotNil(t, gotReq)
	assert.Equal(t, "Leather tote", gotReq.Name)
	require.NotNil(t, gotReq.Price)
	assert.Equal(t, 149.90, *gotReq.Price)
	assert.Equal(t, categoryID.String(), gotReq.CategoryID)

	// Один файл и один готовый URL
	require.Len(t, gotImages, 2)
	require.NotNil(t, gotImages[0].Upload)
	assert.Equal(t, "front.jpg", gotImages[0].Upload.Filename)
	assert.Equal(t, []byte("jpeg bytes"), gotImages[0].Upload.Data)
	assert.Equal(t, "https://cdn.example.com/upload/v1/products/extra.jpg", gotImages[1].URL)
}

func TestCreateProductHandler_ValidationFailure(t *testing.T) {
	mockService := new(MockCatalogService)
	router := setupTestRouter(mockService, testAdmin())

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.WriteField("name", "ab") // короче min=3
	writer.WriteField("price", "10")
	writer.WriteField("category_id", uuid.NewString())
	writer.Close()

	req, _ := http.NewRequest(http.MethodPost, "/api/products", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateProductHandler_Forbidden(t *testing.T) {
	mockService := new(MockCatalogService)
	mockService.On("CreateProduct", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, service.ErrForbidden)

	router := setupTestRouter(mockService, &entity.Identity{UserID: uuid.NewString(), Role: "user"})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.WriteField("name", "Leather tote")
	writer.WriteField("price", "149.90")
	writer.WriteField("category_id", uuid.NewString())
	writer.Close()

	req, _ := http.NewRequest(http.MethodPost, "/api/products", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateProductHandler_Anonymous(t *testing.T) {
	mockService := new(MockCatalogService)
	mockService.On("CreateProduct", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, service.ErrUnauthorized)

	router := setupTestRouter(mockService, nil)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.WriteField("name", "Leather tote")
	writer.WriteField("price", "149.90")
	writer.WriteField("category_id", uuid.NewString())
	writer.Close()

	req, _ := http.NewRequest(http.MethodPost, "/api/products", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// ==================== DeleteProduct Tests ====================

func TestUpdateProductHandler_ValidationFailure(t *testing.T) {
	mockService := new(MockCatalogService)
	router := setupTestRouter(mockService, testAdmin())

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.WriteField("name", "ab") // короче min=3
	writer.WriteField("description", strings.Repeat("x", 3000))
	writer.Close()

	req, _ := http.NewRequest(http.MethodPut, "/api/products/"+uuid.NewString(), &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "UpdateProduct",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteProductHandler_ReturnsSummary(t *testing.T) {
	mockService := new(MockCatalogService)
	productID := uuid.New()
	mockService.On("DeleteProduct", mock.Anything, productID, mock.AnythingOfType("*entity.Identity")).
		Return(&entity.DeleteSummary{ImagesRemoved: 1, ImagesFailed: 1}, nil)

	router := setupTestRouter(mockService, testAdmin())

	req, _ := http.NewRequest(http.MethodDelete, "/api/products/"+productID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(1), response["images_removed"])
	assert.Equal(t, float64(1), response["images_failed"])
}

// ==================== WhatsappLink Tests ====================

func TestWhatsappLinkHandler_Success(t *testing.T) {
	mockService := new(MockCatalogService)
	productID := uuid.New()
	mockService.On("WhatsappLink", mock.Anything, productID).
		Return("https://wa.me/5490000000000?text=hola", nil)

	router := setupTestRouter(mockService, nil)

	req, _ := http.NewRequest(http.MethodGet, "/api/products/"+productID.String()+"/whatsapp", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response entity.WhatsappLinkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Contains(t, response.WhatsappURL, "wa.me")
}

// ==================== Categories Tests ====================

func TestCreateCategoryHandler_Duplicate(t *testing.T) {
	mockService := new(MockCatalogService)
	mockService.On("CreateCategory", mock.Anything, mock.AnythingOfType("*entity.CreateCategoryRequest"), mock.AnythingOfType("*entity.Identity")).
		Return(nil, service.ErrDuplicateCategory)

	router := setupTestRouter(mockService, testAdmin())

	body, _ := json.Marshal(entity.CreateCategoryRequest{Name: "Bags"})
	req, _ := http.NewRequest(http.MethodPost, "/api/categories", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetAllCategoriesHandler_Success(t *testing.T) {
	mockService := new(MockCatalogService)
	categories := []entity.Category{
		{ID: uuid.New(), Name: "Bags", CreatedAt: time.Now()},
		{ID: uuid.New(), Name: "Wallets", CreatedAt: time.Now()},
	}
	mockService.On("GetAllCategories", mock.Anything).Return(categories, nil)

	router := setupTestRouter(mockService, nil)

	req, _ := http.NewRequest(http.MethodGet, "/api/categories", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response entity.CategoryListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 2, response.Total)
}
