package entity

type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

type UpdateCategoryRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

// CreateProductRequest - поля формы создания товара
// Файлы изображений приходят отдельно в multipart части "images",
// готовые URL - в image_urls
type CreateProductRequest struct {
	Name        string   `form:"name" validate:"required,min=3,max=100"`
	Description string   `form:"description" validate:"omitempty,max=2000"`
	Price       *float64 `form:"price" validate:"required,gte=0"`
	Stock       *int     `form:"stock" validate:"omitempty,gte=0"`
	CategoryID  string   `form:"category_id" validate:"required,uuid"`
}

// UpdateProductRequest - частичное обновление
// Меняются только присланные поля, поэтому все поля указатели:
// nil означает "не трогать"
type UpdateProductRequest struct {
	Name        *string  `form:"name" validate:"omitempty,min=3,max=100"`
	Description *string  `form:"description" validate:"omitempty,max=2000"`
	Price       *float64 `form:"price" validate:"omitempty,gte=0"`
	Stock       *int     `form:"stock" validate:"omitempty,gte=0"`
	CategoryID  *string  `form:"category_id" validate:"omitempty,uuid"`
}

// IsEmpty сообщает, что запрос не содержит ни одного поля для обновления
func (r *UpdateProductRequest) IsEmpty() bool {
	return r.Name == nil && r.Description == nil && r.Price == nil &&
		r.Stock == nil && r.CategoryID == nil
}

// ListProductsQuery - параметры выборки списка товаров
type ListProductsQuery struct {
	Category string `form:"category" validate:"omitempty,uuid"`
	Page     int    `form:"page" validate:"omitempty,gte=1"`
	PageSize int    `form:"page_size" validate:"omitempty,gte=1,lte=100"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ProductListResponse struct {
	Products   []ProductWithCategory `json:"products"`
	Page       int                   `json:"page"`
	TotalPages int                   `json:"total_pages"`
	Total      int64                 `json:"total"`
}

type CategoryListResponse struct {
	Categories []Category `json:"categories"`
	Total      int        `json:"total"`
}

type WhatsappLinkResponse struct {
	WhatsappURL string `json:"whatsapp_url"`
}
