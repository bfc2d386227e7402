package service

import "errors"

var (
	// Ошибки бизнес-логики для обработки в handlers
	ErrUnauthorized      = errors.New("authentication required")
	ErrForbidden         = errors.New("access forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrDuplicateCategory = errors.New("category already exists")
	ErrAssetUpload       = errors.New("asset upload failed")
	ErrWhatsappDisabled  = errors.New("whatsapp number not configured")
)
