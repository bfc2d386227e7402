package entity

import (
	"time"

	"github.com/google/uuid"
)

// User представляет администратора каталога
// Роль хранится строкой: права на мутации каталога есть только у admin
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
