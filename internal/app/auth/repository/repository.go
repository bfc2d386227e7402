package repository

import (
	"context"

	"carteras/internal/app/auth/entity"

	"github.com/google/uuid"
)

// UserRepository определяет операции над пользователями в PostgreSQL
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}
