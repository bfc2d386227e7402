package service

import (
	"context"
	"errors"
	"fmt"

	"carteras/internal/app/auth/entity"
	"carteras/internal/app/auth/repository"
	"carteras/internal/app/auth/util"
	"carteras/pkg/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AuthService обрабатывает бизнес-логику аутентификации
// Регистрации нет: администраторы заводятся напрямую в БД
type AuthService struct {
	userRepo   repository.UserRepository
	jwtManager *util.JWTManager
}

// NewAuthService создает новый сервис аутентификации
func NewAuthService(userRepo repository.UserRepository, jwtManager *util.JWTManager) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
	}
}

// Login выполняет вход пользователя
// Несуществующий email и неверный пароль дают один и тот же ответ,
// чтобы не раскрывать список зарегистрированных адресов
func (s *AuthService) Login(ctx context.Context, req *entity.LoginRequest) (*entity.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			metrics.AuthLogins.WithLabelValues("failed").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !util.CheckPassword(req.Password, user.PasswordHash) {
		metrics.AuthLogins.WithLabelValues("failed").Inc()
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID.String(), user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	metrics.AuthLogins.WithLabelValues("success").Inc()

	return &entity.LoginResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwtManager.GetAccessTokenDuration().Seconds()),
		User:        *user,
	}, nil
}

// Me возвращает профиль текущего пользователя по ID из токена
// Используется фронтендом для восстановления сессии после перезагрузки
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ChangePassword меняет пароль пользователя после проверки текущего
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, req *entity.ChangePasswordRequest) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if !util.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		return ErrWrongPassword
	}

	passwordHash, err := util.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, passwordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}
