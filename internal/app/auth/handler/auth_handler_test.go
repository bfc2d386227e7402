package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"carteras/internal/app/auth/entity"
	"carteras/internal/app/auth/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAuthService - мок сервиса аутентификации
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, req *entity.LoginRequest) (*entity.LoginResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.LoginResponse), args.Error(1)
}

func (m *MockAuthService) Me(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, userID uuid.UUID, req *entity.ChangePasswordRequest) error {
	args := m.Called(ctx, userID, req)
	return args.Error(0)
}

func setupAuthRouter(svc AuthServiceInterface, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	h := NewAuthHandler(svc)

	withIdentity := func(handler gin.HandlerFunc) gin.HandlerFunc {
		return func(c *gin.Context) {
			if userID != "" {
				c.Set("user_id", userID)
			}
			handler(c)
		}
	}

	router.POST("/api/auth/login", h.Login)
	router.POST("/api/auth/logout", h.Logout)
	router.GET("/api/auth/me", withIdentity(h.Me))
	router.POST("/api/users/change-password", withIdentity(h.ChangePassword))

	return router
}

func performJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_Login_Success(t *testing.T) {
	mockService := new(MockAuthService)
	router := setupAuthRouter(mockService, "")

	userID := uuid.New()
	response := &entity.LoginResponse{
		AccessToken: "token-value",
		TokenType:   "Bearer",
		ExpiresIn:   int64(24 * time.Hour / time.Second),
		User: entity.User{
			ID:    userID,
			Email: "admin@example.com",
			Name:  "Admin",
			Role:  "admin",
		},
	}

	mockService.On("Login", mock.Anything, mock.MatchedBy(func(req *entity.LoginRequest) bool {
		return req.Email == "admin@example.com" && req.Password == "password123"
	})).Return(response, nil)

	w := performJSON(router, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "admin@example.com",
		"password": "password123",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var got entity.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "token-value", got.AccessToken)
	assert.Equal(t, "Bearer", got.TokenType)
	assert.Equal(t, userID, got.User.ID)
	mockService.AssertExpectations(t)
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	mockService := new(MockAuthService)
	router := setupAuthRouter(mockService, "")

	mockService.On("Login", mock.Anything, mock.Anything).Return(nil, service.ErrInvalidCredentials)

	w := performJSON(router, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "admin@example.com",
		"password": "wrong-password",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Login_ValidationFailure(t *testing.T) {
	mockService := new(MockAuthService)
	router := setupAuthRouter(mockService, "")

	w := performJSON(router, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "not-an-email",
		"password": "password123",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "Login")
}

func TestAuthHandler_Me_Success(t *testing.T) {
	mockService := new(MockAuthService)
	userID := uuid.New()
	router := setupAuthRouter(mockService, userID.String())

	mockService.On("Me", mock.Anything, userID).Return(&entity.User{
		ID:    userID,
		Email: "admin@example.com",
		Name:  "Admin",
		Role:  "admin",
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var got struct {
		User entity.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, userID, got.User.ID)
	assert.Equal(t, "admin", got.User.Role)
	mockService.AssertExpectations(t)
}

func TestAuthHandler_Me_Anonymous(t *testing.T) {
	mockService := new(MockAuthService)
	router := setupAuthRouter(mockService, "")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	mockService.AssertNotCalled(t, "Me")
}

func TestAuthHandler_Me_UserMissing(t *testing.T) {
	mockService := new(MockAuthService)
	userID := uuid.New()
	router := setupAuthRouter(mockService, userID.String())

	mockService.On("Me", mock.Anything, userID).Return(nil, service.ErrUserNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthHandler_Logout(t *testing.T) {
	mockService := new(MockAuthService)
	router := setupAuthRouter(mockService, "")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandler_ChangePassword_Success(t *testing.T) {
	mockService := new(MockAuthService)
	userID := uuid.New()
	router := setupAuthRouter(mockService, userID.String())

	mockService.On("ChangePassword", mock.Anything, userID, mock.MatchedBy(func(req *entity.ChangePasswordRequest) bool {
		return req.CurrentPassword == "old-password" && req.NewPassword == "new-password"
	})).Return(nil)

	w := performJSON(router, http.MethodPost, "/api/users/change-password", gin.H{
		"current_password": "old-password",
		"new_password":     "new-password",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestAuthHandler_ChangePassword_WrongCurrent(t *testing.T) {
	mockService := new(MockAuthService)
	userID := uuid.New()
	router := setupAuthRouter(mockService, userID.String())

	mockService.On("ChangePassword", mock.Anything, userID, mock.Anything).Return(service.ErrWrongPassword)

	w := performJSON(router, http.MethodPost, "/api/users/change-password", gin.H{
		"current_password": "bad-password",
		"new_password":     "new-password",
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthHandler_ChangePassword_NoIdentity(t *testing.T) {
	mockService := new(MockAuthService)
	router := setupAuthRouter(mockService, "")

	w := performJSON(router, http.MethodPost, "/api/users/change-password", gin.H{
		"current_password": "old-password",
		"new_password":     "new-password",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	mockService.AssertNotCalled(t, "ChangePassword")
}
