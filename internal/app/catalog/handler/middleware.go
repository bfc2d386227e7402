package handler

import (
	"fmt"
	"strings"

	"carteras/internal/app/catalog/entity"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const identityContextKey = "identity"

// JWTClaims - полезная нагрузка токена, выданного auth сервисом
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware проверяет JWT токены и кладет Identity в контекст запроса
type AuthMiddleware struct {
	jwtSecret string
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
	}
}

// Identify извлекает Identity из Bearer токена, если он есть
// Запрос не прерывается: чтение публично, а проверку прав на мутации
// выполняет сервисный слой по переданной Identity. Невалидный токен
// эквивалентен его отсутствию
func (m *AuthMiddleware) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.Next()
			return
		}

		token, err := jwt.ParseWithClaims(parts[1], &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(m.jwtSecret), nil
		})
		if err != nil || !token.Valid {
			c.Next()
			return
		}

		claims, ok := token.Claims.(*JWTClaims)
		if !ok {
			c.Next()
			return
		}

		c.Set(identityContextKey, &entity.Identity{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
		})
		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// identityFrom достает Identity из контекста запроса
// nil означает анонимный запрос
func identityFrom(c *gin.Context) *entity.Identity {
	value, exists := c.Get(identityContextKey)
	if !exists {
		return nil
	}

	identity, ok := value.(*entity.Identity)
	if !ok {
		return nil
	}

	return identity
}
