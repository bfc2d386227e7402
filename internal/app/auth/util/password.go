package util

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword возвращает bcrypt-хэш пароля
// Администраторы заводятся напрямую в БД, поэтому хэш
// генерируется и при ручном создании учетной записи
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword сверяет пароль с хэшем из БД
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
