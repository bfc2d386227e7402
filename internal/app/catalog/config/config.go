package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config содержит все настройки приложения каталога
// Включает конфигурацию для HTTP сервера, PostgreSQL, Redis, Kafka,
// Cloudinary, JWT и фоновой очистки изображений
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Cloudinary CloudinaryConfig
	JWT        JWTConfig
	Whatsapp   WhatsappConfig
	Cleanup    CleanupConfig
	LogLevel   string
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Host string // Адрес хоста (по умолчанию 0.0.0.0)
	Port string // Порт сервера (по умолчанию 8080)
}

// DatabaseConfig - настройки подключения к PostgreSQL
// Используется для хранения категорий, товаров, счётчиков номеров
// и очереди осиротевших изображений
type DatabaseConfig struct {
	Host     string // Хост PostgreSQL
	Port     string // Порт PostgreSQL
	User     string // Имя пользователя БД
	Password string // Пароль БД
	DBName   string // Имя базы данных
	SSLMode  string // Режим SSL (disable/require/verify-full)
}

// RedisConfig - настройки подключения к Redis для кеширования
// Используется для кеширования списка категорий
type RedisConfig struct {
	Host     string // Хост Redis
	Port     string // Порт Redis
	Password string // Пароль Redis (опционально)
	DB       int    // Номер БД Redis (0-15)
}

// KafkaConfig - настройки Kafka для отправки событий
// События отправляются при изменении товаров (создание/обновление/удаление)
type KafkaConfig struct {
	Brokers []string // Список брокеров Kafka (формат: host:port)
	Topic   string   // Топик для событий PRODUCT_CREATED, PRODUCT_UPDATED, PRODUCT_DELETED
}

// CloudinaryConfig - настройки внешнего хранилища изображений
type CloudinaryConfig struct {
	BaseURL    string // Базовый URL API (переопределяется в тестах)
	CloudName  string // Имя облака из настроек аккаунта
	APIKey     string // API key
	APISecret  string // API secret для подписи запросов
	Folder     string // Папка, в которую складываются изображения товаров
	TimeoutSec int    // Таймаут HTTP запросов к хранилищу в секундах
}

// JWTConfig - настройки для проверки JWT токенов
type JWTConfig struct {
	Secret       string // Секретный ключ для подписи и проверки JWT токенов
	AccessTTLHrs int    // Время жизни access токена в часах
}

// WhatsappConfig - настройки генерации ссылок для консультаций
type WhatsappConfig struct {
	Number string // Номер в международном формате без +, пусто - ссылки отключены
}

// CleanupConfig - настройки фоновой очистки осиротевших изображений
type CleanupConfig struct {
	Schedule string // Cron выражение для запуска очистки
}

// Load загружает конфигурацию из переменных окружения
// Возвращает ошибку, если не удалось распарсить значения
func Load() (*Config, error) {
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB value: %w", err)
	}

	cloudinaryTimeout, err := strconv.Atoi(getEnv("CLOUDINARY_TIMEOUT_SEC", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDINARY_TIMEOUT_SEC value: %w", err)
	}

	jwtAccessTTL, err := strconv.Atoi(getEnv("JWT_ACCESS_TTL_HOURS", "168"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_TTL_HOURS value: %w", err)
	}

	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "carteras"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Kafka: KafkaConfig{
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			Topic:   getEnv("KAFKA_TOPIC", "product_events"),
		},
		Cloudinary: CloudinaryConfig{
			BaseURL:    getEnv("CLOUDINARY_BASE_URL", "https://api.cloudinary.com"),
			CloudName:  getEnv("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:     getEnv("CLOUDINARY_API_KEY", ""),
			APISecret:  getEnv("CLOUDINARY_API_SECRET", ""),
			Folder:     getEnv("CLOUDINARY_FOLDER", "products"),
			TimeoutSec: cloudinaryTimeout,
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key-change-this-in-production"),
			// Неделя: сессия админки переживает выходные
			AccessTTLHrs: jwtAccessTTL,
		},
		Whatsapp: WhatsappConfig{
			Number: getEnv("WHATSAPP_NUMBER", ""),
		},
		Cleanup: CleanupConfig{
			// По умолчанию каждый час, дырки между проходами не страшны
			Schedule: getEnv("CLEANUP_SCHEDULE", "0 * * * *"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}, nil
}

// DSN возвращает строку подключения к PostgreSQL в формате libpq
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Address возвращает адрес сервера в формате host:port для HTTP сервера
func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

// Address возвращает адрес Redis в формате host:port для подключения
func (c *RedisConfig) Address() string {
	return c.Host + ":" + c.Port
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
