package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	authhandler "carteras/internal/app/auth/handler"
	authrepository "carteras/internal/app/auth/repository"
	authservice "carteras/internal/app/auth/service"
	authutil "carteras/internal/app/auth/util"
	"carteras/internal/app/catalog/config"
	"carteras/internal/app/catalog/handler"
	"carteras/internal/app/catalog/processor"
	"carteras/internal/app/catalog/repository"
	"carteras/internal/app/catalog/service"
	"carteras/internal/app/catalog/util"
	"carteras/pkg/logger"
)

func main() {
	// === ИНИЦИАЛИЗАЦИЯ КОНФИГУРАЦИИ ===
	// Загружаем конфигурацию из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init("catalog", cfg.LogLevel)

	// === ПОДКЛЮЧЕНИЕ К POSTGRESQL ===
	// Используем connection pool для эффективного управления соединениями
	pool, err := connectDB(context.Background(), cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("Successfully connected to PostgreSQL")

	// GORM работает поверх того же пула соединений через database/sql адаптер
	sqlDB := stdlib.OpenDBFromPool(pool)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize GORM")
	}

	// === ПОДКЛЮЧЕНИЕ К REDIS ===
	// Redis используется для кеширования списка категорий
	redisClient, err := util.NewRedisClient(
		cfg.Redis.Address(),
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()
	logger.Info().Msg("Successfully connected to Redis")

	// === ИНИЦИАЛИЗАЦИЯ KAFKA PRODUCER ===
	// Kafka producer отправляет события изменения товаров
	kafkaProducer := util.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer kafkaProducer.Close()
	logger.Info().Msg("Successfully initialized Kafka producer")

	// === ВНЕШНЕЕ ХРАНИЛИЩЕ ИЗОБРАЖЕНИЙ ===
	assetStore := service.NewCloudinaryClient(
		cfg.Cloudinary.BaseURL,
		cfg.Cloudinary.CloudName,
		cfg.Cloudinary.APIKey,
		cfg.Cloudinary.APISecret,
		cfg.Cloudinary.Folder,
		cfg.Cloudinary.TimeoutSec,
	)

	// === ИНИЦИАЛИЗАЦИЯ СЛОЯ РЕПОЗИТОРИЕВ ===
	categoryRepo := repository.NewCategoryRepository(gormDB)
	productRepo := repository.NewProductRepository(gormDB)
	counterRepo := repository.NewCounterRepository(gormDB)
	orphanRepo := repository.NewOrphanRepository(gormDB)
	userRepo := authrepository.NewUserRepository(pool)

	// === ИНИЦИАЛИЗАЦИЯ БИЗНЕС-ЛОГИКИ ===
	// Service layer координирует репозитории, хранилище изображений,
	// кеш и Kafka
	catalogService := service.NewCatalogService(
		categoryRepo,
		productRepo,
		counterRepo,
		orphanRepo,
		assetStore,
		redisClient,
		kafkaProducer,
		cfg.Whatsapp.Number,
	)

	jwtManager := authutil.NewJWTManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTTLHrs)*time.Hour)
	authService := authservice.NewAuthService(userRepo, jwtManager)

	// === ФОНОВАЯ ОЧИСТКА ИЗОБРАЖЕНИЙ ===
	// Дочищает изображения, оставшиеся без владельца после обновлений
	// и неудачных удалений
	cleanupService := service.NewCleanupService(orphanRepo, assetStore)
	scheduler := processor.NewCronScheduler(cleanupService)
	if err := scheduler.Start(context.Background(), cfg.Cleanup.Schedule); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start cron scheduler")
	}
	defer scheduler.Stop()

	// === ИНИЦИАЛИЗАЦИЯ HTTP HANDLERS ===
	catalogHandler := handler.NewCatalogHandler(catalogService)
	authHandler := authhandler.NewAuthHandler(authService)
	authMiddleware := handler.NewAuthMiddleware(cfg.JWT.Secret)

	// === НАСТРОЙКА МАРШРУТОВ ===
	router := handler.SetupRouter(catalogHandler, authHandler, authMiddleware)

	// === НАСТРОЙКА HTTP СЕРВЕРА ===
	// Production-ready настройки с таймаутами
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second, // Таймаут чтения запроса
		WriteTimeout: 15 * time.Second, // Таймаут записи ответа
		IdleTimeout:  60 * time.Second, // Таймаут idle соединений
	}

	// === ЗАПУСК HTTP СЕРВЕРА ===
	// Запускаем сервер в отдельной горутине для graceful shutdown
	go func() {
		logger.Info().Str("address", cfg.Server.Address()).Msg("Starting catalog service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// === GRACEFUL SHUTDOWN ===
	// Ожидаем сигнала завершения (SIGINT или SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down catalog service...")

	// Даем серверу 30 секунд на завершение текущих запросов
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Catalog service stopped gracefully")
}

// connectDB устанавливает соединение с PostgreSQL используя pgx connection pool
// Использует retry logic с 10 попытками для устойчивости при запуске в Docker
func connectDB(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}

	// Оптимальные настройки пула для production
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 5 * time.Minute
	poolConfig.MaxConnIdleTime = 1 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	// Пробуем подключиться с повторными попытками
	// При запуске в Docker PostgreSQL может быть еще не готов
	var pool *pgxpool.Pool
	for i := 0; i < 10; i++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
		}
		logger.Warn().Err(err).Int("attempt", i+1).Msg("Failed to connect to database, retrying")
		time.Sleep(3 * time.Second)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect after 10 attempts: %w", err)
	}

	return pool, nil
}
