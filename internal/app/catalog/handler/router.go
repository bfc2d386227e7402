package handler

import (
	"net/http"
	"time"

	"carteras/pkg/logger"
	"carteras/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AuthRoutes - обработчики аутентификации, подключаемые к общему роутеру
type AuthRoutes interface {
	Login(c *gin.Context)
	Logout(c *gin.Context)
	Me(c *gin.Context)
	ChangePassword(c *gin.Context)
}

// SetupRouter настраивает все маршруты сервиса с использованием Gin
// Чтение каталога публично; права на мутации проверяет сервисный слой
// по Identity, извлечённой из JWT токена
func SetupRouter(catalogHandler *CatalogHandler, authHandler AuthRoutes, authMiddleware *AuthMiddleware) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinLoggerMiddleware())
	router.Use(metrics.GinPrometheusMiddleware("catalog"))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint - публичный, без аутентификации
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "catalog",
		})
	})

	// Prometheus метрики
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(authMiddleware.Identify())
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", authHandler.Me)
		}

		users := api.Group("/users")
		{
			users.POST("/change-password", authHandler.ChangePassword)
		}

		products := api.Group("/products")
		{
			products.GET("", catalogHandler.ListProducts)
			products.GET("/:id", catalogHandler.GetProduct)
			products.GET("/:id/whatsapp", catalogHandler.WhatsappLink)
			products.POST("", catalogHandler.CreateProduct)
			products.PUT("/:id", catalogHandler.UpdateProduct)
			products.DELETE("/:id", catalogHandler.DeleteProduct)
		}

		categories := api.Group("/categories")
		{
			categories.GET("", catalogHandler.GetAllCategories)
			categories.GET("/:id", catalogHandler.GetCategory)
			categories.POST("", catalogHandler.CreateCategory)
			categories.PUT("/:id", catalogHandler.UpdateCategory)
			categories.DELETE("/:id", catalogHandler.DeleteCategory)
		}
	}

	return router
}
