package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/quizgen-worker/internal/config"
	"github.com/yourusername/quizgen-worker/internal/handler"
	"github.com/yourusername/quizgen-worker/internal/middleware"
	pgRepo "github.com/yourusername/quizgen-worker/internal/repository/postgres"
	"github.com/yourusername/quizgen-worker/internal/worker"
	"github.com/yourusername/quizgen-worker/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем репозитории
	documentRepo := pgRepo.NewDocumentRepo(db)
	quizRepo := pgRepo.NewQuizRepo(db)
	outboxRepo := pgRepo.NewOutboxRepo(db)

	// Клиент очереди для постановки задач генерации
	queueClient, err := worker.NewClient(cfg.Redis.RedisURI())
	if err != nil {
		log.Printf("Failed to initialize queue client: %v", err)
		os.Exit(1)
	}
	defer queueClient.Close()

	documentHandler := handler.NewDocumentHandler(documentRepo, quizRepo, outboxRepo, queueClient)

	// Настраиваем роутер
	router := gin.Default()

	// CORS middleware
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", documentHandler.HealthCheck)

	api := router.Group("/api")
	{
		documents := api.Group("/documents")
		{
			document := documents.Group("/:id")
			document.Use(middleware.ExtractUintParam("id", "documentID"))
			{
				document.GET("", documentHandler.GetDocument)
				document.GET("/quizzes", documentHandler.GetDocumentQuizzes)
				document.GET("/quizzes/export", documentHandler.ExportDocumentQuizzes)
				document.GET("/outbox", documentHandler.GetOutboxEntry)
				document.DELETE("/outbox", documentHandler.ClearOutboxEntry)
				document.POST("/requeue", documentHandler.RequeueDocument)
			}
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Admin API запущен на порту %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("ListenAndServe error: %v", err)
			os.Exit(1)
		}
	}()

	// Ожидаем сигнал остановки
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Получен сигнал остановки, завершаем работу...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Ошибка при остановке сервера: %v", err)
	}
	log.Println("Сервер остановлен")
}
