package main

import (
	"log"
	"os"
	"time"

	"github.com/yourusername/quizgen-worker/internal/config"
	"github.com/yourusername/quizgen-worker/internal/llm"
	"github.com/yourusername/quizgen-worker/internal/notifier"
	"github.com/yourusername/quizgen-worker/internal/objectstore"
	pgRepo "github.com/yourusername/quizgen-worker/internal/repository/postgres"
	redisRepo "github.com/yourusername/quizgen-worker/internal/repository/redis"
	"github.com/yourusername/quizgen-worker/internal/service"
	"github.com/yourusername/quizgen-worker/internal/service/genworker"
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

	// Инициализируем подключение к Redis (кеш содержимого документов)
	redisClient, err := database.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	documentRepo := pgRepo.NewDocumentRepo(db)
	quizRepo := pgRepo.NewQuizRepo(db)
	outboxRepo := pgRepo.NewOutboxRepo(db)
	starRepo := pgRepo.NewStarRepo(db)
	memberRepo := pgRepo.NewMemberRepo(db)
	quizSetRepo := pgRepo.NewQuizSetRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Объектное хранилище с содержимым документов
	store, err := objectstore.NewSupabaseStore(cfg.Storage.URL, cfg.Storage.APIKey, cfg.Storage.Bucket)
	if err != nil {
		log.Printf("Failed to initialize object store: %v", err)
		os.Exit(1)
	}

	// LLM клиент
	llmClient := llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)

	// Нотификатор отчетов об ошибках генерации
	ntf := buildNotifier(cfg)

	// Настройки прохода генерации: умолчания, перекрытые конфигурацией
	genConfig := buildGenerationConfig(cfg)

	fetcher := service.NewContentFetcher(cacheRepo, store,
		time.Duration(genConfig.ContentCacheTTLSec)*time.Second)

	quizGenService := service.NewQuizGenerationService(
		documentRepo, quizRepo, outboxRepo, starRepo,
		memberRepo, quizSetRepo,
		fetcher, llmClient, ntf, genConfig, db,
	)
	documentDataService := service.NewDocumentDataService(
		documentRepo, fetcher, llmClient, ntf, genConfig,
	)

	srv, err := worker.NewServer(cfg, quizGenService, documentDataService)
	if err != nil {
		log.Printf("Failed to initialize worker server: %v", err)
		os.Exit(1)
	}

	// Run блокирует до SIGTERM/SIGINT и сам дожидается активных задач
	// в пределах ShutdownTimeout
	if err := srv.Run(); err != nil {
		log.Printf("Worker stopped with error: %v", err)
		os.Exit(1)
	}
	log.Println("Worker stopped")
}

// buildNotifier выбирает реализацию нотификатора по конфигурации.
// Ошибка инициализации не фатальна: воркер работает без отчетов
func buildNotifier(cfg *config.Config) notifier.Notifier {
	switch cfg.Notifier.Mode {
	case "discord":
		ntf, err := notifier.NewDiscordNotifier(cfg.Notifier.DiscordWebhookURL)
		if err != nil {
			log.Printf("Failed to initialize Discord notifier: %v, falling back to noop", err)
			return &notifier.NoopNotifier{}
		}
		return ntf
	case "email":
		ntf, err := notifier.NewResendNotifier(cfg.Notifier.ResendAPIKey, cfg.Notifier.EmailFrom, cfg.Notifier.EmailTo)
		if err != nil {
			log.Printf("Failed to initialize Resend notifier: %v, falling back to noop", err)
			return &notifier.NoopNotifier{}
		}
		return ntf
	default:
		return &notifier.NoopNotifier{}
	}
}

// buildGenerationConfig переносит настройки генерации из конфигурации,
// сохраняя умолчания для незаданных значений
func buildGenerationConfig(cfg *config.Config) *genworker.Config {
	genConfig := genworker.DefaultConfig()
	if cfg.Generation.ChunkSize > 0 {
		genConfig.ChunkSize = cfg.Generation.ChunkSize
	}
	if cfg.Generation.ChunkOverlap > 0 {
		genConfig.ChunkOverlap = cfg.Generation.ChunkOverlap
	}
	if cfg.Generation.MinQuizCount > 0 {
		genConfig.MinQuizCount = cfg.Generation.MinQuizCount
	}
	if cfg.Generation.PrevQuestionWindow > 0 {
		genConfig.PrevQuestionWindow = cfg.Generation.PrevQuestionWindow
	}
	if cfg.Generation.FallbackCategoryID > 0 {
		genConfig.FallbackCategoryID = cfg.Generation.FallbackCategoryID
	}
	if cfg.Generation.PromptDir != "" {
		genConfig.PromptDir = cfg.Generation.PromptDir
	}
	if cfg.Generation.ContentCacheTTLSec > 0 {
		genConfig.ContentCacheTTLSec = cfg.Generation.ContentCacheTTLSec
	}
	if cfg.Generation.FirstQuizSetSize > 0 {
		genConfig.FirstQuizSetSize = cfg.Generation.FirstQuizSetSize
	}
	return genConfig
}
