package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/yourusername/quizgen-worker/internal/config"
	apperrors "github.com/yourusername/quizgen-worker/internal/pkg/errors"
	"github.com/yourusername/quizgen-worker/internal/service"
)

// Server — консьюмер очереди задач генерации
type Server struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

// NewServer создает asynq-сервер с обработчиками задач
func NewServer(
	cfg *config.Config,
	quizGenService *service.QuizGenerationService,
	documentDataService *service.DocumentDataService,
) (*Server, error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.Redis.RedisURI())
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URI: %w", err)
	}

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     cfg.Queue.Concurrency,
			ShutdownTimeout: time.Duration(cfg.Queue.ShutdownTimeoutSec) * time.Second,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Worker] task %s failed: %v", task.Type(), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskDocumentGenerate, handleDocumentGenerate(quizGenService, documentDataService))

	log.Printf("[Worker] configured: concurrency=%d", cfg.Queue.Concurrency)
	return &Server{srv: srv, mux: mux}, nil
}

// Run блокирует до сигнала остановки
func (s *Server) Run() error {
	return s.srv.Run(s.mux)
}

// Start запускает сервер в неблокирующем режиме и возвращает функцию остановки
func (s *Server) Start() (stop func(), err error) {
	if err := s.srv.Start(s.mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	return func() { s.srv.Shutdown() }, nil
}

// handleDocumentGenerate обрабатывает задачу генерации: сначала проход
// метаданных, затем проход квизов. Невалидный payload не ретраится.
// Ошибки проходов возвращаются как есть: с MaxRetry(0) задача попадает
// в архив, а outbox-запись остается PROCESSING (ручное вмешательство)
func handleDocumentGenerate(
	quizGenService *service.QuizGenerationService,
	documentDataService *service.DocumentDataService,
) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload GeneratePayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
		}
		if err := payload.Validate(); err != nil {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		log.Printf("[Worker] processing document:generate document=%d member=%d",
			payload.DocumentID, payload.MemberID)
		start := time.Now()

		// Проход метаданных не влияет на кредиты и outbox; его ошибка
		// персистентности фатальна для задачи, ошибки LLM — нет
		if err := documentDataService.Generate(ctx, payload.DocumentID, payload.S3Key); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return fmt.Errorf("document not found: %v: %w", err, asynq.SkipRetry)
			}
			return fmt.Errorf("document data generation: %w", err)
		}

		if err := quizGenService.ProcessDocument(ctx, payload.Job()); err != nil {
			return fmt.Errorf("quiz generation: %w", err)
		}

		log.Printf("[Worker] document=%d done in %s", payload.DocumentID, time.Since(start))
		return nil
	}
}
