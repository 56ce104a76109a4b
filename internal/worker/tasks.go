package worker

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	apperrors "github.com/yourusername/quizgen-worker/internal/pkg/errors"
	"github.com/yourusername/quizgen-worker/internal/service"
)

// TaskDocumentGenerate — задача генерации квизов и метаданных для документа
const TaskDocumentGenerate = "document:generate"

// GeneratePayload — payload задачи в очереди.
// Поля соответствуют контракту триггера: s3_key, document_id и member_id
// обязательны, quiz_count опционален
type GeneratePayload struct {
	S3Key      string `json:"s3_key"`
	DocumentID uint   `json:"document_id"`
	MemberID   uint   `json:"member_id"`
	StarCount  int    `json:"star_count"`
	QuizCount  int    `json:"quiz_count,omitempty"`
}

// Validate проверяет обязательные поля payload.
// Невалидный payload — фатальная ошибка входных данных:
// задача отклоняется до каких-либо побочных эффектов
func (p *GeneratePayload) Validate() error {
	if p.S3Key == "" {
		return fmt.Errorf("%w: s3_key is required", apperrors.ErrValidation)
	}
	if p.DocumentID == 0 {
		return fmt.Errorf("%w: document_id is required", apperrors.ErrValidation)
	}
	if p.MemberID == 0 {
		return fmt.Errorf("%w: member_id is required", apperrors.ErrValidation)
	}
	if p.StarCount < 0 || p.QuizCount < 0 {
		return fmt.Errorf("%w: star_count and quiz_count must be non-negative", apperrors.ErrValidation)
	}
	return nil
}

// Job конвертирует payload в задание оркестратора
func (p *GeneratePayload) Job() service.GenerationJob {
	return service.GenerationJob{
		DocumentID: p.DocumentID,
		S3Key:      p.S3Key,
		MemberID:   p.MemberID,
		StarCount:  p.StarCount,
		QuizCount:  p.QuizCount,
	}
}

// Client ставит задачи генерации в очередь
type Client struct {
	client *asynq.Client
}

// NewClient создает клиент очереди
func NewClient(redisURI string) (*Client, error) {
	opt, err := asynq.ParseRedisURI(redisURI)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URI: %w", err)
	}
	return &Client{client: asynq.NewClient(opt)}, nil
}

// Close закрывает соединение клиента
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueGenerate ставит задачу генерации для документа.
// MaxRetry(0): ошибки персистентности не ретраятся автоматически —
// outbox-запись остается PROCESSING до ручного вмешательства
func (c *Client) EnqueueGenerate(payload GeneratePayload) error {
	if err := payload.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(
		TaskDocumentGenerate,
		data,
		asynq.MaxRetry(0),
	)

	_, err = c.client.Enqueue(task)
	return err
}
