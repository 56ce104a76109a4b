package dto

import (
	"time"

	"github.com/yourusername/quizgen-worker/internal/domain/entity"
)

// DocumentResponse представляет документ в формате для ответа клиенту
type DocumentResponse struct {
	ID                   uint      `json:"id"`
	MemberID             uint      `json:"member_id"`
	S3Key                string    `json:"s3_key"`
	Name                 *string   `json:"name,omitempty"`
	Emoji                *string   `json:"emoji,omitempty"`
	CategoryID           *uint     `json:"category_id,omitempty"`
	Language             string    `json:"language"`
	QuizGenerationStatus string    `json:"quiz_generation_status"`
	IsPublic             bool      `json:"is_public"`
	QuizCount            int64     `json:"quiz_count"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// QuizResponse представляет сгенерированный квиз в формате для ответа клиенту
type QuizResponse struct {
	ID          uint      `json:"id"`
	DocumentID  uint      `json:"document_id"`
	Question    string    `json:"question"`
	Answer      string    `json:"answer"`
	Explanation string    `json:"explanation,omitempty"`
	QuizType    string    `json:"quiz_type"`
	Options     []string  `json:"options,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// OutboxResponse представляет outbox-запись задачи генерации
type OutboxResponse struct {
	ID         uint      `json:"id"`
	DocumentID uint      `json:"document_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewDocumentResponse создает DTO для документа
func NewDocumentResponse(doc *entity.Document, quizCount int64) *DocumentResponse {
	return &DocumentResponse{
		ID:                   doc.ID,
		MemberID:             doc.MemberID,
		S3Key:                doc.S3Key,
		Name:                 doc.Name,
		Emoji:                doc.Emoji,
		CategoryID:           doc.CategoryID,
		Language:             doc.Language,
		QuizGenerationStatus: doc.QuizGenerationStatus,
		IsPublic:             doc.IsPublic,
		QuizCount:            quizCount,
		CreatedAt:            doc.CreatedAt,
		UpdatedAt:            doc.UpdatedAt,
	}
}

// NewQuizResponse создает DTO для квиза
func NewQuizResponse(q *entity.Quiz) QuizResponse {
	var options []string
	if len(q.Options) > 0 {
		options = make([]string, 0, len(q.Options))
		for _, opt := range q.Options {
			options = append(options, opt.Content)
		}
	}

	return QuizResponse{
		ID:          q.ID,
		DocumentID:  q.DocumentID,
		Question:    q.Question,
		Answer:      q.Answer,
		Explanation: q.Explanation,
		QuizType:    q.QuizType,
		Options:     options,
		CreatedAt:   q.CreatedAt,
	}
}

// NewListQuizResponse создает список DTO для квизов
func NewListQuizResponse(quizzes []entity.Quiz) []QuizResponse {
	responses := make([]QuizResponse, 0, len(quizzes))
	for i := range quizzes {
		responses = append(responses, NewQuizResponse(&quizzes[i]))
	}
	return responses
}

// NewOutboxResponse создает DTO для outbox-записи
func NewOutboxResponse(entry *entity.OutboxEntry) *OutboxResponse {
	return &OutboxResponse{
		ID:         entry.ID,
		DocumentID: entry.DocumentID,
		Status:     entry.Status,
		CreatedAt:  entry.CreatedAt,
	}
}
