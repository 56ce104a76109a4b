package entity

import (
	"time"
)

// Константы статусов генерации квизов для документа
const (
	DocumentStatusUnprocessed         = "UNPROCESSED"
	DocumentStatusProcessed           = "PROCESSED"
	DocumentStatusPartialSuccess      = "PARTIAL_SUCCESS"
	DocumentStatusCompletelyFailed    = "COMPLETELY_FAILED"
	DocumentStatusQuizGenerationError = "QUIZ_GENERATION_ERROR"
)

// Языки документа, для которых есть отдельные промпты
const (
	DocumentLanguageEN = "en"
	DocumentLanguageKO = "ko"
)

// Document представляет загруженный пользователем документ,
// из которого генерируются квизы и метаданные
type Document struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	MemberID             uint      `gorm:"not null;index" json:"member_id"`
	S3Key                string    `gorm:"size:512;not null" json:"s3_key"`
	Name                 *string   `gorm:"size:300" json:"name"`
	Emoji                *string   `gorm:"size:16" json:"emoji"`
	CategoryID           *uint     `json:"category_id"`
	Language             string    `gorm:"size:8;not null;default:'en'" json:"language"`
	QuizGenerationStatus string    `gorm:"size:30;not null;default:'UNPROCESSED';index" json:"quiz_generation_status"`
	IsPublic             bool      `gorm:"not null;default:true" json:"is_public"`
	Quizzes              []Quiz    `gorm:"foreignKey:DocumentID" json:"quizzes,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Document) TableName() string {
	return "documents"
}

// IsProcessed проверяет, завершилась ли генерация полностью успешно
func (d *Document) IsProcessed() bool {
	return d.QuizGenerationStatus == DocumentStatusProcessed
}

// HasGenerationError проверяет, завершилась ли генерация компенсацией
func (d *Document) HasGenerationError() bool {
	return d.QuizGenerationStatus == DocumentStatusQuizGenerationError
}

// PromptLanguage возвращает язык для выбора промпта метаданных.
// Неизвестные языки трактуются как английский
func (d *Document) PromptLanguage() string {
	if d.Language == DocumentLanguageKO {
		return DocumentLanguageKO
	}
	return DocumentLanguageEN
}
