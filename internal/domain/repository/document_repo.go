package repository

import (
	"gorm.io/gorm"

	"github.com/yourusername/quizgen-worker/internal/domain/entity"
)

// DocumentMetadata — результат генерации метаданных документа
type DocumentMetadata struct {
	Emoji      string
	Title      string
	CategoryID uint
}

// DocumentRepository определяет методы для работы с документами
type DocumentRepository interface {
	GetByID(id uint) (*entity.Document, error)
	// UpdateGenerationStatus точечно обновляет quiz_generation_status
	UpdateGenerationStatus(documentID uint, status string) error
	// SetGenerationError в рамках транзакции переводит документ в
	// QUIZ_GENERATION_ERROR и скрывает его (is_public=false)
	SetGenerationError(tx *gorm.DB, documentID uint) error
	// UpdateMetadata записывает emoji, название и категорию документа
	UpdateMetadata(documentID uint, meta DocumentMetadata) error
	// ClearMetadata обнуляет emoji и название, ставит категорию-заглушку.
	// Вызывается, когда генерация метаданных не удалась
	ClearMetadata(documentID uint, fallbackCategoryID uint) error
}
