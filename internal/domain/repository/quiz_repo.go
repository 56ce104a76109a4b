package repository

import (
	"gorm.io/gorm"

	"github.com/yourusername/quizgen-worker/internal/domain/entity"
)

// QuizRepository определяет методы для работы с квизами
type QuizRepository interface {
	// CreateWithOptions вставляет квиз вместе с его вариантами ответа.
	// Вставка немедленная (не батч): частичный прогресс переживает
	// падение последующих сегментов
	CreateWithOptions(quiz *entity.Quiz) error
	// MarkAllNotLatest снимает флаг is_latest со всех квизов документа
	// перед новым проходом генерации
	MarkAllNotLatest(documentID uint) error
	// DeleteLatestByDocument удаляет квизы текущего прохода (is_latest=true)
	// в рамках компенсирующей транзакции
	DeleteLatestByDocument(tx *gorm.DB, documentID uint) error
	// CountLatestByDocument возвращает число квизов текущего прохода
	CountLatestByDocument(documentID uint) (int64, error)
	// GetLatestByDocument возвращает квизы текущего прохода с вариантами
	GetLatestByDocument(documentID uint) ([]entity.Quiz, error)
}
