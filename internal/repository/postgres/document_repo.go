package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/quizgen-worker/internal/domain/entity"
	"github.com/yourusername/quizgen-worker/internal/domain/repository"
	apperrors "github.com/yourusername/quizgen-worker/internal/pkg/errors"
)

// DocumentRepo реализует repository.DocumentRepository
type DocumentRepo struct {
	db *gorm.DB
}

// NewDocumentRepo создает новый репозиторий документов
func NewDocumentRepo(db *gorm.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// GetByID возвращает документ по ID
func (r *DocumentRepo) GetByID(id uint) (*entity.Document, error) {
	var doc entity.Document
	err := r.db.First(&doc, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// UpdateGenerationStatus точечно обновляет статус генерации
func (r *DocumentRepo) UpdateGenerationStatus(documentID uint, status string) error {
	return r.db.Model(&entity.Document{}).
		Where("id = ?", documentID).
		Update("quiz_generation_status", status).
		Error
}

// SetGenerationError переводит документ в QUIZ_GENERATION_ERROR и скрывает его.
// Выполняется в транзакции компенсации вместе с откатом квизов и рефандом
func (r *DocumentRepo) SetGenerationError(tx *gorm.DB, documentID uint) error {
	return tx.Model(&entity.Document{}).
		Where("id = ?", documentID).
		Updates(map[string]interface{}{
			"quiz_generation_status": entity.DocumentStatusQuizGenerationError,
			"is_public":              false,
		}).Error
}

// UpdateMetadata записывает сгенерированные emoji, название и категорию
func (r *DocumentRepo) UpdateMetadata(documentID uint, meta repository.DocumentMetadata) error {
	return r.db.Model(&entity.Document{}).
		Where("id = ?", documentID).
		Updates(map[string]interface{}{
			"emoji":       meta.Emoji,
			"name":        meta.Title,
			"category_id": meta.CategoryID,
		}).Error
}

// ClearMetadata обнуляет метаданные документа и ставит категорию-заглушку
func (r *DocumentRepo) ClearMetadata(documentID uint, fallbackCategoryID uint) error {
	return r.db.Model(&entity.Document{}).
		Where("id = ?", documentID).
		Updates(map[string]interface{}{
			"emoji":       nil,
			"name":        nil,
			"category_id": fallbackCategoryID,
		}).Error
}
