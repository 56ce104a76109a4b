package postgres

import (
	"gorm.io/gorm"

	"github.com/yourusername/quizgen-worker/internal/domain/entity"
)

// QuizRepo реализует repository.QuizRepository
type QuizRepo struct {
	db *gorm.DB
}

// NewQuizRepo создает новый репозиторий квизов
func NewQuizRepo(db *gorm.DB) *QuizRepo {
	return &QuizRepo{db: db}
}

// CreateWithOptions вставляет квиз вместе с вариантами ответа.
// GORM каскадно создаст Options через ассоциацию
func (r *QuizRepo) CreateWithOptions(quiz *entity.Quiz) error {
	return r.db.Create(quiz).Error
}

// MarkAllNotLatest снимает флаг is_latest со всех квизов документа
func (r *QuizRepo) MarkAllNotLatest(documentID uint) error {
	return r.db.Model(&entity.Quiz{}).
		Where("document_id = ?", documentID).
		Update("is_latest", false).
		Error
}

// DeleteLatestByDocument удаляет квизы текущего прохода вместе с вариантами.
// Варианты удаляются первыми, чтобы не осталось висячих строк
func (r *QuizRepo) DeleteLatestByDocument(tx *gorm.DB, documentID uint) error {
	err := tx.Where("quiz_id IN (?)",
		tx.Model(&entity.Quiz{}).
			Select("id").
			Where("document_id = ? AND is_latest = ?", documentID, true),
	).Delete(&entity.Option{}).Error
	if err != nil {
		return err
	}

	return tx.Where("document_id = ? AND is_latest = ?", documentID, true).
		Delete(&entity.Quiz{}).Error
}

// CountLatestByDocument возвращает число квизов текущего прохода
func (r *QuizRepo) CountLatestByDocument(documentID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entity.Quiz{}).
		Where("document_id = ? AND is_latest = ?", documentID, true).
		Count(&count).Error
	return count, err
}

// GetLatestByDocument возвращает квизы текущего прохода с вариантами ответа
func (r *QuizRepo) GetLatestByDocument(documentID uint) ([]entity.Quiz, error) {
	var quizzes []entity.Quiz
	err := r.db.Preload("Options").
		Where("document_id = ? AND is_latest = ?", documentID, true).
		Order("id").
		Find(&quizzes).Error
	if err != nil {
		return nil, err
	}
	return quizzes, nil
}
