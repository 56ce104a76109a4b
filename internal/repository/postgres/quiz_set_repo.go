package postgres

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/quizgen-worker/internal/domain/entity"
)

// QuizSetRepo реализует repository.QuizSetRepository
type QuizSetRepo struct {
	db *gorm.DB
}

// NewQuizSetRepo создает новый репозиторий подборок квизов
func NewQuizSetRepo(db *gorm.DB) *QuizSetRepo {
	return &QuizSetRepo{db: db}
}

// CreateWithQuizzes создает сет, связки и инкрементирует delivered_count
// каждого доставленного квиза в одной транзакции
func (r *QuizSetRepo) CreateWithQuizzes(set *entity.QuizSet, quizIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(set).Error; err != nil {
			return fmt.Errorf("quiz set insert failed: %w", err)
		}

		links := make([]entity.QuizSetQuiz, 0, len(quizIDs))
		for _, quizID := range quizIDs {
			links = append(links, entity.QuizSetQuiz{
				QuizID:    quizID,
				QuizSetID: set.ID,
			})
		}
		if err := tx.Create(&links).Error; err != nil {
			return fmt.Errorf("quiz set links insert failed: %w", err)
		}

		err := tx.Model(&entity.Quiz{}).
			Where("id IN ?", quizIDs).
			Update("delivered_count", gorm.Expr("delivered_count + 1")).
			Error
		if err != nil {
			return fmt.Errorf("delivered_count update failed: %w", err)
		}

		return nil
	})
}
