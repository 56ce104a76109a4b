package repository

import (
	"github.com/yourusername/quizgen-worker/internal/domain/entity"
)

// QuizSetRepository определяет методы для работы с подборками квизов
type QuizSetRepository interface {
	// CreateWithQuizzes атомарно создает сет, связки quiz_set_quiz и
	// инкрементирует delivered_count каждого доставленного квиза
	CreateWithQuizzes(set *entity.QuizSet, quizIDs []uint) error
}
