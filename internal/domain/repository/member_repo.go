package repository

import (
	"github.com/yourusername/quizgen-worker/internal/domain/entity"
)

// MemberRepository определяет методы для работы с пользователями
type MemberRepository interface {
	GetByID(id uint) (*entity.Member, error)
}
