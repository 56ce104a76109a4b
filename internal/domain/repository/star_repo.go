package repository

import (
	"gorm.io/gorm"

	"github.com/yourusername/quizgen-worker/internal/domain/entity"
)

// StarRepository определяет методы для работы с балансом звезд
type StarRepository interface {
	GetByMemberID(memberID uint) (*entity.Star, error)
	// Refund начисляет amount звезд обратно и пишет строку истории
	// с balance_after. Выполняется внутри переданной транзакции —
	// компенсация атомарна вместе с откатом квизов и статусом документа
	Refund(tx *gorm.DB, memberID uint, amount int, description string) error
	// Withdraw списывает amount звезд и пишет строку истории.
	// При недостаточном балансе — ErrInsufficientBalance
	Withdraw(tx *gorm.DB, memberID uint, amount int, description string) error
	// GetHistory возвращает историю изменений баланса в порядке создания
	GetHistory(memberID uint, limit int) ([]entity.StarHistory, error)
}
