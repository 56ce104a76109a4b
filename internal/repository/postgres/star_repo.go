package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/quizgen-worker/internal/domain/entity"
	"github.com/yourusername/quizgen-worker/internal/domain/repository"
	apperrors "github.com/yourusername/quizgen-worker/internal/pkg/errors"
)

// StarRepo реализует repository.StarRepository
type StarRepo struct {
	db *gorm.DB
}

// NewStarRepo создает новый репозиторий баланса звезд
func NewStarRepo(db *gorm.DB) *StarRepo {
	return &StarRepo{db: db}
}

// GetByMemberID возвращает баланс пользователя
func (r *StarRepo) GetByMemberID(memberID uint) (*entity.Star, error) {
	var star entity.Star
	err := r.db.Where("member_id = ?", memberID).First(&star).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &star, nil
}

// Refund начисляет amount звезд обратно и пишет строку истории с balance_after.
// Баланс читается с блокировкой строки внутри tx, чтобы snapshot в истории
// не разошелся с фактическим балансом при конкурентных изменениях
func (r *StarRepo) Refund(tx *gorm.DB, memberID uint, amount int, description string) error {
	star, err := lockStar(tx, memberID)
	if err != nil {
		return err
	}

	if err := tx.Model(&entity.Star{}).
		Where("id = ?", star.ID).
		Update("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
		return fmt.Errorf("refund balance update failed: %w", err)
	}

	history := entity.NewDepositHistory(star.ID, amount, star.Balance, entity.StarSourceService, description)
	if err := tx.Create(&history).Error; err != nil {
		return fmt.Errorf("refund history insert failed: %w", err)
	}

	return nil
}

// Withdraw списывает amount звезд и пишет строку истории
func (r *StarRepo) Withdraw(tx *gorm.DB, memberID uint, amount int, description string) error {
	star, err := lockStar(tx, memberID)
	if err != nil {
		return err
	}

	if !star.CanWithdraw(amount) {
		return fmt.Errorf("%w: member #%d has %d, requested %d",
			repository.ErrInsufficientBalance, memberID, star.Balance, amount)
	}

	if err := tx.Model(&entity.Star{}).
		Where("id = ?", star.ID).
		Update("balance", gorm.Expr("balance - ?", amount)).Error; err != nil {
		return fmt.Errorf("withdraw balance update failed: %w", err)
	}

	history := entity.StarHistory{
		StarID:          star.ID,
		Description:     description,
		ChangeAmount:    -amount,
		BalanceAfter:    star.Balance - amount,
		TransactionType: entity.TransactionTypeWithdrawal,
		Source:          entity.StarSourceService,
	}
	if err := tx.Create(&history).Error; err != nil {
		return fmt.Errorf("withdraw history insert failed: %w", err)
	}

	return nil
}

// GetHistory возвращает историю изменений баланса в порядке создания
func (r *StarRepo) GetHistory(memberID uint, limit int) ([]entity.StarHistory, error) {
	star, err := r.GetByMemberID(memberID)
	if err != nil {
		return nil, err
	}

	var history []entity.StarHistory
	err = r.db.Where("star_id = ?", star.ID).
		Order("id").
		Limit(limit).
		Find(&history).Error
	if err != nil {
		return nil, err
	}
	return history, nil
}

// lockStar читает баланс с FOR UPDATE внутри транзакции
func lockStar(tx *gorm.DB, memberID uint) (*entity.Star, error) {
	var star entity.Star
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("member_id = ?", memberID).
		First(&star).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &star, nil
}
