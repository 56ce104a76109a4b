package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/quizgen-worker/internal/domain/entity"
	apperrors "github.com/yourusername/quizgen-worker/internal/pkg/errors"
)

// MemberRepo реализует repository.MemberRepository
type MemberRepo struct {
	db *gorm.DB
}

// NewMemberRepo создает новый репозиторий пользователей
func NewMemberRepo(db *gorm.DB) *MemberRepo {
	return &MemberRepo{db: db}
}

// GetByID возвращает пользователя по идентификатору
func (r *MemberRepo) GetByID(id uint) (*entity.Member, error) {
	var member entity.Member
	err := r.db.First(&member, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &member, nil
}
