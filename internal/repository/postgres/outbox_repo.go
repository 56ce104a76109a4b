package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/yourusername/quizgen-worker/internal/domain/entity"
	"github.com/yourusername/quizgen-worker/internal/domain/repository"
	apperrors "github.com/yourusername/quizgen-worker/internal/pkg/errors"
)

// OutboxRepo реализует repository.OutboxRepository
type OutboxRepo struct {
	db *gorm.DB
}

// NewOutboxRepo создает новый репозиторий outbox-записей
func NewOutboxRepo(db *gorm.DB) *OutboxRepo {
	return &OutboxRepo{db: db}
}

// GetByDocumentID возвращает запись outbox для документа
func (r *OutboxRepo) GetByDocumentID(documentID uint) (*entity.OutboxEntry, error) {
	var entry entity.OutboxEntry
	err := r.db.Where("document_id = ?", documentID).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// Create создает запись в статусе WAITING.
// Unique index по document_id гарантирует не более одной задачи на документ
func (r *OutboxRepo) Create(documentID uint) (*entity.OutboxEntry, error) {
	entry := &entity.OutboxEntry{
		DocumentID: documentID,
		Status:     entity.OutboxStatusWaiting,
	}
	if err := r.db.Create(entry).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: document #%d", repository.ErrJobAlreadyPending, documentID)
		}
		return nil, err
	}
	return entry, nil
}

// ClaimForProcessing атомарно переводит WAITING → PROCESSING.
// - RowsAffected == 0 → запись захвачена другим воркером (или удалена)
// - Другая DB ошибка → возвращается как есть
func (r *OutboxRepo) ClaimForProcessing(documentID uint) error {
	result := r.db.Model(&entity.OutboxEntry{}).
		Where("document_id = ? AND status = ?", documentID, entity.OutboxStatusWaiting).
		Update("status", entity.OutboxStatusProcessing)

	if result.Error != nil {
		return fmt.Errorf("claim outbox entry for document #%d failed: %w", documentID, result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: document #%d", repository.ErrJobAlreadyClaimed, documentID)
	}

	return nil
}

// Delete удаляет запись outbox по завершении задачи
func (r *OutboxRepo) Delete(documentID uint) error {
	return r.db.Where("document_id = ?", documentID).
		Delete(&entity.OutboxEntry{}).Error
}

// isUniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
func isUniqueViolation(err error) bool {
	// pgx/v5 driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}
