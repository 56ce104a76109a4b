package repository

import (
	"github.com/yourusername/quizgen-worker/internal/domain/entity"
)

// OutboxRepository определяет методы для работы с outbox-записями задач генерации
type OutboxRepository interface {
	// GetByDocumentID возвращает запись для документа.
	// Если записи нет — apperrors.ErrNotFound
	GetByDocumentID(documentID uint) (*entity.OutboxEntry, error)
	// Create создает запись в статусе WAITING.
	// Unique violation по document_id → ErrJobAlreadyPending
	Create(documentID uint) (*entity.OutboxEntry, error)
	// ClaimForProcessing атомарно переводит WAITING → PROCESSING.
	// RowsAffected == 0 означает, что запись уже захвачена другим
	// воркером или удалена → ErrJobAlreadyClaimed
	ClaimForProcessing(documentID uint) error
	// Delete удаляет запись по завершении задачи,
	// открывая возможность повторной генерации
	Delete(documentID uint) error
}
