package entity

import (
	"time"
)

// Статусы записи outbox. Отсутствие записи означает,
// что для документа нет ожидающей задачи генерации
const (
	OutboxStatusWaiting    = "WAITING"
	OutboxStatusProcessing = "PROCESSING"
)

// OutboxEntry — запись о задаче генерации для документа.
// Инвариант: не более одной записи на документ (unique document_id),
// запись в статусе PROCESSING нельзя захватить повторно
type OutboxEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID uint      `gorm:"not null;uniqueIndex" json:"document_id"`
	Status     string    `gorm:"size:20;not null;default:'WAITING'" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (OutboxEntry) TableName() string {
	return "outbox"
}

// IsWaiting проверяет, ждет ли задача обработки
func (o *OutboxEntry) IsWaiting() bool {
	return o.Status == OutboxStatusWaiting
}

// IsProcessing проверяет, обрабатывается ли задача другим воркером
func (o *OutboxEntry) IsProcessing() bool {
	return o.Status == OutboxStatusProcessing
}
