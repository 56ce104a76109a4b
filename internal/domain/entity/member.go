package entity

import (
	"time"
)

// Member — пользователь, владелец документов и баланса звезд.
// Воркеру нужна только часть полей: счетчик AI Pick определяет,
// собирать ли для пользователя первый сет "квизов дня"
type Member struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AIPickCount int       `gorm:"column:ai_pick_count;not null;default:0" json:"ai_pick_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Member) TableName() string {
	return "member"
}

// IsFirstAIPick проверяет, первая ли это генерация пользователя
func (m *Member) IsFirstAIPick() bool {
	return m.AIPickCount == 1
}
