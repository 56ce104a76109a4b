package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// QuizSet — подборка квизов, доставляемая пользователю как "квизы дня".
// Первый сет собирается воркером сразу после первой успешной генерации
type QuizSet struct {
	ID             string        `gorm:"primaryKey;size:32" json:"id"`
	Solved         bool          `gorm:"not null;default:false" json:"solved"`
	IsTodayQuizSet bool          `gorm:"not null;default:false" json:"is_today_quiz_set"`
	MemberID       uint          `gorm:"not null;index" json:"member_id"`
	Quizzes        []QuizSetQuiz `gorm:"foreignKey:QuizSetID" json:"quizzes,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (QuizSet) TableName() string {
	return "quiz_set"
}

// QuizSetQuiz связывает квиз с подборкой
type QuizSetQuiz struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	QuizID    uint      `gorm:"not null;index" json:"quiz_id"`
	QuizSetID string    `gorm:"size:32;not null;index" json:"quiz_set_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (QuizSetQuiz) TableName() string {
	return "quiz_set_quiz"
}

// NewTodayQuizSet создает сет "квизов дня" с hex-идентификатором
func NewTodayQuizSet(memberID uint) *QuizSet {
	return &QuizSet{
		ID:             strings.ReplaceAll(uuid.NewString(), "-", ""),
		Solved:         false,
		IsTodayQuizSet: true,
		MemberID:       memberID,
	}
}
