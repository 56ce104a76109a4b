package entity

import (
	"time"
)

// Типы квизов
const (
	QuizTypeMultipleChoice = "MULTIPLE_CHOICE"
	QuizTypeMixUp          = "MIX_UP"
)

// Ответы для квизов типа MIX_UP (утверждение верно/неверно)
const (
	MixUpAnswerCorrect   = "correct"
	MixUpAnswerIncorrect = "incorrect"
)

// MultipleChoiceOptionCount — обязательное число вариантов ответа.
// Вопрос с другим числом вариантов отбрасывается целиком
const MultipleChoiceOptionCount = 4

// Quiz представляет один сгенерированный вопрос для документа
type Quiz struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	DocumentID           uint      `gorm:"not null;index" json:"document_id"`
	Question             string    `gorm:"size:1000;not null" json:"question"`
	Answer               string    `gorm:"size:500;not null" json:"answer"`
	Explanation          string    `gorm:"size:1000;not null;default:''" json:"explanation"`
	QuizType             string    `gorm:"size:20;not null;index" json:"quiz_type"`
	DeliveredCount       int       `gorm:"not null;default:0" json:"delivered_count"`
	CorrectAnswerCount   int       `gorm:"not null;default:0" json:"correct_answer_count"`
	IncorrectAnswerCount int       `gorm:"not null;default:0" json:"incorrect_answer_count"`
	IsReviewNeeded       bool      `gorm:"not null;default:false" json:"is_review_needed"`
	IsLatest             bool      `gorm:"not null;default:true;index" json:"is_latest"`
	Options              []Option  `gorm:"foreignKey:QuizID" json:"options,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Quiz) TableName() string {
	return "quizzes"
}

// IsMultipleChoice проверяет, является ли квиз вопросом с вариантами ответа
func (q *Quiz) IsMultipleChoice() bool {
	return q.QuizType == QuizTypeMultipleChoice
}

// HasValidOptions проверяет инвариант вариантов ответа:
// для MULTIPLE_CHOICE ровно 4 варианта, для MIX_UP вариантов нет
func (q *Quiz) HasValidOptions() bool {
	if q.IsMultipleChoice() {
		return len(q.Options) == MultipleChoiceOptionCount
	}
	return len(q.Options) == 0
}

// Option представляет один вариант ответа для квиза MULTIPLE_CHOICE
type Option struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	QuizID    uint      `gorm:"not null;index" json:"quiz_id"`
	Content   string    `gorm:"size:500;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Option) TableName() string {
	return "options"
}
