package entity

import (
	"time"
)

// Типы транзакций в истории баланса
const (
	TransactionTypeDeposit    = "DEPOSIT"
	TransactionTypeWithdrawal = "WITHDRAWAL"
)

// Источники изменения баланса
const (
	StarSourceReward  = "REWARD"
	StarSourcePayment = "PAYMENT"
	StarSourceService = "SERVICE"
	StarSourceSignUp  = "SIGN_UP"
)

// Star — баланс внутренней валюты пользователя
type Star struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MemberID  uint      `gorm:"not null;uniqueIndex" json:"member_id"`
	Balance   int       `gorm:"not null;default:0" json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Star) TableName() string {
	return "stars"
}

// CanWithdraw проверяет, достаточно ли баланса для списания
func (s *Star) CanWithdraw(amount int) bool {
	return amount > 0 && s.Balance >= amount
}

// StarHistory — append-only история изменений баланса.
// Инвариант: BalanceAfter каждой строки равен балансу сразу после
// применения ChangeAmount, при чтении строк в порядке создания
type StarHistory struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	StarID          uint      `gorm:"not null;index" json:"star_id"`
	Description     string    `gorm:"size:300;not null" json:"description"`
	ChangeAmount    int       `gorm:"not null" json:"change_amount"`
	BalanceAfter    int       `gorm:"not null" json:"balance_after"`
	TransactionType string    `gorm:"size:20;not null" json:"transaction_type"`
	Source          string    `gorm:"size:20;not null" json:"source"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (StarHistory) TableName() string {
	return "star_history"
}

// NewDepositHistory создает строку истории для пополнения баланса.
// balanceBefore — баланс до применения amount
func NewDepositHistory(starID uint, amount, balanceBefore int, source, description string) StarHistory {
	return StarHistory{
		StarID:          starID,
		Description:     description,
		ChangeAmount:    amount,
		BalanceAfter:    balanceBefore + amount,
		TransactionType: TransactionTypeDeposit,
		Source:          source,
	}
}
