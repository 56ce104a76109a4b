package repository

import "errors"

var (
	// ErrJobAlreadyClaimed означает, что запись outbox уже захвачена другим воркером
	// (или удалена между чтением и захватом). Дубликат доставки — не ошибка задачи.
	ErrJobAlreadyClaimed = errors.New("outbox entry is already claimed by another worker")
	// ErrJobAlreadyPending означает, что для документа уже существует запись outbox.
	ErrJobAlreadyPending = errors.New("outbox entry already exists for this document")
	// ErrInsufficientBalance означает, что на балансе недостаточно звезд для списания.
	ErrInsufficientBalance = errors.New("star balance is insufficient")
)
