package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrValidation используется для ошибок валидации входных данных
	// (например, неполный payload задачи). Фатальна: задача отклоняется
	// до каких-либо побочных эффектов и не ретраится.
	ErrValidation = errors.New("validation failed")

	// ErrObjectNotFound используется, когда объект отсутствует в хранилище.
	ErrObjectNotFound = errors.New("object not found in storage")

	// ErrConflict используется для конфликтов состояния (например, попытка
	// повторно поставить в очередь документ с активной задачей).
	ErrConflict = errors.New("resource state conflict")
)
