package repository

import (
	"time"
)

// CacheRepository определяет методы для работы с кешем.
// Воркер кеширует скачанное содержимое документа между проходами
// генерации метаданных и квизов
type CacheRepository interface {
	Set(key string, value interface{}, expiration time.Duration) error
	Get(key string) (string, error)
	Delete(key string) error
	Exists(key string) (bool, error)
}
