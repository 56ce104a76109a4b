package objectstore

import (
	"context"
)

// ObjectStore — абстракция объектного хранилища с загруженными документами
type ObjectStore interface {
	// Get скачивает объект по ключу. Отсутствующий объект —
	// apperrors.ErrObjectNotFound; остальные ошибки transient
	Get(ctx context.Context, key string) ([]byte, error)
}
