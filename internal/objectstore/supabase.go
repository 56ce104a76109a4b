package objectstore

import (
	"context"
	"fmt"
	"strings"

	storage "github.com/supabase-community/storage-go"

	apperrors "github.com/yourusername/quizgen-worker/internal/pkg/errors"
)

// SupabaseStore реализует ObjectStore поверх Supabase Storage
type SupabaseStore struct {
	client *storage.Client
	bucket string
}

// NewSupabaseStore создает клиент объектного хранилища.
// baseURL — адрес проекта без суффикса /storage/v1
func NewSupabaseStore(baseURL, apiKey, bucket string) (*SupabaseStore, error) {
	if baseURL == "" || apiKey == "" || bucket == "" {
		return nil, fmt.Errorf("storage url, api key and bucket are required")
	}
	return &SupabaseStore{
		client: storage.NewClient(baseURL+"/storage/v1", apiKey, nil),
		bucket: bucket,
	}, nil
}

// Get скачивает объект по ключу
func (s *SupabaseStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.DownloadFile(s.bucket, key)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("download %s from bucket %s failed: %w", key, s.bucket, err)
	}
	return data, nil
}

// isNotFound распознает ответ 404 от Storage API.
// storage-go не возвращает типизированную ошибку, только текст ответа
func isNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not_found") ||
		strings.Contains(msg, "not found") ||
		strings.Contains(msg, "404")
}
