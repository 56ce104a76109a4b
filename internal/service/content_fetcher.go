package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/quizgen-worker/internal/domain/repository"
	"github.com/yourusername/quizgen-worker/internal/objectstore"
	apperrors "github.com/yourusername/quizgen-worker/internal/pkg/errors"
)

// ContentFetcher скачивает содержимое документа из объектного хранилища
// с кешированием: проходы метаданных и квизов для одной задачи используют
// один и тот же объект, второго скачивания не происходит
type ContentFetcher struct {
	cacheRepo repository.CacheRepository
	store     objectstore.ObjectStore
	cacheTTL  time.Duration
}

// NewContentFetcher создает новый фетчер содержимого
func NewContentFetcher(cacheRepo repository.CacheRepository, store objectstore.ObjectStore, cacheTTL time.Duration) *ContentFetcher {
	return &ContentFetcher{
		cacheRepo: cacheRepo,
		store:     store,
		cacheTTL:  cacheTTL,
	}
}

// Fetch возвращает содержимое документа как текст
func (f *ContentFetcher) Fetch(ctx context.Context, documentID uint, s3Key string) (string, error) {
	cacheKey := fmt.Sprintf("document:content:%d", documentID)

	if f.cacheRepo != nil {
		cached, err := f.cacheRepo.Get(cacheKey)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			// Кеш недоступен — не критично, скачиваем напрямую
			log.Printf("[ContentFetcher] cache get failed for document %d: %v", documentID, err)
		}
	}

	data, err := f.store.Get(ctx, s3Key)
	if err != nil {
		return "", fmt.Errorf("fetch document #%d content: %w", documentID, err)
	}

	content := string(data)

	if f.cacheRepo != nil {
		if err := f.cacheRepo.Set(cacheKey, content, f.cacheTTL); err != nil {
			log.Printf("[ContentFetcher] cache set failed for document %d: %v", documentID, err)
		}
	}

	return content, nil
}
