package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/yourusername/quizgen-worker/internal/domain/entity"
	"github.com/yourusername/quizgen-worker/internal/domain/repository"
	"github.com/yourusername/quizgen-worker/internal/llm"
	"github.com/yourusername/quizgen-worker/internal/notifier"
	"github.com/yourusername/quizgen-worker/internal/service/genworker"
)

// Имена файлов промптов метаданных по языку документа
const (
	promptDocumentDataEN = "generate_en_document_data.txt"
	promptDocumentDataKO = "generate_ko_document_data.txt"
)

// DocumentDataService генерирует метаданные документа (emoji, название,
// категория) одним запросом к LLM. Проще оркестратора квизов: без
// сегментации, без компенсаций — при любой неудаче метаданные явно
// обнуляются с категорией-заглушкой
type DocumentDataService struct {
	documentRepo repository.DocumentRepository
	fetcher      *ContentFetcher
	llmClient    llm.Client
	notifier     notifier.Notifier
	config       *genworker.Config
}

// NewDocumentDataService создает новый сервис метаданных
func NewDocumentDataService(
	documentRepo repository.DocumentRepository,
	fetcher *ContentFetcher,
	llmClient llm.Client,
	ntf notifier.Notifier,
	config *genworker.Config,
) *DocumentDataService {
	return &DocumentDataService{
		documentRepo: documentRepo,
		fetcher:      fetcher,
		llmClient:    llmClient,
		notifier:     ntf,
		config:       config,
	}
}

// documentMetadataResponse — ожидаемая форма ответа модели
type documentMetadataResponse struct {
	Emoji      *string `json:"emoji"`
	Title      *string `json:"title"`
	CategoryID *uint   `json:"category_id"`
}

// Generate выполняет проход метаданных для документа.
// Ошибки LLM не возвращаются наружу: документ получает обнуленные
// метаданные, отчет уходит нотификатору. Ошибка возвращается только
// при отказе персистентности или хранилища
func (s *DocumentDataService) Generate(ctx context.Context, documentID uint, s3Key string) error {
	log.Printf("[DocumentData] start: document=%d", documentID)

	doc, err := s.documentRepo.GetByID(documentID)
	if err != nil {
		return fmt.Errorf("load document #%d: %w", documentID, err)
	}

	content, err := s.fetcher.Fetch(ctx, documentID, s3Key)
	if err != nil {
		return err
	}

	promptFile := promptDocumentDataEN
	if doc.PromptLanguage() == entity.DocumentLanguageKO {
		promptFile = promptDocumentDataKO
	}

	messages, err := llm.LoadPromptMessages(filepath.Join(s.config.PromptDir, promptFile))
	if err != nil {
		return err
	}
	filled := llm.FillPlaceholders(messages, map[string]string{"note": content})

	meta, ok := s.predictMetadata(ctx, documentID, s3Key, content, filled)
	if !ok {
		log.Printf("[DocumentData] document=%d metadata generation failed, clearing", documentID)
		return s.documentRepo.ClearMetadata(documentID, s.config.FallbackCategoryID)
	}

	log.Printf("[DocumentData] document=%d emoji=%s title=%s category=%d",
		documentID, meta.Emoji, meta.Title, meta.CategoryID)
	return s.documentRepo.UpdateMetadata(documentID, meta)
}

// predictMetadata вызывает модель и валидирует ответ.
// ok=false при любой ошибке вызова или неполном ответе
func (s *DocumentDataService) predictMetadata(
	ctx context.Context,
	documentID uint,
	s3Key string,
	content string,
	messages []llm.ChatMessage,
) (repository.DocumentMetadata, bool) {
	raw, err := s.llmClient.PredictJSON(ctx, messages)
	if err != nil {
		s.reportFailure(ctx, documentID, s3Key, content, err)
		return repository.DocumentMetadata{}, false
	}

	var resp documentMetadataResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		s.reportFailure(ctx, documentID, s3Key, content, fmt.Errorf(
			"metadata response does not match the expected shape: %w", err))
		return repository.DocumentMetadata{}, false
	}

	if resp.Emoji == nil || resp.Title == nil || resp.CategoryID == nil {
		return repository.DocumentMetadata{}, false
	}

	return repository.DocumentMetadata{
		Emoji:      *resp.Emoji,
		Title:      *resp.Title,
		CategoryID: *resp.CategoryID,
	}, true
}

func (s *DocumentDataService) reportFailure(ctx context.Context, documentID uint, s3Key, content string, err error) {
	report := notifier.LLMErrorReport{
		Task:            "Document Data Generation",
		ErrorType:       notifier.ErrorTypeGeneral,
		DocumentID:      documentID,
		S3Key:           s3Key,
		DocumentContent: content,
		ErrorMessage:    err.Error(),
	}

	var invalidJSON *llm.InvalidJSONResponseError
	if errors.As(err, &invalidJSON) {
		report.ErrorType = notifier.ErrorTypeInvalidJSON
		report.LLMResponse = invalidJSON.RawResponse
		report.ErrorMessage = "LLM response is not JSON-decodable"
	}

	s.notifier.ReportLLMError(ctx, report)
}
