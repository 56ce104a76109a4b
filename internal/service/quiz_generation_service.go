package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yourusername/quizgen-worker/internal/domain/entity"
	"github.com/yourusername/quizgen-worker/internal/domain/repository"
	"github.com/yourusername/quizgen-worker/internal/llm"
	"github.com/yourusername/quizgen-worker/internal/notifier"
	apperrors "github.com/yourusername/quizgen-worker/internal/pkg/errors"
	"github.com/yourusername/quizgen-worker/internal/service/genworker"
)

// Стили генерации. Каждый стиль обрабатывается отдельным воркером
// со своим промптом и владеет своими строками quizzes (disjoint по quiz_type)
const (
	styleMultipleChoice = "multiple_choice"
	styleMixUp          = "ox"
)

// Имена файлов промптов
const (
	promptMultipleChoice = "generate_multiple_choice_quiz.txt"
	promptMixUp          = "generate_mix_up_quiz.txt"
)

const refundDescription = "Star refund for failed quiz generation"

// txManager — транзакционный запуск компенсации. *gorm.DB подходит напрямую
type txManager interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// GenerationJob — валидированный payload задачи генерации
type GenerationJob struct {
	DocumentID uint
	S3Key      string
	MemberID   uint
	// StarCount — сколько звезд пользователь потратил на генерацию;
	// эта сумма возвращается при компенсации
	StarCount int
	// QuizCount — целевое количество вопросов; 0 — цель не задана
	QuizCount int
}

// QuizGenerationService — оркестратор прохода генерации квизов.
// Управляет жизненным циклом outbox-записи, ведет воркеры стилей,
// принимает решение об исходе и выполняет компенсацию
type QuizGenerationService struct {
	documentRepo repository.DocumentRepository
	quizRepo     repository.QuizRepository
	outboxRepo   repository.OutboxRepository
	starRepo     repository.StarRepository
	memberRepo   repository.MemberRepository
	quizSetRepo  repository.QuizSetRepository
	fetcher      *ContentFetcher
	llmClient    llm.Client
	notifier     notifier.Notifier
	config       *genworker.Config
	db           txManager
}

// NewQuizGenerationService создает новый оркестратор
func NewQuizGenerationService(
	documentRepo repository.DocumentRepository,
	quizRepo repository.QuizRepository,
	outboxRepo repository.OutboxRepository,
	starRepo repository.StarRepository,
	memberRepo repository.MemberRepository,
	quizSetRepo repository.QuizSetRepository,
	fetcher *ContentFetcher,
	llmClient llm.Client,
	ntf notifier.Notifier,
	config *genworker.Config,
	db *gorm.DB,
) *QuizGenerationService {
	return &QuizGenerationService{
		documentRepo: documentRepo,
		quizRepo:     quizRepo,
		outboxRepo:   outboxRepo,
		starRepo:     starRepo,
		memberRepo:   memberRepo,
		quizSetRepo:  quizSetRepo,
		fetcher:      fetcher,
		llmClient:    llmClient,
		notifier:     ntf,
		config:       config,
		db:           db,
	}
}

// ProcessDocument выполняет один проход генерации для документа.
//
// Возврат nil без побочных эффектов — легитимный исход для дубликата
// доставки (записи outbox нет или она уже PROCESSING). Ошибка возвращается
// только при отказе персистентности: outbox-запись остается PROCESSING
// и блокирует повторную диспетчеризацию до ручного вмешательства
func (s *QuizGenerationService) ProcessDocument(ctx context.Context, job GenerationJob) error {
	log.Printf("[QuizGeneration] start: document=%d member=%d target=%d", job.DocumentID, job.MemberID, job.QuizCount)

	// Шаг 1: проверка и захват outbox-записи
	entry, err := s.outboxRepo.GetByDocumentID(job.DocumentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Задача уже обработана или невалидна — дубликат доставки
			log.Printf("[QuizGeneration] no outbox entry for document %d, skipping", job.DocumentID)
			return nil
		}
		return fmt.Errorf("read outbox entry: %w", err)
	}

	if entry.IsProcessing() {
		// Задачей владеет другой вызов — идемпотентный пропуск
		log.Printf("[QuizGeneration] document %d is already being processed, skipping", job.DocumentID)
		return nil
	}

	if err := s.outboxRepo.ClaimForProcessing(job.DocumentID); err != nil {
		if errors.Is(err, repository.ErrJobAlreadyClaimed) {
			// Проиграли гонку за WAITING-запись
			log.Printf("[QuizGeneration] document %d was claimed concurrently, skipping", job.DocumentID)
			return nil
		}
		return fmt.Errorf("claim outbox entry: %w", err)
	}

	// Шаг 2: предыдущее поколение квизов перестает быть актуальным
	if err := s.quizRepo.MarkAllNotLatest(job.DocumentID); err != nil {
		return fmt.Errorf("mark previous quizzes not latest: %w", err)
	}

	// Шаг 3: содержимое и сегментация
	content, err := s.fetcher.Fetch(ctx, job.DocumentID, job.S3Key)
	if err != nil {
		return err
	}
	segments := genworker.Segment(content, s.config.ChunkSize, s.config.ChunkOverlap)

	// Шаг 4: два воркера стилей поверх одних сегментов.
	// Join обязателен до решения об исходе и удаления outbox-записи
	counter := genworker.NewTargetCounter(job.QuizCount)
	statsByStyle := make([]genworker.PassStats, 2)

	g, gctx := errgroup.WithContext(ctx)
	for i, style := range []string{styleMultipleChoice, styleMixUp} {
		i, style := i, style
		g.Go(func() error {
			stats, err := s.runStyleWorker(gctx, job, style, segments, counter)
			statsByStyle[i] = stats
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("generation pass for document #%d: %w", job.DocumentID, err)
	}

	var stats genworker.PassStats
	stats.Merge(statsByStyle[0])
	stats.Merge(statsByStyle[1])

	// Шаг 5: исход
	outcome := genworker.DecideOutcome(stats, job.QuizCount, s.config.MinQuizCount)
	log.Printf("[QuizGeneration] document=%d outcome=%s total=%d succeededOnce=%v failedOnce=%v",
		job.DocumentID, outcome, stats.TotalQuizCount, stats.SucceededOnce, stats.FailedOnce)

	switch outcome {
	case genworker.OutcomeCompensate:
		if err := s.compensate(job); err != nil {
			return fmt.Errorf("compensation for document #%d: %w", job.DocumentID, err)
		}
	case genworker.OutcomePartialSuccess:
		if err := s.documentRepo.UpdateGenerationStatus(job.DocumentID, entity.DocumentStatusPartialSuccess); err != nil {
			return fmt.Errorf("update document status: %w", err)
		}
		s.buildFirstTodayQuizSet(job)
	case genworker.OutcomeProcessed:
		if err := s.documentRepo.UpdateGenerationStatus(job.DocumentID, entity.DocumentStatusProcessed); err != nil {
			return fmt.Errorf("update document status: %w", err)
		}
		s.buildFirstTodayQuizSet(job)
	}

	// Шаг 6: задача завершена, повторная генерация снова возможна
	if err := s.outboxRepo.Delete(job.DocumentID); err != nil {
		return fmt.Errorf("delete outbox entry: %w", err)
	}

	return nil
}

// compensate выполняет компенсирующую транзакцию: откат квизов прохода,
// рефанд потраченных звезд и перевод документа в QUIZ_GENERATION_ERROR
// с is_public=false. Все три шага атомарны — падение между ними не может
// оставить пользователя одновременно без квизов и без рефанда
func (s *QuizGenerationService) compensate(job GenerationJob) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.quizRepo.DeleteLatestByDocument(tx, job.DocumentID); err != nil {
			return err
		}
		if job.StarCount > 0 {
			if err := s.starRepo.Refund(tx, job.MemberID, job.StarCount, refundDescription); err != nil {
				return err
			}
		}
		return s.documentRepo.SetGenerationError(tx, job.DocumentID)
	})
}

// buildFirstTodayQuizSet собирает первый сет "квизов дня" для пользователя,
// если завершившийся проход был его первым AI Pick. Сет — случайная выборка
// квизов документа; у каждого доставленного квиза растет delivered_count.
// Шаг best-effort: генерация уже состоялась, поэтому ошибки сборки сета
// только логируются и не меняют исход прохода
func (s *QuizGenerationService) buildFirstTodayQuizSet(job GenerationJob) {
	member, err := s.memberRepo.GetByID(job.MemberID)
	if err != nil {
		log.Printf("[QuizGeneration] first quiz set: read member %d: %v", job.MemberID, err)
		return
	}
	if !member.IsFirstAIPick() {
		return
	}

	quizzes, err := s.quizRepo.GetLatestByDocument(job.DocumentID)
	if err != nil {
		log.Printf("[QuizGeneration] first quiz set: read quizzes for document %d: %v", job.DocumentID, err)
		return
	}
	if len(quizzes) == 0 {
		return
	}

	rand.Shuffle(len(quizzes), func(i, j int) {
		quizzes[i], quizzes[j] = quizzes[j], quizzes[i]
	})

	count := s.config.FirstQuizSetSize
	if count > len(quizzes) {
		count = len(quizzes)
	}
	quizIDs := make([]uint, 0, count)
	for _, q := range quizzes[:count] {
		quizIDs = append(quizIDs, q.ID)
	}

	set := entity.NewTodayQuizSet(job.MemberID)
	if err := s.quizSetRepo.CreateWithQuizzes(set, quizIDs); err != nil {
		log.Printf("[QuizGeneration] first quiz set: create set for member %d: %v", job.MemberID, err)
		return
	}

	log.Printf("[QuizGeneration] first quiz set %s created: member=%d quizzes=%d", set.ID, job.MemberID, len(quizIDs))
}

// generatedQuiz — один вопрос из ответа модели
type generatedQuiz struct {
	Type        string   `json:"type"`
	Question    string   `json:"question"`
	Answer      string   `json:"answer"`
	Options     []string `json:"options"`
	Explanation string   `json:"explanation"`
}

// generationResponse — ожидаемая форма JSON-ответа модели
type generationResponse struct {
	Quizzes []generatedQuiz `json:"quizzes"`
}

// runStyleWorker последовательно проходит сегменты для одного стиля.
// Последовательность обязательна: окно предыдущих вопросов для дедупликации
// поддерживается только при упорядоченной отправке запросов.
// Валидные вопросы вставляются немедленно; упавший сегмент фиксируется
// в статистике и не прерывает обработку остальных
func (s *QuizGenerationService) runStyleWorker(
	ctx context.Context,
	job GenerationJob,
	style string,
	segments []string,
	counter *genworker.TargetCounter,
) (genworker.PassStats, error) {
	var stats genworker.PassStats

	messages, err := llm.LoadPromptMessages(filepath.Join(s.config.PromptDir, promptFileForStyle(style)))
	if err != nil {
		return stats, err
	}

	var prevQuestions []string

	for _, segment := range segments {
		if counter.Reached() {
			break
		}

		filled := llm.FillPlaceholders(messages, map[string]string{
			"note":           segment,
			"prev_questions": strings.Join(prevQuestions, "\n"),
		})

		raw, err := s.llmClient.PredictJSON(ctx, filled)
		if err != nil {
			s.reportSegmentFailure(ctx, job, segment, err)
			stats.FailedOnce = true
			continue
		}

		var resp generationResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			s.reportSegmentFailure(ctx, job, segment, fmt.Errorf(
				"llm response is JSON decodable but does not match the expected shape: %w", err))
			stats.FailedOnce = true
			continue
		}

		// nil-слайс означает, что ключа 'quizzes' в ответе нет вовсе —
		// это падение сегмента, в отличие от честного пустого списка
		if resp.Quizzes == nil {
			s.reportSegmentFailure(ctx, job, segment, fmt.Errorf(
				"llm response is JSON decodable but does not have the 'quizzes' key: %s", raw))
			stats.FailedOnce = true
			continue
		}

		for _, q := range resp.Quizzes {
			quiz, ok := buildQuiz(q, style, job.DocumentID)
			if !ok {
				// Невалидный вопрос отбрасывается молча: не считается
				// в total и не роняет сегмент
				continue
			}

			if !counter.TryAcquire() {
				break
			}

			if err := s.quizRepo.CreateWithOptions(quiz); err != nil {
				return stats, fmt.Errorf("insert quiz: %w", err)
			}
			stats.TotalQuizCount++

			prevQuestions = append(prevQuestions, quiz.Question)
			if len(prevQuestions) > s.config.PrevQuestionWindow {
				prevQuestions = prevQuestions[1:]
			}
		}

		stats.SucceededOnce = true
	}

	return stats, nil
}

// reportSegmentFailure классифицирует ошибку сегмента и отправляет отчет.
// Отчет fire-and-forget: его неудача не влияет на проход
func (s *QuizGenerationService) reportSegmentFailure(ctx context.Context, job GenerationJob, segment string, err error) {
	report := notifier.LLMErrorReport{
		Task:            "Question Generation",
		ErrorType:       notifier.ErrorTypeGeneral,
		DocumentID:      job.DocumentID,
		S3Key:           job.S3Key,
		DocumentContent: segment,
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

// buildQuiz валидирует вопрос из ответа модели и собирает сущность.
// Отбрасываются: вопрос чужого стиля, пустые обязательные поля,
// multiple_choice с числом вариантов != 4 или ответом вне вариантов,
// ox с ответом вне {correct, incorrect}
func buildQuiz(q generatedQuiz, style string, documentID uint) (*entity.Quiz, bool) {
	if q.Type != style {
		return nil, false
	}
	if strings.TrimSpace(q.Question) == "" || strings.TrimSpace(q.Answer) == "" {
		return nil, false
	}

	switch style {
	case styleMultipleChoice:
		if len(q.Options) != entity.MultipleChoiceOptionCount {
			return nil, false
		}
		if !containsString(q.Options, q.Answer) {
			return nil, false
		}

		options := make([]entity.Option, 0, len(q.Options))
		for _, o := range q.Options {
			options = append(options, entity.Option{Content: o})
		}
		return &entity.Quiz{
			DocumentID:  documentID,
			Question:    q.Question,
			Answer:      q.Answer,
			Explanation: q.Explanation,
			QuizType:    entity.QuizTypeMultipleChoice,
			IsLatest:    true,
			Options:     options,
		}, true

	case styleMixUp:
		answer := strings.ToLower(strings.TrimSpace(q.Answer))
		if answer != entity.MixUpAnswerCorrect && answer != entity.MixUpAnswerIncorrect {
			return nil, false
		}
		return &entity.Quiz{
			DocumentID:  documentID,
			Question:    q.Question,
			Answer:      answer,
			Explanation: q.Explanation,
			QuizType:    entity.QuizTypeMixUp,
			IsLatest:    true,
		}, true
	}

	return nil, false
}

func promptFileForStyle(style string) string {
	if style == styleMixUp {
		return promptMixUp
	}
	return promptMultipleChoice
}

func containsString(list []string, target string) bool {
	for _, s := range list {
		if s == target {
			return true
		}
	}
	return false
}
