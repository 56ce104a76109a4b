package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yourusername/quizgen-worker/internal/domain/entity"
	"github.com/yourusername/quizgen-worker/internal/domain/repository"
	"github.com/yourusername/quizgen-worker/internal/llm"
	"github.com/yourusername/quizgen-worker/internal/notifier"
	apperrors "github.com/yourusername/quizgen-worker/internal/pkg/errors"
	"github.com/yourusername/quizgen-worker/internal/service/genworker"
)

// ============================================================================
// Моки репозиториев
// ============================================================================

// MockDocumentRepository реализует repository.DocumentRepository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) GetByID(id uint) (*entity.Document, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Document), args.Error(1)
}

func (m *MockDocumentRepository) UpdateGenerationStatus(documentID uint, status string) error {
	args := m.Called(documentID, status)
	return args.Error(0)
}

func (m *MockDocumentRepository) SetGenerationError(tx *gorm.DB, documentID uint) error {
	args := m.Called(tx, documentID)
	return args.Error(0)
}

func (m *MockDocumentRepository) UpdateMetadata(documentID uint, meta repository.DocumentMetadata) error {
	args := m.Called(documentID, meta)
	return args.Error(0)
}

func (m *MockDocumentRepository) ClearMetadata(documentID uint, fallbackCategoryID uint) error {
	args := m.Called(documentID, fallbackCategoryID)
	return args.Error(0)
}

// MockQuizRepository реализует repository.QuizRepository
type MockQuizRepository struct {
	mock.Mock
}

func (m *MockQuizRepository) CreateWithOptions(quiz *entity.Quiz) error {
	args := m.Called(quiz)
	return args.Error(0)
}

func (m *MockQuizRepository) MarkAllNotLatest(documentID uint) error {
	args := m.Called(documentID)
	return args.Error(0)
}

func (m *MockQuizRepository) DeleteLatestByDocument(tx *gorm.DB, documentID uint) error {
	args := m.Called(tx, documentID)
	return args.Error(0)
}

func (m *MockQuizRepository) CountLatestByDocument(documentID uint) (int64, error) {
	args := m.Called(documentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuizRepository) GetLatestByDocument(documentID uint) ([]entity.Quiz, error) {
	args := m.Called(documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Quiz), args.Error(1)
}

// MockOutboxRepository реализует repository.OutboxRepository
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) GetByDocumentID(documentID uint) (*entity.OutboxEntry, error) {
	args := m.Called(documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.OutboxEntry), args.Error(1)
}

func (m *MockOutboxRepository) Create(documentID uint) (*entity.OutboxEntry, error) {
	args := m.Called(documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.OutboxEntry), args.Error(1)
}

func (m *MockOutboxRepository) ClaimForProcessing(documentID uint) error {
	args := m.Called(documentID)
	return args.Error(0)
}

func (m *MockOutboxRepository) Delete(documentID uint) error {
	args := m.Called(documentID)
	return args.Error(0)
}

// MockStarRepository реализует repository.StarRepository
type MockStarRepository struct {
	mock.Mock
}

func (m *MockStarRepository) GetByMemberID(memberID uint) (*entity.Star, error) {
	args := m.Called(memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Star), args.Error(1)
}

func (m *MockStarRepository) Refund(tx *gorm.DB, memberID uint, amount int, description string) error {
	args := m.Called(tx, memberID, amount, description)
	return args.Error(0)
}

func (m *MockStarRepository) Withdraw(tx *gorm.DB, memberID uint, amount int, description string) error {
	args := m.Called(tx, memberID, amount, description)
	return args.Error(0)
}

func (m *MockStarRepository) GetHistory(memberID uint, limit int) ([]entity.StarHistory, error) {
	args := m.Called(memberID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.StarHistory), args.Error(1)
}

// MockMemberRepository реализует repository.MemberRepository
type MockMemberRepository struct {
	mock.Mock
}

func (m *MockMemberRepository) GetByID(id uint) (*entity.Member, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Member), args.Error(1)
}

// MockQuizSetRepository реализует repository.QuizSetRepository
type MockQuizSetRepository struct {
	mock.Mock
}

func (m *MockQuizSetRepository) CreateWithQuizzes(set *entity.QuizSet, quizIDs []uint) error {
	args := m.Called(set, quizIDs)
	return args.Error(0)
}

// ============================================================================
// Фейки: хранилище, LLM, нотификатор, транзакция
// ============================================================================

// fakeObjectStore возвращает фиксированное содержимое документа
type fakeObjectStore struct {
	content string
	err     error
}

func (f *fakeObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.content), nil
}

// fakeLLMClient отвечает через пользовательскую функцию от сообщений промпта
type fakeLLMClient struct {
	mu    sync.Mutex
	fn    func(messages []llm.ChatMessage) (json.RawMessage, error)
	calls int
}

func (f *fakeLLMClient) PredictJSON(ctx context.Context, messages []llm.ChatMessage) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(messages)
}

// recordingNotifier копит отчеты для проверок
type recordingNotifier struct {
	mu      sync.Mutex
	reports []notifier.LLMErrorReport
}

func (r *recordingNotifier) ReportLLMError(ctx context.Context, report notifier.LLMErrorReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports)
}

// fakeTxManager выполняет колбэк без реальной БД (tx == nil)
type fakeTxManager struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeTxManager) Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return fc(nil)
}

// ============================================================================
// Конструктор тестового окружения
// ============================================================================

type testEnv struct {
	documentRepo *MockDocumentRepository
	quizRepo     *MockQuizRepository
	outboxRepo   *MockOutboxRepository
	starRepo     *MockStarRepository
	memberRepo   *MockMemberRepository
	quizSetRepo  *MockQuizSetRepository
	llmClient    *fakeLLMClient
	notifier     *recordingNotifier
	tx           *fakeTxManager
	service      *QuizGenerationService
}

// writeTestPrompts создает каталог с минимальными промптами обоих стилей.
// Системное сообщение содержит имя стиля — фейковый LLM по нему понимает,
// какой воркер спрашивает
func writeTestPrompts(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	prompts := map[string]string{
		promptMultipleChoice: "[%system%]\nstyle: multiple_choice. Avoid: {{$prev_questions}}\n[%user%]\n{{$note}}",
		promptMixUp:          "[%system%]\nstyle: ox. Avoid: {{$prev_questions}}\n[%user%]\n{{$note}}",
	}
	for name, content := range prompts {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func newTestEnv(t *testing.T, documentContent string, llmFn func(messages []llm.ChatMessage) (json.RawMessage, error)) *testEnv {
	t.Helper()

	env := &testEnv{
		documentRepo: new(MockDocumentRepository),
		quizRepo:     new(MockQuizRepository),
		outboxRepo:   new(MockOutboxRepository),
		starRepo:     new(MockStarRepository),
		memberRepo:   new(MockMemberRepository),
		quizSetRepo:  new(MockQuizSetRepository),
		llmClient:    &fakeLLMClient{fn: llmFn},
		notifier:     &recordingNotifier{},
		tx:           &fakeTxManager{},
	}

	config := genworker.DefaultConfig()
	config.PromptDir = writeTestPrompts(t)

	fetcher := NewContentFetcher(nil, &fakeObjectStore{content: documentContent}, 0)

	env.service = &QuizGenerationService{
		documentRepo: env.documentRepo,
		quizRepo:     env.quizRepo,
		outboxRepo:   env.outboxRepo,
		starRepo:     env.starRepo,
		memberRepo:   env.memberRepo,
		quizSetRepo:  env.quizSetRepo,
		fetcher:      fetcher,
		llmClient:    env.llmClient,
		notifier:     env.notifier,
		config:       config,
		db:           env.tx,
	}
	return env
}

// styleOf определяет стиль воркера по системному сообщению тестового промпта
func styleOf(messages []llm.ChatMessage) string {
	if strings.Contains(messages[0].Content, "multiple_choice") {
		return "multiple_choice"
	}
	return "ox"
}

// mcResponse собирает JSON-ответ с n валидными multiple_choice вопросами
func mcResponse(n int, prefix string) json.RawMessage {
	quizzes := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		quizzes = append(quizzes, map[string]interface{}{
			"type":        "multiple_choice",
			"question":    prefix + " mc question " + string(rune('a'+i)),
			"answer":      "option one",
			"options":     []string{"option one", "option two", "option three", "option four"},
			"explanation": "because",
		})
	}
	raw, _ := json.Marshal(map[string]interface{}{"quizzes": quizzes})
	return raw
}

// oxResponse собирает JSON-ответ с n валидными ox вопросами
func oxResponse(n int, prefix string) json.RawMessage {
	quizzes := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		quizzes = append(quizzes, map[string]interface{}{
			"type":        "ox",
			"question":    prefix + " ox statement " + string(rune('a'+i)),
			"answer":      "correct",
			"explanation": "stated in the note",
		})
	}
	raw, _ := json.Marshal(map[string]interface{}{"quizzes": quizzes})
	return raw
}

func waitingEntry(documentID uint) *entity.OutboxEntry {
	return &entity.OutboxEntry{ID: 1, DocumentID: documentID, Status: entity.OutboxStatusWaiting}
}

func testJob() GenerationJob {
	return GenerationJob{DocumentID: 42, S3Key: "documents/42.md", MemberID: 7, StarCount: 10}
}

// repeatPick настраивает пользователя со вторым и далее AI Pick —
// первый сет "квизов дня" для него не собирается
func (e *testEnv) repeatPick() {
	e.memberRepo.On("GetByID", uint(7)).Return(&entity.Member{ID: 7, AIPickCount: 2}, nil)
}

func countCalls(m *mock.Mock, method string) int {
	n := 0
	for _, call := range m.Calls {
		if call.Method == method {
			n++
		}
	}
	return n
}

// ============================================================================
// Идемпотентность и дубликаты доставки
// ============================================================================

func TestProcessDocument_NoOutboxEntry_Skips(t *testing.T) {
	env := newTestEnv(t, "note", nil)

	env.outboxRepo.On("GetByDocumentID", uint(42)).Return(nil, apperrors.ErrNotFound)

	err := env.service.ProcessDocument(context.Background(), testJob())

	require.NoError(t, err)
	env.outboxRepo.AssertNotCalled(t, "ClaimForProcessing", mock.Anything)
	env.quizRepo.AssertNotCalled(t, "MarkAllNotLatest", mock.Anything)
	assert.Zero(t, env.llmClient.calls)
}

func TestProcessDocument_AlreadyProcessing_Skips(t *testing.T) {
	env := newTestEnv(t, "note", nil)

	entry := &entity.OutboxEntry{ID: 1, DocumentID: 42, Status: entity.OutboxStatusProcessing}
	env.outboxRepo.On("GetByDocumentID", uint(42)).Return(entry, nil)

	err := env.service.ProcessDocument(context.Background(), testJob())

	require.NoError(t, err)
	env.outboxRepo.AssertNotCalled(t, "ClaimForProcessing", mock.Anything)
	env.outboxRepo.AssertNotCalled(t, "Delete", mock.Anything)
	assert.Zero(t, env.llmClient.calls)
}

func TestProcessDocument_ClaimLostRace_Skips(t *testing.T) {
	env := newTestEnv(t, "note", nil)

	env.outboxRepo.On("GetByDocumentID", uint(42)).Return(waitingEntry(42), nil)
	env.outboxRepo.On("ClaimForProcessing", uint(42)).Return(repository.ErrJobAlreadyClaimed)

	err := env.service.ProcessDocument(context.Background(), testJob())

	require.NoError(t, err)
	env.quizRepo.AssertNotCalled(t, "MarkAllNotLatest", mock.Anything)
	assert.Zero(t, env.llmClient.calls)
}

// ============================================================================
// Успешные проходы
// ============================================================================

func TestProcessDocument_FullSuccess(t *testing.T) {
	llmFn := func(messages []llm.ChatMessage) (json.RawMessage, error) {
		if styleOf(messages) == "multiple_choice" {
			return mcResponse(4, "s1"), nil
		}
		return oxResponse(3, "s1"), nil
	}
	env := newTestEnv(t, "A short study note.", llmFn)

	env.outboxRepo.On("GetByDocumentID", uint(42)).Return(waitingEntry(42), nil)
	env.outboxRepo.On("ClaimForProcessing", uint(42)).Return(nil)
	env.quizRepo.On("MarkAllNotLatest", uint(42)).Return(nil)
	env.quizRepo.On("CreateWithOptions", mock.AnythingOfType("*entity.Quiz")).Return(nil)
	env.documentRepo.On("UpdateGenerationStatus", uint(42), entity.DocumentStatusProcessed).Return(nil)
	env.outboxRepo.On("Delete", uint(42)).Return(nil)
	env.repeatPick()

	err := env.service.ProcessDocument(context.Background(), testJob())

	require.NoError(t, err)
	// 4 multiple_choice + 3 ox, порог по умолчанию 5 превышен
	assert.Equal(t, 7, countCalls(&env.quizRepo.Mock, "CreateWithOptions"))
	env.documentRepo.AssertExpectations(t)
	env.outboxRepo.AssertExpectations(t)
	assert.Zero(t, env.tx.calls, "компенсация не должна запускаться")
	assert.Zero(t, env.notifier.count())
	// Не первый AI Pick — сет "квизов дня" не собирается
	env.quizSetRepo.AssertNotCalled(t, "CreateWithQuizzes", mock.Anything, mock.Anything)
}

func TestProcessDocument_InvalidQuestionsDropped(t *testing.T) {
	// Ответ multiple_choice содержит мусор: чужой тип, 3 варианта,
	// ответ вне вариантов, пустой вопрос. Валидных — 6
	llmFn := func(messages []llm.ChatMessage) (json.RawMessage, error) {
		if styleOf(messages) == "multiple_choice" {
			raw, _ := json.Marshal(map[string]interface{}{"quizzes": []map[string]interface{}{
				{"type": "multiple_choice", "question": "valid one", "answer": "a", "options": []string{"a", "b", "c", "d"}},
				{"type": "ox", "question": "wrong style", "answer": "correct"},
				{"type": "multiple_choice", "question": "three options", "answer": "a", "options": []string{"a", "b", "c"}},
				{"type": "multiple_choice", "question": "answer not listed", "answer": "x", "options": []string{"a", "b", "c", "d"}},
				{"type": "multiple_choice", "question": "", "answer": "a", "options": []string{"a", "b", "c", "d"}},
				{"type": "multiple_choice", "question": "valid two", "answer": "b", "options": []string{"a", "b", "c", "d"}},
				{"type": "multiple_choice", "question": "valid three", "answer": "c", "options": []string{"a", "b", "c", "d"}},
			}})
			return raw, nil
		}
		return oxResponse(3, "s1"), nil
	}
	env := newTestEnv(t, "A short study note.", llmFn)

	env.outboxRepo.On("GetByDocumentID", uint(42)).Return(waitingEntry(42), nil)
	env.outboxRepo.On("ClaimForProcessing", uint(42)).Return(nil)
	env.quizRepo.On("MarkAllNotLatest", uint(42)).Return(nil)
	env.quizRepo.On("CreateWithOptions", mock.AnythingOfType("*entity.Quiz")).Return(nil)
	env.documentRepo.On("UpdateGenerationStatus", uint(42), entity.DocumentStatusProcessed).Return(nil)
	env.outboxRepo.On("Delete", uint(42)).Return(nil)
	env.repeatPick()

	err := env.service.ProcessDocument(context.Background(), testJob())

	require.NoError(t, err)
	// 3 валидных multiple_choice + 3 ox
	assert.Equal(t, 6, countCalls(&env.quizRepo.Mock, "CreateWithOptions"))
	// Отброшенный вопрос не считается падением сегмента
	assert.Zero(t, env.notifier.count())
}

func TestProcessDocument_PartialSuccess(t *testing.T) {
	// Два сегмента; воркер ox падает на втором
	content := "# First\nsegment one text\n# Second\nsegment two text"
	llmFn := func(messages []llm.ChatMessage) (json.RawMessage, error) {
		note := messages[1].Content
		if styleOf(messages) == "multiple_choice" {
			if strings.Contains(note, "segment one") {
				return mcResponse(3, "s1"), nil
			}
			return mcResponse(3, "s2"), nil
		}
		if strings.Contains(note, "segment two") {
			return nil, errors.New("rate limited")
		}
		return oxResponse(2, "s1"), nil
	}
	env := newTestEnv(t, content, llmFn)

	env.outboxRepo.On("GetByDocumentID", uint(42)).Return(waitingEntry(42), nil)
	env.outboxRepo.On("ClaimForProcessing", uint(42)).Return(nil)
	env.quizRepo.On("MarkAllNotLatest", uint(42)).Return(nil)
	env.quizRepo.On("CreateWithOptions", mock.AnythingOfType("*entity.Quiz")).Return(nil)
	env.documentRepo.On("UpdateGenerationStatus", uint(42), entity.DocumentStatusPartialSuccess).Return(nil)
	env.outboxRepo.On("Delete", uint(42)).Return(nil)
	env.repeatPick()

	err := env.service.ProcessDocument(context.Background(), testJob())

	require.NoError(t, err)
	// 6 multiple_choice + 2 ox; упавший сегмент зарепорчен
	assert.Equal(t, 8, countCalls(&env.quizRepo.Mock, "CreateWithOptions"))
	assert.Equal(t, 1, env.notifier.count())
	env.documentRepo.AssertExpectations(t)
	assert.Zero(t, env.tx.calls)
}

func TestProcessDocument_TargetCountReached(t *testing.T) {
	// Цель 4: модели готовы дать больше, но вставки останавливаются на цели
	llmFn := func(messages []llm.ChatMessage) (json.RawMessage, error) {
		if styleOf(messages) == "multiple_choice" {
			return mcResponse(6, "s1"), nil
		}
		return oxResponse(6, "s1"), nil
	}
	env := newTestEnv(t, "A short study note.", llmFn)

	env.outboxRepo.On("GetByDocumentID", uint(42)).Return(waitingEntry(42), nil)
	env.outboxRepo.On("ClaimForProcessing", uint(42)).Return(nil)
	env.quizRepo.On("MarkAllNotLatest", uint(42)).Return(nil)
	env.quizRepo.On("CreateWithOptions", mock.AnythingOfType("*entity.Quiz")).Return(nil)
	env.documentRepo.On("UpdateGenerationStatus", uint(42), entity.DocumentStatusProcessed).Return(nil)
	env.outboxRepo.On("Delete", uint(42)).Return(nil)
	env.repeatPick()

	job := testJob()
	job.QuizCount = 4

	err := env.service.ProcessDocument(context.Background(), job)

	require.NoError(t, err)
	assert.Equal(t, 4, countCalls(&env.quizRepo.Mock, "CreateWithOptions"))
	env.documentRepo.AssertExpectations(t)
}

func TestProcessDocument_MissingQuizzesKey_IsSegmentFailure(t *testing.T) {
	// Ответ ox — валидный JSON без ключа quizzes. Это падение сегмента:
	// проход завершается частичным успехом и сегмент репортится
	llmFn := func(messages []llm.ChatMessage) (json.RawMessage, error) {
		if styleOf(messages) == "multiple_choice" {
			return mcResponse(6, "s1"), nil
		}
		return json.RawMessage(`{}`), nil
	}
	env := newTestEnv(t, "A short study note.", llmFn)

	env.outboxRepo.On("GetByDocumentID", uint(42)).Return(waitingEntry(42), nil)
	env.outboxRepo.On("ClaimForProcessing", uint(42)).Return(nil)
	env.quizRepo.On("MarkAllNotLatest", uint(42)).Return(nil)
	env.quizRepo.On("CreateWithOptions", mock.AnythingOfType("*entity.Quiz")).Return(nil)
	env.documentRepo.On("UpdateGenerationStatus", uint(42), entity.DocumentStatusPartialSuccess).Return(nil)
	env.outboxRepo.On("Delete", uint(42)).Return(nil)
	env.repeatPick()

	err := env.service.ProcessDocument(context.Background(), testJob())

	require.NoError(t, err)
	assert.Equal(t, 6, countCalls(&env.quizRepo.Mock, "CreateWithOptions"))
	assert.Equal(t, 1, env.notifier.count())
	env.documentRepo.AssertExpectations(t)
	assert.Zero(t, env.tx.calls)
}

func TestProcessDocument_EmptyQuizzesList_IsNotFailure(t *testing.T) {
	// Честный пустой список quizzes — успех сегмента без вопросов
	llmFn := func(messages []llm.ChatMessage) (json.RawMessage, error) {
		if styleOf(messages) == "multiple_choice" {
			return mcResponse(6, "s1"), nil
		}
		return json.RawMessage(`{"quizzes": []}`), nil
	}
	env := newTestEnv(t, "A short study note.", llmFn)

	env.outboxRepo.On("GetByDocumentID", uint(42)).Return(waitingEntry(42), nil)
	env.outboxRepo.On("ClaimForProcessing", uint(42)).Return(nil)
	env.quizRepo.On("MarkAllNotLatest", uint(42)).Return(nil)
	env.quizRepo.On("CreateWithOptions", mock.AnythingOfType("*entity.Quiz")).Return(nil)
	env.documentRepo.On("UpdateGenerationStatus", uint(42), entity.DocumentStatusProcessed).Return(nil)
	env.outboxRepo.On("Delete", uint(42)).Return(nil)
	env.repeatPick()

	err := env.service.ProcessDocument(context.Background(), testJob())

	require.NoError(t, err)
	assert.Equal(t, 6, countCalls(&env.quizRepo.Mock, "CreateWithOptions"))
	assert.Zero(t, env.notifier.count())
	env.documentRepo.AssertExpectations(t)
}

// ============================================================================
// Первый сет "квизов дня"
// ============================================================================

// latestQuizzes собирает n квизов с идентификаторами 1..n
func latestQuizzes(n int) []entity.Quiz {
	quizzes := make([]entity.Quiz, 0, n)
	for i := 1; i <= n; i++ {
		quizzes = append(quizzes, entity.Quiz{
			ID:         uint(i),
			DocumentID: 42,
			Question:   "q" + string(rune('a'+i)),
			QuizType:   entity.QuizTypeMultipleChoice,
			IsLatest:   true,
		})
	}
	return quizzes
}

func successfulPassExpectations(env *testEnv) {
	env.outboxRepo.On("GetByDocumentID", uint(42)).Return(waitingEntry(42), nil)
	env.outboxRepo.On("ClaimForProcessing", uint(42)).Return(nil)
	env.quizRepo.On("MarkAllNotLatest", uint(42)).Return(nil)
	env.quizRepo.On("CreateWithOptions", mock.AnythingOfType("*entity.Quiz")).Return(nil)
	env.documentRepo.On("UpdateGenerationStatus", uint(42), entity.DocumentStatusProcessed).Return(nil)
	env.outboxRepo.On("Delete", uint(42)).Return(nil)
}

func passLLMFn(messages []llm.ChatMessage) (json.RawMessage, error) {
	if styleOf(messages) == "multiple_choice" {
		return mcResponse(4, "s1"), nil
	}
	return oxResponse(3, "s1"), nil
}

func TestProcessDocument_FirstAIPick_BuildsTodayQuizSet(t *testing.T) {
	env := newTestEnv(t, "A short study note.", passLLMFn)

	successfulPassExpectations(env)
	env.memberRepo.On("GetByID", uint(7)).Return(&entity.Member{ID: 7, AIPickCount: 1}, nil)
	env.quizRepo.On("GetLatestByDocument", uint(42)).Return(latestQuizzes(12), nil)
	env.quizSetRepo.On("CreateWithQuizzes", mock.AnythingOfType("*entity.QuizSet"), mock.AnythingOfType("[]uint")).Return(nil)

	err := env.service.ProcessDocument(context.Background(), testJob())

	require.NoError(t, err)
	require.Equal(t, 1, countCalls(&env.quizSetRepo.Mock, "CreateWithQuizzes"))

	call := env.quizSetRepo.Calls[0]
	set := call.Arguments.Get(0).(*entity.QuizSet)
	quizIDs := call.Arguments.Get(1).([]uint)

	assert.Len(t, set.ID, 32, "идентификатор — hex UUID без дефисов")
	assert.True(t, set.IsTodayQuizSet)
	assert.False(t, set.Solved)
	assert.Equal(t, uint(7), set.MemberID)

	// Случайная выборка ограничена размером сета и не содержит дублей
	assert.Len(t, quizIDs, genworker.DefaultFirstQuizSetSize)
	seen := make(map[uint]bool)
	for _, id := range quizIDs {
		assert.False(t, seen[id], "quiz %d delivered twice", id)
		seen[id] = true
		assert.GreaterOrEqual(t, id, uint(1))
		assert.LessOrEqual(t, id, uint(12))
	}
}

func TestProcessDocument_FirstAIPick_FewerQuizzesThanSetSize(t *testing.T) {
	env := newTestEnv(t, "A short study note.", passLLMFn)

	successfulPassExpectations(env)
	env.memberRepo.On("GetByID", uint(7)).Return(&entity.Member{ID: 7, AIPickCount: 1}, nil)
	env.quizRepo.On("GetLatestByDocument", uint(42)).Return(latestQuizzes(6), nil)
	env.quizSetRepo.On("CreateWithQuizzes", mock.AnythingOfType("*entity.QuizSet"), mock.AnythingOfType("[]uint")).Return(nil)

	err := env.service.ProcessDocument(context.Background(), testJob())

	require.NoError(t, err)
	require.Equal(t, 1, countCalls(&env.quizSetRepo.Mock, "CreateWithQuizzes"))
	quizIDs := env.quizSetRepo.Calls[0].Arguments.Get(1).([]uint)
	assert.Len(t, quizIDs, 6, "в сет попадают все имеющиеся квизы")
}

func TestProcessDocument_QuizSetFailure_DoesNotAffectOutcome(t *testing.T) {
	// Сборка сета best-effort: ее падение не меняет исход прохода
	env := newTestEnv(t, "A short study note.", passLLMFn)

	successfulPassExpectations(env)
	env.memberRepo.On("GetByID", uint(7)).Return(&entity.Member{ID: 7, AIPickCount: 1}, nil)
	env.quizRepo.On("GetLatestByDocument", uint(42)).Return(latestQuizzes(12), nil)
	env.quizSetRepo.On("CreateWithQuizzes", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	err := env.service.ProcessDocument(context.Background(), testJob())

	require.NoError(t, err)
	env.documentRepo.AssertCalled(t, "UpdateGenerationStatus", uint(42), entity.DocumentStatusProcessed)
	env.outboxRepo.AssertCalled(t, "Delete", uint(42))
}

func TestProcessDocument_MemberLookupFailure_SkipsQuizSet(t *testing.T) {
	env := newTestEnv(t, "A short study note.", passLLMFn)

	successfulPassExpectations(env)
	env.memberRepo.On("GetByID", uint(7)).Return(nil, apperrors.ErrNotFound)

	err := env.service.ProcessDocument(context.Background(), testJob())

	require.NoError(t, err)
	env.quizRepo.AssertNotCalled(t, "GetLatestByDocument", mock.Anything)
	env.quizSetRepo.AssertNotCalled(t, "CreateWithQuizzes", mock.Anything, mock.Anything)
	env.outboxRepo.AssertCalled(t, "Delete", uint(42))
}

// ============================================================================
// Компенсация
// ============================================================================

func TestProcessDocument_AllSegmentsFailed_Compensates(t *testing.T) {
	llmFn := func(messages []llm.ChatMessage) (json.RawMessage, error) {
		return nil, &llm.InvalidJSONResponseError{RawResponse: "not json at all"}
	}
	env := newTestEnv(t, "A short study note.", llmFn)

	env.outboxRepo.On("GetByDocumentID", uint(42)).Return(waitingEntry(42), nil)
	env.outboxRepo.On("ClaimForProcessing", uint(42)).Return(nil)
	env.quizRepo.On("MarkAllNotLatest", uint(42)).Return(nil)
	env.quizRepo.On("DeleteLatestByDocument", mock.Anything, uint(42)).Return(nil)
	env.starRepo.On("Refund", mock.Anything, uint(7), 10, mock.AnythingOfType("string")).Return(nil)
	env.documentRepo.On("SetGenerationError", mock.Anything, uint(42)).Return(nil)
	env.outboxRepo.On("Delete", uint(42)).Return(nil)

	err := env.service.ProcessDocument(context.Background(), testJob())

	require.NoError(t, err)
	assert.Equal(t, 1, env.tx.calls, "компенсация выполняется одной транзакцией")
	env.quizRepo.AssertCalled(t, "DeleteLatestByDocument", mock.Anything, uint(42))
	env.starRepo.AssertCalled(t, "Refund", mock.Anything, uint(7), 10, mock.AnythingOfType("string"))
	env.documentRepo.AssertCalled(t, "SetGenerationError", mock.Anything, uint(42))
	env.documentRepo.AssertNotCalled(t, "UpdateGenerationStatus", mock.Anything, mock.Anything)
	// Оба воркера стилей зарепортили падение сегмента
	assert.Equal(t, 2, env.notifier.count())
	// Задача завершена: запись outbox удалена, повторная генерация возможна
	env.outboxRepo.AssertCalled(t, "Delete", uint(42))
}

func TestProcessDocument_TooFewQuizzes_Compensates(t *testing.T) {
	// Сегменты успешны, но суммарно 4 <= порога 5
	llmFn := func(messages []llm.ChatMessage) (json.RawMessage, error) {
		if styleOf(messages) == "multiple_choice" {
			return mcResponse(2, "s1"), nil
		}
		return oxResponse(2, "s1"), nil
	}
	env := newTestEnv(t, "A short study note.", llmFn)

	env.outboxRepo.On("GetByDocumentID", uint(42)).Return(waitingEntry(42), nil)
	env.outboxRepo.On("ClaimForProcessing", uint(42)).Return(nil)
	env.quizRepo.On("MarkAllNotLatest", uint(42)).Return(nil)
	env.quizRepo.On("CreateWithOptions", mock.AnythingOfType("*entity.Quiz")).Return(nil)
	env.quizRepo.On("DeleteLatestByDocument", mock.Anything, uint(42)).Return(nil)
	env.starRepo.On("Refund", mock.Anything, uint(7), 10, mock.AnythingOfType("string")).Return(nil)
	env.documentRepo.On("SetGenerationError", mock.Anything, uint(42)).Return(nil)
	env.outboxRepo.On("Delete", uint(42)).Return(nil)

	err := env.service.ProcessDocument(context.Background(), testJob())

	require.NoError(t, err)
	assert.Equal(t, 1, env.tx.calls)
	env.documentRepo.AssertCalled(t, "SetGenerationError", mock.Anything, uint(42))
}

func TestProcessDocument_TargetMissed_Compensates(t *testing.T) {
	llmFn := func(messages []llm.ChatMessage) (json.RawMessage, error) {
		if styleOf(messages) == "multiple_choice" {
			return mcResponse(2, "s1"), nil
		}
		return oxResponse(1, "s1"), nil
	}
	env := newTestEnv(t, "A short study note.", llmFn)

	env.outboxRepo.On("GetByDocumentID", uint(42)).Return(waitingEntry(42), nil)
	env.outboxRepo.On("ClaimForProcessing", uint(42)).Return(nil)
	env.quizRepo.On("MarkAllNotLatest", uint(42)).Return(nil)
	env.quizRepo.On("CreateWithOptions", mock.AnythingOfType("*entity.Quiz")).Return(nil)
	env.quizRepo.On("DeleteLatestByDocument", mock.Anything, uint(42)).Return(nil)
	env.starRepo.On("Refund", mock.Anything, uint(7), 10, mock.AnythingOfType("string")).Return(nil)
	env.documentRepo.On("SetGenerationError", mock.Anything, uint(42)).Return(nil)
	env.outboxRepo.On("Delete", uint(42)).Return(nil)

	job := testJob()
	job.QuizCount = 10

	err := env.service.ProcessDocument(context.Background(), job)

	require.NoError(t, err)
	assert.Equal(t, 1, env.tx.calls)
	env.documentRepo.AssertNotCalled(t, "UpdateGenerationStatus", mock.Anything, mock.Anything)
}

func TestProcessDocument_CompensationWithoutStars_SkipsRefund(t *testing.T) {
	llmFn := func(messages []llm.ChatMessage) (json.RawMessage, error) {
		return nil, errors.New("api down")
	}
	env := newTestEnv(t, "A short study note.", llmFn)

	env.outboxRepo.On("GetByDocumentID", uint(42)).Return(waitingEntry(42), nil)
	env.outboxRepo.On("ClaimForProcessing", uint(42)).Return(nil)
	env.quizRepo.On("MarkAllNotLatest", uint(42)).Return(nil)
	env.quizRepo.On("DeleteLatestByDocument", mock.Anything, uint(42)).Return(nil)
	env.documentRepo.On("SetGenerationError", mock.Anything, uint(42)).Return(nil)
	env.outboxRepo.On("Delete", uint(42)).Return(nil)

	job := testJob()
	job.StarCount = 0

	err := env.service.ProcessDocument(context.Background(), job)

	require.NoError(t, err)
	env.starRepo.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// ============================================================================
// Ошибки персистентности
// ============================================================================

func TestProcessDocument_InsertFailure_ReturnsError(t *testing.T) {
	llmFn := func(messages []llm.ChatMessage) (json.RawMessage, error) {
		if styleOf(messages) == "multiple_choice" {
			return mcResponse(2, "s1"), nil
		}
		return oxResponse(2, "s1"), nil
	}
	env := newTestEnv(t, "A short study note.", llmFn)

	env.outboxRepo.On("GetByDocumentID", uint(42)).Return(waitingEntry(42), nil)
	env.outboxRepo.On("ClaimForProcessing", uint(42)).Return(nil)
	env.quizRepo.On("MarkAllNotLatest", uint(42)).Return(nil)
	env.quizRepo.On("CreateWithOptions", mock.AnythingOfType("*entity.Quiz")).Return(errors.New("connection reset"))

	err := env.service.ProcessDocument(context.Background(), testJob())

	require.Error(t, err)
	// Запись outbox остается PROCESSING — повторная диспетчеризация
	// заблокирована до ручного вмешательства
	env.outboxRepo.AssertNotCalled(t, "Delete", mock.Anything)
	env.documentRepo.AssertNotCalled(t, "UpdateGenerationStatus", mock.Anything, mock.Anything)
}

func TestBuildQuiz_MixUpAnswerNormalized(t *testing.T) {
	quiz, ok := buildQuiz(generatedQuiz{
		Type:     "ox",
		Question: "The sky is green.",
		Answer:   " Incorrect ",
	}, styleMixUp, 42)

	require.True(t, ok)
	assert.Equal(t, entity.MixUpAnswerIncorrect, quiz.Answer)
	assert.Equal(t, entity.QuizTypeMixUp, quiz.QuizType)
	assert.True(t, quiz.IsLatest)
	assert.Empty(t, quiz.Options)
}

func TestBuildQuiz_MixUpRejectsFreeformAnswer(t *testing.T) {
	_, ok := buildQuiz(generatedQuiz{
		Type:     "ox",
		Question: "The sky is green.",
		Answer:   "false",
	}, styleMixUp, 42)

	assert.False(t, ok)
}
