package genworker

// Constants for default values
const (
	DefaultChunkSize          = 2000
	DefaultChunkOverlap       = 100
	DefaultMinQuizCount       = 5
	DefaultPrevQuestionWindow = 6
	DefaultContentCacheTTLSec = 600
	DefaultFirstQuizSetSize   = 10
)

// Config содержит настройки прохода генерации квизов
type Config struct {
	// Размер и перекрытие сегментов текста
	ChunkSize    int
	ChunkOverlap int

	// MinQuizCount — порог компенсации при отсутствии целевого количества:
	// проход с total <= MinQuizCount откатывается целиком.
	// Это ЕДИНАЯ политика порога; исторических вариаций нет
	MinQuizCount int

	// PrevQuestionWindow — сколько последних вопросов передавать в промпт
	// для избежания дублей
	PrevQuestionWindow int

	// FallbackCategoryID — категория-заглушка при неудачных метаданных
	FallbackCategoryID uint

	// PromptDir — каталог с файлами промптов
	PromptDir string

	// ContentCacheTTLSec — TTL кеша содержимого документа
	ContentCacheTTLSec int

	// FirstQuizSetSize — сколько квизов попадает в первый сет "квизов дня",
	// собираемый после первой успешной генерации пользователя
	FirstQuizSetSize int
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		ChunkSize:          DefaultChunkSize,
		ChunkOverlap:       DefaultChunkOverlap,
		MinQuizCount:       DefaultMinQuizCount,
		PrevQuestionWindow: DefaultPrevQuestionWindow,
		FallbackCategoryID: 6,
		PromptDir:          "prompts",
		ContentCacheTTLSec: DefaultContentCacheTTLSec,
		FirstQuizSetSize:   DefaultFirstQuizSetSize,
	}
}
