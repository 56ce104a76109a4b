package notifier

import (
	"context"
	"log"
)

// Типы ошибок генерации для отчетов
const (
	ErrorTypeInvalidJSON = "INVALID_LLM_JSON_RESPONSE_FORMAT"
	ErrorTypeGeneral     = "GENERAL"
)

// LLMErrorReport описывает одну неудачу генерации
type LLMErrorReport struct {
	Task            string // Например "Question Generation"
	ErrorType       string // ErrorTypeInvalidJSON или ErrorTypeGeneral
	DocumentID      uint
	S3Key           string
	DocumentContent string // Сегмент, на котором произошла ошибка
	LLMResponse     string // Сырой ответ модели (для INVALID_JSON)
	ErrorMessage    string
}

// Notifier отправляет отчеты об ошибках генерации.
// Fire-and-forget: реализация не возвращает ошибку и не должна
// паниковать — неудачный отчет не влияет на исход задачи
type Notifier interface {
	ReportLLMError(ctx context.Context, report LLMErrorReport)
}

// NoopNotifier используется, когда отчеты отключены
type NoopNotifier struct{}

func (n *NoopNotifier) ReportLLMError(ctx context.Context, report LLMErrorReport) {
	log.Printf("[Notifier] noop report: task=%s type=%s document=%d: %s",
		report.Task, report.ErrorType, report.DocumentID, report.ErrorMessage)
}
