package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Роли сообщений в промпте
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage — одно сообщение промпта
type ChatMessage struct {
	Role    string
	Content string
}

// InvalidJSONResponseError означает, что модель ответила, но ответ
// не декодируется как JSON. Сырой текст ответа сохраняется для отчета
type InvalidJSONResponseError struct {
	RawResponse string
}

func (e *InvalidJSONResponseError) Error() string {
	return fmt.Sprintf("llm response is not JSON-decodable: %.200s", e.RawResponse)
}

// Client — абстракция генеративной модели.
// PredictJSON возвращает валидный JSON-ответ модели или ошибку:
// *InvalidJSONResponseError — ответ получен, но не парсится;
// любая другая ошибка трактуется как transient (сеть, API)
type Client interface {
	PredictJSON(ctx context.Context, messages []ChatMessage) (json.RawMessage, error)
}
