package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient реализует Client поверх Chat Completions API
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient создает новый LLM клиент
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// PredictJSON выполняет один запрос к модели и возвращает JSON-ответ.
// Модель просится отвечать JSON-объектом; ответ дополнительно
// валидируется, так как response_format не дает строгой гарантии
func (c *OpenAIClient) PredictJSON(ctx context.Context, messages []ChatMessage) (json.RawMessage, error) {
	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:    c.model,
			Messages: chatMessages,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("chat completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in chat completion response")
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)

	if !json.Valid([]byte(content)) {
		return nil, &InvalidJSONResponseError{RawResponse: resp.Choices[0].Message.Content}
	}

	return json.RawMessage(content), nil
}

// stripCodeFence убирает обрамление ```json ... ```, которое модель
// иногда добавляет несмотря на response_format
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}
