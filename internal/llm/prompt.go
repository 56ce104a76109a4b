package llm

import (
	"fmt"
	"os"
	"strings"
)

// Формат файла промпта: секции вида
//
//	[%system%]
//	текст системного сообщения
//	[%user%]
//	текст с плейсхолдерами {{$note}}
//
// Плейсхолдеры подставляются через FillPlaceholders.

// LoadPromptMessages читает файл промпта и разбирает его на сообщения
func LoadPromptMessages(promptPath string) ([]ChatMessage, error) {
	raw, err := os.ReadFile(promptPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", promptPath, err)
	}

	content := strings.TrimSpace(string(raw))
	parts := strings.Split(content, "[%")

	var messages []ChatMessage
	for _, part := range parts[1:] {
		splitPart := strings.SplitN(part, "%]", 2)
		if len(splitPart) != 2 {
			continue
		}
		role := strings.TrimSpace(splitPart[0])
		messageContent := strings.TrimSpace(splitPart[1])
		messages = append(messages, ChatMessage{Role: role, Content: messageContent})
	}

	if len(messages) == 0 {
		return nil, fmt.Errorf("prompt file %s contains no [%%role%%] sections", promptPath)
	}

	return messages, nil
}

// FillPlaceholders возвращает копию сообщений с подставленными значениями
// плейсхолдеров вида {{$name}}. Исходные сообщения не меняются
func FillPlaceholders(messages []ChatMessage, placeholders map[string]string) []ChatMessage {
	filled := make([]ChatMessage, len(messages))
	copy(filled, messages)

	for i := range filled {
		for name, value := range placeholders {
			token := "{{$" + name + "}}"
			if strings.Contains(filled[i].Content, token) {
				filled[i].Content = strings.ReplaceAll(filled[i].Content, token, value)
			}
		}
	}

	return filled
}
