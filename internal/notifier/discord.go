package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// DiscordNotifier отправляет отчеты в канал через webhook
type DiscordNotifier struct {
	webhookURL string
	httpClient *http.Client
}

// NewDiscordNotifier создает новый Discord-нотификатор
func NewDiscordNotifier(webhookURL string) (*DiscordNotifier, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("discord webhook url is required")
	}
	return &DiscordNotifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// ReportLLMError отправляет отчет об ошибке. Любая неудача только логируется
func (n *DiscordNotifier) ReportLLMError(ctx context.Context, report LLMErrorReport) {
	content := formatReport(report)

	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		log.Printf("[Notifier] failed to marshal discord payload: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		log.Printf("[Notifier] failed to build discord request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		log.Printf("[Notifier] discord webhook request failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("[Notifier] discord webhook returned status %d", resp.StatusCode)
	}
}

// formatReport собирает текст сообщения. Содержимое документа и ответ
// модели обрезаются, чтобы не упереться в лимит длины сообщения
func formatReport(report LLMErrorReport) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "**LLM Error: %s**\n", report.Task)
	fmt.Fprintf(&buf, "* error_type: `%s`\n", report.ErrorType)
	fmt.Fprintf(&buf, "* document_id: `%d`\n", report.DocumentID)
	fmt.Fprintf(&buf, "* s3_key: `%s`\n", report.S3Key)
	fmt.Fprintf(&buf, "* message: %s\n", report.ErrorMessage)
	if report.LLMResponse != "" {
		fmt.Fprintf(&buf, "```\n%s\n```\n", truncate(report.LLMResponse, 600))
	}
	if report.DocumentContent != "" {
		fmt.Fprintf(&buf, "content:\n```\n%s\n```", truncate(report.DocumentContent, 600))
	}
	return buf.String()
}

// truncate режет по рунам: содержимое документов бывает корейским,
// и срез по байтам мог бы разрубить руну пополам
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
