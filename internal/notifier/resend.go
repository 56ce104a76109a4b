package notifier

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/resend/resend-go/v2"
)

// ResendNotifier отправляет отчеты об ошибках генерации на email через Resend
type ResendNotifier struct {
	from   string
	to     string
	client *resend.Client
}

// NewResendNotifier создает новый email-нотификатор
func NewResendNotifier(apiKey, from, to string) (*ResendNotifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" || to == "" {
		return nil, fmt.Errorf("email from and to are required")
	}
	return &ResendNotifier{
		from:   from,
		to:     to,
		client: resend.NewClient(apiKey),
	}, nil
}

// ReportLLMError отправляет отчет. Любая неудача только логируется
func (n *ResendNotifier) ReportLLMError(ctx context.Context, report LLMErrorReport) {
	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{n.to},
		Subject: fmt.Sprintf("[quizgen] %s failed for document #%d", report.Task, report.DocumentID),
		Text:    formatReport(report),
	}

	// Idempotency key на случай ретраев на стороне Resend
	options := &resend.SendEmailOptions{
		IdempotencyKey: uuid.NewString(),
	}

	if _, err := n.client.Emails.SendWithOptions(ctx, params, options); err != nil {
		log.Printf("[Notifier] resend report failed: %v", err)
	}
}
