package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/quizgen-worker/internal/domain/repository"
	"github.com/yourusername/quizgen-worker/internal/handler/dto"
	apperrors "github.com/yourusername/quizgen-worker/internal/pkg/errors"
	"github.com/yourusername/quizgen-worker/internal/worker"
)

// DocumentHandler обрабатывает административные запросы по документам
// и их сгенерированным квизам
type DocumentHandler struct {
	documentRepo repository.DocumentRepository
	quizRepo     repository.QuizRepository
	outboxRepo   repository.OutboxRepository
	queueClient  *worker.Client
}

// NewDocumentHandler создает новый обработчик документов
func NewDocumentHandler(
	documentRepo repository.DocumentRepository,
	quizRepo repository.QuizRepository,
	outboxRepo repository.OutboxRepository,
	queueClient *worker.Client,
) *DocumentHandler {
	return &DocumentHandler{
		documentRepo: documentRepo,
		quizRepo:     quizRepo,
		outboxRepo:   outboxRepo,
		queueClient:  queueClient,
	}
}

// GetDocument возвращает документ со статусом генерации и числом квизов
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	documentID := c.MustGet("documentID").(uint) // Получаем из контекста

	doc, err := h.documentRepo.GetByID(documentID)
	if err != nil {
		h.handleDocumentError(c, err)
		return
	}

	quizCount, err := h.quizRepo.CountLatestByDocument(documentID)
	if err != nil {
		h.handleDocumentError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewDocumentResponse(doc, quizCount))
}

// GetDocumentQuizzes возвращает квизы последнего прохода генерации
func (h *DocumentHandler) GetDocumentQuizzes(c *gin.Context) {
	documentID := c.MustGet("documentID").(uint)

	// Проверяем, что документ существует
	if _, err := h.documentRepo.GetByID(documentID); err != nil {
		h.handleDocumentError(c, err)
		return
	}

	quizzes, err := h.quizRepo.GetLatestByDocument(documentID)
	if err != nil {
		h.handleDocumentError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListQuizResponse(quizzes))
}

// RequeueRequest представляет запрос на повторную постановку генерации
type RequeueRequest struct {
	StarCount int `json:"star_count" binding:"omitempty,min=0"`
	QuizCount int `json:"quiz_count" binding:"omitempty,min=0"`
}

// RequeueDocument создает outbox-запись WAITING и ставит задачу в очередь.
// Если запись для документа уже есть (ожидает или обрабатывается),
// возвращается 409
func (h *DocumentHandler) RequeueDocument(c *gin.Context) {
	documentID := c.MustGet("documentID").(uint)

	// Пустое тело допустимо — все поля опциональны
	var req RequeueRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	doc, err := h.documentRepo.GetByID(documentID)
	if err != nil {
		h.handleDocumentError(c, err)
		return
	}

	entry, err := h.outboxRepo.Create(documentID)
	if err != nil {
		if errors.Is(err, repository.ErrJobAlreadyPending) {
			c.JSON(http.StatusConflict, gin.H{"error": "generation is already pending for this document"})
			return
		}
		h.handleDocumentError(c, err)
		return
	}

	payload := worker.GeneratePayload{
		S3Key:      doc.S3Key,
		DocumentID: doc.ID,
		MemberID:   doc.MemberID,
		StarCount:  req.StarCount,
		QuizCount:  req.QuizCount,
	}
	if err := h.queueClient.EnqueueGenerate(payload); err != nil {
		// Outbox-запись остается WAITING: доставка может прийти позже
		// повторным вызовом, воркер среагирует только на WAITING
		log.Printf("[DocumentHandler] enqueue failed for document #%d: %v", documentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue generation task"})
		return
	}

	log.Printf("[DocumentHandler] document #%d requeued for generation", documentID)
	c.JSON(http.StatusAccepted, dto.NewOutboxResponse(entry))
}

// GetOutboxEntry возвращает текущую outbox-запись документа
func (h *DocumentHandler) GetOutboxEntry(c *gin.Context) {
	documentID := c.MustGet("documentID").(uint)

	entry, err := h.outboxRepo.GetByDocumentID(documentID)
	if err != nil {
		h.handleDocumentError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewOutboxResponse(entry))
}

// ClearOutboxEntry удаляет outbox-запись документа. Ручной рычаг для
// застрявших PROCESSING-записей: после удаления requeue снова возможен
func (h *DocumentHandler) ClearOutboxEntry(c *gin.Context) {
	documentID := c.MustGet("documentID").(uint)

	entry, err := h.outboxRepo.GetByDocumentID(documentID)
	if err != nil {
		h.handleDocumentError(c, err)
		return
	}

	if err := h.outboxRepo.Delete(documentID); err != nil {
		h.handleDocumentError(c, err)
		return
	}

	log.Printf("[DocumentHandler] outbox entry for document #%d cleared (was %s)", documentID, entry.Status)
	c.JSON(http.StatusOK, dto.NewOutboxResponse(entry))
}

// ExportDocumentQuizzes экспортирует квизы документа в Excel
func (h *DocumentHandler) ExportDocumentQuizzes(c *gin.Context) {
	documentID := c.MustGet("documentID").(uint)

	if _, err := h.documentRepo.GetByID(documentID); err != nil {
		h.handleDocumentError(c, err)
		return
	}

	quizzes, err := h.quizRepo.GetLatestByDocument(documentID)
	if err != nil {
		h.handleDocumentError(c, err)
		return
	}

	filename := fmt.Sprintf("document_%d_quizzes", documentID)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Quizzes"
	f.SetSheetName("Sheet1", sheetName)

	// StreamWriter для эффективной записи больших выгрузок
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[DocumentHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := []interface{}{"ID", "Type", "Question", "Answer", "Explanation", "Option 1", "Option 2", "Option 3", "Option 4"}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[DocumentHandler] Ошибка записи заголовков: %v", err)
	}

	for i := range quizzes {
		q := &quizzes[i]
		rowNum := i + 2 // Начинаем с 2 строки (1 - заголовки)
		cell := fmt.Sprintf("A%d", rowNum)

		row := []interface{}{
			q.ID,
			q.QuizType,
			sanitizeForExcel(q.Question),
			sanitizeForExcel(q.Answer),
			sanitizeForExcel(q.Explanation),
		}
		for _, opt := range q.Options {
			row = append(row, sanitizeForExcel(opt.Content))
		}

		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[DocumentHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[DocumentHandler] Ошибка при Flush: %v", err)
	}

	// Записываем в response
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[DocumentHandler] Ошибка записи Excel в response: %v", err)
	}
}

// HealthCheck возвращает статус сервиса
func (h *DocumentHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleDocumentError обрабатывает ошибки при запросах к документам
func (h *DocumentHandler) handleDocumentError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in DocumentHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
