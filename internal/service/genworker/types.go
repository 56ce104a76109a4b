package genworker

import (
	"sync"
)

// PassStats — агрегат одного прохода генерации.
// Каждый воркер стиля считает свою статистику; перед решением
// об исходе статистики объединяются через Merge
type PassStats struct {
	// SucceededOnce: хотя бы один сегмент обработан полностью успешно
	SucceededOnce bool
	// FailedOnce: хотя бы один сегмент упал (невалидный JSON, ошибка API
	// или ответ без ожидаемых полей)
	FailedOnce bool
	// TotalQuizCount: число вставленных валидных вопросов
	TotalQuizCount int
}

// Merge объединяет статистику другого воркера
func (s *PassStats) Merge(other PassStats) {
	s.SucceededOnce = s.SucceededOnce || other.SucceededOnce
	s.FailedOnce = s.FailedOnce || other.FailedOnce
	s.TotalQuizCount += other.TotalQuizCount
}

// TargetCounter — общий счетчик вставленных вопросов для ранней остановки.
// Воркеры стилей резервируют слот перед вставкой; при достигнутой цели
// резервирование отклоняется и воркер прекращает генерацию
type TargetCounter struct {
	mu     sync.Mutex
	target int // 0 — цель не задана, лимита нет
	count  int
}

// NewTargetCounter создает счетчик. target == 0 означает отсутствие цели
func NewTargetCounter(target int) *TargetCounter {
	return &TargetCounter{target: target}
}

// TryAcquire резервирует слот под один вопрос.
// Возвращает false, если цель уже достигнута
func (c *TargetCounter) TryAcquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target > 0 && c.count >= c.target {
		return false
	}
	c.count++
	return true
}

// Reached проверяет, достигнута ли цель
func (c *TargetCounter) Reached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target > 0 && c.count >= c.target
}

// Count возвращает число зарезервированных слотов
func (c *TargetCounter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}
