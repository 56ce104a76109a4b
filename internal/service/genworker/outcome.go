package genworker

// Outcome — итог прохода генерации для документа
type Outcome int

const (
	// OutcomeProcessed: все сегменты успешны, квизы фиксируются
	OutcomeProcessed Outcome = iota
	// OutcomePartialSuccess: часть сегментов упала, но результат принят
	OutcomePartialSuccess
	// OutcomeCompensate: результат непригоден — полный откат вставленных
	// квизов, рефанд звезд, документ скрывается
	OutcomeCompensate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProcessed:
		return "PROCESSED"
	case OutcomePartialSuccess:
		return "PARTIAL_SUCCESS"
	case OutcomeCompensate:
		return "QUIZ_GENERATION_ERROR"
	default:
		return "UNKNOWN"
	}
}

// DecideOutcome принимает решение об исходе прохода.
// Правила в порядке приоритета (первое сработавшее выигрывает):
//  1. Задана цель и total != цель → компенсация: пользователь платил
//     за точное количество, недобор или перебор непригоден.
//  2. Цель не задана и (ни один сегмент не успешен ИЛИ total <= minCount)
//     → компенсация: слишком тонкий квиз хуже честной ошибки с рефандом.
//  3. Хотя бы один сегмент упал → PARTIAL_SUCCESS.
//  4. Иначе → PROCESSED.
func DecideOutcome(stats PassStats, targetCount, minCount int) Outcome {
	if targetCount > 0 {
		if stats.TotalQuizCount != targetCount {
			return OutcomeCompensate
		}
	} else if !stats.SucceededOnce || stats.TotalQuizCount <= minCount {
		return OutcomeCompensate
	}

	if stats.FailedOnce {
		return OutcomePartialSuccess
	}

	return OutcomeProcessed
}
