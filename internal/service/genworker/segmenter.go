package genworker

import (
	"strings"
)

// Segment разбивает текст документа на сегменты, пригодные для одного
// запроса к LLM. Предпочтительные точки разреза — markdown-заголовки
// первого и второго уровня; блоки длиннее chunkSize дорезаются по
// абзацам/строкам/пробелам с перекрытием overlap символов.
// Чистая функция: порядок сегментов соответствует порядку текста
func Segment(content string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}

	var segments []string
	for _, block := range splitByHeadings(content) {
		runes := []rune(block)
		if len(runes) <= chunkSize {
			if trimmed := strings.TrimSpace(block); trimmed != "" {
				segments = append(segments, trimmed)
			}
			continue
		}
		segments = append(segments, splitBySize(runes, chunkSize, overlap)...)
	}
	return segments
}

// splitByHeadings режет текст на блоки по заголовкам "# " и "## ".
// Заголовок остается в начале своего блока
func splitByHeadings(content string) []string {
	lines := strings.Split(content, "\n")

	var blocks []string
	var current []string
	for _, line := range lines {
		if isHeading(line) && len(current) > 0 {
			blocks = append(blocks, strings.Join(current, "\n"))
			current = current[:0]
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, strings.Join(current, "\n"))
	}
	return blocks
}

func isHeading(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "# ") || strings.HasPrefix(trimmed, "## ")
}

// splitBySize дорезает длинный блок на куски не длиннее chunkSize.
// Точка разреза ищется назад от границы: пустая строка, перенос, пробел;
// если сепаратора нет — жесткий разрез. Следующий кусок начинается
// с отступом overlap назад от точки разреза
func splitBySize(runes []rune, chunkSize, overlap int) []string {
	var segments []string

	start := 0
	for start < len(runes) {
		end := start + chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = findCut(runes, start, end)
		}

		if trimmed := strings.TrimSpace(string(runes[start:end])); trimmed != "" {
			segments = append(segments, trimmed)
		}

		if end == len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			// Гарантия прогресса при патологически больших overlap
			next = end
		}
		start = next
	}

	return segments
}

// findCut ищет точку разреза назад от end, не уходя дальше половины куска
func findCut(runes []rune, start, end int) int {
	limit := start + (end-start)/2

	text := string(runes[start:end])
	for _, sep := range []string{"\n\n", "\n", " "} {
		if idx := strings.LastIndex(text, sep); idx >= 0 {
			cut := start + len([]rune(text[:idx]))
			if cut > limit {
				return cut
			}
		}
	}
	return end
}
