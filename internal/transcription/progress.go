package transcription

import "fmt"

// ProgressFunc receives human-readable status updates. It is called
// synchronously from the orchestrating goroutine and must not block for long.
type ProgressFunc func(message string)

func (p ProgressFunc) emit(message string) {
	if p != nil {
		p(message)
	}
}

func preparingMessage(segments int) string {
	return fmt.Sprintf("Подготовка файла: разбиение на %d частей...", segments)
}

func batchMessage(first, last, total int) string {
	return fmt.Sprintf("Обработка частей %d-%d из %d...", first, last, total)
}

const assemblingMessage = "Сборка финального текста..."
