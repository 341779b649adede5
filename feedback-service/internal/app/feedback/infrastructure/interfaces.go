package infrastructure

import "context"

// MessagePublisher интерфейс для отправки сообщений в очередь (Kafka)
// Используется для dependency injection и упрощения тестирования
type MessagePublisher interface {
	PublishMessage(ctx context.Context, key string, value []byte) error
	Close() error
}

// GenerationParams - параметры генерации текста
type GenerationParams struct {
	Temperature     float32
	MaxOutputTokens int32
}

// TextCompleter - внешняя модель, возвращающая текст по промпту
// Реализация: gemini.Client; в тестах подменяется моком
type TextCompleter interface {
	Complete(ctx context.Context, prompt string, params GenerationParams) (string, error)
}
