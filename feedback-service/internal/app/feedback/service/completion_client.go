package service

import (
	"context"
	"fmt"

	"feedbackai/feedback-service/internal/app/feedback/infrastructure"
)

const promptTemplate = `You are an AI assistant for a feedback management system.
A user has submitted the following feedback:

Rating: %d/5 stars
Review: %s

Please provide three things in your response, clearly separated:

1. USER_RESPONSE: A friendly, empathetic response to thank the user for their feedback (2-3 sentences)
2. SUMMARY: A concise summary of the feedback (1-2 sentences)
3. RECOMMENDED_ACTIONS: Specific, actionable recommendations for the business based on this feedback (2-4 bullet points)

Format your response exactly like this:
USER_RESPONSE:
[your response here]

SUMMARY:
[your summary here]

RECOMMENDED_ACTIONS:
[your actions here]`

// DefaultGenerationParams - фиксированные параметры генерации ответа на отзыв
var DefaultGenerationParams = infrastructure.GenerationParams{
	Temperature:     0.7,
	MaxOutputTokens: 1000,
}

// BuildPrompt подставляет оценку и текст отзыва в шаблон промпта
func BuildPrompt(rating int, review string) string {
	return fmt.Sprintf(promptTemplate, rating, review)
}

// CompletionClient превращает отзыв в промпт и получает сырой ответ модели
// Повторов нет: один вызов модели на одну отправку отзыва
type CompletionClient struct {
	completer infrastructure.TextCompleter
	params    infrastructure.GenerationParams
}

func NewCompletionClient(completer infrastructure.TextCompleter) *CompletionClient {
	return &CompletionClient{
		completer: completer,
		params:    DefaultGenerationParams,
	}
}

// Generate возвращает ответ модели; любая ошибка модели оборачивается в ErrGenerationFailed
func (c *CompletionClient) Generate(ctx context.Context, rating int, review string) (string, error) {
	raw, err := c.completer.Complete(ctx, BuildPrompt(rating, review), c.params)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	return raw, nil
}
