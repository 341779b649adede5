package service

import (
	"strings"
)

// Метки секций в ответе модели
const (
	MarkerUserResponse       = "USER_RESPONSE:"
	MarkerSummary            = "SUMMARY:"
	MarkerRecommendedActions = "RECOMMENDED_ACTIONS:"
)

const blockSeparator = "\n\n"

// parseState - секция, в которую сейчас дописываются блоки без метки
type parseState int

const (
	stateNone parseState = iota
	stateCapturingResponse
	stateCapturingSummary
	stateCapturingActions
)

// Порядок проверки меток важен: блок с несколькими метками относится к первой найденной
var sectionMarkers = [...]struct {
	marker string
	state  parseState
}{
	{MarkerUserResponse, stateCapturingResponse},
	{MarkerSummary, stateCapturingSummary},
	{MarkerRecommendedActions, stateCapturingActions},
}

// ParsedCompletion - три секции, извлечённые из ответа модели
type ParsedCompletion struct {
	UserResponse       string
	Summary            string
	RecommendedActions string
}

// MissingSections возвращает метки секций, которые остались пустыми
func (p ParsedCompletion) MissingSections() []string {
	var missing []string
	if p.UserResponse == "" {
		missing = append(missing, MarkerUserResponse)
	}
	if p.Summary == "" {
		missing = append(missing, MarkerSummary)
	}
	if p.RecommendedActions == "" {
		missing = append(missing, MarkerRecommendedActions)
	}
	return missing
}

// completionParser - состояние свёртки по блокам ответа
// fields хранит блоки каждой секции, индекс = parseState - 1
type completionParser struct {
	state  parseState
	fields [3][]string
}

// step обрабатывает один блок и возвращает новое состояние
func (p completionParser) step(block string) completionParser {
	for _, s := range sectionMarkers {
		if strings.Contains(block, s.marker) {
			p.state = s.state
			body := strings.TrimSpace(strings.ReplaceAll(block, s.marker, ""))
			p.fields[s.state-1] = []string{body}
			return p
		}
	}

	// Блок без метки продолжает текущую секцию; до первой метки блоки отбрасываются
	if p.state != stateNone {
		idx := p.state - 1
		p.fields[idx] = append(append([]string(nil), p.fields[idx]...), block)
	}
	return p
}

func (p completionParser) result() ParsedCompletion {
	value := func(state parseState) string {
		return strings.TrimSpace(strings.Join(p.fields[state-1], "\n"))
	}
	return ParsedCompletion{
		UserResponse:       value(stateCapturingResponse),
		Summary:            value(stateCapturingSummary),
		RecommendedActions: value(stateCapturingActions),
	}
}

// ParseCompletion разбивает ответ модели на блоки по пустой строке и раскладывает их по секциям
// Отсутствующая метка даёт пустое поле, ошибки нет
func ParseCompletion(raw string) ParsedCompletion {
	var p completionParser
	for _, block := range strings.Split(raw, blockSeparator) {
		p = p.step(block)
	}
	return p.result()
}
