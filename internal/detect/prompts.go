package detect

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nvandessel/faqloop/internal/llm"
)

const systemPrompt = `Ты проверяешь ответы операторов колл-центра на соответствие каноническому ответу.
Для каждого ответа оператора найди фактические противоречия с каноническим ответом и комментарием ревизора: числа, проценты, суммы и валюты, налоговые условия (НДС, НДФЛ и т.п.).
Стилистические и формулировочные различия игнорируй.
Верни только JSON-массив, по одному элементу на каждый id:
[{"id": <id>, "needs_edit": true|false, "reason": "<кратко>", "snippet": "<точный фрагмент ответа оператора с ошибкой или пустая строка>"}]
Фрагмент snippet копируй из ответа оператора дословно.`

type promptRow struct {
	ID       int    `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// buildMessages renders one batch as a chat transcript.
func buildMessages(batch []Row, canonicalAnswer, comment string) ([]llm.Message, error) {
	payload := make([]promptRow, len(batch))
	for i, r := range batch {
		payload[i] = promptRow{ID: r.ID, Question: r.Question, Answer: r.Answer}
	}
	rows, err := marshalNoEscape(payload)
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Канонический ответ: %s\n", canonicalAnswer)
	fmt.Fprintf(&b, "Комментарий ревизора: %s\n", comment)
	fmt.Fprintf(&b, "Ответы операторов: %s\n", rows)
	b.WriteString("Ответь только JSON-массивом.")

	return []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: b.String()},
	}, nil
}

func marshalNoEscape(v any) (string, error) {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()), nil
}
