// Package rewrite repairs a flagged span of an answer through the
// text-generation collaborator, touching nothing else.
package rewrite

import (
	"context"
	"fmt"
	"strings"

	"github.com/nvandessel/faqloop/internal/llm"
	"go.uber.org/zap"
)

// Reasons reported in Result.
const (
	ReasonFixed           = "fixed"
	ReasonNoSnippet       = "no_snippet"
	ReasonParseError      = "parse_error_rewrite"
	ReasonEmptyRewrite    = "empty_rewrite"
	ReasonSnippetNotFound = "snippet_not_found"
)

const systemPrompt = `Ты исправляешь ответ оператора колл-центра.
Замени только указанный фрагмент корректной формулировкой, согласованной с каноническим ответом и комментарием ревизора.
Не добавляй новых фактов и не меняй остальной текст.
Верни только JSON: {"replacement": "<новый текст фрагмента>"}`

// Result is the outcome of one rewrite.
type Result struct {
	Answer  string `json:"answer"`
	Changed bool   `json:"changed"`
	Reason  string `json:"reason"`
}

type reply struct {
	Replacement *string `json:"replacement"`
}

// Rewriter replaces flagged snippets.
type Rewriter struct {
	client llm.Client
	logger *zap.Logger
}

// New creates a Rewriter.
func New(client llm.Client, logger *zap.Logger) *Rewriter {
	if client == nil {
		client = llm.Disabled{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rewriter{client: client, logger: logger}
}

// Rewrite asks for a replacement of snippet and substitutes it for the first
// occurrence of snippet in original. On any failure the original answer is
// returned unchanged with the reason.
func (r *Rewriter) Rewrite(ctx context.Context, original, snippet, canonicalAnswer, comment string) Result {
	unchanged := func(reason string) Result {
		return Result{Answer: original, Reason: reason}
	}
	if snippet == "" || !r.client.Available() {
		return unchanged(ReasonNoSnippet)
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: userPrompt(original, snippet, canonicalAnswer, comment)},
	}
	text, err := r.client.Generate(ctx, messages, llm.Options{})
	if err != nil {
		r.logger.Warn("rewrite call failed, treating collaborator as unavailable", zap.Error(err))
		return unchanged(ReasonNoSnippet)
	}

	var out reply
	if err := llm.DecodeJSON(text, &out); err != nil || out.Replacement == nil {
		r.logger.Warn("rewrite reply unparseable", zap.String("reply", text), zap.Error(err))
		return unchanged(ReasonParseError)
	}

	replacement := strings.TrimSpace(*out.Replacement)
	if replacement == "" {
		return unchanged(ReasonEmptyRewrite)
	}
	if !strings.Contains(original, snippet) {
		return unchanged(ReasonSnippetNotFound)
	}

	return Result{
		Answer:  strings.Replace(original, snippet, replacement, 1),
		Changed: true,
		Reason:  ReasonFixed,
	}
}

func userPrompt(original, snippet, canonicalAnswer, comment string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Исходный ответ: %s\n", original)
	fmt.Fprintf(&b, "Фрагмент: %s\n", snippet)
	fmt.Fprintf(&b, "Канонический ответ: %s\n", canonicalAnswer)
	fmt.Fprintf(&b, "Комментарий ревизора: %s\n", comment)
	return b.String()
}
