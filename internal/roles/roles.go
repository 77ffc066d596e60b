// Package roles guesses which party of a call spoke a line of text.
package roles

import (
	"strings"

	"github.com/nvandessel/faqloop/internal/models"
	"golang.org/x/text/cases"
)

// Classifier assigns a speaker to a line of text. ok is false when the
// classifier has no opinion and the caller should keep its default.
type Classifier interface {
	Classify(text string) (speaker string, ok bool)
}

// DefaultAgentPhrases are stock phrases call-center agents use.
var DefaultAgentPhrases = []string{
	"чем могу помочь",
	"добрый день",
	"компания",
	"здравствуйте, вы позвонили",
	"назовите, пожалуйста, номер договора",
	"секунду, я проверю",
}

// KeywordClassifier labels text as agent speech when it contains one of its
// phrases. It never labels text as client speech.
type KeywordClassifier struct {
	phrases []string
}

// NewKeywordClassifier returns a classifier for phrases, or for
// DefaultAgentPhrases when none are given.
func NewKeywordClassifier(phrases ...string) *KeywordClassifier {
	if len(phrases) == 0 {
		phrases = DefaultAgentPhrases
	}
	fold := cases.Fold()
	k := &KeywordClassifier{}
	for _, p := range phrases {
		if p = fold.String(strings.TrimSpace(p)); p != "" {
			k.phrases = append(k.phrases, p)
		}
	}
	return k
}

// Classify implements Classifier.
func (k *KeywordClassifier) Classify(text string) (string, bool) {
	folded := cases.Fold().String(text)
	for _, p := range k.phrases {
		if strings.Contains(folded, p) {
			return models.SpeakerAgent, true
		}
	}
	return "", false
}
