// Package candidates finds the flat export rows that belong to a knowledge
// base entry.
package candidates

import (
	"strings"

	"github.com/nvandessel/faqloop/internal/models"
	"golang.org/x/text/cases"
)

// Find returns the ascending indices of rows that are candidates for
// question. A row matches when its call is a source of the question's
// cluster, or when its folded question text contains the folded canonical
// question or any non-empty near-duplicate. Without a cluster there are no
// candidates.
func Find(question string, clusters *models.ClusterSet, rows []models.QARow) []int {
	cluster := clusters.Get(question)
	if cluster == nil {
		return nil
	}

	fold := cases.Fold()
	sources := make(map[string]bool, len(cluster.SourceConversationIDs))
	for _, id := range cluster.SourceConversationIDs {
		sources[id] = true
	}

	var needles []string
	if q := fold.String(question); q != "" {
		needles = append(needles, q)
	}
	for _, dup := range cluster.NearDuplicates {
		if d := fold.String(dup); d != "" {
			needles = append(needles, d)
		}
	}

	var out []int
	for i, row := range rows {
		if sources[row.CallID] || containsAny(fold.String(row.Question), needles) {
			out = append(out, i)
		}
	}
	return out
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
