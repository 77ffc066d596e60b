package review

import (
	"fmt"
	"strings"

	"github.com/nvandessel/faqloop/internal/candidates"
	"github.com/nvandessel/faqloop/internal/models"
)

// Candidate is a flat export row proposed for propagation.
type Candidate struct {
	Index int          `json:"index"`
	Row   models.QARow `json:"row"`
}

// EntryDetail is an entry with its cluster and audit history.
type EntryDetail struct {
	Entry   models.KnowledgeBaseEntry `json:"entry"`
	Cluster *models.FaqCluster        `json:"cluster,omitempty"`
	History []models.CorrectionRecord `json:"history"`
}

// Entries returns the knowledge base in file order.
func (o *Orchestrator) Entries() ([]models.KnowledgeBaseEntry, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.store.LoadKB()
}

// Entry returns one entry with its cluster and full history.
func (o *Orchestrator) Entry(question string) (*EntryDetail, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	question = strings.TrimSpace(question)
	entries, err := o.store.LoadKB()
	if err != nil {
		return nil, err
	}
	idx := findEntry(entries, question)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrEntryNotFound, question)
	}
	clusters, err := o.store.LoadClusters()
	if err != nil {
		return nil, err
	}
	history, err := o.log.HistoryFor(question)
	if err != nil {
		return nil, err
	}
	return &EntryDetail{
		Entry:   entries[idx],
		Cluster: clusters.Get(question),
		History: history,
	}, nil
}

// Candidates returns the rows a correction of question would consider.
func (o *Orchestrator) Candidates(question string) ([]Candidate, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	question = strings.TrimSpace(question)
	clusters, err := o.store.LoadClusters()
	if err != nil {
		return nil, err
	}
	rows, err := o.store.LoadQARows()
	if err != nil {
		return nil, err
	}
	idx := candidates.Find(question, clusters, rows)
	out := make([]Candidate, len(idx))
	for n, i := range idx {
		out[n] = Candidate{Index: i, Row: rows[i]}
	}
	return out, nil
}

// History returns the newest limit records for question, oldest first. A
// non-positive limit returns everything.
func (o *Orchestrator) History(question string, limit int) ([]models.CorrectionRecord, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	history, err := o.log.HistoryFor(strings.TrimSpace(question))
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}
