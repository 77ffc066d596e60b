// Package detect asks the text-generation collaborator which candidate
// answers factually contradict a corrected canonical answer.
package detect

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nvandessel/faqloop/internal/llm"
	"github.com/nvandessel/faqloop/internal/tokens"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of rows sent per collaborator call.
const DefaultBatchSize = 8

// Reasons recorded when the collaborator's verdict is not used.
const (
	ReasonNoChange   = "no_change_needed"
	ReasonParseError = "parse_error"
)

// Row is one candidate answer to check. ID is the caller's row index.
type Row struct {
	ID       int
	Question string
	Answer   string
}

// Result is the verdict for one row.
type Result struct {
	NeedsEdit bool   `json:"needs_edit"`
	Reason    string `json:"reason"`
	Snippet   string `json:"snippet"`
}

// verdict is the strict shape of one element of the collaborator's reply.
type verdict struct {
	ID        *int    `json:"id"`
	NeedsEdit *bool   `json:"needs_edit"`
	Reason    *string `json:"reason"`
	Snippet   *string `json:"snippet"`
}

// Detector flags candidate rows whose answers conflict with a canonical
// answer.
type Detector struct {
	client    llm.Client
	batchSize int
	logger    *zap.Logger
}

// New creates a Detector. A non-positive batchSize uses DefaultBatchSize.
func New(client llm.Client, batchSize int, logger *zap.Logger) *Detector {
	if client == nil {
		client = llm.Disabled{}
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{client: client, batchSize: batchSize, logger: logger}
}

// Detect returns a verdict for every row, keyed by Row.ID. Every row starts
// as not needing an edit; the collaborator can only flip rows of the batch it
// was shown. A batch whose reply cannot be decoded falls back to
// ReasonParseError. A failed or timed-out call counts as an unavailable
// collaborator and leaves the batch at ReasonNoChange; later batches still
// run.
func (d *Detector) Detect(ctx context.Context, rows []Row, canonicalAnswer, comment string) map[int]Result {
	results := make(map[int]Result, len(rows))
	for _, r := range rows {
		results[r.ID] = Result{Reason: ReasonNoChange}
	}
	if len(rows) == 0 || !d.client.Available() {
		return results
	}

	for start := 0; start < len(rows); start += d.batchSize {
		end := min(start+d.batchSize, len(rows))
		d.detectBatch(ctx, rows[start:end], canonicalAnswer, comment, results)
	}
	return results
}

func (d *Detector) detectBatch(ctx context.Context, batch []Row, canonicalAnswer, comment string, results map[int]Result) {
	fallback := func(reason string) {
		for _, r := range batch {
			results[r.ID] = Result{Reason: reason}
		}
	}

	messages, err := buildMessages(batch, canonicalAnswer, comment)
	if err != nil {
		d.logger.Warn("detection prompt failed", zap.Error(err))
		fallback(ReasonParseError)
		return
	}
	d.logger.Debug("detecting batch",
		zap.Int("rows", len(batch)),
		zap.Int("est_tokens", tokens.EstimateAll(messages[0].Content, messages[1].Content)))

	reply, err := d.client.Generate(ctx, messages, llm.Options{})
	if err != nil {
		d.logger.Warn("detection call failed, treating collaborator as unavailable",
			zap.Int("rows", len(batch)), zap.Error(err))
		fallback(ReasonNoChange)
		return
	}

	verdicts, err := parseVerdicts(reply)
	if err != nil {
		d.logger.Warn("detection reply unparseable", zap.Int("rows", len(batch)), zap.Error(err))
		fallback(ReasonParseError)
		return
	}

	inBatch := make(map[int]bool, len(batch))
	for _, r := range batch {
		inBatch[r.ID] = true
	}
	for _, v := range verdicts {
		if v.ID == nil || !inBatch[*v.ID] {
			continue
		}
		res := Result{NeedsEdit: *v.NeedsEdit}
		if v.Reason != nil {
			res.Reason = *v.Reason
		}
		if v.Snippet != nil {
			res.Snippet = *v.Snippet
		}
		results[*v.ID] = res
	}
}

// parseVerdicts decodes a reply into verdicts. The reply must be a JSON array
// whose elements are objects with an integer id and a boolean needs_edit;
// reason and snippet must be strings when present.
func parseVerdicts(reply string) ([]verdict, error) {
	var items []json.RawMessage
	if err := llm.DecodeJSON(reply, &items); err != nil {
		return nil, err
	}

	verdicts := make([]verdict, 0, len(items))
	for i, raw := range items {
		var v verdict
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", llm.ErrParse, i, err)
		}
		if v.ID == nil {
			continue
		}
		if v.NeedsEdit == nil {
			return nil, fmt.Errorf("%w: item %d: needs_edit missing", llm.ErrParse, i)
		}
		verdicts = append(verdicts, v)
	}
	return verdicts, nil
}
