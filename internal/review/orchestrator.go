// Package review implements the reviewer operations on the knowledge base:
// confirming an entry, correcting it and propagating the fix to the flat
// export, and undoing the last correction.
package review

import (
	"context"
	"sync"
	"time"

	"github.com/nvandessel/faqloop/internal/detect"
	"github.com/nvandessel/faqloop/internal/models"
	"github.com/nvandessel/faqloop/internal/rewrite"
	"go.uber.org/zap"
)

// DefaultMaxRewrites caps the rows one correction may change.
const DefaultMaxRewrites = 20

// ReasonLimitReached marks a flagged row skipped because the rewrite budget
// was spent.
const ReasonLimitReached = "limit_reached"

// Store loads and saves the review collections.
type Store interface {
	LoadKB() ([]models.KnowledgeBaseEntry, error)
	SaveKB(entries []models.KnowledgeBaseEntry) error
	LoadClusters() (*models.ClusterSet, error)
	SaveClusters(set *models.ClusterSet) error
	LoadQARows() ([]models.QARow, error)
	SaveQARows(rows []models.QARow) error
}

// CorrectionLog is the append-only audit trail.
type CorrectionLog interface {
	Append(record models.CorrectionRecord) (bool, error)
	HistoryFor(question string) ([]models.CorrectionRecord, error)
}

// Detector flags candidate rows that contradict a canonical answer.
type Detector interface {
	Detect(ctx context.Context, rows []detect.Row, canonicalAnswer, comment string) map[int]detect.Result
}

// Rewriter repairs a flagged snippet.
type Rewriter interface {
	Rewrite(ctx context.Context, original, snippet, canonicalAnswer, comment string) rewrite.Result
}

// SourcePatcher writes a row's answer back to its per-call record.
type SourcePatcher interface {
	PatchAnswer(callID string, pairIndex int, answer string) (bool, error)
}

// Regenerator rebuilds the flat export.
type Regenerator interface {
	Regenerate(ctx context.Context) error
}

// Options wires an Orchestrator.
type Options struct {
	Store       Store
	Log         CorrectionLog
	Detector    Detector
	Rewriter    Rewriter
	Patcher     SourcePatcher
	Regenerator Regenerator

	// MaxRewrites defaults to DefaultMaxRewrites
	MaxRewrites int

	// Now defaults to time.Now
	Now func() time.Time

	Logger *zap.Logger
}

// Orchestrator runs review operations one at a time.
type Orchestrator struct {
	store       Store
	log         CorrectionLog
	detector    Detector
	rewriter    Rewriter
	patcher     SourcePatcher
	regenerator Regenerator
	maxRewrites int
	now         func() time.Time
	logger      *zap.Logger

	mu sync.Mutex
}

// New creates an Orchestrator. Store and Log are required; a nil Detector or
// Rewriter disables collaborator-assisted propagation, a nil Patcher skips
// per-call records and a nil Regenerator skips export regeneration.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		store:       opts.Store,
		log:         opts.Log,
		detector:    opts.Detector,
		rewriter:    opts.Rewriter,
		patcher:     opts.Patcher,
		regenerator: opts.Regenerator,
		maxRewrites: opts.MaxRewrites,
		now:         opts.Now,
		logger:      opts.Logger,
	}
	if o.detector == nil {
		o.detector = detect.New(nil, 0, nil)
	}
	if o.rewriter == nil {
		o.rewriter = rewrite.New(nil, nil)
	}
	if o.maxRewrites <= 0 {
		o.maxRewrites = DefaultMaxRewrites
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

func (o *Orchestrator) timestamp() string {
	return models.FormatTimestamp(o.now())
}

// patchSource writes answer back to the row's per-call record. Failures are
// logged and otherwise ignored.
func (o *Orchestrator) patchSource(op *operation, row models.QARow, answer string) {
	if o.patcher == nil || row.CallID == "" || row.PairIndex <= 0 {
		return
	}
	patched, err := o.patcher.PatchAnswer(row.CallID, row.PairIndex, answer)
	if err != nil {
		op.logger.Warn("per-call record patch failed",
			zap.String("call_id", row.CallID),
			zap.Int("pair_index", row.PairIndex),
			zap.Error(err))
		return
	}
	if !patched {
		op.logger.Debug("per-call record not patched",
			zap.String("call_id", row.CallID),
			zap.Int("pair_index", row.PairIndex))
	}
}

// regenerate rebuilds the export and reports whether it succeeded.
func (o *Orchestrator) regenerate(ctx context.Context, op *operation) bool {
	if o.regenerator == nil {
		return false
	}
	if err := o.regenerator.Regenerate(ctx); err != nil {
		op.logger.Error("export regeneration failed", zap.Error(err))
		return false
	}
	return true
}

func findEntry(entries []models.KnowledgeBaseEntry, question string) int {
	for i := range entries {
		if entries[i].CanonicalQuestion == question {
			return i
		}
	}
	return -1
}
