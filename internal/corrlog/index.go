package corrlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/faqloop/internal/models"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Index is a disposable SQLite view over the correction log for reporting.
// The JSONL log stays the source of truth; Rebuild replaces the whole table.
type Index struct {
	db     *sql.DB
	logger *zap.Logger
}

// Entry is one indexed correction.
type Entry struct {
	Seq               int    `json:"seq"`
	CanonicalQuestion string `json:"canonical_question"`
	Type              string `json:"type"`
	ReviewedAt        string `json:"reviewed_at"`
	Reviewer          string `json:"reviewer,omitempty"`
	Comment           string `json:"comment,omitempty"`
	ChangedRows       int    `json:"changed_rows"`
}

// QuestionSummary aggregates the log for one canonical question.
type QuestionSummary struct {
	CanonicalQuestion string `json:"canonical_question"`
	Confirmed         int    `json:"confirmed"`
	Corrected         int    `json:"corrected"`
	Undone            int    `json:"undone"`
	LastReviewedAt    string `json:"last_reviewed_at"`
}

// OpenIndex opens or creates the index database at path.
func OpenIndex(path string, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	db.SetMaxOpenConns(1)

	idx := &Index{db: db, logger: logger}
	if err := idx.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate index: %w", err)
	}
	logger.Debug("correction index opened", zap.String("db_path", path))
	return idx, nil
}

func (x *Index) migrate() error {
	schema := `
	PRAGMA journal_mode=WAL;
	PRAGMA busy_timeout=5000;

	CREATE TABLE IF NOT EXISTS corrections (
		seq INTEGER PRIMARY KEY,
		canonical_question TEXT NOT NULL,
		type TEXT NOT NULL,
		reviewed_at TEXT NOT NULL,
		reviewer TEXT,
		comment TEXT,
		changed_rows INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_corrections_question ON corrections(canonical_question);
	`
	_, err := x.db.Exec(schema)
	return err
}

// Close releases the database.
func (x *Index) Close() error {
	return x.db.Close()
}

// Rebuild replaces the indexed rows with records, keeping their order.
func (x *Index) Rebuild(ctx context.Context, records []models.CorrectionRecord) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM corrections`); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO corrections (seq, canonical_question, type, reviewed_at, reviewer, comment, changed_rows)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, i+1, r.CanonicalQuestion, string(r.Type),
			r.Timestamp(), r.Reviewer, r.Comment, len(r.UpdatedRows)); err != nil {
			return fmt.Errorf("index record %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rebuild: %w", err)
	}
	x.logger.Debug("correction index rebuilt", zap.Int("records", len(records)))
	return nil
}

// Summary returns per-question counts ordered by question.
func (x *Index) Summary(ctx context.Context) ([]QuestionSummary, error) {
	rows, err := x.db.QueryContext(ctx, `
		SELECT canonical_question,
			SUM(CASE WHEN type = 'confirmed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN type = 'corrected' THEN 1 ELSE 0 END),
			SUM(CASE WHEN type = 'undo' THEN 1 ELSE 0 END),
			MAX(reviewed_at)
		FROM corrections
		GROUP BY canonical_question
		ORDER BY canonical_question`)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	var out []QuestionSummary
	for rows.Next() {
		var s QuestionSummary
		if err := rows.Scan(&s.CanonicalQuestion, &s.Confirmed, &s.Corrected, &s.Undone, &s.LastReviewedAt); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Recent returns the newest limit entries, newest first.
func (x *Index) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := x.db.QueryContext(ctx, `
		SELECT seq, canonical_question, type, reviewed_at,
			COALESCE(reviewer, ''), COALESCE(comment, ''), changed_rows
		FROM corrections
		ORDER BY seq DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Seq, &e.CanonicalQuestion, &e.Type, &e.ReviewedAt,
			&e.Reviewer, &e.Comment, &e.ChangedRows); err != nil {
			return nil, fmt.Errorf("scan recent: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
