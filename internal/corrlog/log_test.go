package corrlog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/faqloop/internal/models"
)

func corrected(question, at, answer string) models.CorrectionRecord {
	prev := "old"
	return models.CorrectionRecord{
		CanonicalQuestion: question,
		ReviewedAt:        at,
		Reviewer:          "anna",
		CorrectedAnswer:   answer,
		PreviousKBAnswer:  &prev,
		UpdatedRows:       []models.RowKey{{CallID: "c1", PairIndex: 1}},
		Type:              models.RecordCorrected,
	}
}

func TestLog_MissingFileIsEmpty(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "corrections", "corrections.jsonl"), nil)

	records, err := l.All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("All() = %d records, want 0", len(records))
	}
	last, err := l.Last()
	if err != nil || last != nil {
		t.Errorf("Last() = %v, %v; want nil, nil", last, err)
	}
}

func TestLog_AppendIsIdempotent(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "corrections", "corrections.jsonl"), nil)
	rec := corrected("Какая ставка?", "2024-05-01 10:00", "15%")

	appended, err := l.Append(rec)
	if err != nil || !appended {
		t.Fatalf("first Append() = %v, %v", appended, err)
	}
	appended, err = l.Append(rec)
	if err != nil {
		t.Fatalf("second Append() error = %v", err)
	}
	if appended {
		t.Error("identical consecutive record should not be appended")
	}

	other := corrected("Какая ставка?", "2024-05-01 10:05", "16%")
	if appended, _ := l.Append(other); !appended {
		t.Error("different record should be appended")
	}
	// Same as an older record but not the last one.
	if appended, _ := l.Append(rec); !appended {
		t.Error("record equal to a non-last entry should be appended")
	}

	records, _ := l.All()
	if len(records) != 3 {
		t.Errorf("got %d records, want 3", len(records))
	}
}

func TestLog_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrections.jsonl")
	content := `{"canonical_question":"q1","reviewed_at":"2024-05-01 10:00","type":"confirmed"}
not json at all

{"canonical_question":"q2","reviewed_at":"2024-05-01 11:00","type":"corrected","corrected_answer":"a"}
{"canonical_question":"q3"` // torn write, no newline
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	l := New(path, nil)

	snap, err := l.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(snap.Records) != 2 {
		t.Errorf("got %d records, want 2", len(snap.Records))
	}
	if snap.Malformed != 2 {
		t.Errorf("Malformed = %d, want 2", snap.Malformed)
	}

	// The next append must start on its own line.
	if _, err := l.Append(corrected("q4", "2024-05-02 09:00", "x")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	snap, _ = l.Read()
	if len(snap.Records) != 3 || snap.Records[2].CanonicalQuestion != "q4" {
		t.Errorf("records after append = %+v", snap.Records)
	}
}

func TestLog_LastForAndHistory(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "corrections.jsonl"), nil)
	records := []models.CorrectionRecord{
		corrected("q1", "2024-05-01 10:00", "a1"),
		{CanonicalQuestion: "q2", ReviewedAt: "2024-05-01 10:01", Type: models.RecordConfirmed},
		corrected("q1", "2024-05-01 10:02", "a2"),
		{CanonicalQuestion: "q1", UndoneAt: "2024-05-01 10:03", UndoneRecord: "2024-05-01 10:02", Type: models.RecordUndo},
	}
	for _, r := range records {
		if _, err := l.Append(r); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	last, err := l.LastFor("q1")
	if err != nil {
		t.Fatalf("LastFor() error = %v", err)
	}
	if last == nil || last.CorrectedAnswer != "a2" {
		t.Errorf("LastFor(q1) = %+v, want the a2 correction", last)
	}
	if none, _ := l.LastFor("q2"); none != nil {
		t.Errorf("LastFor(q2) = %+v, want nil (only confirmed)", none)
	}

	history, _ := l.HistoryFor("q1")
	if len(history) != 3 {
		t.Fatalf("HistoryFor(q1) = %d records, want 3", len(history))
	}
	if history[2].Type != models.RecordUndo {
		t.Errorf("history not in append order: %+v", history)
	}

	tail, _ := l.Last()
	if tail == nil || tail.Timestamp() != "2024-05-01 10:03" {
		t.Errorf("Last() = %+v", tail)
	}
}

func TestLog_WritesUnescapedUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrections.jsonl")
	l := New(path, nil)
	if _, err := l.Append(corrected("Какая ставка?", "2024-05-01 10:00", "<15%> & больше")); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "<15%> & больше") {
		t.Errorf("line = %s", data)
	}
	if strings.Count(string(data), "\n") != 1 {
		t.Errorf("expected exactly one line, got %q", data)
	}
}

func TestIndex_RebuildSummaryRecent(t *testing.T) {
	ctx := context.Background()
	idx, err := OpenIndex(filepath.Join(t.TempDir(), "state", "corrections.db"), nil)
	if err != nil {
		t.Fatalf("OpenIndex() error = %v", err)
	}
	defer idx.Close()

	records := []models.CorrectionRecord{
		corrected("q1", "2024-05-01 10:00", "a1"),
		{CanonicalQuestion: "q2", ReviewedAt: "2024-05-01 10:01", Reviewer: "bob", Type: models.RecordConfirmed},
		{CanonicalQuestion: "q1", UndoneAt: "2024-05-01 10:03", UndoneRecord: "2024-05-01 10:00", Type: models.RecordUndo},
	}
	if err := idx.Rebuild(ctx, records); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	// Rebuilding twice must not duplicate rows.
	if err := idx.Rebuild(ctx, records); err != nil {
		t.Fatalf("second Rebuild() error = %v", err)
	}

	summary, err := idx.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if len(summary) != 2 {
		t.Fatalf("Summary() = %+v", summary)
	}
	q1 := summary[0]
	if q1.CanonicalQuestion != "q1" || q1.Corrected != 1 || q1.Undone != 1 || q1.Confirmed != 0 {
		t.Errorf("q1 summary = %+v", q1)
	}
	if q1.LastReviewedAt != "2024-05-01 10:03" {
		t.Errorf("q1 last = %q", q1.LastReviewedAt)
	}

	recent, err := idx.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Recent(2) = %d entries", len(recent))
	}
	if recent[0].Type != "undo" || recent[1].Reviewer != "bob" {
		t.Errorf("Recent() = %+v", recent)
	}
	if recent[0].Seq != 3 {
		t.Errorf("Seq = %d, want 3", recent[0].Seq)
	}
}
