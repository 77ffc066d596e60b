package export

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/faqloop/internal/models"
	"github.com/nvandessel/faqloop/internal/store"
)

func setup(t *testing.T, records map[string]string) (*Exporter, store.Paths) {
	t.Helper()
	root := t.TempDir()
	paths := store.DefaultPaths(root)
	if err := os.MkdirAll(paths.CallRecords, 0755); err != nil {
		t.Fatal(err)
	}
	for name, content := range records {
		if err := os.WriteFile(filepath.Join(paths.CallRecords, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	exp := NewExporter(
		store.NewCallRecords(paths.CallRecords, nil),
		store.NewRecords(paths, nil),
		nil, root, nil)
	return exp, paths
}

func TestExporter_Build(t *testing.T) {
	exp, _ := setup(t, map[string]string{
		"b.json": `{
			"conversation_id": "call-b",
			"client_intent": "rates",
			"subtopics": ["mortgage", "", "rates", null],
			"quality_flags": ["noisy"],
			"verbatim_QA_pairs": [
				{"q": "  Какая ставка? ", "a": " 15% "},
				{"q": "", "a": "  "},
				{"q": "Добрый день, чем могу помочь?", "a": "Хочу кредит"},
				{"q": "Срок?", "a": "Год", "answer_speaker": "bot"}
			]
		}`,
		"a.json":    `{"verbatim_QA_pairs": [{"q": "Где офис?", "a": "На Ленина"}]}`,
		"notes.txt": "ignored",
	})

	rows, err := exp.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4: %+v", len(rows), rows)
	}

	first := rows[0]
	if first.CallID != "a" {
		t.Errorf("call id should fall back to file stem, got %q", first.CallID)
	}
	if first.Hashtags == nil || len(first.Hashtags) != 0 {
		t.Errorf("hashtags = %#v, want empty non-nil", first.Hashtags)
	}
	if first.QualityFlags == nil {
		t.Error("quality flags should be empty, not nil")
	}
	if first.SourceFile != "insights_per_call/a.json" {
		t.Errorf("source_file = %q", first.SourceFile)
	}

	b1 := rows[1]
	if b1.Question != "Какая ставка?" || b1.Answer != "15%" {
		t.Errorf("text not trimmed: %+v", b1)
	}
	if b1.PairIndex != 1 || b1.CallID != "call-b" {
		t.Errorf("key = %+v", b1.Key())
	}
	if !reflect.DeepEqual(b1.Hashtags, []string{"rates", "mortgage"}) {
		t.Errorf("hashtags = %v", b1.Hashtags)
	}
	if b1.QuestionSpeaker != models.SpeakerClient || b1.AnswerSpeaker != models.SpeakerAgent {
		t.Errorf("speakers = %q/%q", b1.QuestionSpeaker, b1.AnswerSpeaker)
	}
	if b1.NeedsReview || b1.ReviewNotes != "" {
		t.Errorf("fresh rows must not need review: %+v", b1)
	}

	// The blank pair is skipped but pair indices keep their positions.
	b3 := rows[2]
	if b3.PairIndex != 3 {
		t.Errorf("pair_index = %d, want 3", b3.PairIndex)
	}
	if b3.QuestionSpeaker != models.SpeakerClient {
		t.Errorf("question speaker defaults to client, got %q", b3.QuestionSpeaker)
	}

	if rows[3].AnswerSpeaker != "bot" {
		t.Errorf("explicit speaker should win, got %q", rows[3].AnswerSpeaker)
	}
}

func TestExporter_QuestionSpeakerDefaultsToClient(t *testing.T) {
	exp, _ := setup(t, map[string]string{
		"g.json": `{"conversation_id": "g", "verbatim_QA_pairs": [
			{"q": "Добрый день, какая ставка по кредиту?", "a": "15%"},
			{"q": "Какая компания страхует залог?", "a": "Добрый день, компания Ромашка"},
			{"q": "Здравствуйте", "a": "Да", "question_speaker": "agent"}
		]}`,
	})

	rows, err := exp.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	for _, row := range rows[:2] {
		if row.QuestionSpeaker != models.SpeakerClient {
			t.Errorf("client question %q labeled %q", row.Question, row.QuestionSpeaker)
		}
		if row.AnswerSpeaker != models.SpeakerAgent {
			t.Errorf("answer %q labeled %q", row.Answer, row.AnswerSpeaker)
		}
	}
	if rows[2].QuestionSpeaker != models.SpeakerAgent {
		t.Errorf("explicit question speaker should win, got %q", rows[2].QuestionSpeaker)
	}
}

func TestExporter_Regenerate(t *testing.T) {
	exp, paths := setup(t, map[string]string{
		"c1.json": `{"conversation_id": "c1", "client_intent": "rates", "verbatim_QA_pairs": [{"q": "Ставка?", "a": "15%"}]}`,
	})

	if err := exp.Regenerate(context.Background()); err != nil {
		t.Fatalf("Regenerate() error = %v", err)
	}
	data, err := os.ReadFile(paths.QAExport)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	for _, want := range []string{`"call_id":"c1"`, `"hashtags":["rates"]`, `"needs_review":false`, `"review_notes":""`} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("line missing %s: %s", want, lines[0])
		}
	}
}

func TestExporter_RegenerateKeepsAnnotations(t *testing.T) {
	exp, paths := setup(t, map[string]string{
		"c1.json": `{"conversation_id": "c1", "verbatim_QA_pairs": [{"q": "Ставка?", "a": "15%"}, {"q": "Срок?", "a": "год"}]}`,
	})
	records := store.NewRecords(paths, nil)
	previous := []models.QARow{
		{CallID: "c1", PairIndex: 1, Question: "Ставка?", Answer: "20%", NeedsReview: true, ReviewNotes: "Откат правки"},
		{CallID: "gone", PairIndex: 3, Question: "Офис?", Answer: "Ленина", Hashtags: []string{}, QualityFlags: []string{}},
	}
	if err := records.SaveQARows(previous); err != nil {
		t.Fatal(err)
	}

	if err := exp.Regenerate(context.Background()); err != nil {
		t.Fatalf("Regenerate() error = %v", err)
	}
	rows, err := records.LoadQARows()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0].Answer != "15%" || !rows[0].NeedsReview || rows[0].ReviewNotes != "Откат правки" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].NeedsReview || rows[1].ReviewNotes != "" {
		t.Errorf("new row carries annotations: %+v", rows[1])
	}
	if rows[2].CallID != "gone" || rows[2].PairIndex != 3 {
		t.Errorf("row without a source record was dropped: %+v", rows[2])
	}
}

func TestMerge(t *testing.T) {
	built := []models.QARow{{CallID: "a", PairIndex: 1}, {CallID: "a", PairIndex: 2}}
	previous := []models.QARow{
		{CallID: "a", PairIndex: 2, ReviewNotes: "note"},
		{CallID: "a", PairIndex: 5, ReviewNotes: "stale pair"},
		{CallID: "b", PairIndex: 1},
	}
	got, kept := Merge(built, previous)
	if kept != 1 || len(got) != 3 {
		t.Fatalf("Merge() = %d rows, kept %d", len(got), kept)
	}
	if got[1].ReviewNotes != "note" || got[0].ReviewNotes != "" {
		t.Errorf("annotations = %q, %q", got[0].ReviewNotes, got[1].ReviewNotes)
	}
	if got[2].CallID != "b" {
		t.Errorf("appended row = %+v", got[2])
	}
}

func TestExporter_MissingDirectory(t *testing.T) {
	root := t.TempDir()
	paths := store.DefaultPaths(root)
	exp := NewExporter(store.NewCallRecords(paths.CallRecords, nil), store.NewRecords(paths, nil), nil, root, nil)
	if err := exp.Regenerate(context.Background()); err == nil {
		t.Error("expected error for missing call record directory")
	}
}

func TestCommandRegenerator(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()

	ok := NewCommandRegenerator([]string{"sh", "-c", "echo done > marker"}, dir, time.Minute, nil)
	if err := ok.Regenerate(context.Background()); err != nil {
		t.Fatalf("Regenerate() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "marker")); err != nil {
		t.Error("command did not run in the configured directory")
	}

	fail := NewCommandRegenerator([]string{"sh", "-c", "echo broken >&2; exit 2"}, dir, time.Minute, nil)
	err := fail.Regenerate(context.Background())
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Errorf("Regenerate() error = %v, want output in error", err)
	}
}

func TestCommandRegenerator_Default(t *testing.T) {
	c := NewCommandRegenerator(nil, "", 0, nil)
	if !reflect.DeepEqual(c.argv, DefaultCommand) {
		t.Errorf("argv = %v", c.argv)
	}
}

var (
	_ Regenerator = (*Exporter)(nil)
	_ Regenerator = (*CommandRegenerator)(nil)
)
