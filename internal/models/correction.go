package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// RecordType tags a CorrectionRecord variant.
type RecordType string

const (
	RecordConfirmed RecordType = "confirmed"
	RecordCorrected RecordType = "corrected"
	RecordUndo      RecordType = "undo"
)

// TimestampLayout is the minute-resolution layout used for every review
// timestamp. Undo records reference corrections by this value.
const TimestampLayout = "2006-01-02 15:04"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// CorrectionRecord is one append-only entry of the correction log.
type CorrectionRecord struct {
	// CanonicalQuestion is the KB entry the record is about
	CanonicalQuestion string `json:"canonical_question"`

	// Set on confirmed and corrected records
	ReviewedAt string `json:"reviewed_at,omitempty"`
	Reviewer   string `json:"reviewer,omitempty"`
	Comment    string `json:"comment,omitempty"`

	// Corrected records only
	CorrectedAnswer  string        `json:"corrected_answer,omitempty"`
	UpdatedRows      []RowKey      `json:"updated_rows,omitempty"`
	NLURegenerated   bool          `json:"nlu_regenerated,omitempty"`
	PreviousKBAnswer *string       `json:"previous_kb_answer,omitempty"`
	PreviousRows     []PreviousRow `json:"previous_rows,omitempty"`
	LLMUsed          bool          `json:"llm_used,omitempty"`
	RowDiffs         []RowDiff     `json:"row_diffs,omitempty"`

	// Undo records only
	UndoneAt     string `json:"undone_at,omitempty"`
	UndoneRecord string `json:"undone_record,omitempty"`

	Type RecordType `json:"type"`
}

// correctedRecord mirrors CorrectionRecord for corrected entries, which
// always carry updated_rows, nlu_regenerated and llm_used.
type correctedRecord struct {
	CanonicalQuestion string `json:"canonical_question"`

	ReviewedAt string `json:"reviewed_at,omitempty"`
	Reviewer   string `json:"reviewer,omitempty"`
	Comment    string `json:"comment,omitempty"`

	CorrectedAnswer  string        `json:"corrected_answer,omitempty"`
	UpdatedRows      []RowKey      `json:"updated_rows"`
	NLURegenerated   bool          `json:"nlu_regenerated"`
	PreviousKBAnswer *string       `json:"previous_kb_answer,omitempty"`
	PreviousRows     []PreviousRow `json:"previous_rows,omitempty"`
	LLMUsed          bool          `json:"llm_used"`
	RowDiffs         []RowDiff     `json:"row_diffs,omitempty"`

	UndoneAt     string `json:"undone_at,omitempty"`
	UndoneRecord string `json:"undone_record,omitempty"`

	Type RecordType `json:"type"`
}

type plainRecord CorrectionRecord

// MarshalJSON writes corrected records with their propagation flags even
// when false, so a failed regeneration shows as "nlu_regenerated":false.
func (r CorrectionRecord) MarshalJSON() ([]byte, error) {
	var v any = plainRecord(r)
	if r.Type == RecordCorrected {
		c := correctedRecord(r)
		if c.UpdatedRows == nil {
			c.UpdatedRows = []RowKey{}
		}
		v = c
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// PreviousRow snapshots a candidate row's answer before a correction.
type PreviousRow struct {
	CallID         string `json:"call_id"`
	PairIndex      int    `json:"pair_index"`
	PreviousAnswer string `json:"previous_answer"`
}

// RowDiff traces what a correction did to one candidate row.
type RowDiff struct {
	CallID    string `json:"call_id"`
	PairIndex int    `json:"pair_index"`
	Question  string `json:"question"`
	OldAnswer string `json:"old_answer"`
	NewAnswer string `json:"new_answer"`
	Changed   bool   `json:"changed"`
	LLMUsed   bool   `json:"llm_used"`
	Reason    string `json:"reason"`
}

// Timestamp returns the time the record was written.
func (r CorrectionRecord) Timestamp() string {
	if r.Type == RecordUndo {
		return r.UndoneAt
	}
	return r.ReviewedAt
}

// SameAs reports whether r and other carry the same payload.
func (r CorrectionRecord) SameAs(other CorrectionRecord) bool {
	a, errA := json.Marshal(r)
	b, errB := json.Marshal(other)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(a, b)
}
