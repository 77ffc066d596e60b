package models

// Default speaker roles for exported QA pairs.
const (
	SpeakerClient = "client"
	SpeakerAgent  = "agent"
)

// QARow is one line of the flat question/answer export. (CallID, PairIndex)
// identifies a row.
type QARow struct {
	CallID string `json:"call_id"`

	// PairIndex is the 1-based position of the pair inside its call record.
	PairIndex int `json:"pair_index"`

	Question        string   `json:"question"`
	Answer          string   `json:"answer"`
	QuestionSpeaker string   `json:"question_speaker,omitempty"`
	AnswerSpeaker   string   `json:"answer_speaker,omitempty"`
	Intent          string   `json:"intent"`
	Hashtags        []string `json:"hashtags"`
	QualityFlags    []string `json:"quality_flags"`
	SourceFile      string   `json:"source_file,omitempty"`

	// NeedsReview marks rows whose answer may be stale.
	NeedsReview bool `json:"needs_review"`

	// ReviewNotes describes the most recent change to the row.
	ReviewNotes string `json:"review_notes"`

	Extra Extra `json:"-"`
}

// RowKey identifies a row across the flat export and call records.
type RowKey struct {
	CallID    string `json:"call_id"`
	PairIndex int    `json:"pair_index"`
}

// Key returns the row's identity.
func (r QARow) Key() RowKey {
	return RowKey{CallID: r.CallID, PairIndex: r.PairIndex}
}

type qaRowAlias QARow

// UnmarshalJSON keeps unknown keys in Extra.
func (r *QARow) UnmarshalJSON(data []byte) error {
	var a qaRowAlias
	extra, err := decodeWithExtra(data, &a)
	if err != nil {
		return err
	}
	*r = QARow(a)
	r.Extra = extra
	return nil
}

// MarshalJSON writes Extra back alongside the modeled fields.
func (r QARow) MarshalJSON() ([]byte, error) {
	return encodeWithExtra(qaRowAlias(r), r.Extra)
}

// CallRecord is the per-call analysis output the flat export is built from.
// Only the pairs are modeled; every other key stays in Extra so a patch
// rewrites nothing but the answer it targets.
type CallRecord struct {
	ConversationID string   `json:"conversation_id,omitempty"`
	Pairs          []QAPair `json:"verbatim_QA_pairs"`

	Extra Extra `json:"-"`
}

// ClientIntent returns the call-level intent label.
func (c CallRecord) ClientIntent() string { return c.Extra.String("client_intent") }

// Subtopics returns the call-level subtopic labels.
func (c CallRecord) Subtopics() []string { return c.Extra.Strings("subtopics") }

// QualityFlags returns the call-level quality flags.
func (c CallRecord) QualityFlags() []string { return c.Extra.Strings("quality_flags") }

type callRecordAlias CallRecord

// UnmarshalJSON keeps unknown keys in Extra.
func (c *CallRecord) UnmarshalJSON(data []byte) error {
	var a callRecordAlias
	extra, err := decodeWithExtra(data, &a)
	if err != nil {
		return err
	}
	*c = CallRecord(a)
	c.Extra = extra
	return nil
}

// MarshalJSON writes Extra back alongside the modeled fields.
func (c CallRecord) MarshalJSON() ([]byte, error) {
	return encodeWithExtra(callRecordAlias(c), c.Extra)
}

// QAPair is one verbatim question/answer exchange inside a call.
type QAPair struct {
	Q string `json:"q"`
	A string `json:"a"`

	Extra Extra `json:"-"`
}

// QuestionSpeaker returns the recorded speaker of the question, if any.
func (p QAPair) QuestionSpeaker() string { return p.Extra.String("question_speaker") }

// AnswerSpeaker returns the recorded speaker of the answer, if any.
func (p QAPair) AnswerSpeaker() string { return p.Extra.String("answer_speaker") }

type qaPairAlias QAPair

// UnmarshalJSON keeps unknown keys in Extra.
func (p *QAPair) UnmarshalJSON(data []byte) error {
	var a qaPairAlias
	extra, err := decodeWithExtra(data, &a)
	if err != nil {
		return err
	}
	*p = QAPair(a)
	p.Extra = extra
	return nil
}

// MarshalJSON writes Extra back alongside the modeled fields.
func (p QAPair) MarshalJSON() ([]byte, error) {
	return encodeWithExtra(qaPairAlias(p), p.Extra)
}
