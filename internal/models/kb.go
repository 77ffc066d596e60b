package models

import "encoding/json"

// KnowledgeBaseEntry is one canonical question with its authoritative answer.
type KnowledgeBaseEntry struct {
	// CanonicalQuestion is unique across the knowledge base.
	CanonicalQuestion string `json:"canonical_question"`

	// BestAnswer is the current authoritative answer.
	BestAnswer string `json:"best_answer"`

	Intent string `json:"intent"`

	// PendingReview stays true until the first reviewer verdict.
	PendingReview bool `json:"pending_review"`

	// Audit fields stamped by confirm, correct and undo
	LastReviewedAt string `json:"last_reviewed_at,omitempty"`
	LastReviewer   string `json:"last_reviewer,omitempty"`
	ReviewComment  string `json:"review_comment,omitempty"`

	// Free-form lists written by the synthesis step. The review engine
	// never inspects them, so they are kept as raw JSON.
	EligibilityRules []json.RawMessage `json:"eligibility_rules,omitempty"`
	RequiredFields   []json.RawMessage `json:"required_fields,omitempty"`
	ComplianceNotes  []json.RawMessage `json:"compliance_notes,omitempty"`
	EmpathyPatterns  []json.RawMessage `json:"empathy_patterns,omitempty"`
	Followups        []json.RawMessage `json:"followups,omitempty"`

	Extra Extra `json:"-"`
}

type kbEntryAlias KnowledgeBaseEntry

// UnmarshalJSON keeps unknown keys in Extra.
func (e *KnowledgeBaseEntry) UnmarshalJSON(data []byte) error {
	var a kbEntryAlias
	extra, err := decodeWithExtra(data, &a)
	if err != nil {
		return err
	}
	*e = KnowledgeBaseEntry(a)
	e.Extra = extra
	return nil
}

// MarshalJSON writes Extra back alongside the modeled fields.
func (e KnowledgeBaseEntry) MarshalJSON() ([]byte, error) {
	return encodeWithExtra(kbEntryAlias(e), e.Extra)
}

// FaqCluster groups near-identical questions under one canonical question.
type FaqCluster struct {
	CanonicalQ string `json:"canonical_q,omitempty"`

	// CanonicalQuestion is set by some pipeline versions instead of CanonicalQ.
	CanonicalQuestion string `json:"canonical_question,omitempty"`

	// BestAnswer mirrors the matching KnowledgeBaseEntry after propagation.
	BestAnswer string `json:"best_answer"`

	SourceConversationIDs []string `json:"source_conversation_ids"`
	NearDuplicates        []string `json:"near_duplicates"`

	Extra Extra `json:"-"`
}

// Key returns the canonical question the cluster is indexed by.
func (c FaqCluster) Key() string {
	if c.CanonicalQ != "" {
		return c.CanonicalQ
	}
	return c.CanonicalQuestion
}

type faqClusterAlias FaqCluster

// UnmarshalJSON keeps unknown keys in Extra.
func (c *FaqCluster) UnmarshalJSON(data []byte) error {
	var a faqClusterAlias
	extra, err := decodeWithExtra(data, &a)
	if err != nil {
		return err
	}
	*c = FaqCluster(a)
	c.Extra = extra
	return nil
}

// MarshalJSON writes Extra back alongside the modeled fields.
func (c FaqCluster) MarshalJSON() ([]byte, error) {
	return encodeWithExtra(faqClusterAlias(c), c.Extra)
}

// ClusterSet is the cluster collection keyed by canonical question. Order
// records the load order so a save does not reshuffle the file.
type ClusterSet struct {
	ByQuestion map[string]*FaqCluster
	Order      []string
}

// NewClusterSet indexes clusters by Key. A later duplicate key replaces the
// earlier cluster in place.
func NewClusterSet(clusters []FaqCluster) *ClusterSet {
	set := &ClusterSet{ByQuestion: make(map[string]*FaqCluster, len(clusters))}
	for i := range clusters {
		set.Put(clusters[i])
	}
	return set
}

// Get returns the cluster for question, or nil.
func (s *ClusterSet) Get(question string) *FaqCluster {
	if s == nil {
		return nil
	}
	return s.ByQuestion[question]
}

// Put inserts or replaces the cluster under its key.
func (s *ClusterSet) Put(c FaqCluster) {
	key := c.Key()
	if _, ok := s.ByQuestion[key]; !ok {
		s.Order = append(s.Order, key)
	}
	cluster := c
	s.ByQuestion[key] = &cluster
}

// List returns the clusters in load order.
func (s *ClusterSet) List() []FaqCluster {
	out := make([]FaqCluster, 0, len(s.Order))
	for _, key := range s.Order {
		if c, ok := s.ByQuestion[key]; ok {
			out = append(out, *c)
		}
	}
	return out
}
