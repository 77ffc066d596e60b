package candidates

import (
	"reflect"
	"testing"

	"github.com/nvandessel/faqloop/internal/models"
)

func rows(specs ...[2]string) []models.QARow {
	out := make([]models.QARow, len(specs))
	for i, s := range specs {
		out[i] = models.QARow{CallID: s[0], PairIndex: i + 1, Question: s[1]}
	}
	return out
}

func TestFind(t *testing.T) {
	clusters := models.NewClusterSet([]models.FaqCluster{
		{
			CanonicalQ:            "Какая ставка?",
			SourceConversationIDs: []string{"c7"},
			NearDuplicates:        []string{"процент по кредиту", ""},
		},
	})

	tests := []struct {
		name     string
		question string
		rows     []models.QARow
		want     []int
	}{
		{
			name:     "no cluster",
			question: "Неизвестный вопрос",
			rows:     rows([2]string{"c7", "Какая ставка?"}),
			want:     nil,
		},
		{
			name:     "source call matches regardless of text",
			question: "Какая ставка?",
			rows:     rows([2]string{"c1", "Где офис?"}, [2]string{"c7", "Что-то другое"}),
			want:     []int{1},
		},
		{
			name:     "case-insensitive canonical substring",
			question: "Какая ставка?",
			rows:     rows([2]string{"c1", "Скажите, КАКАЯ СТАВКА? сейчас"}, [2]string{"c2", "Где офис?"}),
			want:     []int{0},
		},
		{
			name:     "near duplicate substring",
			question: "Какая ставка?",
			rows:     rows([2]string{"c1", "А Процент по кредиту какой?"}),
			want:     []int{0},
		},
		{
			name:     "empty near duplicate matches nothing",
			question: "Какая ставка?",
			rows:     rows([2]string{"c1", "Где офис?"}, [2]string{"c2", ""}),
			want:     nil,
		},
		{
			name:     "ascending order",
			question: "Какая ставка?",
			rows: rows(
				[2]string{"c7", "x"},
				[2]string{"c1", "y"},
				[2]string{"c2", "какая ставка?"},
			),
			want: []int{0, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Find(tt.question, clusters, tt.rows)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Find() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFind_NilClusters(t *testing.T) {
	if got := Find("q", nil, rows([2]string{"c1", "q"})); got != nil {
		t.Errorf("Find() with nil clusters = %v, want nil", got)
	}
}

// Every row whose call is a cluster source or whose text contains the
// canonical question must be returned, whatever else is in the export.
func TestFind_Recall(t *testing.T) {
	clusters := models.NewClusterSet([]models.FaqCluster{
		{CanonicalQ: "срок", SourceConversationIDs: []string{"a", "b"}},
	})
	var all []models.QARow
	calls := []string{"a", "b", "c", "d"}
	questions := []string{"СРОК кредита?", "ставка", "", "какой срок"}
	for _, c := range calls {
		for _, q := range questions {
			all = append(all, models.QARow{CallID: c, Question: q})
		}
	}

	got := Find("срок", clusters, all)
	found := make(map[int]bool, len(got))
	for _, i := range got {
		found[i] = true
	}
	for i, r := range all {
		should := r.CallID == "a" || r.CallID == "b" || r.Question == "СРОК кредита?" || r.Question == "какой срок"
		if should != found[i] {
			t.Errorf("row %d (%s, %q): found=%v, want %v", i, r.CallID, r.Question, found[i], should)
		}
	}
}
