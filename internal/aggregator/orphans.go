package aggregator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"evalreport-go/internal/types"
)

var (
	ErrNotOrphaned  = errors.New("question id is still active")
	ErrInvalidLabel = errors.New("question label is required")
	ErrInvalidType  = errors.New("invalid question type")
)

// OrphanedQuestion is an answer key with no matching active question.
type OrphanedQuestion struct {
	ID           string             `json:"id"`
	InferredType types.QuestionType `json:"inferred_type"`
	Answers      int                `json:"answers"`
}

// OrphanedQuestionIDs returns, sorted, every answer key used by responses
// that is not an active question id.
func OrphanedQuestionIDs(questions []types.Question, responses []types.Response) []string {
	active := make(map[string]bool, len(questions))
	for _, q := range questions {
		active[q.ID] = true
	}
	seen := map[string]bool{}
	var ids []string
	for _, r := range responses {
		for id, a := range r.Answers {
			if a.Missing || active[id] || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// DetectOrphans lists orphaned answer keys with an inferred question type.
func DetectOrphans(questions []types.Question, responses []types.Response) []OrphanedQuestion {
	ids := OrphanedQuestionIDs(questions, responses)
	out := make([]OrphanedQuestion, 0, len(ids))
	for _, id := range ids {
		var answers []types.Answer
		for _, r := range responses {
			if a, ok := r.Answers[id]; ok && !a.Missing {
				answers = append(answers, a)
			}
		}
		out = append(out, OrphanedQuestion{
			ID:           id,
			InferredType: InferQuestionType(answers),
			Answers:      len(answers),
		})
	}
	return out
}

// InferQuestionType guesses the type of legacy answers: any string means
// text, any number above 5 means slider, otherwise star.
func InferQuestionType(answers []types.Answer) types.QuestionType {
	slider := false
	for _, a := range answers {
		if a.IsText {
			return types.QuestionText
		}
		if a.Num > 5 {
			slider = true
		}
	}
	if slider {
		return types.QuestionSlider
	}
	return types.QuestionStar
}

// RestoreQuestion re-attaches an orphaned id as an active question with a
// human-provided label and confirmed type.
func RestoreQuestion(questions []types.Question, id, label string, qt types.QuestionType) ([]types.Question, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, ErrInvalidLabel
	}
	if !qt.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, qt)
	}
	for _, q := range questions {
		if q.ID == id {
			return nil, fmt.Errorf("%w: %s", ErrNotOrphaned, id)
		}
	}
	out := make([]types.Question, 0, len(questions)+1)
	out = append(out, questions...)
	return append(out, types.Question{ID: id, Label: label, Type: qt}), nil
}
