package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"evalreport-go/internal/scoring"
	"evalreport-go/internal/types"
	"github.com/google/uuid"
)

var (
	ErrUnknownTarget    = errors.New("unknown session target")
	ErrInvalidKind      = errors.New("invalid response type")
	ErrNoAnswers        = errors.New("submission has no answers")
	ErrParticipantLimit = errors.New("participant limit reached")
	ErrInvalidAnswer    = errors.New("invalid answer")
)

// Submission is one respondent form post.
type Submission struct {
	Kind types.ResponseType `json:"type"`
	// UnitKey selects the facilitator unit; ignored for process submissions.
	UnitKey string                  `json:"unitKey,omitempty"`
	Answers map[string]types.Answer `json:"answers"`
}

// WriteIntent is one response record a submission asks the store to save.
type WriteIntent struct {
	GroupKey string
	Response types.Response
}

// ExpandSubmission turns a submission into per-target write intents: one for
// a process evaluation or a single facilitator, one per member for a team.
// Answers must match the active questions of the kind; null answers are
// dropped and slider answers are clamped to the slider range.
func ExpandSubmission(t *types.Training, sub Submission, now time.Time, newID func() string) ([]WriteIntent, error) {
	if !sub.Kind.Valid() {
		return nil, ErrInvalidKind
	}
	if newID == nil {
		newID = uuid.NewString
	}

	var unit Unit
	if sub.Kind == types.ResponseFacilitator {
		u, ok := FindUnit(t.Facilitators, sub.UnitKey)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, sub.UnitKey)
		}
		unit = u
	}

	answers, err := normalizeAnswers(t.Questions(sub.Kind), sub.Answers)
	if err != nil {
		return nil, err
	}
	if len(answers) == 0 {
		return nil, ErrNoAnswers
	}

	if sub.Kind == types.ResponseProcess {
		return []WriteIntent{{
			GroupKey: ProcessGroupKey,
			Response: types.Response{
				ID:         newID(),
				TrainingID: t.ID,
				Type:       types.ResponseProcess,
				Answers:    answers,
				Timestamp:  now,
			},
		}}, nil
	}

	intents := make([]WriteIntent, 0, len(unit.Members))
	for _, m := range unit.Members {
		intents = append(intents, WriteIntent{
			GroupKey: FacilitatorKey(m.Name, m.Subject),
			Response: types.Response{
				ID:            newID(),
				TrainingID:    t.ID,
				Type:          types.ResponseFacilitator,
				TargetName:    strings.TrimSpace(m.Name),
				TargetSubject: strings.TrimSpace(m.Subject),
				Answers:       copyAnswers(answers),
				Timestamp:     now,
			},
		})
	}
	return intents, nil
}

func normalizeAnswers(questions []types.Question, in map[string]types.Answer) (map[string]types.Answer, error) {
	kinds := make(map[string]types.QuestionType, len(questions))
	for _, q := range questions {
		kinds[q.ID] = q.Kind()
	}
	out := make(map[string]types.Answer, len(in))
	for id, a := range in {
		if a.Missing {
			continue
		}
		qt, ok := kinds[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown question %q", ErrInvalidAnswer, id)
		}
		if qt == types.QuestionText {
			if !a.IsText {
				return nil, fmt.Errorf("%w: question %q expects text", ErrInvalidAnswer, id)
			}
			out[id] = a
			continue
		}
		v, ok := a.Number()
		if !ok {
			return nil, fmt.Errorf("%w: question %q expects a number", ErrInvalidAnswer, id)
		}
		switch qt {
		case types.QuestionStar:
			if v < 1 || v > 5 {
				return nil, fmt.Errorf("%w: question %q rating %v outside 1-5", ErrInvalidAnswer, id, v)
			}
		case types.QuestionSlider:
			a = types.NumberAnswer(scoring.ClampSlider(v))
		}
		out[id] = a
	}
	return out, nil
}

func copyAnswers(in map[string]types.Answer) map[string]types.Answer {
	out := make(map[string]types.Answer, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// CheckParticipantLimit compares a group's stored response count with the
// training's limit. A limit of zero never rejects.
func CheckParticipantLimit(limit, count int) error {
	if limit > 0 && count >= limit {
		return fmt.Errorf("%w (%d/%d)", ErrParticipantLimit, count, limit)
	}
	return nil
}
