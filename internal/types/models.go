package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type QuestionType string

const (
	QuestionStar   QuestionType = "star"
	QuestionSlider QuestionType = "slider"
	QuestionText   QuestionType = "text"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionStar, QuestionSlider, QuestionText:
		return true
	}
	return false
}

type Question struct {
	ID    string       `json:"id" validate:"notblank"`
	Label string       `json:"label"`
	Type  QuestionType `json:"type" validate:"omitempty,oneof=star slider text"`
}

// Kind is the effective type of q. Questions stored without a recognised
// type are rated on the star scale.
func (q Question) Kind() QuestionType {
	if q.Type.Valid() {
		return q.Type
	}
	return QuestionStar
}

// ResponseType selects which question set and grouping rule a response uses.
type ResponseType string

const (
	ResponseFacilitator ResponseType = "facilitator"
	ResponseProcess     ResponseType = "process"
)

func (t ResponseType) Valid() bool {
	return t == ResponseFacilitator || t == ResponseProcess
}

// OpenOverride is the administrator's manual availability switch for a session.
// The zero value means automatic (calendar/time gating).
type OpenOverride string

const (
	OverrideAuto   OpenOverride = ""
	OverrideOpen   OpenOverride = "open"
	OverrideClosed OpenOverride = "closed"
)

type Facilitator struct {
	ID               string       `json:"id"`
	Name             string       `json:"name" validate:"notblank"`
	Subject          string       `json:"subject"`
	SessionDate      string       `json:"sessionDate" validate:"omitempty,datetime=2006-01-02"`
	SessionStartTime string       `json:"sessionStartTime,omitempty"` // 15:04
	WhatsappNumber   string       `json:"whatsappNumber,omitempty"`
	ManualOpen       OpenOverride `json:"manualOpen,omitempty" validate:"omitempty,oneof=open closed"`
	Order            int          `json:"order,omitempty"`
	Hidden           bool         `json:"hidden,omitempty"`
}

type Contact struct {
	Name           string `json:"name,omitempty"`
	WhatsappNumber string `json:"whatsappNumber,omitempty"`
}

type Training struct {
	ID                   string          `json:"id" validate:"notblank"`
	Title                string          `json:"title" validate:"notblank"`
	StartDate            string          `json:"startDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate              string          `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Location             string          `json:"location,omitempty"`
	Facilitators         []Facilitator   `json:"facilitators" validate:"dive"`
	FacilitatorQuestions []Question      `json:"facilitatorQuestions" validate:"dive"`
	ProcessQuestions     []Question      `json:"processQuestions" validate:"dive"`
	Targets              []int           `json:"targets,omitempty" validate:"dive,gt=0"`
	ReportedTargets      map[string]bool `json:"reportedTargets,omitempty"`
	ProcessOrganizer     Contact         `json:"processOrganizer"`
	// ParticipantLimit caps responses per session group; 0 means unlimited.
	ParticipantLimit int `json:"participantLimit,omitempty" validate:"gte=0"`
}

// Questions returns the active question list for the given response type.
func (t *Training) Questions(kind ResponseType) []Question {
	if kind == ResponseProcess {
		return t.ProcessQuestions
	}
	return t.FacilitatorQuestions
}

// Answer holds either a numeric rating or a free-text answer. A JSON null
// decodes to a Missing answer, which counts as unanswered.
type Answer struct {
	Num     float64
	Text    string
	IsText  bool
	Missing bool
}

func NumberAnswer(v float64) Answer { return Answer{Num: v} }
func TextAnswer(s string) Answer    { return Answer{Text: s, IsText: true} }

func (a Answer) Number() (float64, bool) {
	if a.IsText || a.Missing {
		return 0, false
	}
	return a.Num, true
}

func (a Answer) MarshalJSON() ([]byte, error) {
	switch {
	case a.Missing:
		return []byte("null"), nil
	case a.IsText:
		return json.Marshal(a.Text)
	}
	return json.Marshal(a.Num)
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = Answer{Missing: true}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = TextAnswer(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("answer must be a number or a string: %w", err)
	}
	*a = NumberAnswer(f)
	return nil
}

// CompactAnswers returns answers without the Missing entries.
func CompactAnswers(in map[string]Answer) map[string]Answer {
	out := make(map[string]Answer, len(in))
	for id, a := range in {
		if !a.Missing {
			out[id] = a
		}
	}
	return out
}

type Response struct {
	ID            string            `json:"id"`
	TrainingID    string            `json:"trainingId"`
	Type          ResponseType      `json:"type"`
	TargetName    string            `json:"targetName,omitempty"`
	TargetSubject string            `json:"targetSubject,omitempty"`
	Answers       map[string]Answer `json:"answers"`
	Timestamp     time.Time         `json:"timestamp"`
}

// Settings are the application-wide message strings used by the notifier.
type Settings struct {
	MessageHeader string `json:"messageHeader,omitempty"`
	MessageFooter string `json:"messageFooter,omitempty"`
}

// ViewerRole is the explicit privilege level of whoever asks for a report.
type ViewerRole int

const (
	RoleGuest ViewerRole = iota
	RoleAdmin
	RoleSuperAdmin
)

// CanSeeHidden reports whether hidden sessions are included in reports.
func (r ViewerRole) CanSeeHidden() bool { return r == RoleSuperAdmin }

func (r ViewerRole) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleSuperAdmin:
		return "superadmin"
	default:
		return "guest"
	}
}
