package session

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"evalreport-go/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func facResp(name, subject string) types.Response {
	return types.Response{
		Type:          types.ResponseFacilitator,
		TargetName:    name,
		TargetSubject: subject,
		Answers:       map[string]types.Answer{"q1": types.NumberAnswer(4)},
	}
}

func TestResolve_GroupsByTrimmedCaseFoldedKey(t *testing.T) {
	tr := &types.Training{Facilitators: []types.Facilitator{
		{Name: "Ida", Subject: "Komunikasi", SessionDate: "2025-03-01"},
	}}
	responses := []types.Response{
		facResp("Ida", "Komunikasi"),
		facResp("Ida ", "komunikasi"),
		facResp(" IDA", "Komunikasi  "),
	}

	groups := Resolve(tr, responses, types.ResponseFacilitator, types.RoleGuest)
	require.Len(t, groups, 1)
	assert.Equal(t, "ida|komunikasi", groups[0].Key)
	assert.Equal(t, "Ida", groups[0].DisplayName)
	assert.Equal(t, 3, groups[0].Count())
	assert.True(t, groups[0].Matched)
}

func TestResolve_OrdersByOrderThenDateThenUnmatchedLast(t *testing.T) {
	tr := &types.Training{Facilitators: []types.Facilitator{
		{Name: "A", Subject: "S1", SessionDate: "2025-03-03", Order: 0},
		{Name: "B", Subject: "S2", SessionDate: "2025-03-01", Order: 0},
		{Name: "C", Subject: "S3", SessionDate: "2025-03-01", Order: 2},
		{Name: "D", Subject: "S4", SessionDate: "", Order: 0},
	}}
	responses := []types.Response{
		facResp("Ghost", "Old"),
		facResp("C", "S3"),
		facResp("D", "S4"),
		facResp("A", "S1"),
		facResp("B", "S2"),
	}

	groups := Resolve(tr, responses, types.ResponseFacilitator, types.RoleGuest)
	var names []string
	for _, g := range groups {
		names = append(names, g.DisplayName)
	}
	assert.Equal(t, []string{"B", "A", "D", "C", "Ghost"}, names)
	assert.False(t, groups[len(groups)-1].Matched)
}

func TestResolve_HiddenOnlyForSuperAdmin(t *testing.T) {
	tr := &types.Training{Facilitators: []types.Facilitator{
		{Name: "A", Subject: "S1", SessionDate: "2025-03-01"},
		{Name: "B", Subject: "S2", SessionDate: "2025-03-02", Hidden: true},
	}}
	responses := []types.Response{facResp("A", "S1"), facResp("B", "S2")}

	guest := Resolve(tr, responses, types.ResponseFacilitator, types.RoleGuest)
	admin := Resolve(tr, responses, types.ResponseFacilitator, types.RoleAdmin)
	super := Resolve(tr, responses, types.ResponseFacilitator, types.RoleSuperAdmin)

	assert.Len(t, guest, 1)
	assert.Len(t, admin, 1)
	require.Len(t, super, 2)
	assert.True(t, super[1].Hidden)
}

func TestResolve_ProcessIsSingleGroup(t *testing.T) {
	tr := &types.Training{}
	responses := []types.Response{
		{Type: types.ResponseProcess},
		facResp("A", "S1"),
		{Type: types.ResponseProcess},
	}

	groups := Resolve(tr, responses, types.ResponseProcess, types.RoleGuest)
	require.Len(t, groups, 1)
	assert.Equal(t, ProcessGroupKey, groups[0].Key)
	assert.Equal(t, 2, groups[0].Count())

	assert.Empty(t, Resolve(tr, nil, types.ResponseProcess, types.RoleGuest))
}

func TestUnits_MergeTeamsBySubjectDateTime(t *testing.T) {
	facs := []types.Facilitator{
		{Name: "A", Subject: "Etika", SessionDate: "2025-03-01", SessionStartTime: "08:00"},
		{Name: "B", Subject: "etika ", SessionDate: "2025-03-01", SessionStartTime: "08:00"},
		{Name: "A", Subject: "Etika", SessionDate: "2025-03-01", SessionStartTime: "13:00"},
		{Name: "C", Subject: "Hukum", SessionDate: "2025-03-01", SessionStartTime: "08:00"},
	}

	units := Units(facs)
	require.Len(t, units, 3)
	assert.True(t, units[0].IsTeam())
	assert.Equal(t, "A & B", units[0].Label())
	assert.False(t, units[1].IsTeam())
	assert.Equal(t, "Hukum", units[2].Subject)
}

func TestIsOpen(t *testing.T) {
	loc := time.UTC
	day := time.Date(2025, 3, 1, 9, 30, 0, 0, loc)
	f := types.Facilitator{SessionDate: "2025-03-01", SessionStartTime: "10:00"}

	assert.False(t, IsOpen(f, day), "before start time")
	assert.True(t, IsOpen(f, day.Add(30*time.Minute)), "at start time")
	assert.False(t, IsOpen(f, day.AddDate(0, 0, 1)), "next day")

	noTime := types.Facilitator{SessionDate: "2025-03-01"}
	assert.True(t, IsOpen(noTime, day))

	forced := types.Facilitator{SessionDate: "2020-01-01", ManualOpen: types.OverrideOpen}
	assert.True(t, IsOpen(forced, day))

	closed := types.Facilitator{SessionDate: "2025-03-01", ManualOpen: types.OverrideClosed}
	assert.False(t, IsOpen(closed, day))
}

func TestSelectable_HistoryAndBypass(t *testing.T) {
	now := time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)
	tr := &types.Training{Facilitators: []types.Facilitator{
		{Name: "A", Subject: "Etika", SessionDate: "2025-03-01", SessionStartTime: "08:00"},
		{Name: "B", Subject: "Etika", SessionDate: "2025-03-01", SessionStartTime: "08:00"},
		{Name: "C", Subject: "Hukum", SessionDate: "2025-03-01"},
		{Name: "D", Subject: "Besok", SessionDate: "2025-03-02"},
	}}

	all := Selectable(tr, SelectOptions{Now: now})
	require.Len(t, all, 2)

	partly := Selectable(tr, SelectOptions{Now: now, History: NewHistory([]string{FacilitatorKey("A", "Etika")})})
	assert.Len(t, partly, 2, "team stays until every member is rated")

	rated := Selectable(tr, SelectOptions{Now: now, History: NewHistory([]string{
		FacilitatorKey("A", "Etika"), FacilitatorKey("B", "Etika"),
	})})
	require.Len(t, rated, 1)
	assert.Equal(t, "Hukum", rated[0].Subject)

	bypass := Selectable(tr, SelectOptions{Now: now, AdminBypass: true, History: NewHistory([]string{FacilitatorKey("C", "Hukum")})})
	assert.Len(t, bypass, 3)
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("r%d", n)
	}
}

func TestExpandSubmission_TeamFansOut(t *testing.T) {
	now := time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)
	tr := &types.Training{
		ID: "t1",
		Facilitators: []types.Facilitator{
			{Name: "A ", Subject: "Etika", SessionDate: "2025-03-01"},
			{Name: "B", Subject: "Etika", SessionDate: "2025-03-01"},
		},
		FacilitatorQuestions: []types.Question{
			{ID: "s", Type: types.QuestionSlider},
			{ID: "c", Type: types.QuestionText},
		},
	}
	unit := Units(tr.Facilitators)[0]

	intents, err := ExpandSubmission(tr, Submission{
		Kind:    types.ResponseFacilitator,
		UnitKey: unit.Key,
		Answers: map[string]types.Answer{"s": types.NumberAnswer(20), "c": types.TextAnswer("ok")},
	}, now, sequentialIDs())
	require.NoError(t, err)
	require.Len(t, intents, 2)

	assert.Equal(t, "a|etika", intents[0].GroupKey)
	assert.Equal(t, "A", intents[0].Response.TargetName)
	assert.Equal(t, "B", intents[1].Response.TargetName)
	assert.Equal(t, "r1", intents[0].Response.ID)
	assert.Equal(t, "r2", intents[1].Response.ID)
	for _, in := range intents {
		v, ok := in.Response.Answers["s"].Number()
		require.True(t, ok)
		assert.Equal(t, 45.0, v, "slider clamped")
		assert.Equal(t, "t1", in.Response.TrainingID)
		assert.Equal(t, now, in.Response.Timestamp)
	}

	intents[0].Response.Answers["c"] = types.TextAnswer("changed")
	assert.Equal(t, "ok", intents[1].Response.Answers["c"].Text, "answers are not shared")
}

func TestExpandSubmission_ProcessAndErrors(t *testing.T) {
	tr := &types.Training{
		ID: "t1",
		Facilitators: []types.Facilitator{
			{Name: "Ida", Subject: "Etika", SessionDate: "2025-03-01"},
		},
		FacilitatorQuestions: []types.Question{
			{ID: "q1", Type: types.QuestionStar},
			{ID: "c", Type: types.QuestionText},
		},
		ProcessQuestions: []types.Question{{ID: "p", Type: types.QuestionStar}},
	}
	unit := Units(tr.Facilitators)[0].Key
	now := time.Now()

	intents, err := ExpandSubmission(tr, Submission{
		Kind:    types.ResponseProcess,
		Answers: map[string]types.Answer{"p": types.NumberAnswer(5)},
	}, now, nil)
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, ProcessGroupKey, intents[0].GroupKey)
	assert.NotEmpty(t, intents[0].Response.ID)

	_, err = ExpandSubmission(tr, Submission{Kind: "bogus", Answers: intents[0].Response.Answers}, now, nil)
	assert.ErrorIs(t, err, ErrInvalidKind)

	_, err = ExpandSubmission(tr, Submission{Kind: types.ResponseFacilitator, UnitKey: "x", Answers: intents[0].Response.Answers}, now, nil)
	assert.ErrorIs(t, err, ErrUnknownTarget)

	_, err = ExpandSubmission(tr, Submission{Kind: types.ResponseProcess}, now, nil)
	assert.ErrorIs(t, err, ErrNoAnswers)

	invalid := []map[string]types.Answer{
		{"q1": types.NumberAnswer(4), "legacy": types.NumberAnswer(4)},
		{"q1": types.TextAnswer("5")},
		{"c": types.NumberAnswer(3)},
		{"q1": types.NumberAnswer(500)},
		{"q1": types.NumberAnswer(0)},
	}
	for _, answers := range invalid {
		_, err = ExpandSubmission(tr, Submission{Kind: types.ResponseFacilitator, UnitKey: unit, Answers: answers}, now, nil)
		assert.ErrorIs(t, err, ErrInvalidAnswer, "%v", answers)
	}
}

func TestExpandSubmission_NullAnswersAreDropped(t *testing.T) {
	tr := &types.Training{
		ID:                   "t1",
		Facilitators:         []types.Facilitator{{Name: "Ida", Subject: "Etika"}},
		FacilitatorQuestions: []types.Question{{ID: "q1"}, {ID: "q2"}},
	}
	var sub Submission
	require.NoError(t, json.Unmarshal([]byte(`{"type":"facilitator","unitKey":"ida|etika","answers":{"q1":5,"q2":null}}`), &sub))
	sub.UnitKey = Units(tr.Facilitators)[0].Key

	intents, err := ExpandSubmission(tr, sub, time.Now(), nil)
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, map[string]types.Answer{"q1": types.NumberAnswer(5)}, intents[0].Response.Answers)

	var blank Submission
	require.NoError(t, json.Unmarshal([]byte(`{"type":"facilitator","answers":{"q1":null}}`), &blank))
	blank.UnitKey = sub.UnitKey
	_, err = ExpandSubmission(tr, blank, time.Now(), nil)
	assert.ErrorIs(t, err, ErrNoAnswers)
}

func TestCheckParticipantLimit(t *testing.T) {
	assert.NoError(t, CheckParticipantLimit(0, 1000))
	assert.NoError(t, CheckParticipantLimit(3, 2))
	assert.ErrorIs(t, CheckParticipantLimit(3, 3), ErrParticipantLimit)
}
