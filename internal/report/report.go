// Package report assembles aggregated statistics into format-agnostic rows
// shared by the JSON view and the file exporters.
package report

import (
	"evalreport-go/internal/aggregator"
	"evalreport-go/internal/scoring"
	"evalreport-go/internal/session"
	"evalreport-go/internal/types"
)

// GrandTotalLabel names the synthetic last row of the facilitator summary.
const GrandTotalLabel = "Rata-rata Keseluruhan"

type QuestionRow struct {
	No           int                       `json:"no"`
	QuestionID   string                    `json:"question_id"`
	Label        string                    `json:"label"`
	Type         types.QuestionType        `json:"type"`
	Average      float64                   `json:"average"`
	Score        string                    `json:"score"`
	Answered     int                       `json:"answered"`
	Distribution [scoring.TierCount]string `json:"distribution"`
	Counts       [scoring.TierCount]int    `json:"counts"`
}

type CommentBlock struct {
	QuestionID string   `json:"question_id"`
	Label      string   `json:"label"`
	Comments   []string `json:"comments"`
}

type Section struct {
	No           int            `json:"no"`
	GroupKey     string         `json:"group_key"`
	Name         string         `json:"name"`
	Subject      string         `json:"subject,omitempty"`
	Date         string         `json:"date,omitempty"`
	StartTime    string         `json:"start_time,omitempty"`
	Hidden       bool           `json:"hidden,omitempty"`
	Matched      bool           `json:"matched"`
	Respondents  int            `json:"respondents"`
	Rows         []QuestionRow  `json:"rows"`
	Overall      float64        `json:"overall"`
	OverallScore string         `json:"overall_score"`
	Comments     []CommentBlock `json:"comments"`
}

type SummaryRow struct {
	No          int    `json:"no,omitempty"`
	Name        string `json:"name"`
	Subject     string `json:"subject,omitempty"`
	Date        string `json:"date,omitempty"`
	Respondents int    `json:"respondents"`
	Score       string `json:"score"`
	Hidden      bool   `json:"hidden,omitempty"`
	GrandTotal  bool   `json:"grand_total,omitempty"`
}

type Report struct {
	TrainingID      string                        `json:"training_id"`
	Title           string                        `json:"title"`
	Period          string                        `json:"period,omitempty"`
	Location        string                        `json:"location,omitempty"`
	Organizer       string                        `json:"organizer,omitempty"`
	Kind            types.ResponseType            `json:"kind"`
	Viewer          string                        `json:"viewer"`
	TotalResponses  int                           `json:"total_responses"`
	Sections        []Section                     `json:"sections"`
	Summary         []SummaryRow                  `json:"summary"`
	GrandTotal      float64                       `json:"grand_total"`
	GrandTotalScore string                        `json:"grand_total_score,omitempty"`
	Orphans         []aggregator.OrphanedQuestion `json:"orphans,omitempty"`
}

// Empty reports whether there is nothing to render.
func (r Report) Empty() bool { return len(r.Sections) == 0 }

// Build resolves, aggregates and lays out one report tab. Hidden sessions
// appear only for viewers allowed to see them; legacy answer keys are listed
// for administrators.
func Build(t *types.Training, responses []types.Response, kind types.ResponseType, role types.ViewerRole) Report {
	questions := t.Questions(kind)
	groups := session.Resolve(t, responses, kind, role)
	results := aggregator.AggregateGroups(groups, questions)

	rep := Report{
		TrainingID: t.ID,
		Title:      t.Title,
		Period:     FormatPeriod(t.StartDate, t.EndDate),
		Location:   t.Location,
		Organizer:  t.ProcessOrganizer.Name,
		Kind:       kind,
		Viewer:     role.String(),
	}

	for i, res := range results {
		sec := buildSection(i+1, res)
		rep.TotalResponses += sec.Respondents
		rep.Sections = append(rep.Sections, sec)
		rep.Summary = append(rep.Summary, SummaryRow{
			No:          sec.No,
			Name:        sec.Name,
			Subject:     sec.Subject,
			Date:        FormatDate(sec.Date),
			Respondents: sec.Respondents,
			Score:       sec.OverallScore,
			Hidden:      sec.Hidden,
		})
	}

	if kind == types.ResponseFacilitator {
		avg, scale := aggregator.GrandTotal(results)
		rep.GrandTotal = avg
		rep.GrandTotalScore = scoring.FormatScore(avg, scale)
		rep.Summary = append(rep.Summary, SummaryRow{
			Name:        GrandTotalLabel,
			Respondents: rep.TotalResponses,
			Score:       rep.GrandTotalScore,
			GrandTotal:  true,
		})
	}

	if role >= types.RoleAdmin {
		var own []types.Response
		for _, r := range responses {
			if r.Type == kind {
				own = append(own, r)
			}
		}
		rep.Orphans = aggregator.DetectOrphans(questions, own)
	}
	return rep
}

// Focus narrows the report to one group. The grand total and the orphan list
// describe the whole training, so they are dropped.
func (r Report) Focus(groupKey string) Report {
	out := r
	out.Sections, out.Summary = nil, nil
	out.TotalResponses = 0
	out.GrandTotal, out.GrandTotalScore = 0, ""
	out.Orphans = nil
	for _, sec := range r.Sections {
		if sec.GroupKey != groupKey {
			continue
		}
		out.Sections = append(out.Sections, sec)
		out.TotalResponses += sec.Respondents
		for _, row := range r.Summary {
			if !row.GrandTotal && row.No == sec.No {
				out.Summary = append(out.Summary, row)
			}
		}
	}
	return out
}

func buildSection(no int, res aggregator.GroupResult) Section {
	g, st := res.Group, res.Stats
	sec := Section{
		No:           no,
		GroupKey:     g.Key,
		Name:         g.DisplayName,
		Subject:      g.Subject,
		Date:         g.SessionDate,
		StartTime:    g.SessionStartTime,
		Hidden:       g.Hidden,
		Matched:      g.Matched,
		Respondents:  st.ResponseCount,
		Overall:      st.Overall,
		OverallScore: st.OverallScore(),
	}
	for i, q := range st.Questions {
		sec.Rows = append(sec.Rows, QuestionRow{
			No:           i + 1,
			QuestionID:   q.Question.ID,
			Label:        q.Question.Label,
			Type:         q.Question.Kind(),
			Average:      q.Average,
			Score:        q.Score(),
			Answered:     q.Answered,
			Distribution: q.Distribution.Formatted(),
			Counts:       q.Distribution.Counts,
		})
	}
	for _, c := range st.Comments {
		sec.Comments = append(sec.Comments, CommentBlock{
			QuestionID: c.Question.ID,
			Label:      c.Question.Label,
			Comments:   c.Comments,
		})
	}
	return sec
}
