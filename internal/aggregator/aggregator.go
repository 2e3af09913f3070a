package aggregator

import (
	"fmt"
	"strings"

	"evalreport-go/internal/scoring"
	"evalreport-go/internal/session"
	"evalreport-go/internal/types"
)

// Distribution is the share of answers falling into each severity tier,
// indexed by scoring.Tier.
type Distribution struct {
	Counts  [scoring.TierCount]int     `json:"counts"`
	Percent [scoring.TierCount]float64 `json:"percent"`
	Total   int                        `json:"total"`
}

// Formatted renders the percentages with one decimal. Rounding is applied
// per bucket, so the strings need not add up to exactly 100.0.
func (d Distribution) Formatted() [scoring.TierCount]string {
	var out [scoring.TierCount]string
	for i, p := range d.Percent {
		out[i] = fmt.Sprintf("%.1f", p)
	}
	return out
}

type QuestionStat struct {
	Question     types.Question `json:"question"`
	Average      float64        `json:"average"`
	Answered     int            `json:"answered"`
	Distribution Distribution   `json:"distribution"`
}

// Score is the "4.20 (Baik)" rendering of the average.
func (s QuestionStat) Score() string {
	return scoring.FormatScore(s.Average, s.Question.Kind())
}

type TextComments struct {
	Question types.Question `json:"question"`
	Comments []string       `json:"comments"`
}

type GroupStats struct {
	ResponseCount int                `json:"response_count"`
	Questions     []QuestionStat     `json:"questions"`
	Overall       float64            `json:"overall"`
	DominantType  types.QuestionType `json:"dominant_type"`
	Comments      []TextComments     `json:"comments"`
}

// OverallScore renders the overall average on the dominant type's scale.
func (g GroupStats) OverallScore() string {
	return scoring.FormatScore(g.Overall, g.DominantType)
}

// Aggregate computes the statistics of one group's responses against the
// active question list. It never fails: empty input yields zero values.
func Aggregate(responses []types.Response, questions []types.Question) GroupStats {
	stats := GroupStats{
		ResponseCount: len(responses),
		DominantType:  scoring.PickDisplayScaleHeuristic(questions),
	}
	var averages []float64
	for _, q := range questions {
		if q.Kind() == types.QuestionText {
			stats.Comments = append(stats.Comments, TextComments{
				Question: q,
				Comments: TextAnswers(responses, q.ID),
			})
			continue
		}
		avg, n := QuestionAverage(responses, q.ID)
		stats.Questions = append(stats.Questions, QuestionStat{
			Question:     q,
			Average:      avg,
			Answered:     n,
			Distribution: QuestionDistribution(responses, q),
		})
		averages = append(averages, avg)
	}
	stats.Overall = Mean(averages)
	return stats
}

// QuestionAverage is the mean of the numeric answers to id. Responses
// without a numeric answer for id are skipped.
func QuestionAverage(responses []types.Response, id string) (float64, int) {
	sum, n := 0.0, 0
	for _, r := range responses {
		a, ok := r.Answers[id]
		if !ok {
			continue
		}
		v, ok := a.Number()
		if !ok {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

// QuestionDistribution buckets each numeric answer to q into its tier.
func QuestionDistribution(responses []types.Response, q types.Question) Distribution {
	var d Distribution
	for _, r := range responses {
		a, ok := r.Answers[q.ID]
		if !ok {
			continue
		}
		v, ok := a.Number()
		if !ok {
			continue
		}
		d.Counts[scoring.ColorClassFor(v, q.Kind())]++
		d.Total++
	}
	if d.Total == 0 {
		return d
	}
	for i, c := range d.Counts {
		d.Percent[i] = float64(c) / float64(d.Total) * 100
	}
	return d
}

// TextAnswers collects the non-blank text answers to id in response order.
func TextAnswers(responses []types.Response, id string) []string {
	var out []string
	for _, r := range responses {
		a, ok := r.Answers[id]
		if !ok || !a.IsText {
			continue
		}
		if s := strings.TrimSpace(a.Text); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Mean is the arithmetic mean; zero for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// GroupResult pairs a resolved session group with its statistics.
type GroupResult struct {
	Group session.Group
	Stats GroupStats
}

// AggregateGroups computes statistics for every group, preserving order.
func AggregateGroups(groups []session.Group, questions []types.Question) []GroupResult {
	out := make([]GroupResult, 0, len(groups))
	for _, g := range groups {
		out = append(out, GroupResult{Group: g, Stats: Aggregate(g.Responses, questions)})
	}
	return out
}

// GrandTotal is the unweighted mean of the overall averages of the
// non-hidden groups, with the scale inferred from its magnitude.
func GrandTotal(results []GroupResult) (float64, types.QuestionType) {
	var overalls []float64
	for _, r := range results {
		if r.Group.Hidden {
			continue
		}
		overalls = append(overalls, r.Stats.Overall)
	}
	avg := Mean(overalls)
	return avg, scoring.ScaleForGrandTotal(avg)
}
