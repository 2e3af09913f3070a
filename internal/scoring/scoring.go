// Package scoring maps numeric ratings to categorical labels and severity tiers.
package scoring

import (
	"fmt"

	"evalreport-go/internal/types"
)

// Labels used in reports and messages.
const (
	LabelSangatBaik = "Sangat Baik"
	LabelBaik       = "Baik"
	LabelCukup      = "Cukup"
	LabelSedang     = "Sedang"
	LabelKurang     = "Kurang"
)

// Tier is the four-level severity used for distributions and colors.
type Tier int

const (
	TierKurang Tier = iota
	TierSedang
	TierBaik
	TierSangatBaik
)

// TierCount is the number of distribution buckets.
const TierCount = 4

// Tiers lists the tiers in bucket order, lowest first.
var Tiers = [TierCount]Tier{TierKurang, TierSedang, TierBaik, TierSangatBaik}

func (t Tier) String() string {
	switch t {
	case TierSangatBaik:
		return LabelSangatBaik
	case TierBaik:
		return LabelBaik
	case TierSedang:
		return LabelSedang
	default:
		return LabelKurang
	}
}

// Color is the display color of the tier.
func (t Tier) Color() string {
	switch t {
	case TierSangatBaik:
		return "#16a34a"
	case TierBaik:
		return "#2563eb"
	case TierSedang:
		return "#ca8a04"
	default:
		return "#dc2626"
	}
}

// star thresholds (1-5 scale)
const (
	starSangatBaik = 4.2
	starBaik       = 3.4
	starCukup      = 2.6
	starSedang     = 1.8
)

// slider thresholds (45-100 scale)
const (
	sliderSangatBaik = 86
	sliderBaik       = 76
	sliderSedang     = 56
)

// Slider input range enforced at entry time.
const (
	SliderMin = 45
	SliderMax = 100
)

// LabelFor returns the categorical label of value on the scale of qt.
// Star values use five labels, slider values four. Text questions have no label.
func LabelFor(value float64, qt types.QuestionType) string {
	switch qt {
	case types.QuestionStar:
		switch {
		case value >= starSangatBaik:
			return LabelSangatBaik
		case value >= starBaik:
			return LabelBaik
		case value >= starCukup:
			return LabelCukup
		case value >= starSedang:
			return LabelSedang
		default:
			return LabelKurang
		}
	case types.QuestionSlider:
		return ColorClassFor(value, qt).String()
	}
	return ""
}

// ColorClassFor returns the four-level tier of value. On the star scale
// Cukup and Sedang both collapse into TierSedang.
// Text questions yield TierKurang; callers exclude them before asking.
func ColorClassFor(value float64, qt types.QuestionType) Tier {
	switch qt {
	case types.QuestionStar:
		switch {
		case value >= starSangatBaik:
			return TierSangatBaik
		case value >= starBaik:
			return TierBaik
		case value >= starSedang:
			return TierSedang
		}
	case types.QuestionSlider:
		switch {
		case value >= sliderSangatBaik:
			return TierSangatBaik
		case value >= sliderBaik:
			return TierBaik
		case value >= sliderSedang:
			return TierSedang
		}
	}
	return TierKurang
}

// ClampSlider clamps a respondent's slider input into [SliderMin, SliderMax].
func ClampSlider(v float64) float64 {
	if v < SliderMin {
		return SliderMin
	}
	if v > SliderMax {
		return SliderMax
	}
	return v
}

// FormatScore renders an average as "4.20 (Baik)".
func FormatScore(avg float64, qt types.QuestionType) string {
	return fmt.Sprintf("%.2f (%s)", avg, LabelFor(avg, qt))
}

// ScaleForGrandTotal picks the labeling scale for a mean of group averages:
// anything above 5 cannot be a star value.
func ScaleForGrandTotal(avg float64) types.QuestionType {
	if avg > 5 {
		return types.QuestionSlider
	}
	return types.QuestionStar
}

// PickDisplayScaleHeuristic returns the scale used to label a group's overall
// average: the type of the last non-text question in list order.
// Star is returned when the list has no numeric question.
func PickDisplayScaleHeuristic(questions []types.Question) types.QuestionType {
	scale := types.QuestionStar
	for _, q := range questions {
		if q.Kind() == types.QuestionText {
			continue
		}
		scale = q.Kind()
	}
	return scale
}
