package quiz

import (
	"sort"
	"strings"
)

type QuestionType string

const (
	TypeSingleChoice QuestionType = "single_choice"
	TypeMultiChoice  QuestionType = "multi_choice"
	TypeScale        QuestionType = "scale"
	TypeZodiacInput  QuestionType = "zodiac_input"
)

// Weights maps a product id to the points an answer contributes to it.
type Weights map[string]float64

type Option struct {
	ID           string  `json:"id"`
	Text         string  `json:"text"`
	ScentWeights Weights `json:"scent_weights"`
}

type ScaleConfig struct {
	Min   int `json:"min"`
	Max   int `json:"max"`
	Steps int `json:"steps"`
}

type Question struct {
	ID             string       `json:"id"`
	Text           string       `json:"text"`
	Type           QuestionType `json:"type"`
	Order          int          `json:"order"`
	IsRoot         bool         `json:"is_root"`
	ParentID       *string      `json:"parent_id,omitempty"`
	ParentOptionID *string      `json:"parent_option_id,omitempty"`
	Options        []Option     `json:"options"`
	ScaleConfig    *ScaleConfig `json:"scale_config,omitempty"`
}

func (q Question) option(id string) (Option, bool) {
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

func (q Question) isBranch() bool {
	return q.ParentID != nil && strings.TrimSpace(*q.ParentID) != ""
}

func NormalizeQuestionType(v string) QuestionType {
	v = strings.TrimSpace(strings.ToLower(v))
	v = strings.ReplaceAll(v, "-", "_")
	switch QuestionType(v) {
	case TypeSingleChoice, TypeMultiChoice, TypeScale, TypeZodiacInput:
		return QuestionType(v)
	case "single", "choice":
		return TypeSingleChoice
	case "multi", "multiple_choice":
		return TypeMultiChoice
	case "zodiac":
		return TypeZodiacInput
	default:
		return ""
	}
}

// Clone returns a copy that shares no maps or slices with w.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

func (w Weights) add(other Weights) {
	for k, v := range other {
		w[k] += v
	}
}

// sortedKeys gives map iteration a stable order so first-seen bookkeeping is reproducible.
func (w Weights) sortedKeys() []string {
	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func stringPtr(v string) *string {
	return &v
}
