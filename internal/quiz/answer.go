package quiz

import "sort"

type AnswerKind string

const (
	KindSingleChoice AnswerKind = "single"
	KindMultiChoice  AnswerKind = "multi"
	KindScale        AnswerKind = "scale"
	// KindLegacy marks historical answers coerced from an older encoding;
	// only their weights are meaningful.
	KindLegacy AnswerKind = "legacy"
)

// Answer is the canonical stored answer. Kind selects which selection
// fields are set; Weights is always the resolved contribution.
type Answer struct {
	Kind       AnswerKind `json:"kind"`
	OptionID   string     `json:"optionId,omitempty"`
	OptionIDs  []string   `json:"optionIds,omitempty"`
	ScaleValue *int       `json:"scaleValue,omitempty"`
	Weights    Weights    `json:"scentWeights"`
}

// Selected reports the option ids the answer refers to, in selection order.
func (a Answer) Selected() []string {
	switch a.Kind {
	case KindMultiChoice:
		out := make([]string, len(a.OptionIDs))
		copy(out, a.OptionIDs)
		return out
	case KindSingleChoice, KindScale:
		if a.OptionID == "" {
			return nil
		}
		return []string{a.OptionID}
	default:
		return nil
	}
}

// PrimaryOption is the option that drives branching.
func (a Answer) PrimaryOption() string {
	switch a.Kind {
	case KindSingleChoice, KindScale:
		return a.OptionID
	case KindMultiChoice:
		if len(a.OptionIDs) > 0 {
			return a.OptionIDs[0]
		}
	}
	return ""
}

func (a Answer) IsEmpty() bool {
	switch a.Kind {
	case KindMultiChoice:
		return len(a.OptionIDs) == 0
	case KindSingleChoice:
		return a.OptionID == ""
	case KindScale:
		return a.ScaleValue == nil && a.OptionID == ""
	case KindLegacy:
		return len(a.Weights) == 0
	default:
		return true
	}
}

// Answers is keyed by question id.
type Answers map[string]Answer

func (as Answers) selectedOption(questionID string) string {
	a, ok := as[questionID]
	if !ok {
		return ""
	}
	return a.PrimaryOption()
}

func (as Answers) Clone() Answers {
	out := make(Answers, len(as))
	for k, v := range as {
		v.Weights = v.Weights.Clone()
		if v.OptionIDs != nil {
			ids := make([]string, len(v.OptionIDs))
			copy(ids, v.OptionIDs)
			v.OptionIDs = ids
		}
		out[k] = v
	}
	return out
}

func (as Answers) sortedKeys() []string {
	keys := make([]string, 0, len(as))
	for k := range as {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
