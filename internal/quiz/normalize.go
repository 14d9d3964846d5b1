package quiz

import (
	"fmt"
	"strings"
)

// Selection is the raw input a participant submits for one question.
type Selection struct {
	OptionID   string   `json:"option_id,omitempty"`
	OptionIDs  []string `json:"option_ids,omitempty"`
	ScaleValue *int     `json:"scale_value,omitempty"`
}

// Normalize resolves a raw selection against the question definition.
// Weights are always derived from the full selection, never patched.
func Normalize(q Question, sel Selection) (Answer, error) {
	switch q.Type {
	case TypeSingleChoice:
		return normalizeSingle(q, sel)
	case TypeMultiChoice:
		ids := make([]string, 0, len(sel.OptionIDs)+1)
		ids = append(ids, sel.OptionIDs...)
		ids = append(ids, sel.OptionID)
		return normalizeMulti(q, cleanIDs(ids))
	case TypeScale:
		return normalizeScale(q, sel)
	default:
		return Answer{}, fmt.Errorf("%w: question %q of type %q takes no option selection", ErrInvalidSelection, q.ID, q.Type)
	}
}

// Toggle flips one option of a multi-choice answer and re-derives the
// combined weights from the resulting selection set.
func Toggle(q Question, current Answer, optionID string) (Answer, error) {
	if q.Type != TypeMultiChoice {
		return Answer{}, fmt.Errorf("%w: question %q is not multi choice", ErrInvalidSelection, q.ID)
	}
	optionID = strings.TrimSpace(optionID)
	if _, ok := q.option(optionID); !ok {
		return Answer{}, fmt.Errorf("%w: %q on question %q", ErrUnknownOption, optionID, q.ID)
	}

	next := make([]string, 0, len(current.OptionIDs)+1)
	removed := false
	for _, id := range current.OptionIDs {
		if id == optionID {
			removed = true
			continue
		}
		next = append(next, id)
	}
	if !removed {
		next = append(next, optionID)
	}
	return normalizeMulti(q, next)
}

func normalizeSingle(q Question, sel Selection) (Answer, error) {
	id := strings.TrimSpace(sel.OptionID)
	if id == "" {
		ids := cleanIDs(sel.OptionIDs)
		if len(ids) > 1 {
			return Answer{}, fmt.Errorf("%w: question %q accepts one option", ErrInvalidSelection, q.ID)
		}
		if len(ids) == 1 {
			id = ids[0]
		}
	}
	if id == "" {
		return Answer{}, fmt.Errorf("%w: question %q requires an option", ErrInvalidSelection, q.ID)
	}

	opt, ok := q.option(id)
	if !ok {
		return Answer{}, fmt.Errorf("%w: %q on question %q", ErrUnknownOption, id, q.ID)
	}
	return Answer{Kind: KindSingleChoice, OptionID: opt.ID, Weights: opt.ScentWeights.Clone()}, nil
}

func normalizeMulti(q Question, ids []string) (Answer, error) {
	weights := Weights{}
	for _, id := range ids {
		opt, ok := q.option(id)
		if !ok {
			return Answer{}, fmt.Errorf("%w: %q on question %q", ErrUnknownOption, id, q.ID)
		}
		weights.add(opt.ScentWeights)
	}
	if len(ids) == 0 {
		ids = nil
	}
	return Answer{Kind: KindMultiChoice, OptionIDs: ids, Weights: weights}, nil
}

func normalizeScale(q Question, sel Selection) (Answer, error) {
	if sel.ScaleValue != nil && q.ScaleConfig != nil {
		v := *sel.ScaleValue
		if v < q.ScaleConfig.Min || v > q.ScaleConfig.Max {
			return Answer{}, fmt.Errorf("%w: scale value %d outside [%d,%d] on question %q",
				ErrInvalidSelection, v, q.ScaleConfig.Min, q.ScaleConfig.Max, q.ID)
		}
	}

	id := strings.TrimSpace(sel.OptionID)
	if id == "" && len(q.Options) == 1 {
		id = q.Options[0].ID
	}
	if id == "" && sel.ScaleValue == nil {
		return Answer{}, fmt.Errorf("%w: question %q requires a scale value", ErrInvalidSelection, q.ID)
	}

	out := Answer{Kind: KindScale, Weights: Weights{}}
	if sel.ScaleValue != nil {
		v := *sel.ScaleValue
		out.ScaleValue = &v
	}
	if id != "" {
		opt, ok := q.option(id)
		if !ok {
			return Answer{}, fmt.Errorf("%w: %q on question %q", ErrUnknownOption, id, q.ID)
		}
		out.OptionID = opt.ID
		out.Weights = opt.ScentWeights.Clone()
	}
	return out, nil
}

// cleanIDs trims, drops empties and de-duplicates while keeping first occurrence order.
func cleanIDs(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		s := strings.TrimSpace(v)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
