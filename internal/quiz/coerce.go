package quiz

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Keys that identify the selection on an object-shaped answer. Every other
// numeric key on an object without scentWeights is a literal product score.
var reservedAnswerKeys = map[string]bool{
	"optionId":     true,
	"optionIds":    true,
	"selection":    true,
	"kind":         true,
	"scaleValue":   true,
	"scentWeights": true,
}

// DecodeStoredAnswer turns any historical answer encoding into an Answer:
//   - "P1:3" or "P1" (points default to 1)
//   - ["P1:3", "P2"]
//   - {"scentWeights": {...}, ...} with pre-resolved weights; a scentWeights
//     value that is not an object is ignored
//   - {"selection": "a"} whose weights are derived from q
//   - {"optionId": "a", "P1": 2} with literal product scores
//
// q may be nil when the question definition is no longer available.
func DecodeStoredAnswer(raw []byte, q *Question) (Answer, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return Answer{Kind: KindLegacy, Weights: Weights{}}, nil
	}

	var v interface{}
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return Answer{}, fmt.Errorf("%w: malformed answer payload: %v", ErrInvalidSelection, err)
	}

	switch t := v.(type) {
	case string:
		w := Weights{}
		addLegacyPoints(w, t)
		return Answer{Kind: KindLegacy, Weights: w}, nil
	case []interface{}:
		w := Weights{}
		for _, it := range t {
			if s, ok := it.(string); ok {
				addLegacyPoints(w, s)
			}
		}
		return Answer{Kind: KindLegacy, Weights: w}, nil
	case map[string]interface{}:
		return decodeObjectAnswer(t, q)
	default:
		return Answer{}, fmt.Errorf("%w: unsupported answer encoding %T", ErrInvalidSelection, v)
	}
}

// DecodeStoredAnswers coerces a whole answers map. Entries that cannot be
// coerced are skipped and their question ids returned in sorted order.
func DecodeStoredAnswers(raw map[string]json.RawMessage, qz *Quiz) (Answers, []string) {
	out := make(Answers, len(raw))
	var skipped []string
	for id, payload := range raw {
		var q *Question
		if qz != nil {
			if found, ok := qz.Question(id); ok {
				q = &found
			}
		}
		a, err := DecodeStoredAnswer(payload, q)
		if err != nil {
			skipped = append(skipped, id)
			continue
		}
		out[id] = a
	}
	sort.Strings(skipped)
	return out, skipped
}

func decodeObjectAnswer(obj map[string]interface{}, q *Question) (Answer, error) {
	sel := selectionFromObject(obj)

	if wm, ok := obj["scentWeights"].(map[string]interface{}); ok {
		w := Weights{}
		for k, val := range wm {
			if n, ok := numericValue(val); ok {
				w[k] += n
			}
		}
		return Answer{
			Kind:       kindFromObject(obj, sel),
			OptionID:   strings.TrimSpace(sel.OptionID),
			OptionIDs:  cleanIDsOrNil(sel.OptionIDs),
			ScaleValue: sel.ScaleValue,
			Weights:    w,
		}, nil
	}

	literal := Weights{}
	for k, val := range obj {
		if reservedAnswerKeys[k] {
			continue
		}
		if n, ok := numericValue(val); ok {
			literal[k] += n
		}
	}
	if len(literal) > 0 {
		return Answer{Kind: KindLegacy, Weights: literal}, nil
	}

	if sel.OptionID == "" && len(sel.OptionIDs) == 0 && sel.ScaleValue == nil {
		return Answer{Kind: KindLegacy, Weights: Weights{}}, nil
	}
	if q == nil {
		return Answer{}, fmt.Errorf("%w: selection without question definition", ErrInvalidSelection)
	}
	return Normalize(*q, sel)
}

func selectionFromObject(obj map[string]interface{}) Selection {
	var sel Selection
	for _, key := range []string{"selection", "optionId", "optionIds"} {
		switch t := obj[key].(type) {
		case string:
			if sel.OptionID == "" {
				sel.OptionID = t
			}
		case []interface{}:
			for _, it := range t {
				if s, ok := it.(string); ok {
					sel.OptionIDs = append(sel.OptionIDs, s)
				}
			}
		}
	}
	if n, ok := numericValue(obj["scaleValue"]); ok {
		v := int(n)
		sel.ScaleValue = &v
	}
	return sel
}

func kindFromObject(obj map[string]interface{}, sel Selection) AnswerKind {
	if s, ok := obj["kind"].(string); ok {
		switch k := AnswerKind(strings.TrimSpace(strings.ToLower(s))); k {
		case KindSingleChoice, KindMultiChoice, KindScale, KindLegacy:
			return k
		}
	}
	switch {
	case sel.ScaleValue != nil:
		return KindScale
	case len(sel.OptionIDs) > 0:
		return KindMultiChoice
	case sel.OptionID != "":
		return KindSingleChoice
	default:
		return KindLegacy
	}
}

// addLegacyPoints parses "<productKey>:<points>"; missing, unparseable or
// non-finite points count as 1.
func addLegacyPoints(w Weights, raw string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return
	}
	key, pointsRaw, found := strings.Cut(s, ":")
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	points := 1.0
	if found {
		if n, ok := parseFinite(pointsRaw); ok {
			points = n
		}
	}
	w[key] += points
}

// numericValue accepts JSON numbers and numeric strings. NaN and Inf are
// refused so decoded weights always re-encode.
func numericValue(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		return parseFinite(t)
	default:
		return 0, false
	}
}

func parseFinite(raw string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func cleanIDsOrNil(in []string) []string {
	out := cleanIDs(in)
	if len(out) == 0 {
		return nil
	}
	return out
}
