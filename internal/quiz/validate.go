package quiz

import (
	"fmt"
	"strings"
)

// ValidateQuestions performs the structural checks NewQuiz relies on and
// reports every problem found in a single error wrapping ErrMalformedGraph.
func ValidateQuestions(questions []Question) error {
	var problems []string

	byID := make(map[string]Question, len(questions))
	var roots []string
	for _, q := range questions {
		id := strings.TrimSpace(q.ID)
		if id == "" {
			problems = append(problems, "question with empty id")
			continue
		}
		if _, dup := byID[id]; dup {
			problems = append(problems, fmt.Sprintf("duplicate question id %q", id))
			continue
		}
		byID[id] = q
		if q.IsRoot {
			roots = append(roots, id)
		}
	}

	presentable := 0
	for _, q := range questions {
		if q.Type != TypeZodiacInput {
			presentable++
		}
	}
	if presentable == 0 {
		problems = append(problems, "no presentable questions")
	}

	if len(roots) > 1 {
		problems = append(problems, fmt.Sprintf("multiple root questions: %s", strings.Join(roots, ", ")))
	}
	hasRoot := len(roots) > 0

	for _, q := range questions {
		if _, ok := byID[q.ID]; !ok {
			continue
		}
		problems = append(problems, validateQuestionShape(q)...)

		if q.IsRoot && q.isBranch() {
			problems = append(problems, fmt.Sprintf("root question %q must not have a parent", q.ID))
		}
		if !q.isBranch() {
			if q.ParentOptionID != nil && strings.TrimSpace(*q.ParentOptionID) != "" {
				problems = append(problems, fmt.Sprintf("question %q has parent option without parent", q.ID))
			}
			continue
		}

		parent, ok := byID[*q.ParentID]
		if !ok {
			problems = append(problems, fmt.Sprintf("question %q references nonexistent parent %q", q.ID, *q.ParentID))
			continue
		}
		if q.ParentOptionID == nil || strings.TrimSpace(*q.ParentOptionID) == "" {
			problems = append(problems, fmt.Sprintf("question %q has parent %q but no parent option", q.ID, parent.ID))
			continue
		}
		if _, ok := parent.option(*q.ParentOptionID); !ok {
			problems = append(problems, fmt.Sprintf("question %q references nonexistent option %q of %q", q.ID, *q.ParentOptionID, parent.ID))
		}
		if hasRoot && !parent.IsRoot {
			problems = append(problems, fmt.Sprintf("question %q branches from non-root %q; only one branching level is supported", q.ID, parent.ID))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrMalformedGraph, strings.Join(problems, "; "))
	}
	return nil
}

func validateQuestionShape(q Question) []string {
	var problems []string

	switch q.Type {
	case TypeSingleChoice, TypeMultiChoice:
		if len(q.Options) == 0 {
			problems = append(problems, fmt.Sprintf("question %q has no options", q.ID))
		}
	case TypeScale:
		if q.ScaleConfig != nil && q.ScaleConfig.Min >= q.ScaleConfig.Max {
			problems = append(problems, fmt.Sprintf("question %q has scale min >= max", q.ID))
		}
		if len(q.Options) > 1 {
			problems = append(problems, fmt.Sprintf("scale question %q must carry at most one option", q.ID))
		}
	case TypeZodiacInput:
		if q.IsRoot {
			problems = append(problems, fmt.Sprintf("zodiac question %q cannot be root", q.ID))
		}
	default:
		problems = append(problems, fmt.Sprintf("question %q has unsupported type %q", q.ID, q.Type))
	}

	if q.IsRoot && q.Type == TypeMultiChoice {
		problems = append(problems, fmt.Sprintf("root question %q must select exactly one option", q.ID))
	}

	seen := make(map[string]bool, len(q.Options))
	for _, o := range q.Options {
		id := strings.TrimSpace(o.ID)
		if id == "" {
			problems = append(problems, fmt.Sprintf("question %q has option with empty id", q.ID))
			continue
		}
		if seen[id] {
			problems = append(problems, fmt.Sprintf("question %q has duplicate option %q", q.ID, id))
		}
		seen[id] = true
	}
	return problems
}
