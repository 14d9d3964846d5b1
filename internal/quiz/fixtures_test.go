package quiz

import "testing"

func intPtr(v int) *int { return &v }

func branchQuestions() []Question {
	return []Question{
		{
			ID: "1", Text: "Pick a mood", Type: TypeSingleChoice, Order: 0, IsRoot: true,
			Options: []Option{
				{ID: "a", Text: "calm", ScentWeights: Weights{}},
				{ID: "b", Text: "bold", ScentWeights: Weights{"P2": 1}},
			},
		},
		{
			ID: "2", Text: "Calm place", Type: TypeSingleChoice, Order: 1,
			ParentID: stringPtr("1"), ParentOptionID: stringPtr("a"),
			Options: []Option{{ID: "x", Text: "beach", ScentWeights: Weights{"P1": 3}}},
		},
		{
			ID: "3", Text: "Bold notes", Type: TypeMultiChoice, Order: 2,
			ParentID: stringPtr("1"), ParentOptionID: stringPtr("b"),
			Options: []Option{
				{ID: "m", Text: "musk", ScentWeights: Weights{"P2": 2, "P3": 1}},
				{ID: "n", Text: "amber", ScentWeights: Weights{"P3": 2}},
			},
		},
		{
			ID: "4", Text: "Intensity", Type: TypeScale, Order: 1,
			ParentID: stringPtr("1"), ParentOptionID: stringPtr("b"),
			ScaleConfig: &ScaleConfig{Min: 1, Max: 5, Steps: 5},
			Options:     []Option{{ID: "s", Text: "strength", ScentWeights: Weights{"P2": 1}}},
		},
		{ID: "z", Text: "When were you born?", Type: TypeZodiacInput, Order: 99},
	}
}

func flatQuestions() []Question {
	var out []Question
	for _, id := range []string{"q3", "q1", "q2"} {
		out = append(out, Question{
			ID: id, Text: "flat " + id, Type: TypeSingleChoice, Order: int(id[1] - '0'),
			Options: []Option{{ID: "o", Text: "yes", ScentWeights: Weights{"P2": 1}}},
		})
	}
	return out
}

func mustQuiz(t *testing.T, qs []Question) *Quiz {
	t.Helper()
	qz, err := NewQuiz(qs)
	if err != nil {
		t.Fatalf("NewQuiz: %v", err)
	}
	return qz
}
