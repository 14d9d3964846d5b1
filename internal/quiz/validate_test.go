package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateQuestionsAcceptsFixtures(t *testing.T) {
	require.NoError(t, ValidateQuestions(branchQuestions()))
	require.NoError(t, ValidateQuestions(flatQuestions()))
}

func TestValidateQuestionsRejectsMalformedGraphs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]Question) []Question
		want   string
	}{
		{
			name: "missing parent option",
			mutate: func(qs []Question) []Question {
				qs[1].ParentOptionID = stringPtr("nope")
				return qs
			},
			want: "nonexistent option",
		},
		{
			name: "missing parent",
			mutate: func(qs []Question) []Question {
				qs[1].ParentID = stringPtr("ghost")
				return qs
			},
			want: "nonexistent parent",
		},
		{
			name: "two roots",
			mutate: func(qs []Question) []Question {
				qs[1].IsRoot = true
				qs[1].ParentID = nil
				qs[1].ParentOptionID = nil
				return qs
			},
			want: "multiple root",
		},
		{
			name: "nested branch",
			mutate: func(qs []Question) []Question {
				return append(qs, Question{
					ID: "5", Type: TypeSingleChoice,
					ParentID: stringPtr("2"), ParentOptionID: stringPtr("x"),
					Options: []Option{{ID: "k"}},
				})
			},
			want: "only one branching level",
		},
		{
			name: "duplicate question",
			mutate: func(qs []Question) []Question {
				return append(qs, qs[1])
			},
			want: "duplicate question id",
		},
		{
			name: "choice without options",
			mutate: func(qs []Question) []Question {
				qs[1].Options = nil
				return qs
			},
			want: "has no options",
		},
		{
			name: "bad scale",
			mutate: func(qs []Question) []Question {
				qs[3].ScaleConfig = &ScaleConfig{Min: 5, Max: 5}
				return qs
			},
			want: "scale min >= max",
		},
		{
			name: "multi choice root",
			mutate: func(qs []Question) []Question {
				qs[0].Type = TypeMultiChoice
				return qs
			},
			want: "exactly one option",
		},
		{
			name: "only zodiac",
			mutate: func(qs []Question) []Question {
				return qs[4:]
			},
			want: "no presentable questions",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateQuestions(tc.mutate(branchQuestions()))
			require.ErrorIs(t, err, ErrMalformedGraph)
			assert.Contains(t, err.Error(), tc.want)

			_, err = NewQuiz(tc.mutate(branchQuestions()))
			assert.ErrorIs(t, err, ErrMalformedGraph)
		})
	}
}

func TestValidateQuestionsReportsEveryProblem(t *testing.T) {
	qs := branchQuestions()
	qs[1].ParentOptionID = stringPtr("nope")
	qs[2].Options = append(qs[2].Options, Option{ID: "m"})

	err := ValidateQuestions(qs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent option")
	assert.Contains(t, err.Error(), "duplicate option")
}
