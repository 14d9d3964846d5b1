package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func questionByID(t *testing.T, id string) Question {
	t.Helper()
	for _, q := range branchQuestions() {
		if q.ID == id {
			return q
		}
	}
	t.Fatalf("fixture question %q not found", id)
	return Question{}
}

func TestNormalizeSingleCopiesOptionWeights(t *testing.T) {
	q := questionByID(t, "2")

	a, err := Normalize(q, Selection{OptionID: "x"})
	require.NoError(t, err)
	assert.Equal(t, KindSingleChoice, a.Kind)
	assert.Equal(t, Weights{"P1": 3}, a.Weights)

	a.Weights["P1"] = 100
	assert.Equal(t, 3.0, q.Options[0].ScentWeights["P1"], "normalized weights must not alias the option")
}

func TestNormalizeUnknownOption(t *testing.T) {
	_, err := Normalize(questionByID(t, "2"), Selection{OptionID: "zz"})
	assert.ErrorIs(t, err, ErrUnknownOption)

	_, err = Normalize(questionByID(t, "3"), Selection{OptionIDs: []string{"m", "zz"}})
	assert.ErrorIs(t, err, ErrUnknownOption)
}

func TestNormalizeSingleRejectsSeveralOptions(t *testing.T) {
	_, err := Normalize(questionByID(t, "1"), Selection{OptionIDs: []string{"a", "b"}})
	assert.ErrorIs(t, err, ErrInvalidSelection)

	a, err := Normalize(questionByID(t, "1"), Selection{OptionIDs: []string{"b"}})
	require.NoError(t, err)
	assert.Equal(t, "b", a.OptionID)
}

func TestNormalizeMultiSumsSelection(t *testing.T) {
	a, err := Normalize(questionByID(t, "3"), Selection{OptionIDs: []string{"m", "n", "m"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"m", "n"}, a.OptionIDs)
	assert.Equal(t, Weights{"P2": 2, "P3": 3}, a.Weights)
}

func TestNormalizeMultiDoesNotMutateInput(t *testing.T) {
	ids := make([]string, 1, 4)
	ids[0] = "m"
	_, err := Normalize(questionByID(t, "3"), Selection{OptionID: "n", OptionIDs: ids})
	require.NoError(t, err)
	assert.Equal(t, "", ids[:2][1])
}

func TestNormalizeScale(t *testing.T) {
	q := questionByID(t, "4")

	a, err := Normalize(q, Selection{ScaleValue: intPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, KindScale, a.Kind)
	assert.Equal(t, "s", a.OptionID)
	assert.Equal(t, 4, *a.ScaleValue)
	assert.Equal(t, Weights{"P2": 1}, a.Weights, "scale value does not scale the weights")

	_, err = Normalize(q, Selection{ScaleValue: intPtr(9)})
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestNormalizeZodiacQuestionRejected(t *testing.T) {
	_, err := Normalize(questionByID(t, "z"), Selection{OptionID: "a"})
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestToggleReDerivesFromFullSelection(t *testing.T) {
	q := questionByID(t, "3")

	a, err := Toggle(q, Answer{}, "m")
	require.NoError(t, err)
	a, err = Toggle(q, a, "n")
	require.NoError(t, err)
	a, err = Toggle(q, a, "m")
	require.NoError(t, err)

	onlyN, err := Normalize(q, Selection{OptionIDs: []string{"n"}})
	require.NoError(t, err)

	assert.Equal(t, onlyN.Weights, a.Weights)
	assert.Equal(t, []string{"n"}, a.OptionIDs)
}

func TestToggleOffLastOptionLeavesEmptyAnswer(t *testing.T) {
	q := questionByID(t, "3")

	a, err := Toggle(q, Answer{}, "m")
	require.NoError(t, err)
	a, err = Toggle(q, a, "m")
	require.NoError(t, err)

	assert.True(t, a.IsEmpty())
	assert.Empty(t, a.Weights)
}

func TestToggleErrors(t *testing.T) {
	_, err := Toggle(questionByID(t, "3"), Answer{}, "zz")
	assert.ErrorIs(t, err, ErrUnknownOption)

	_, err = Toggle(questionByID(t, "2"), Answer{}, "x")
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestNormalizeQuestionType(t *testing.T) {
	assert.Equal(t, TypeSingleChoice, NormalizeQuestionType("Single-Choice"))
	assert.Equal(t, TypeMultiChoice, NormalizeQuestionType("multiple_choice"))
	assert.Equal(t, TypeZodiacInput, NormalizeQuestionType("zodiac"))
	assert.Equal(t, TypeScale, NormalizeQuestionType(" scale "))
	assert.Equal(t, QuestionType(""), NormalizeQuestionType("essay"))
}
