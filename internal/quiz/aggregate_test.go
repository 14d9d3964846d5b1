package quiz

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateSumsAcrossAnswers(t *testing.T) {
	answers := Answers{
		"1": {Kind: KindSingleChoice, OptionID: "b", Weights: Weights{"P2": 1}},
		"3": {Kind: KindMultiChoice, OptionIDs: []string{"m", "n"}, Weights: Weights{"P2": 2, "P3": 3}},
		"x": {Kind: KindLegacy, Weights: Weights{"P1": 1}},
	}

	scores := Aggregate(answers, []string{"1", "3"})

	assert.Equal(t, map[string]float64{"P1": 1, "P2": 3, "P3": 3}, scores.Map())
	assert.Equal(t, []string{"P2", "P3", "P1"}, scores.Products())
}

func TestAggregateIsFreshAndIdempotent(t *testing.T) {
	answers := Answers{"1": {Kind: KindSingleChoice, OptionID: "b", Weights: Weights{"P2": 1, "P3": 1}}}

	first, err := SelectWinner(Aggregate(answers, nil), nil)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := SelectWinner(Aggregate(answers, nil), nil)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, 1.0, Aggregate(answers, nil).Get("P2"))
}

func TestSelectWinnerTieBreak(t *testing.T) {
	scores := NewScores()
	scores.Add("P3", 2)
	scores.Add("P1", 2)
	scores.Add("P2", 1)

	w, err := SelectWinner(scores, nil)
	require.NoError(t, err)
	assert.Equal(t, "P3", w.ProductID, "first-seen product keeps a tie")

	w, err = SelectWinner(scores, []string{"P1", "P2", "P3"})
	require.NoError(t, err)
	assert.Equal(t, "P1", w.ProductID, "catalog order decides a tie")
	assert.False(t, w.Fallback)
}

func TestSelectWinnerIgnoresProductsOutsideCatalog(t *testing.T) {
	scores := NewScores()
	scores.Add("retired", 10)
	scores.Add("P2", 1)

	w, err := SelectWinner(scores, []string{"P1", "P2"})
	require.NoError(t, err)
	assert.Equal(t, "P2", w.ProductID)
}

func TestSelectWinnerFallsBackToFirstCatalogProduct(t *testing.T) {
	answers := Answers{
		"1": {Kind: KindSingleChoice, OptionID: "a", Weights: Weights{}},
		"2": {Kind: KindLegacy, Weights: Weights{"P2": 0, "P3": -1}},
	}

	w, err := SelectWinner(Aggregate(answers, nil), []string{"P1", "P2", "P3"})
	require.NoError(t, err)
	assert.Equal(t, Winner{ProductID: "P1", Fallback: true}, w)
}

func TestSelectWinnerEmptyCatalogAndScores(t *testing.T) {
	_, err := SelectWinner(NewScores(), nil)
	assert.ErrorIs(t, err, ErrAggregationEmpty)

	_, err = SelectWinner(nil, nil)
	assert.ErrorIs(t, err, ErrAggregationEmpty)
}

func TestScoresJSON(t *testing.T) {
	scores := NewScores()
	scores.Add("P2", 1.5)

	raw, err := json.Marshal(scores)
	require.NoError(t, err)
	assert.JSONEq(t, `{"P2":1.5}`, string(raw))

	var back Scores
	require.NoError(t, json.Unmarshal([]byte(`{"P9":1,"P1":2}`), &back))
	assert.Equal(t, []string{"P1", "P9"}, back.Products())
}
