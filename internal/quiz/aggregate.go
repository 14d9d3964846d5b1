package quiz

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Scores holds per-product totals and remembers the order in which
// products were first seen, which is the tie-break order when no catalog
// order applies.
type Scores struct {
	totals map[string]float64
	order  []string
}

func NewScores() *Scores {
	return &Scores{totals: make(map[string]float64)}
}

func (s *Scores) Add(product string, points float64) {
	if s.totals == nil {
		s.totals = make(map[string]float64)
	}
	if _, seen := s.totals[product]; !seen {
		s.order = append(s.order, product)
	}
	s.totals[product] += points
}

func (s *Scores) Get(product string) float64 {
	return s.totals[product]
}

func (s *Scores) Len() int {
	return len(s.order)
}

// Products returns product ids in first-seen order.
func (s *Scores) Products() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Scores) Map() map[string]float64 {
	out := make(map[string]float64, len(s.totals))
	for k, v := range s.totals {
		out[k] = v
	}
	return out
}

func (s *Scores) MarshalJSON() ([]byte, error) {
	if s == nil || s.totals == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.totals)
}

func (s *Scores) UnmarshalJSON(b []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	*s = Scores{totals: make(map[string]float64, len(m))}
	for _, k := range keys {
		s.Add(k, m[k])
	}
	return nil
}

// Aggregate folds every answer's weights into fresh product totals.
// Answers whose question id appears in order are processed first, in that
// order; the rest follow sorted by question id.
func Aggregate(answers Answers, order []string) *Scores {
	scores := NewScores()
	done := make(map[string]bool, len(answers))

	fold := func(id string) {
		if done[id] {
			return
		}
		a, ok := answers[id]
		if !ok {
			return
		}
		done[id] = true
		for _, product := range a.Weights.sortedKeys() {
			scores.Add(product, a.Weights[product])
		}
	}

	for _, id := range order {
		fold(id)
	}
	for _, id := range answers.sortedKeys() {
		fold(id)
	}
	return scores
}

type Winner struct {
	ProductID string  `json:"product_id"`
	Score     float64 `json:"score"`
	// Fallback is set when no product scored above zero and the first
	// catalog product was chosen instead.
	Fallback bool `json:"fallback"`
}

// SelectWinner scans candidates with a strict greater-than comparison so
// the earliest candidate keeps a tie. With a non-empty catalog only catalog
// products are candidates, in catalog order; otherwise the scored products
// in first-seen order. Only positive scores can win; when none does the
// first catalog product is returned with Fallback set.
func SelectWinner(scores *Scores, catalog []string) (Winner, error) {
	candidates := catalog
	if len(candidates) == 0 && scores != nil {
		candidates = scores.Products()
	}

	best := Winner{}
	for _, id := range candidates {
		var v float64
		if scores != nil {
			v = scores.Get(id)
		}
		if v > best.Score {
			best = Winner{ProductID: id, Score: v}
		}
	}
	if best.ProductID != "" {
		return best, nil
	}

	if len(catalog) == 0 {
		return Winner{}, fmt.Errorf("%w: no catalog to fall back on", ErrAggregationEmpty)
	}
	return Winner{ProductID: catalog[0], Fallback: true}, nil
}
