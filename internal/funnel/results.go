package funnel

import (
	"context"
	"encoding/json"
	"fmt"

	"scentquiz/internal/db"
	"scentquiz/internal/quiz"

	"github.com/google/uuid"
)

// Submission is what a completed session emits.
type Submission struct {
	SessionID        string
	UserID           string
	WinningProductID string
	ZodiacSignName   string
	Fallback         bool
	RawAnswers       quiz.Answers
	Scores           *quiz.Scores
	SubmittedAt      int64
}

// Submitter persists or forwards a result. It is called once per
// submission without retries.
type Submitter interface {
	Submit(ctx context.Context, sub Submission) error
}

type SubmitterFunc func(ctx context.Context, sub Submission) error

func (f SubmitterFunc) Submit(ctx context.Context, sub Submission) error {
	return f(ctx, sub)
}

type ResultStore struct {
	db *db.DB
}

func NewResultStore(store *db.DB) *ResultStore {
	return &ResultStore{db: store}
}

// Submit writes one quiz_results row. A second submission for the same
// session is ignored.
func (r *ResultStore) Submit(ctx context.Context, sub Submission) error {
	answers, err := json.Marshal(sub.RawAnswers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	scores, err := json.Marshal(sub.Scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO quiz_results (
			id, session_id, participant_id, product_id, zodiac_sign,
			fallback, raw_answers, scores, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id) DO NOTHING
	`), uuid.NewString(), sub.SessionID, sub.UserID, sub.WinningProductID, sub.ZodiacSignName,
		sub.Fallback, string(answers), string(scores), sub.SubmittedAt); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}
