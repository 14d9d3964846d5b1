package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"scentquiz/internal/db"
	"scentquiz/internal/quiz"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrQuizNotLoaded = errors.New("no questions configured")
)

type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Position    int    `json:"position"`
}

// PublicOption and PublicQuestion are what participants see: no weights.
type PublicOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type PublicQuestion struct {
	ID             string            `json:"id"`
	Text           string            `json:"text"`
	Type           quiz.QuestionType `json:"type"`
	Order          int               `json:"order"`
	IsRoot         bool              `json:"is_root"`
	ParentID       *string           `json:"parent_id,omitempty"`
	ParentOptionID *string           `json:"parent_option_id,omitempty"`
	Options        []PublicOption    `json:"options"`
	ScaleConfig    *quiz.ScaleConfig `json:"scale_config,omitempty"`
}

func NewPublicQuestion(q quiz.Question) PublicQuestion {
	out := PublicQuestion{
		ID:             q.ID,
		Text:           q.Text,
		Type:           q.Type,
		Order:          q.Order,
		IsRoot:         q.IsRoot,
		ParentID:       q.ParentID,
		ParentOptionID: q.ParentOptionID,
		ScaleConfig:    q.ScaleConfig,
		Options:        make([]PublicOption, 0, len(q.Options)),
	}
	for _, o := range q.Options {
		out.Options = append(out.Options, PublicOption{ID: o.ID, Text: o.Text})
	}
	return out
}

type Service struct {
	db *db.DB

	mu     sync.RWMutex
	cached *quiz.Quiz
}

func NewService(store *db.DB) *Service {
	return &Service{db: store}
}

func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, image_url, position
		FROM products
		ORDER BY position ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	items := make([]Product, 0)
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.ImageURL, &p.Position); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return items, nil
}

// ProductOrder returns product ids in catalog listing order.
func (s *Service) ProductOrder(ctx context.Context) ([]string, error) {
	items, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, p := range items {
		out = append(out, p.ID)
	}
	return out, nil
}

func (s *Service) UpsertProducts(ctx context.Context, items []Product) ([]Product, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: products are required", ErrInvalidInput)
	}
	seen := make(map[string]bool, len(items))
	for i := range items {
		items[i].ID = strings.TrimSpace(items[i].ID)
		items[i].Name = strings.TrimSpace(items[i].Name)
		if items[i].ID == "" || items[i].Name == "" {
			return nil, fmt.Errorf("%w: product %d needs id and name", ErrInvalidInput, i+1)
		}
		if seen[items[i].ID] {
			return nil, fmt.Errorf("%w: duplicate product %q", ErrInvalidInput, items[i].ID)
		}
		seen[items[i].ID] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := db.Now()
	for _, p := range items {
		if _, err := tx.ExecContext(ctx, s.db.Rebind(`
			INSERT INTO products (id, name, description, image_url, position, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				name = excluded.name,
				description = excluded.description,
				image_url = excluded.image_url,
				position = excluded.position,
				updated_at = excluded.updated_at
		`), p.ID, p.Name, p.Description, p.ImageURL, p.Position, now); err != nil {
			return nil, fmt.Errorf("upsert product %q: %w", p.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit products: %w", err)
	}
	return s.ListProducts(ctx)
}

// LoadQuiz reads the question set and validates it. A malformed graph is
// returned as an error wrapping quiz.ErrMalformedGraph.
func (s *Service) LoadQuiz(ctx context.Context) (*quiz.Quiz, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	questions, err := s.readQuestions(ctx)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrQuizNotLoaded
	}
	qz, err := quiz.NewQuiz(questions)
	if err != nil {
		return nil, fmt.Errorf("load quiz: %w", err)
	}
	return s.cacheLoaded(qz), nil
}

// cacheLoaded stores a quiz read from the database unless a replace landed
// while it was being read; the replaced set always wins.
func (s *Service) cacheLoaded(qz *quiz.Quiz) *quiz.Quiz {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return s.cached
	}
	s.cached = qz
	return qz
}

func (s *Service) PublicQuestions(ctx context.Context) ([]PublicQuestion, error) {
	qz, err := s.LoadQuiz(ctx)
	if err != nil {
		return nil, err
	}
	qs := qz.Questions()
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].Order < qs[j].Order })
	out := make([]PublicQuestion, 0, len(qs))
	for _, q := range qs {
		out = append(out, NewPublicQuestion(q))
	}
	return out, nil
}

// ReplaceQuestions swaps the whole question set after validating it.
func (s *Service) ReplaceQuestions(ctx context.Context, questions []quiz.Question) (*quiz.Quiz, error) {
	for i := range questions {
		questions[i].ID = strings.TrimSpace(questions[i].ID)
		if t := quiz.NormalizeQuestionType(string(questions[i].Type)); t != "" {
			questions[i].Type = t
		}
	}
	qz, err := quiz.NewQuiz(questions)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM question_options`); err != nil {
		return nil, fmt.Errorf("clear options: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions`); err != nil {
		return nil, fmt.Errorf("clear questions: %w", err)
	}

	for _, q := range questions {
		var scaleMin, scaleMax, scaleSteps any
		if q.ScaleConfig != nil {
			scaleMin, scaleMax, scaleSteps = q.ScaleConfig.Min, q.ScaleConfig.Max, q.ScaleConfig.Steps
		}
		if _, err := tx.ExecContext(ctx, s.db.Rebind(`
			INSERT INTO questions (
				id, text, question_type, sort_order, is_root,
				parent_id, parent_option_id, scale_min, scale_max, scale_steps
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`), q.ID, q.Text, string(q.Type), q.Order, q.IsRoot,
			nullableString(q.ParentID), nullableString(q.ParentOptionID),
			scaleMin, scaleMax, scaleSteps); err != nil {
			return nil, fmt.Errorf("insert question %q: %w", q.ID, err)
		}

		for pos, o := range q.Options {
			weights := o.ScentWeights
			if weights == nil {
				weights = quiz.Weights{}
			}
			raw, err := json.Marshal(weights)
			if err != nil {
				return nil, fmt.Errorf("marshal weights: %w", err)
			}
			if _, err := tx.ExecContext(ctx, s.db.Rebind(`
				INSERT INTO question_options (question_id, option_id, text, position, scent_weights)
				VALUES ($1, $2, $3, $4, $5)
			`), q.ID, o.ID, o.Text, pos, string(raw)); err != nil {
				return nil, fmt.Errorf("insert option %q of %q: %w", o.ID, q.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit questions: %w", err)
	}

	s.mu.Lock()
	s.cached = qz
	s.mu.Unlock()
	return qz, nil
}

func (s *Service) readQuestions(ctx context.Context) ([]quiz.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, question_type, sort_order, is_root,
			parent_id, parent_option_id, scale_min, scale_max, scale_steps
		FROM questions
		ORDER BY sort_order ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	questions := make([]quiz.Question, 0)
	index := map[string]int{}
	for rows.Next() {
		var q quiz.Question
		var qType string
		var parentID, parentOptionID sql.NullString
		var scaleMin, scaleMax, scaleSteps sql.NullInt64
		if err := rows.Scan(
			&q.ID,
			&q.Text,
			&qType,
			&q.Order,
			&q.IsRoot,
			&parentID,
			&parentOptionID,
			&scaleMin,
			&scaleMax,
			&scaleSteps,
		); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Type = quiz.QuestionType(qType)
		if parentID.Valid {
			v := parentID.String
			q.ParentID = &v
		}
		if parentOptionID.Valid {
			v := parentOptionID.String
			q.ParentOptionID = &v
		}
		if scaleMin.Valid && scaleMax.Valid {
			q.ScaleConfig = &quiz.ScaleConfig{
				Min:   int(scaleMin.Int64),
				Max:   int(scaleMax.Int64),
				Steps: int(scaleSteps.Int64),
			}
		}
		index[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}

	optRows, err := s.db.QueryContext(ctx, `
		SELECT question_id, option_id, text, scent_weights
		FROM question_options
		ORDER BY question_id ASC, position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query options: %w", err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var questionID, rawWeights string
		var o quiz.Option
		if err := optRows.Scan(&questionID, &o.ID, &o.Text, &rawWeights); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		o.ScentWeights = quiz.Weights{}
		if strings.TrimSpace(rawWeights) != "" {
			if err := json.Unmarshal([]byte(rawWeights), &o.ScentWeights); err != nil {
				return nil, fmt.Errorf("decode weights of %q/%q: %w", questionID, o.ID, err)
			}
		}
		i, ok := index[questionID]
		if !ok {
			continue
		}
		questions[i].Options = append(questions[i].Options, o)
	}
	if err := optRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate options: %w", err)
	}
	return questions, nil
}

func nullableString(v *string) any {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	return *v
}
