package funnel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"scentquiz/internal/db"
	"scentquiz/internal/quiz"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrSessionNotFound = errors.New("session not found")
)

const (
	statusActive    = "active"
	statusCompleted = "completed"
)

type Identity struct {
	FullName string
	Email    string
}

// QuizSource supplies the validated question graph and the product catalog
// order used for tie-break and fallback.
type QuizSource interface {
	LoadQuiz(ctx context.Context) (*quiz.Quiz, error)
	ProductOrder(ctx context.Context) ([]string, error)
}

type Config struct {
	SubmitTimeout time.Duration
	// Submitter receives completed results; nil uses the SQL result store.
	Submitter Submitter
	Logger    *slog.Logger
}

type Service struct {
	db        *db.DB
	source    QuizSource
	submitter Submitter
	logger    *slog.Logger

	submitTimeout time.Duration
	inflight      sync.WaitGroup
	locks         [64]sync.Mutex
}

func NewService(store *db.DB, source QuizSource, cfg Config) *Service {
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Submitter == nil {
		cfg.Submitter = NewResultStore(store)
	}
	return &Service{
		db:            store,
		source:        source,
		submitter:     cfg.Submitter,
		logger:        cfg.Logger,
		submitTimeout: cfg.SubmitTimeout,
	}
}

// Close waits for in-flight result submissions.
func (s *Service) Close() {
	s.inflight.Wait()
}

func (s *Service) StartSession(ctx context.Context, in Identity) (*View, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.FullName == "" || in.Email == "" {
		return nil, fmt.Errorf("%w: full_name and email are required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}

	qz, err := s.source.LoadQuiz(ctx)
	if err != nil {
		return nil, err
	}

	participantID, err := s.upsertParticipant(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.createSession(ctx, qz, participantID)
}

func (s *Service) GetSession(ctx context.Context, sessionID string) (*View, error) {
	qz, err := s.source.LoadQuiz(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := s.load(ctx, qz, sessionID)
	if err != nil {
		return nil, err
	}
	return newView(rec.id, rec.participantID, qz, rec.state), nil
}

func (s *Service) AnswerQuestion(ctx context.Context, sessionID, questionID string, sel quiz.Selection) (*View, error) {
	return s.mutate(ctx, sessionID, func(qz *quiz.Quiz, sess *quiz.Session) error {
		return sess.Answer(qz, questionID, sel)
	})
}

func (s *Service) ToggleOption(ctx context.Context, sessionID, questionID, optionID string) (*View, error) {
	return s.mutate(ctx, sessionID, func(qz *quiz.Quiz, sess *quiz.Session) error {
		return sess.Toggle(qz, questionID, optionID)
	})
}

func (s *Service) AnswerZodiac(ctx context.Context, sessionID string, month, day int) (*View, error) {
	return s.mutate(ctx, sessionID, func(_ *quiz.Quiz, sess *quiz.Session) error {
		return sess.AnswerZodiac(month, day)
	})
}

func (s *Service) Advance(ctx context.Context, sessionID string) (*View, error) {
	return s.mutate(ctx, sessionID, func(qz *quiz.Quiz, sess *quiz.Session) error {
		return sess.Advance(qz)
	})
}

func (s *Service) Retreat(ctx context.Context, sessionID string) (*View, error) {
	return s.mutate(ctx, sessionID, func(_ *quiz.Quiz, sess *quiz.Session) error {
		return sess.Retreat()
	})
}

// Submit completes the session and hands the result to the submitter in
// the background. A failing submitter never changes the stored session.
func (s *Service) Submit(ctx context.Context, sessionID string) (*View, error) {
	catalogOrder, err := s.source.ProductOrder(ctx)
	if err != nil {
		return nil, err
	}

	var result *quiz.Result
	view, err := s.mutate(ctx, sessionID, func(qz *quiz.Quiz, sess *quiz.Session) error {
		res, err := sess.Submit(qz, catalogOrder)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Fallback {
		s.logger.Warn("no product scored above zero, using catalog default",
			"session_id", sessionID,
			"product_id", result.WinningProductID,
			"error", quiz.ErrAggregationEmpty.Error(),
		)
	}
	s.dispatch(Submission{
		SessionID:        sessionID,
		UserID:           result.UserID,
		WinningProductID: result.WinningProductID,
		ZodiacSignName:   result.ZodiacSignName,
		Fallback:         result.Fallback,
		RawAnswers:       result.RawAnswers,
		Scores:           result.Scores,
		SubmittedAt:      db.Now(),
	})
	return view, nil
}

// Retake starts a fresh session for the same participant. The previous
// session and its result are kept.
func (s *Service) Retake(ctx context.Context, sessionID string) (*View, error) {
	qz, err := s.source.LoadQuiz(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := s.load(ctx, qz, sessionID)
	if err != nil {
		return nil, err
	}
	return s.createSession(ctx, qz, rec.participantID)
}

func (s *Service) GetResult(ctx context.Context, sessionID string) (*ResultView, error) {
	view, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if view.Result == nil {
		return nil, quiz.ErrNotTerminal
	}
	return view.Result, nil
}

func (s *Service) dispatch(sub Submission) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.submitTimeout)
		defer cancel()

		if err := s.submitter.Submit(ctx, sub); err != nil {
			s.logger.Warn("result submission failed",
				"session_id", sub.SessionID,
				"user_id", sub.UserID,
				"error", err.Error(),
			)
			return
		}
		s.logger.Info("result submitted",
			"session_id", sub.SessionID,
			"product_id", sub.WinningProductID,
			"zodiac_sign", sub.ZodiacSignName,
		)
	}()
}

type sessionRecord struct {
	id            string
	participantID string
	state         *quiz.Session
}

func (s *Service) lockFor(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return &s.locks[h.Sum32()%uint32(len(s.locks))]
}

// mutate runs one state transition: load, apply, clamp, persist.
func (s *Service) mutate(ctx context.Context, sessionID string, fn func(*quiz.Quiz, *quiz.Session) error) (*View, error) {
	qz, err := s.source.LoadQuiz(ctx)
	if err != nil {
		return nil, err
	}

	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	rec, err := s.load(ctx, qz, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(qz, rec.state); err != nil {
		return nil, err
	}
	if !rec.state.Completed {
		rec.state.Clamp()
	}
	if err := s.save(ctx, rec); err != nil {
		return nil, err
	}
	return newView(rec.id, rec.participantID, qz, rec.state), nil
}

func (s *Service) upsertParticipant(ctx context.Context, in Identity) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`
		INSERT INTO participants (id, full_name, email, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET full_name = excluded.full_name
		RETURNING id
	`), uuid.NewString(), in.FullName, in.Email, db.Now()).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert participant: %w", err)
	}
	return id, nil
}

func (s *Service) createSession(ctx context.Context, qz *quiz.Quiz, participantID string) (*View, error) {
	rec := &sessionRecord{
		id:            uuid.NewString(),
		participantID: participantID,
		state:         quiz.NewSession(qz, participantID),
	}
	raw, err := encodeState(rec.state)
	if err != nil {
		return nil, err
	}
	now := db.Now()
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO quiz_sessions (id, participant_id, state, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`), rec.id, participantID, raw, statusActive, now); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return newView(rec.id, rec.participantID, qz, rec.state), nil
}

func (s *Service) load(ctx context.Context, qz *quiz.Quiz, sessionID string) (*sessionRecord, error) {
	var participantID, raw string
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`
		SELECT participant_id, state FROM quiz_sessions WHERE id = $1
	`), sessionID).Scan(&participantID, &raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	state, skipped, err := quiz.DecodeSession([]byte(raw), qz)
	if err != nil {
		return nil, err
	}
	if len(skipped) > 0 {
		s.logger.Warn("dropped answers that could not be restored",
			"session_id", sessionID,
			"question_ids", skipped,
		)
	}
	return &sessionRecord{id: sessionID, participantID: participantID, state: state}, nil
}

func (s *Service) save(ctx context.Context, rec *sessionRecord) error {
	raw, err := encodeState(rec.state)
	if err != nil {
		return err
	}
	status := statusActive
	if rec.state.Completed {
		status = statusCompleted
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE quiz_sessions SET state = $1, status = $2, updated_at = $3 WHERE id = $4
	`), raw, status, db.Now(), rec.id)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSessionNotFound
	}
	return nil
}
