package quiz

import (
	"encoding/json"
	"fmt"

	"scentquiz/internal/zodiac"
)

type Phase string

const (
	PhaseAwaitingRoot    Phase = "awaiting_root"
	PhaseAnsweringBranch Phase = "answering_branch"
	PhaseAwaitingZodiac  Phase = "awaiting_zodiac"
	PhaseComplete        Phase = "complete"
)

// Result is what a completed session hands to the submission collaborator.
type Result struct {
	UserID           string  `json:"userId"`
	WinningProductID string  `json:"winningProductId"`
	ZodiacSignName   string  `json:"zodiacSignName,omitempty"`
	Fallback         bool    `json:"fallback"`
	RawAnswers       Answers `json:"rawAnswers"`
	Scores           *Scores `json:"scores"`
}

// Session is the plain serializable quiz state of one participant. The
// transition methods take the Quiz explicitly; a Session holds no
// reference to it.
type Session struct {
	UserID               string           `json:"userId"`
	CurrentQuestionIndex int              `json:"currentQuestionIndex"`
	Answers              Answers          `json:"answers"`
	ZodiacSign           *zodiac.Sign     `json:"zodiacSign"`
	BirthDate            *zodiac.MonthDay `json:"birthDate,omitempty"`
	QuestionPath         []string         `json:"questionPath"`
	TotalQuestionCount   int              `json:"totalQuestionCount"`
	Completed            bool             `json:"completed"`
	Result               *Result          `json:"result,omitempty"`
}

func NewSession(qz *Quiz, userID string) *Session {
	s := &Session{
		UserID:               userID,
		CurrentQuestionIndex: 1,
		Answers:              Answers{},
	}
	s.refresh(qz)
	return s
}

// DecodeSession restores persisted state. Answers may be in any historical
// encoding; entries that cannot be coerced are dropped and their question
// ids returned.
func DecodeSession(data []byte, qz *Quiz) (*Session, []string, error) {
	type alias Session
	var aux struct {
		alias
		Answers map[string]json.RawMessage `json:"answers"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return nil, nil, fmt.Errorf("decode session: %w", err)
	}

	s := Session(aux.alias)
	var skipped []string
	s.Answers, skipped = DecodeStoredAnswers(aux.Answers, qz)
	if !s.Completed {
		s.refresh(qz)
		s.Clamp()
	}
	return &s, skipped, nil
}

func (s *Session) Phase(qz *Quiz) Phase {
	switch {
	case s.Completed:
		return PhaseComplete
	case s.CurrentQuestionIndex >= s.TotalQuestionCount:
		return PhaseAwaitingZodiac
	case s.CurrentQuestionIndex <= 1 && !qz.FlatMode():
		return PhaseAwaitingRoot
	default:
		return PhaseAnsweringBranch
	}
}

func (s *Session) Current(qz *Quiz) (Step, error) {
	return qz.Path(s.Answers).StepAt(s.CurrentQuestionIndex)
}

// Answer records a normalized answer for a question on the live path. A
// failed normalization leaves the session untouched.
func (s *Session) Answer(qz *Quiz, questionID string, sel Selection) error {
	q, err := s.pathQuestion(qz, questionID)
	if err != nil {
		return err
	}
	a, err := Normalize(q, sel)
	if err != nil {
		return err
	}
	s.record(qz, questionID, a)
	return nil
}

// Toggle flips one option of a multi-choice answer.
func (s *Session) Toggle(qz *Quiz, questionID, optionID string) error {
	q, err := s.pathQuestion(qz, questionID)
	if err != nil {
		return err
	}
	current := s.Answers[questionID]
	if current.Kind != KindMultiChoice {
		current = Answer{Kind: KindMultiChoice}
	}
	a, err := Toggle(q, current, optionID)
	if err != nil {
		return err
	}
	s.record(qz, questionID, a)
	return nil
}

func (s *Session) AnswerZodiac(month, day int) error {
	if s.Completed {
		return ErrSessionComplete
	}
	sign, err := zodiac.ResolveDate(month, day)
	if err != nil {
		return err
	}
	s.ZodiacSign = &sign
	s.BirthDate = &zodiac.MonthDay{Month: month, Day: day}
	return nil
}

// Advance moves forward one step once the current step is answered.
func (s *Session) Advance(qz *Quiz) error {
	if s.Completed {
		return ErrSessionComplete
	}
	s.refresh(qz)
	s.Clamp()

	step, err := s.Current(qz)
	if err != nil {
		return err
	}
	switch step.Kind {
	case StepZodiac:
		if s.ZodiacSign == nil {
			return fmt.Errorf("%w: zodiac step", ErrNotAnswered)
		}
	default:
		if a, ok := s.Answers[step.Question.ID]; !ok || a.IsEmpty() {
			return fmt.Errorf("%w: question %q", ErrNotAnswered, step.Question.ID)
		}
	}

	s.CurrentQuestionIndex++
	s.Clamp()
	return nil
}

// Retreat moves back one step, never below the first, and keeps answers.
func (s *Session) Retreat() error {
	if s.Completed {
		return ErrSessionComplete
	}
	s.CurrentQuestionIndex--
	s.Clamp()
	return nil
}

// Clamp pulls the index back into [1, total]. A root change can leave it
// past a shorter path.
func (s *Session) Clamp() {
	if s.CurrentQuestionIndex > s.TotalQuestionCount {
		s.CurrentQuestionIndex = s.TotalQuestionCount
	}
	if s.CurrentQuestionIndex < 1 {
		s.CurrentQuestionIndex = 1
	}
}

// Submit aggregates the answers and completes the session. It is legal
// only on the zodiac step with a sign recorded. catalog is the product
// catalog order used for tie-break and the zero-score fallback.
func (s *Session) Submit(qz *Quiz, catalog []string) (*Result, error) {
	if s.Completed {
		return nil, ErrSessionComplete
	}
	s.refresh(qz)
	if s.CurrentQuestionIndex != s.TotalQuestionCount {
		return nil, fmt.Errorf("%w: at step %d of %d", ErrNotTerminal, s.CurrentQuestionIndex, s.TotalQuestionCount)
	}
	if s.ZodiacSign == nil {
		return nil, fmt.Errorf("%w: zodiac step", ErrNotAnswered)
	}

	scores := Aggregate(s.Answers, s.QuestionPath)
	winner, err := SelectWinner(scores, catalog)
	if err != nil {
		return nil, err
	}

	res := &Result{
		UserID:           s.UserID,
		WinningProductID: winner.ProductID,
		ZodiacSignName:   s.ZodiacSign.Name,
		Fallback:         winner.Fallback,
		RawAnswers:       s.Answers.Clone(),
		Scores:           scores,
	}
	s.Result = res
	s.Completed = true
	return res, nil
}

// Reset returns the session to a clean start for the same participant.
func (s *Session) Reset(qz *Quiz) {
	*s = *NewSession(qz, s.UserID)
}

func (s *Session) pathQuestion(qz *Quiz, questionID string) (Question, error) {
	if s.Completed {
		return Question{}, ErrSessionComplete
	}
	q, ok := qz.Question(questionID)
	if !ok || !qz.Path(s.Answers).Contains(questionID) {
		return Question{}, fmt.Errorf("%w: %q", ErrQuestionNotInPath, questionID)
	}
	return q, nil
}

func (s *Session) record(qz *Quiz, questionID string, a Answer) {
	if s.Answers == nil {
		s.Answers = Answers{}
	}
	if a.IsEmpty() {
		delete(s.Answers, questionID)
	} else {
		s.Answers[questionID] = a
	}
	s.refresh(qz)
}

// refresh recomputes the path and drops answers to known questions that
// are no longer reachable.
func (s *Session) refresh(qz *Quiz) {
	if s.Answers == nil {
		s.Answers = Answers{}
	}
	path := qz.Path(s.Answers)
	for id := range s.Answers {
		if _, known := qz.Question(id); known && !path.Contains(id) {
			delete(s.Answers, id)
		}
	}
	s.QuestionPath = path.IDs()
	s.TotalQuestionCount = path.Total
}
