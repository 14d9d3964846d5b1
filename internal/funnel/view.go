package funnel

import (
	"encoding/json"
	"fmt"

	"scentquiz/internal/catalog"
	"scentquiz/internal/quiz"
	"scentquiz/internal/zodiac"
)

type StepView struct {
	Index    int                     `json:"index"`
	Kind     quiz.StepKind           `json:"kind"`
	Question *catalog.PublicQuestion `json:"question,omitempty"`
	Prompt   string                  `json:"prompt,omitempty"`
}

// AnswerView exposes the selection only; weights stay server side.
type AnswerView struct {
	Kind       quiz.AnswerKind `json:"kind"`
	OptionID   string          `json:"option_id,omitempty"`
	OptionIDs  []string        `json:"option_ids,omitempty"`
	ScaleValue *int            `json:"scale_value,omitempty"`
}

type ResultView struct {
	SessionID        string             `json:"session_id"`
	WinningProductID string             `json:"winning_product_id"`
	ZodiacSignName   string             `json:"zodiac_sign_name,omitempty"`
	Fallback         bool               `json:"fallback"`
	Scores           map[string]float64 `json:"scores"`
}

type View struct {
	SessionID            string                `json:"session_id"`
	ParticipantID        string                `json:"participant_id"`
	Phase                quiz.Phase            `json:"phase"`
	CurrentQuestionIndex int                   `json:"current_question_index"`
	TotalQuestionCount   int                   `json:"total_question_count"`
	QuestionPath         []string              `json:"question_path"`
	CurrentStep          *StepView             `json:"current_step,omitempty"`
	Answers              map[string]AnswerView `json:"answers"`
	ZodiacSign           *zodiac.Sign          `json:"zodiac_sign"`
	Completed            bool                  `json:"completed"`
	Result               *ResultView           `json:"result,omitempty"`
}

func newView(sessionID, participantID string, qz *quiz.Quiz, sess *quiz.Session) *View {
	v := &View{
		SessionID:            sessionID,
		ParticipantID:        participantID,
		Phase:                sess.Phase(qz),
		CurrentQuestionIndex: sess.CurrentQuestionIndex,
		TotalQuestionCount:   sess.TotalQuestionCount,
		QuestionPath:         append([]string{}, sess.QuestionPath...),
		Answers:              make(map[string]AnswerView, len(sess.Answers)),
		ZodiacSign:           sess.ZodiacSign,
		Completed:            sess.Completed,
	}
	for id, a := range sess.Answers {
		v.Answers[id] = AnswerView{
			Kind:       a.Kind,
			OptionID:   a.OptionID,
			OptionIDs:  a.OptionIDs,
			ScaleValue: a.ScaleValue,
		}
	}

	if !sess.Completed {
		if step, err := sess.Current(qz); err == nil {
			sv := &StepView{Index: step.Index, Kind: step.Kind, Prompt: step.Prompt}
			if step.Question != nil {
				pq := catalog.NewPublicQuestion(*step.Question)
				sv.Question = &pq
			}
			v.CurrentStep = sv
		}
	}

	if sess.Result != nil {
		rv := &ResultView{
			SessionID:        sessionID,
			WinningProductID: sess.Result.WinningProductID,
			ZodiacSignName:   sess.Result.ZodiacSignName,
			Fallback:         sess.Result.Fallback,
			Scores:           map[string]float64{},
		}
		if sess.Result.Scores != nil {
			rv.Scores = sess.Result.Scores.Map()
		}
		v.Result = rv
	}
	return v
}

func encodeState(sess *quiz.Session) (string, error) {
	raw, err := json.Marshal(sess)
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	return string(raw), nil
}
