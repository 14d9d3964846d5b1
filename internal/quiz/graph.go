package quiz

import (
	"fmt"
	"sort"
)

type StepKind string

const (
	StepQuestion StepKind = "question"
	StepZodiac   StepKind = "zodiac"
)

// Step is what the participant sees at a 1-based position of the path.
type Step struct {
	Index    int       `json:"index"`
	Kind     StepKind  `json:"kind"`
	Question *Question `json:"question,omitempty"`
	Prompt   string    `json:"prompt,omitempty"`
}

// Path is the live question sequence. Total always counts the trailing zodiac step.
type Path struct {
	Questions []Question
	Total     int
	// ZodiacPrompt is the text of a configured zodiac_input question, if any.
	ZodiacPrompt string
}

func (p Path) IDs() []string {
	out := make([]string, 0, len(p.Questions))
	for _, q := range p.Questions {
		out = append(out, q.ID)
	}
	return out
}

func (p Path) Contains(questionID string) bool {
	for _, q := range p.Questions {
		if q.ID == questionID {
			return true
		}
	}
	return false
}

func (p Path) ZodiacIndex() int {
	return len(p.Questions) + 1
}

func (p Path) StepAt(index int) (Step, error) {
	switch {
	case index >= 1 && index <= len(p.Questions):
		q := p.Questions[index-1]
		return Step{Index: index, Kind: StepQuestion, Question: &q}, nil
	case index == p.ZodiacIndex():
		return Step{Index: index, Kind: StepZodiac, Prompt: p.ZodiacPrompt}, nil
	default:
		return Step{}, fmt.Errorf("%w: index %d of %d", ErrNoReachableQuestion, index, p.Total)
	}
}

// ComputePath resolves the questions to present for the given answers.
// With a root question only one level of branching is followed: the root,
// then every question attached to the root's selected option, by order.
// Without a root every question is presented by order.
func ComputePath(questions []Question, answers Answers) Path {
	ordered := make([]Question, 0, len(questions))
	zodiacPrompt := ""
	var root *Question
	for i := range questions {
		q := questions[i]
		if q.Type == TypeZodiacInput {
			if zodiacPrompt == "" {
				zodiacPrompt = q.Text
			}
			continue
		}
		if q.IsRoot && root == nil {
			root = &questions[i]
			continue
		}
		ordered = append(ordered, q)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})

	var path []Question
	if root == nil {
		path = ordered
	} else {
		path = []Question{*root}
		if selected := answers.selectedOption(root.ID); selected != "" {
			for _, q := range ordered {
				if q.ParentID == nil || q.ParentOptionID == nil {
					continue
				}
				if *q.ParentID == root.ID && *q.ParentOptionID == selected {
					path = append(path, q)
				}
			}
		}
	}

	return Path{
		Questions:    path,
		Total:        len(path) + 1,
		ZodiacPrompt: zodiacPrompt,
	}
}

// Quiz is a validated question set.
type Quiz struct {
	questions []Question
	byID      map[string]int
	rootID    string
}

// NewQuiz validates the question graph and fails on any configuration that
// could leave a participant with no question to answer.
func NewQuiz(questions []Question) (*Quiz, error) {
	if err := ValidateQuestions(questions); err != nil {
		return nil, err
	}

	qz := &Quiz{
		questions: make([]Question, len(questions)),
		byID:      make(map[string]int, len(questions)),
	}
	copy(qz.questions, questions)
	for i, q := range qz.questions {
		qz.byID[q.ID] = i
		if q.IsRoot {
			qz.rootID = q.ID
		}
	}
	return qz, nil
}

func (qz *Quiz) Questions() []Question {
	out := make([]Question, len(qz.questions))
	copy(out, qz.questions)
	return out
}

func (qz *Quiz) Question(id string) (Question, bool) {
	i, ok := qz.byID[id]
	if !ok {
		return Question{}, false
	}
	return qz.questions[i], true
}

func (qz *Quiz) RootID() string {
	return qz.rootID
}

func (qz *Quiz) FlatMode() bool {
	return qz.rootID == ""
}

func (qz *Quiz) Path(answers Answers) Path {
	return ComputePath(qz.questions, answers)
}
