package quiz

import "errors"

var (
	ErrUnknownOption       = errors.New("unknown option")
	ErrNoReachableQuestion = errors.New("no reachable question")
	ErrAggregationEmpty    = errors.New("aggregation produced no positive score")
	ErrMalformedGraph      = errors.New("malformed question graph")
	ErrInvalidSelection    = errors.New("invalid selection")
	ErrQuestionNotInPath   = errors.New("question not in active path")
	ErrNotAnswered         = errors.New("current step has no answer")
	ErrNotTerminal         = errors.New("session is not at the zodiac step")
	ErrSessionComplete     = errors.New("session already complete")
)
