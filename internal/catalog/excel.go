package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"scentquiz/internal/quiz"

	"github.com/xuri/excelize/v2"
)

var questionSheetHeaders = []string{
	"question_id", "text", "type", "order", "is_root",
	"parent_id", "parent_option_id", "option_id", "option_text", "weights",
	"scale_min", "scale_max", "scale_steps",
}

type ImportRowError struct {
	Row        int    `json:"row"`
	QuestionID string `json:"question_id,omitempty"`
	Error      string `json:"error"`
}

type ImportReport struct {
	TotalRows     int              `json:"total_rows"`
	QuestionCount int              `json:"question_count"`
	OptionCount   int              `json:"option_count"`
	Applied       bool             `json:"applied"`
	Errors        []ImportRowError `json:"errors"`
}

// ImportQuestionsExcel reads one row per option (question columns repeat
// on each row) and replaces the question set. Nothing is written when any
// row fails; the report lists every failing row.
func (s *Service) ImportQuestionsExcel(ctx context.Context, r io.Reader) (*ImportReport, error) {
	questions, report, err := ParseQuestionsExcel(r)
	if err != nil {
		return nil, err
	}
	if len(report.Errors) > 0 {
		return report, nil
	}
	if _, err := s.ReplaceQuestions(ctx, questions); err != nil {
		return nil, err
	}
	report.Applied = true
	return report, nil
}

func ParseQuestionsExcel(r io.Reader) ([]quiz.Question, *ImportReport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open excel: %v", ErrInvalidInput, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("%w: excel sheet is empty", ErrInvalidInput)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("%w: no data rows found", ErrInvalidInput)
	}

	header := map[string]int{}
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"question_id", "text", "type"} {
		if _, ok := header[col]; !ok {
			return nil, nil, fmt.Errorf("%w: missing required column: %s", ErrInvalidInput, col)
		}
	}

	report := &ImportReport{Errors: make([]ImportRowError, 0)}
	byID := map[string]*quiz.Question{}
	var order []string

	for i := 1; i < len(rows); i++ {
		rowNo := i + 1
		row := rows[i]
		get := func(key string) string {
			idx, ok := header[key]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		qid := get("question_id")
		if qid == "" && get("option_id") == "" {
			continue
		}
		report.TotalRows++
		fail := func(msg string) {
			report.Errors = append(report.Errors, ImportRowError{Row: rowNo, QuestionID: qid, Error: msg})
		}

		if qid == "" {
			fail("question_id is required")
			continue
		}

		q, exists := byID[qid]
		if !exists {
			built, err := questionFromRow(qid, get)
			if err != nil {
				fail(err.Error())
				continue
			}
			q = &built
			byID[qid] = q
			order = append(order, qid)
		}

		optionID := get("option_id")
		if optionID == "" {
			continue
		}
		weights, err := ParseWeights(get("weights"))
		if err != nil {
			fail(err.Error())
			continue
		}
		q.Options = append(q.Options, quiz.Option{ID: optionID, Text: get("option_text"), ScentWeights: weights})
		report.OptionCount++
	}

	questions := make([]quiz.Question, 0, len(order))
	for _, id := range order {
		questions = append(questions, *byID[id])
	}
	report.QuestionCount = len(questions)
	return questions, report, nil
}

func questionFromRow(id string, get func(string) string) (quiz.Question, error) {
	q := quiz.Question{ID: id, Text: get("text")}
	if q.Text == "" {
		return q, errors.New("text is required")
	}
	q.Type = quiz.NormalizeQuestionType(get("type"))
	if q.Type == "" {
		return q, fmt.Errorf("unsupported type %q", get("type"))
	}
	if raw := get("order"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("order must be a number, got %q", raw)
		}
		q.Order = n
	}
	q.IsRoot = parseBoolLoose(get("is_root"))
	if v := get("parent_id"); v != "" {
		q.ParentID = &v
	}
	if v := get("parent_option_id"); v != "" {
		q.ParentOptionID = &v
	}

	if q.Type == quiz.TypeScale && get("scale_min") != "" {
		minV, errMin := strconv.Atoi(get("scale_min"))
		maxV, errMax := strconv.Atoi(get("scale_max"))
		if errMin != nil || errMax != nil {
			return q, errors.New("scale_min and scale_max must be numbers")
		}
		steps, _ := strconv.Atoi(get("scale_steps"))
		q.ScaleConfig = &quiz.ScaleConfig{Min: minV, Max: maxV, Steps: steps}
	}
	return q, nil
}

// ParseWeights reads "P1:3;P2:1". A key without points counts 1; commas
// are accepted as separators too.
func ParseWeights(raw string) (quiz.Weights, error) {
	out := quiz.Weights{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return out, nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == ',' })
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, pointsRaw, found := strings.Cut(part, ":")
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("weight %q has no product key", part)
		}
		points := 1.0
		if found {
			n, err := strconv.ParseFloat(strings.TrimSpace(pointsRaw), 64)
			if err != nil {
				return nil, fmt.Errorf("weight %q has invalid points", part)
			}
			points = n
		}
		out[key] += points
	}
	return out, nil
}

func formatWeights(w quiz.Weights) string {
	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+":"+strconv.FormatFloat(w[k], 'f', -1, 64))
	}
	return strings.Join(parts, ";")
}

// ExportQuestionsExcel writes the current question set in the import layout.
func (s *Service) ExportQuestionsExcel(ctx context.Context) ([]byte, error) {
	qz, err := s.LoadQuiz(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	for i, h := range questionSheetHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	writeRow := func(values []any) {
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		row++
	}
	for _, q := range qz.Questions() {
		base := []any{q.ID, q.Text, string(q.Type), q.Order, q.IsRoot, deref(q.ParentID), deref(q.ParentOptionID)}
		scale := []any{"", "", ""}
		if q.ScaleConfig != nil {
			scale = []any{q.ScaleConfig.Min, q.ScaleConfig.Max, q.ScaleConfig.Steps}
		}
		if len(q.Options) == 0 {
			writeRow(append(append(base, "", "", ""), scale...))
			continue
		}
		for _, o := range q.Options {
			values := append([]any{}, base...)
			values = append(values, o.ID, o.Text, formatWeights(o.ScentWeights))
			writeRow(append(values, scale...))
		}
	}
	_ = f.SetColWidth(sheet, "A", "M", 20)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func parseBoolLoose(v string) bool {
	switch strings.TrimSpace(strings.ToLower(v)) {
	case "1", "true", "yes", "y", "root":
		return true
	default:
		return false
	}
}
