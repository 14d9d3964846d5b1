package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"scentquiz/internal/db"

	"github.com/xuri/excelize/v2"
)

type Service struct {
	db *db.DB
}

type Count struct {
	Key   string `json:"key"`
	Total int    `json:"total"`
}

type Summary struct {
	TotalResults   int     `json:"total_results"`
	FallbackCount  int     `json:"fallback_count"`
	ActiveSessions int     `json:"active_sessions"`
	ByProduct      []Count `json:"by_product"`
	BySign         []Count `json:"by_sign"`
}

// ResultRow is one stored result joined with its participant.
type ResultRow struct {
	SessionID   string `json:"session_id"`
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	ZodiacSign  string `json:"zodiac_sign"`
	Fallback    bool   `json:"fallback"`
	Scores      string `json:"scores"`
	CreatedAt   int64  `json:"created_at"`
}

var resultSheetHeaders = []string{
	"session_id", "full_name", "email", "product_id", "product_name",
	"zodiac_sign", "fallback", "scores", "submitted_at",
}

func NewService(store *db.DB) *Service {
	return &Service{db: store}
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	out := &Summary{ByProduct: []Count{}, BySign: []Count{}}

	if err := s.db.QueryRowContext(ctx, s.db.Rebind(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN fallback THEN 1 ELSE 0 END), 0)
		FROM quiz_results
	`)).Scan(&out.TotalResults, &out.FallbackCount); err != nil {
		return nil, fmt.Errorf("count results: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, s.db.Rebind(`
		SELECT COUNT(*) FROM quiz_sessions WHERE status = $1
	`), "active").Scan(&out.ActiveSessions); err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}

	var err error
	if out.ByProduct, err = s.countBy(ctx, "product_id"); err != nil {
		return nil, err
	}
	if out.BySign, err = s.countBy(ctx, "zodiac_sign"); err != nil {
		return nil, err
	}
	return out, nil
}

// countBy groups results on a fixed column name; column is never user input.
func (s *Service) countBy(ctx context.Context, column string) ([]Count, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %[1]s, COUNT(*) FROM quiz_results
		GROUP BY %[1]s
		ORDER BY COUNT(*) DESC, %[1]s ASC
	`, column))
	if err != nil {
		return nil, fmt.Errorf("count by %s: %w", column, err)
	}
	defer rows.Close()

	out := []Count{}
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Key, &c.Total); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Service) ListResults(ctx context.Context, limit int) ([]ResultRow, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	return s.queryResults(ctx, limit)
}

func (s *Service) queryResults(ctx context.Context, limit int) ([]ResultRow, error) {
	query := `
		SELECT r.session_id, COALESCE(p.full_name, ''), COALESCE(p.email, ''),
			r.product_id, COALESCE(pr.name, ''), r.zodiac_sign, r.fallback, r.scores, r.created_at
		FROM quiz_results r
		LEFT JOIN participants p ON p.id = r.participant_id
		LEFT JOIN products pr ON pr.id = r.product_id
		ORDER BY r.created_at DESC, r.session_id ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	out := []ResultRow{}
	for rows.Next() {
		var r ResultRow
		if err := rows.Scan(&r.SessionID, &r.FullName, &r.Email, &r.ProductID, &r.ProductName,
			&r.ZodiacSign, &r.Fallback, &r.Scores, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ExportResultsExcel writes every stored result to a single sheet.
func (s *Service) ExportResultsExcel(ctx context.Context) ([]byte, error) {
	items, err := s.queryResults(ctx, 0)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	for i, h := range resultSheetHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for idx, it := range items {
		row := idx + 2
		values := []any{
			it.SessionID, it.FullName, it.Email, it.ProductID, it.ProductName,
			it.ZodiacSign, it.Fallback, it.Scores,
			time.Unix(it.CreatedAt, 0).UTC().Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "I", 22)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}
