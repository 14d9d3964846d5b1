package catalog

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"scentquiz/internal/db"
	"scentquiz/internal/quiz"

	"github.com/xuri/excelize/v2"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	ctx := context.Background()
	d, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := db.Migrate(ctx, d); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return d
}

func strPtr(v string) *string { return &v }

func sampleQuestions() []quiz.Question {
	return []quiz.Question{
		{
			ID: "mood", Text: "Pick a mood", Type: quiz.TypeSingleChoice, IsRoot: true,
			Options: []quiz.Option{
				{ID: "calm", Text: "Calm", ScentWeights: quiz.Weights{}},
				{ID: "bold", Text: "Bold", ScentWeights: quiz.Weights{"oud": 1}},
			},
		},
		{
			ID: "place", Text: "Favourite place", Type: quiz.TypeSingleChoice, Order: 1,
			ParentID: strPtr("mood"), ParentOptionID: strPtr("calm"),
			Options: []quiz.Option{{ID: "beach", Text: "Beach", ScentWeights: quiz.Weights{"sea": 3}}},
		},
		{
			ID: "level", Text: "Intensity", Type: quiz.TypeScale, Order: 2,
			ParentID: strPtr("mood"), ParentOptionID: strPtr("bold"),
			ScaleConfig: &quiz.ScaleConfig{Min: 1, Max: 5, Steps: 5},
			Options:     []quiz.Option{{ID: "lvl", Text: "Level", ScentWeights: quiz.Weights{"oud": 2}}},
		},
	}
}

func TestProductsUpsertAndOrder(t *testing.T) {
	ctx := context.Background()
	svc := NewService(openTestDB(t))

	if _, err := svc.UpsertProducts(ctx, []Product{
		{ID: "sea", Name: "Sea Salt", Position: 2},
		{ID: "oud", Name: "Oud", Position: 1},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	items, err := svc.UpsertProducts(ctx, []Product{{ID: "sea", Name: "Sea Breeze", Position: 0}})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if len(items) != 2 || items[0].ID != "sea" || items[0].Name != "Sea Breeze" {
		t.Fatalf("unexpected products: %+v", items)
	}

	order, err := svc.ProductOrder(ctx)
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	if len(order) != 2 || order[0] != "sea" || order[1] != "oud" {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestUpsertProductsValidation(t *testing.T) {
	svc := NewService(openTestDB(t))
	_, err := svc.UpsertProducts(context.Background(), []Product{{ID: "x"}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	_, err = svc.UpsertProducts(context.Background(), []Product{{ID: "x", Name: "a"}, {ID: "x", Name: "b"}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestReplaceAndLoadQuiz(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)
	svc := NewService(store)

	if _, err := svc.LoadQuiz(ctx); !errors.Is(err, ErrQuizNotLoaded) {
		t.Fatalf("expected ErrQuizNotLoaded, got %v", err)
	}
	if _, err := svc.ReplaceQuestions(ctx, sampleQuestions()); err != nil {
		t.Fatalf("replace: %v", err)
	}

	// a fresh service reads from storage rather than the cache
	qz, err := NewService(store).LoadQuiz(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if qz.RootID() != "mood" {
		t.Fatalf("root = %q", qz.RootID())
	}
	level, ok := qz.Question("level")
	if !ok || level.ScaleConfig == nil || level.ScaleConfig.Max != 5 {
		t.Fatalf("scale question not restored: %+v", level)
	}
	place, _ := qz.Question("place")
	if place.ParentOptionID == nil || *place.ParentOptionID != "calm" {
		t.Fatalf("branch not restored: %+v", place)
	}
	if place.Options[0].ScentWeights["sea"] != 3 {
		t.Fatalf("weights not restored: %+v", place.Options)
	}

	path := qz.Path(quiz.Answers{"mood": {Kind: quiz.KindSingleChoice, OptionID: "bold"}})
	if ids := path.IDs(); len(ids) != 2 || ids[1] != "level" {
		t.Fatalf("unexpected path %v", ids)
	}
}

func TestLoadQuizKeepsConcurrentReplace(t *testing.T) {
	ctx := context.Background()
	svc := NewService(openTestDB(t))

	stale, err := quiz.NewQuiz([]quiz.Question{
		{ID: "old", Text: "Old", Type: quiz.TypeSingleChoice, Options: []quiz.Option{{ID: "o", ScentWeights: quiz.Weights{"oud": 1}}}},
	})
	if err != nil {
		t.Fatalf("stale quiz: %v", err)
	}
	if _, err := svc.ReplaceQuestions(ctx, sampleQuestions()); err != nil {
		t.Fatalf("replace: %v", err)
	}

	// a read that started before the replace finishes after it
	if got := svc.cacheLoaded(stale); got.RootID() != "mood" {
		t.Fatalf("stale read overwrote the replaced set")
	}
	qz, err := svc.LoadQuiz(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := qz.Question("old"); ok || qz.RootID() != "mood" {
		t.Fatalf("expected replaced set, got root %q", qz.RootID())
	}
}

func TestReplaceQuestionsRejectsMalformedGraph(t *testing.T) {
	ctx := context.Background()
	svc := NewService(openTestDB(t))
	if _, err := svc.ReplaceQuestions(ctx, sampleQuestions()); err != nil {
		t.Fatalf("replace: %v", err)
	}

	bad := sampleQuestions()
	bad[1].ParentOptionID = strPtr("missing")
	if _, err := svc.ReplaceQuestions(ctx, bad); !errors.Is(err, quiz.ErrMalformedGraph) {
		t.Fatalf("expected ErrMalformedGraph, got %v", err)
	}

	qz, err := svc.LoadQuiz(ctx)
	if err != nil {
		t.Fatalf("load after rejected replace: %v", err)
	}
	if len(qz.Questions()) != 3 {
		t.Fatalf("previous question set should survive, got %d", len(qz.Questions()))
	}
}

func TestPublicQuestionsHideWeights(t *testing.T) {
	ctx := context.Background()
	svc := NewService(openTestDB(t))
	if _, err := svc.ReplaceQuestions(ctx, sampleQuestions()); err != nil {
		t.Fatalf("replace: %v", err)
	}
	items, err := svc.PublicQuestions(ctx)
	if err != nil {
		t.Fatalf("public: %v", err)
	}
	if len(items) != 3 || items[0].ID != "mood" || len(items[0].Options) != 2 {
		t.Fatalf("unexpected public questions: %+v", items)
	}
}

func TestExcelExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := NewService(openTestDB(t))
	if _, err := svc.ReplaceQuestions(ctx, sampleQuestions()); err != nil {
		t.Fatalf("replace: %v", err)
	}

	body, err := svc.ExportQuestionsExcel(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	other := NewService(openTestDB(t))
	report, err := other.ImportQuestionsExcel(ctx, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !report.Applied || report.QuestionCount != 3 || report.OptionCount != 4 || len(report.Errors) != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	qz, err := other.LoadQuiz(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	level, _ := qz.Question("level")
	if level.ScaleConfig == nil || level.ScaleConfig.Min != 1 || level.Options[0].ScentWeights["oud"] != 2 {
		t.Fatalf("scale question lost in round trip: %+v", level)
	}
}

func TestImportQuestionsExcelReportsRowErrors(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"question_id", "text", "type", "order", "is_root", "option_id", "option_text", "weights"},
		{"q1", "First", "single", 0, "", "a", "A", "P1:2;P2"},
		{"q2", "", "single", 1, "", "b", "B", "P1"},
		{"q3", "Third", "essay", 2, "", "c", "C", ""},
		{"q1", "First", "single", 0, "", "d", "D", "P1:x"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}

	svc := NewService(openTestDB(t))
	report, err := svc.ImportQuestionsExcel(context.Background(), &buf)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if report.Applied {
		t.Fatalf("import with row errors must not be applied")
	}
	if report.TotalRows != 4 || len(report.Errors) != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Errors[0].Row != 3 || report.Errors[1].Row != 4 || report.Errors[2].Row != 5 {
		t.Fatalf("unexpected error rows: %+v", report.Errors)
	}
}

func TestParseWeights(t *testing.T) {
	w, err := ParseWeights("P1:3; P2 ,P1:0.5")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if w["P1"] != 3.5 || w["P2"] != 1 {
		t.Fatalf("unexpected weights: %v", w)
	}
	if _, err := ParseWeights(":3"); err == nil {
		t.Fatalf("expected error for missing key")
	}
	if got := formatWeights(w); got != "P1:3.5;P2:1" {
		t.Fatalf("formatWeights = %q", got)
	}
}
