package sqlite

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"nanodet/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertRun(t *testing.T, repo *RunRepository, input string, ts time.Time) int64 {
	t.Helper()
	id, err := repo.Insert(&models.Run{
		InputPath:    input,
		OutputPath:   "out.png",
		Engine:       "opencv",
		ComputeUnits: "cpu",
		ModelCfg:     "e1",
		Width:        640,
		Height:       480,
		ObjectCount:  2,
		Duration:     1500 * time.Millisecond,
		Timestamp:    ts,
	})
	if err != nil {
		t.Fatalf("Failed to insert run: %v", err)
	}
	return id
}

func TestDatabase_Connection(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist")
	}
}

func TestRunRepository_InsertAndGet(t *testing.T) {
	repo := NewRunRepository(newTestDB(t))
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	id := insertRun(t, repo, "street.jpg", ts)

	run, err := repo.GetByID(id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if run == nil {
		t.Fatal("Expected run, got nil")
	}
	if run.InputPath != "street.jpg" || run.ModelCfg != "e1" || run.Width != 640 {
		t.Errorf("Unexpected run %+v", run)
	}
	if run.Duration != 1500*time.Millisecond {
		t.Errorf("Expected duration 1.5s, got %v", run.Duration)
	}
	if !run.Timestamp.Equal(ts) {
		t.Errorf("Expected timestamp %v, got %v", ts, run.Timestamp)
	}

	missing, err := repo.GetByID(id + 100)
	if err != nil || missing != nil {
		t.Errorf("Expected nil, nil for missing run, got %+v, %v", missing, err)
	}
}

func TestRunRepository_FilterAndPaging(t *testing.T) {
	db := newTestDB(t)
	runs := NewRunRepository(db)
	detections := NewDetectionRepository(db)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first := insertRun(t, runs, "a.jpg", base)
	insertRun(t, runs, "b.jpg", base.Add(time.Minute))
	third := insertRun(t, runs, "a.jpg", base.Add(2*time.Minute))

	if err := detections.InsertBatch([]models.Detection{
		{RunID: first, ClassID: 0, Label: "person", Score: 0.8},
		{RunID: third, ClassID: 16, Label: "dog", Score: 0.7},
	}); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	all, err := runs.GetAll(nil)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 3 || all[0].ID != third {
		t.Errorf("Expected 3 runs newest first, got %+v", all)
	}

	byInput, err := runs.GetAll(&models.RunFilter{InputPath: "a.jpg"})
	if err != nil || len(byInput) != 2 {
		t.Errorf("Expected 2 runs for a.jpg, got %d (%v)", len(byInput), err)
	}

	byLabel, err := runs.GetAll(&models.RunFilter{Label: "person"})
	if err != nil || len(byLabel) != 1 || byLabel[0].ID != first {
		t.Errorf("Expected only the first run for label person, got %+v (%v)", byLabel, err)
	}

	page, err := runs.GetAll(&models.RunFilter{Limit: 1, Offset: 1})
	if err != nil || len(page) != 1 || page[0].InputPath != "b.jpg" {
		t.Errorf("Unexpected page %+v (%v)", page, err)
	}

	count, err := runs.GetTotalCount(&models.RunFilter{InputPath: "a.jpg"})
	if err != nil || count != 2 {
		t.Errorf("Expected count 2, got %d (%v)", count, err)
	}
}

func TestDetectionRepository_BatchAndCounts(t *testing.T) {
	db := newTestDB(t)
	runs := NewRunRepository(db)
	detections := NewDetectionRepository(db)
	runID := insertRun(t, runs, "a.jpg", time.Now())

	batch := []models.Detection{
		{RunID: runID, ClassID: 0, Label: "person", X1: 1, Y1: 2, X2: 30, Y2: 40, Score: 0.9},
		{RunID: runID, ClassID: 0, Label: "person", X1: 50, Y1: 60, X2: 70, Y2: 80, Score: 0.6},
		{RunID: runID, ClassID: 2, Label: "car", X1: 5, Y1: 5, X2: 9, Y2: 9, Score: 0.5},
	}
	if err := detections.InsertBatch(batch); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
	if err := detections.InsertBatch(nil); err != nil {
		t.Errorf("Empty batch should be a no-op, got %v", err)
	}

	stored, err := detections.GetByRunID(runID)
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("Expected 3 detections, got %d", len(stored))
	}
	if stored[0].X2 != 30 || stored[0].Y2 != 40 || stored[2].Label != "car" {
		t.Errorf("Unexpected detections %+v", stored)
	}

	counts, err := detections.GetLabelCounts()
	if err != nil {
		t.Fatalf("GetLabelCounts failed: %v", err)
	}
	if counts["person"] != 2 || counts["car"] != 1 {
		t.Errorf("Unexpected counts %v", counts)
	}
}

func TestRunRepository_DeleteCascades(t *testing.T) {
	db := newTestDB(t)
	runs := NewRunRepository(db)
	detections := NewDetectionRepository(db)
	runID := insertRun(t, runs, "a.jpg", time.Now())

	if err := detections.InsertBatch([]models.Detection{{RunID: runID, Label: "cat", Score: 0.5}}); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	if err := runs.Delete(runID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	stored, err := detections.GetByRunID(runID)
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(stored) != 0 {
		t.Errorf("Detections should be deleted with their run, got %d", len(stored))
	}
}

func TestDetectionRepository_RejectsUnknownRun(t *testing.T) {
	detections := NewDetectionRepository(newTestDB(t))

	err := detections.InsertBatch([]models.Detection{{RunID: 999, Label: "cat"}})
	if err == nil {
		t.Error("Expected foreign key violation for unknown run")
	}
}

func TestDatabase_RejectsNewerSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	if _, err := db.Conn().Exec(`PRAGMA user_version = 99`); err != nil {
		t.Fatalf("Failed to bump schema version: %v", err)
	}
	db.Close()

	if _, err := New(dbPath); err == nil {
		t.Error("Expected error for a journal written by a newer version")
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("Database file should be kept: %v", err)
	}
}
