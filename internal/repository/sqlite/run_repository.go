package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"nanodet/internal/models"
)

// RunRepository implements repository.RunRepository for SQLite.
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new SQLite run repository.
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// Insert adds a new run record to the database.
func (r *RunRepository) Insert(run *models.Run) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO runs (input_path, output_path, engine, compute_units, model_cfg, width, height, object_count, duration_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.InputPath, run.OutputPath, run.Engine, run.ComputeUnits, run.ModelCfg,
		run.Width, run.Height, run.ObjectCount, run.Duration.Milliseconds(), run.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	return result.LastInsertId()
}

// GetByID retrieves a run by its ID. A missing run returns nil, nil.
func (r *RunRepository) GetByID(id int64) (*models.Run, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`
		SELECT id, input_path, output_path, engine, compute_units, model_cfg, width, height, object_count, duration_ms, timestamp
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

func buildRunFilter(filter *models.RunFilter) (string, []interface{}) {
	where := " WHERE 1=1"
	args := []interface{}{}

	if filter == nil {
		return where, args
	}

	if filter.InputPath != "" {
		where += " AND r.input_path = ?"
		args = append(args, filter.InputPath)
	}

	if filter.Label != "" {
		where += " AND EXISTS (SELECT 1 FROM detections d WHERE d.run_id = r.id AND d.label = ?)"
		args = append(args, filter.Label)
	}

	return where, args
}

// GetAll retrieves runs based on filter criteria, newest first.
func (r *RunRepository) GetAll(filter *models.RunFilter) ([]models.Run, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := buildRunFilter(filter)
	query := `
		SELECT r.id, r.input_path, r.output_path, r.engine, r.compute_units, r.model_cfg, r.width, r.height, r.object_count, r.duration_ms, r.timestamp
		FROM runs r` + where + " ORDER BY r.timestamp DESC, r.id DESC"

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// GetTotalCount returns the total count of runs matching the filter.
func (r *RunRepository) GetTotalCount(filter *models.RunFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := buildRunFilter(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM runs r`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}

	return count, nil
}

// Delete removes a run and, through the foreign key, its detections.
func (r *RunRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*models.Run, error) {
	var run models.Run
	var durationMs int64
	err := s.Scan(&run.ID, &run.InputPath, &run.OutputPath, &run.Engine, &run.ComputeUnits, &run.ModelCfg,
		&run.Width, &run.Height, &run.ObjectCount, &durationMs, &run.Timestamp)
	if err != nil {
		return nil, err
	}
	run.Duration = time.Duration(durationMs) * time.Millisecond
	return &run, nil
}
