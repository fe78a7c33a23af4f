package models

import "time"

// Run represents one journaled detection run.
type Run struct {
	ID           int64         `json:"id"`
	InputPath    string        `json:"input_path"`
	OutputPath   string        `json:"output_path"`
	Engine       string        `json:"engine"`
	ComputeUnits string        `json:"compute_units"`
	ModelCfg     string        `json:"model_cfg"`
	Width        int           `json:"width"`
	Height       int           `json:"height"`
	ObjectCount  int           `json:"object_count"`
	Duration     time.Duration `json:"duration"`
	Timestamp    time.Time     `json:"timestamp"`
}

// Detection represents a journaled object of a run, in original image pixels.
type Detection struct {
	ID      int64   `json:"id"`
	RunID   int64   `json:"run_id"`
	ClassID int     `json:"class_id"`
	Label   string  `json:"label"`
	X1      float64 `json:"x1"`
	Y1      float64 `json:"y1"`
	X2      float64 `json:"x2"`
	Y2      float64 `json:"y2"`
	Score   float64 `json:"score"`
}

// RunFilter contains filtering options for querying runs.
type RunFilter struct {
	InputPath string
	Label     string
	Limit     int
	Offset    int
}
