package repository

import "nanodet/internal/models"

// RunRepository defines the interface for run journal operations.
type RunRepository interface {
	// Create operations
	Insert(run *models.Run) (int64, error)

	// Read operations
	GetByID(id int64) (*models.Run, error)
	GetAll(filter *models.RunFilter) ([]models.Run, error)
	GetTotalCount(filter *models.RunFilter) (int, error)

	// Delete operations
	Delete(id int64) error
}

// DetectionRepository defines the interface for detection data operations.
type DetectionRepository interface {
	// Create operations
	InsertBatch(detections []models.Detection) error

	// Read operations
	GetByRunID(runID int64) ([]models.Detection, error)
	GetLabelCounts() (map[string]int, error)
}
