package predictor

import "nanodet/internal/models"

// Output holds the raw blobs of one Predict call.
type Output struct {
	Blobs       map[string]Blob
	InputWidth  int
	InputHeight int
	ImageWidth  int
	ImageHeight int
}

// Result is the refined output of ProcessOutput. DetectionList is the only
// variant.
type Result interface {
	isResult()
}

// DetectionList is the ordered list of detections, best score first, in model
// input coordinates.
type DetectionList struct {
	Objects []models.ObjectInfo
}

func (DetectionList) isResult() {}
