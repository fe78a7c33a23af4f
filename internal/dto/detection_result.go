package dto

import "nanodet/internal/models"

// DetectionResult is one detection as published to viewers, in original image
// pixels.
type DetectionResult struct {
	Label   string  `json:"label"`
	ClassID int     `json:"classId"`
	Score   float64 `json:"score"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
}

// NewDetectionResult converts an adjusted detection.
func NewDetectionResult(obj models.ObjectInfo) DetectionResult {
	return DetectionResult{
		Label:   obj.Label,
		ClassID: obj.ClassID,
		Score:   float64(obj.Score),
		X:       int(obj.X1),
		Y:       int(obj.Y1),
		Width:   int(obj.Width()),
		Height:  int(obj.Height()),
	}
}
