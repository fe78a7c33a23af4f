package dto

import (
	"encoding/json"
	"time"
)

// RunSummary describes one finished detection run.
type RunSummary struct {
	Input        string            `json:"input"`
	Output       string            `json:"output"`
	Engine       string            `json:"engine"`
	ComputeUnits string            `json:"computeUnits"`
	ModelCfg     string            `json:"modelCfg"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	Objects      []DetectionResult `json:"objects"`
	Duration     time.Duration     `json:"duration"`
	Timestamp    time.Time         `json:"timestamp"`
	Image        string            `json:"image,omitempty"` // base64 of the output file
}

// MarshalJSON writes the duration in milliseconds and the timestamp as RFC 3339.
func (s RunSummary) MarshalJSON() ([]byte, error) {
	type Alias RunSummary
	objects := s.Objects
	if objects == nil {
		objects = []DetectionResult{}
	}
	return json.Marshal(&struct {
		Duration  int64             `json:"duration"`
		Timestamp string            `json:"timestamp"`
		Objects   []DetectionResult `json:"objects"`
		Alias
	}{
		Duration:  s.Duration.Milliseconds(),
		Timestamp: s.Timestamp.Format(time.RFC3339),
		Objects:   objects,
		Alias:     (Alias)(s),
	})
}
