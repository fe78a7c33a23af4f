package app

import "fmt"

// Stage names one step of a detection run.
type Stage int

const (
	StageParseArgs Stage = iota
	StageLoadModelFiles
	StageDecodeImage
	StageInitPredictor
	StagePredict
	StageProcessOutput
	StageRender
	StageEncodeOutput
	StageRecord
	StagePublish
)

var stageNames = [...]string{
	StageParseArgs:      "parse arguments",
	StageLoadModelFiles: "load model files",
	StageDecodeImage:    "decode image",
	StageInitPredictor:  "init predictor",
	StagePredict:        "predict",
	StageProcessOutput:  "process output",
	StageRender:         "render",
	StageEncodeOutput:   "encode output",
	StageRecord:         "record run",
	StagePublish:        "publish",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// StageError reports the step a run failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func fail(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
