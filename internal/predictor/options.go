package predictor

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidOption is returned by Init for malformed options.
	ErrInvalidOption = errors.New("invalid predictor option")
	// ErrUnsupportedComputeUnits is returned when an engine cannot run on the requested units.
	ErrUnsupportedComputeUnits = errors.New("unsupported compute units")
)

// ComputeUnits selects which execution backend runs the model.
type ComputeUnits int

const (
	ComputeUnitsCPU ComputeUnits = iota
	ComputeUnitsCUDA
	ComputeUnitsTensorRT
	ComputeUnitsOpenVINO
	ComputeUnitsCoreML
)

var computeUnitNames = map[ComputeUnits]string{
	ComputeUnitsCPU:      "cpu",
	ComputeUnitsCUDA:     "cuda",
	ComputeUnitsTensorRT: "tensorrt",
	ComputeUnitsOpenVINO: "openvino",
	ComputeUnitsCoreML:   "coreml",
}

func (c ComputeUnits) String() string {
	if name, ok := computeUnitNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ComputeUnits(%d)", int(c))
}

// ParseComputeUnits maps a case-insensitive name to ComputeUnits.
func ParseComputeUnits(name string) (ComputeUnits, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for units, n := range computeUnitNames {
		if n == name {
			return units, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedComputeUnits, name)
}

// OpenCVPlacement names the OpenCV DNN backend and target for one ComputeUnits,
// in the spelling gocv.ParseNetBackend and gocv.ParseNetTarget accept.
type OpenCVPlacement struct {
	Backend string
	Target  string
}

var opencvPlacements = map[ComputeUnits]OpenCVPlacement{
	ComputeUnitsCPU:      {Backend: "default", Target: "cpu"},
	ComputeUnitsCUDA:     {Backend: "cuda", Target: "cuda"},
	ComputeUnitsOpenVINO: {Backend: "openvino", Target: "cpu"},
}

// OpenCVPlacement returns where OpenCV DNN runs c. TensorRT and CoreML have no
// OpenCV backend.
func (c ComputeUnits) OpenCVPlacement() (OpenCVPlacement, error) {
	placement, ok := opencvPlacements[c]
	if !ok {
		return OpenCVPlacement{}, fmt.Errorf("%w: %s on opencv engine", ErrUnsupportedComputeUnits, c)
	}
	return placement, nil
}

// Options is the predictor configuration. ProtoContent holds the YAML model
// description and ModelContent the serialized network weights.
type Options struct {
	ProtoContent   []byte
	ModelContent   []byte
	ComputeUnits   ComputeUnits
	ModelCfg       string
	ScoreThreshold float32
	NMSThreshold   float32
}

func (o Options) validate() error {
	if len(o.ProtoContent) == 0 {
		return fmt.Errorf("%w: empty model description", ErrInvalidOption)
	}
	if len(o.ModelContent) == 0 {
		return fmt.Errorf("%w: empty model weights", ErrInvalidOption)
	}
	if o.ModelCfg == "" {
		return fmt.Errorf("%w: empty model variant", ErrInvalidOption)
	}
	if o.ScoreThreshold < 0 || o.ScoreThreshold > 1 {
		return fmt.Errorf("%w: score threshold %v", ErrInvalidOption, o.ScoreThreshold)
	}
	if o.NMSThreshold < 0 || o.NMSThreshold > 1 {
		return fmt.Errorf("%w: nms threshold %v", ErrInvalidOption, o.NMSThreshold)
	}
	return nil
}
