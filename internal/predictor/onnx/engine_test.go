package onnx

import (
	"errors"
	"testing"

	"nanodet/internal/predictor"
)

func TestCheckUnits(t *testing.T) {
	for _, units := range []predictor.ComputeUnits{
		predictor.ComputeUnitsCPU,
		predictor.ComputeUnitsCUDA,
		predictor.ComputeUnitsTensorRT,
		predictor.ComputeUnitsOpenVINO,
		predictor.ComputeUnitsCoreML,
	} {
		if err := checkUnits(units); err != nil {
			t.Errorf("checkUnits(%s) failed: %v", units, err)
		}
	}

	if err := checkUnits(predictor.ComputeUnits(42)); !errors.Is(err, predictor.ErrUnsupportedComputeUnits) {
		t.Errorf("Expected ErrUnsupportedComputeUnits, got %v", err)
	}
}

func TestNew_RejectsUnknownUnitsBeforeLoading(t *testing.T) {
	_, err := New("/nonexistent/libonnxruntime.so", predictor.EngineSpec{ComputeUnits: predictor.ComputeUnits(42)})
	if !errors.Is(err, predictor.ErrUnsupportedComputeUnits) {
		t.Errorf("Expected ErrUnsupportedComputeUnits, got %v", err)
	}
}

func TestCPUFeatures(t *testing.T) {
	if cpuFeatures() == "" {
		t.Error("cpuFeatures should never be empty")
	}
}
