package opencv

import (
	"fmt"
	"runtime"
	"unsafe"

	"gocv.io/x/gocv"

	"nanodet/internal/logger"
	"nanodet/internal/predictor"
)

// Engine runs an ONNX network through the OpenCV DNN module.
type Engine struct {
	net         gocv.Net
	outputNames []string
}

// NewFactory returns an EngineFactory backed by OpenCV DNN.
func NewFactory(log *logger.Logger) predictor.EngineFactory {
	return func(spec predictor.EngineSpec) (predictor.Engine, error) {
		engine, err := New(spec)
		if err != nil {
			return nil, err
		}
		log.Info("OpenCV %s network loaded (gocv %s, units=%s)", gocv.OpenCVVersion(), gocv.Version(), spec.ComputeUnits)
		return engine, nil
	}
}

// New loads spec.Weights and sets the backend and target for spec.ComputeUnits.
func New(spec predictor.EngineSpec) (*Engine, error) {
	backend, target, err := backendFor(spec.ComputeUnits)
	if err != nil {
		return nil, err
	}

	net, err := gocv.ReadNetFromONNXBytes(spec.Weights)
	if err != nil {
		return nil, fmt.Errorf("failed to read network: %w", err)
	}
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("failed to load network")
	}

	errBackend := net.SetPreferableBackend(backend)
	errTarget := net.SetPreferableTarget(target)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target for %s", spec.ComputeUnits)
	}

	return &Engine{net: net, outputNames: spec.OutputNames}, nil
}

func backendFor(units predictor.ComputeUnits) (gocv.NetBackendType, gocv.NetTargetType, error) {
	placement, err := units.OpenCVPlacement()
	if err != nil {
		return 0, 0, err
	}
	return gocv.ParseNetBackend(placement.Backend), gocv.ParseNetTarget(placement.Target), nil
}

// Forward runs the network and copies every requested output blob.
func (e *Engine) Forward(input predictor.Tensor) (map[string]predictor.Blob, error) {
	if len(input.Data) == 0 {
		return nil, fmt.Errorf("empty input tensor")
	}

	sizes := make([]int, len(input.Shape))
	for i, dim := range input.Shape {
		sizes[i] = int(dim)
	}

	raw := unsafe.Slice((*byte)(unsafe.Pointer(&input.Data[0])), len(input.Data)*4)
	blob, err := gocv.NewMatWithSizesFromBytes(sizes, gocv.MatTypeCV32F, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create input blob: %w", err)
	}
	defer blob.Close()

	e.net.SetInput(blob, input.Name)
	outputs := e.net.ForwardLayers(e.outputNames)
	runtime.KeepAlive(input.Data)
	defer func() {
		for i := range outputs {
			outputs[i].Close()
		}
	}()

	if len(outputs) != len(e.outputNames) {
		return nil, fmt.Errorf("network returned %d outputs, want %d", len(outputs), len(e.outputNames))
	}

	blobs := make(map[string]predictor.Blob, len(outputs))
	for i, name := range e.outputNames {
		data, err := outputs[i].DataPtrFloat32()
		if err != nil {
			return nil, fmt.Errorf("failed to read output %s: %w", name, err)
		}

		shape := make([]int64, 0, 4)
		for _, dim := range outputs[i].Size() {
			shape = append(shape, int64(dim))
		}

		blobs[name] = predictor.Blob{
			Shape: shape,
			Data:  append([]float32(nil), data...),
		}
	}
	return blobs, nil
}

// Close releases the network.
func (e *Engine) Close() error {
	return e.net.Close()
}
