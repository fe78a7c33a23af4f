package onnx

import (
	"fmt"
	"runtime"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/sys/cpu"

	"nanodet/internal/logger"
	"nanodet/internal/predictor"
)

// Engine runs an ONNX network through ONNX Runtime with pre-allocated tensors.
type Engine struct {
	session     *ort.AdvancedSession
	input       *ort.Tensor[float32]
	outputs     []*ort.Tensor[float32]
	outputNames []string
	ownsEnv     bool
}

// NewFactory returns an EngineFactory backed by ONNX Runtime. libPath points
// at the onnxruntime shared library; empty uses the platform default.
func NewFactory(libPath string, log *logger.Logger) predictor.EngineFactory {
	return func(spec predictor.EngineSpec) (predictor.Engine, error) {
		engine, err := New(libPath, spec)
		if err != nil {
			return nil, err
		}
		log.Info("ONNX Runtime session created (units=%s, threads=%d, cpu=%s)",
			spec.ComputeUnits, runtime.NumCPU(), cpuFeatures())
		return engine, nil
	}
}

// New initializes the runtime environment when needed and creates a session
// for spec.
func New(libPath string, spec predictor.EngineSpec) (*Engine, error) {
	if err := checkUnits(spec.ComputeUnits); err != nil {
		return nil, err
	}

	engine := &Engine{outputNames: spec.OutputNames}
	if !ort.IsInitialized() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
		engine.ownsEnv = true
	}

	if err := engine.initSession(spec); err != nil {
		engine.Close()
		return nil, err
	}
	return engine, nil
}

func (e *Engine) initSession(spec predictor.EngineSpec) error {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return fmt.Errorf("error creating session options: %w", err)
	}
	defer options.Destroy()

	options.SetIntraOpNumThreads(runtime.NumCPU())
	options.SetInterOpNumThreads(runtime.NumCPU())

	if err := appendProvider(options, spec.ComputeUnits); err != nil {
		return err
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(spec.InputShape...))
	if err != nil {
		return fmt.Errorf("error creating input tensor: %w", err)
	}
	e.input = input

	outputs := make([]ort.ArbitraryTensor, 0, len(spec.OutputNames))
	for _, name := range spec.OutputNames {
		shape, ok := spec.OutputShapes[name]
		if !ok {
			return fmt.Errorf("no shape for output %s", name)
		}
		tensor, err := ort.NewEmptyTensor[float32](ort.NewShape(shape...))
		if err != nil {
			return fmt.Errorf("error creating output tensor %s: %w", name, err)
		}
		e.outputs = append(e.outputs, tensor)
		outputs = append(outputs, tensor)
	}

	session, err := ort.NewAdvancedSessionWithONNXData(
		spec.Weights,
		[]string{spec.InputName},
		spec.OutputNames,
		[]ort.ArbitraryTensor{input},
		outputs,
		options,
	)
	if err != nil {
		return fmt.Errorf("error creating session: %w", err)
	}
	e.session = session
	return nil
}

func checkUnits(units predictor.ComputeUnits) error {
	switch units {
	case predictor.ComputeUnitsCPU, predictor.ComputeUnitsCUDA, predictor.ComputeUnitsTensorRT,
		predictor.ComputeUnitsOpenVINO, predictor.ComputeUnitsCoreML:
		return nil
	default:
		return fmt.Errorf("%w: %s on onnx engine", predictor.ErrUnsupportedComputeUnits, units)
	}
}

func appendProvider(options *ort.SessionOptions, units predictor.ComputeUnits) error {
	switch units {
	case predictor.ComputeUnitsCUDA:
		cudaOptions, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return fmt.Errorf("error creating CUDA provider options: %w", err)
		}
		defer cudaOptions.Destroy()
		if err := cudaOptions.Update(map[string]string{"device_id": "0"}); err != nil {
			return fmt.Errorf("error configuring CUDA provider: %w", err)
		}
		if err := options.AppendExecutionProviderCUDA(cudaOptions); err != nil {
			return fmt.Errorf("error enabling CUDA provider: %w", err)
		}
	case predictor.ComputeUnitsTensorRT:
		trtOptions, err := ort.NewTensorRTProviderOptions()
		if err != nil {
			return fmt.Errorf("error creating TensorRT provider options: %w", err)
		}
		defer trtOptions.Destroy()
		if err := options.AppendExecutionProviderTensorRT(trtOptions); err != nil {
			return fmt.Errorf("error enabling TensorRT provider: %w", err)
		}
	case predictor.ComputeUnitsOpenVINO:
		if err := options.AppendExecutionProviderOpenVINO(map[string]string{"device_type": "CPU"}); err != nil {
			return fmt.Errorf("error enabling OpenVINO provider: %w", err)
		}
	case predictor.ComputeUnitsCoreML:
		if err := options.AppendExecutionProviderCoreML(0); err != nil {
			return fmt.Errorf("error enabling CoreML provider: %w", err)
		}
	}
	return nil
}

// Forward copies input into the session tensor, runs it and copies the outputs.
func (e *Engine) Forward(input predictor.Tensor) (map[string]predictor.Blob, error) {
	dst := e.input.GetData()
	if len(input.Data) != len(dst) {
		return nil, fmt.Errorf("input has %d values, want %d", len(input.Data), len(dst))
	}
	copy(dst, input.Data)

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("model inference: %w", err)
	}

	blobs := make(map[string]predictor.Blob, len(e.outputs))
	for i, tensor := range e.outputs {
		blobs[e.outputNames[i]] = predictor.Blob{
			Shape: append([]int64(nil), tensor.GetShape()...),
			Data:  append([]float32(nil), tensor.GetData()...),
		}
	}
	return blobs, nil
}

// Close destroys the session and tensors, and the environment if this engine
// created it.
func (e *Engine) Close() error {
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	if e.input != nil {
		e.input.Destroy()
		e.input = nil
	}
	for _, tensor := range e.outputs {
		tensor.Destroy()
	}
	e.outputs = nil

	if e.ownsEnv {
		e.ownsEnv = false
		return ort.DestroyEnvironment()
	}
	return nil
}

// cpuFeatures lists the SIMD extensions the CPU execution provider can use.
func cpuFeatures() string {
	var features []string
	if cpu.X86.HasAVX512 {
		features = append(features, "avx512")
	}
	if cpu.X86.HasAVX2 {
		features = append(features, "avx2")
	}
	if cpu.X86.HasSSE41 {
		features = append(features, "sse4.1")
	}
	if cpu.ARM64.HasASIMD {
		features = append(features, "asimd")
	}
	if len(features) == 0 {
		return "generic"
	}
	return strings.Join(features, ",")
}
