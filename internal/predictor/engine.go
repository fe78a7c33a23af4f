package predictor

// Tensor is a named dense float32 input.
type Tensor struct {
	Name  string
	Shape []int64
	Data  []float32
}

// Blob is one raw engine output.
type Blob struct {
	Shape []int64
	Data  []float32
}

// EngineSpec is everything an engine needs to load and run a network.
type EngineSpec struct {
	Weights      []byte
	ComputeUnits ComputeUnits
	InputName    string
	InputShape   []int64
	OutputShapes map[string][]int64
	OutputNames  []string
}

// Engine runs a loaded network.
type Engine interface {
	Forward(input Tensor) (map[string]Blob, error)
	Close() error
}

// EngineFactory loads a network into a new Engine.
type EngineFactory func(spec EngineSpec) (Engine, error)
