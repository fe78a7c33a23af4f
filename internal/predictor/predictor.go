package predictor

import (
	"errors"
	"fmt"
	"io"

	"nanodet/internal/imageio"
	"nanodet/internal/logger"
	"nanodet/internal/nanodet"
)

var (
	// ErrNotInitialized is returned when Predict runs before a successful Init.
	ErrNotInitialized = errors.New("predictor not initialized")
	// ErrMalformedOutput is returned when engine output does not match the model.
	ErrMalformedOutput = nanodet.ErrMalformedOutput
)

// Predictor wraps an inference engine with NanoDet pre- and postprocessing.
type Predictor struct {
	factory EngineFactory
	logger  *logger.Logger
	engine  Engine
	variant nanodet.Variant
	decoder *nanodet.Decoder
}

// New creates a Predictor that loads networks through factory.
func New(factory EngineFactory, log *logger.Logger) *Predictor {
	if log == nil {
		log = logger.New(io.Discard)
	}
	return &Predictor{factory: factory, logger: log}
}

// Init validates opts, resolves the model variant and loads the network.
func (p *Predictor) Init(opts Options) error {
	if err := opts.validate(); err != nil {
		return err
	}
	if p.factory == nil {
		return fmt.Errorf("%w: no engine", ErrInvalidOption)
	}

	desc, err := nanodet.ParseDescription(opts.ProtoContent)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOption, err)
	}
	variant, err := desc.Variant(opts.ModelCfg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOption, err)
	}
	labels := desc.ClassLabels()

	engine, err := p.factory(EngineSpec{
		Weights:      opts.ModelContent,
		ComputeUnits: opts.ComputeUnits,
		InputName:    variant.InputName,
		InputShape:   variant.InputShape(),
		OutputShapes: variant.OutputShapes(len(labels)),
		OutputNames:  variant.OutputNames(),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to load network: %w", ErrInvalidOption, err)
	}

	if err := p.Close(); err != nil {
		p.logger.Warning("Failed to release previous engine: %v", err)
	}
	p.engine = engine
	p.variant = variant
	p.decoder = &nanodet.Decoder{
		Variant:        variant,
		Labels:         labels,
		ScoreThreshold: opts.ScoreThreshold,
		NMSThreshold:   opts.NMSThreshold,
	}

	p.logger.Info("Predictor initialized: variant=%s input=%dx%d classes=%d units=%s",
		opts.ModelCfg, variant.InputWidth, variant.InputHeight, len(labels), opts.ComputeUnits)
	return nil
}

// Predict runs the network on one decoded image.
func (p *Predictor) Predict(img *imageio.Buffer) (*Output, error) {
	if p.engine == nil {
		return nil, ErrNotInitialized
	}
	if img == nil || img.Width == 0 || img.Height == 0 || len(img.Pix) < img.Width*img.Height*imageio.Channels {
		return nil, errors.New("empty input image")
	}

	input := Tensor{
		Name:  p.variant.InputName,
		Shape: p.variant.InputShape(),
		Data:  p.variant.Preprocess(img),
	}

	blobs, err := p.engine.Forward(input)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	return &Output{
		Blobs:       blobs,
		InputWidth:  p.variant.InputWidth,
		InputHeight: p.variant.InputHeight,
		ImageWidth:  img.Width,
		ImageHeight: img.Height,
	}, nil
}

// ProcessOutput decodes raw blobs into a DetectionList.
func (p *Predictor) ProcessOutput(out *Output) (Result, error) {
	if p.decoder == nil {
		return nil, ErrNotInitialized
	}
	if out == nil {
		return nil, fmt.Errorf("%w: nil output", ErrMalformedOutput)
	}

	data := make(map[string][]float32, len(out.Blobs))
	for name, blob := range out.Blobs {
		data[name] = blob.Data
	}

	objects, err := p.decoder.Decode(data)
	if err != nil {
		return nil, err
	}
	return DetectionList{Objects: objects}, nil
}

// Close releases the engine. It is safe to call more than once.
func (p *Predictor) Close() error {
	if p.engine == nil {
		return nil
	}
	err := p.engine.Close()
	p.engine = nil
	return err
}
