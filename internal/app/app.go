package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"nanodet/internal/config"
	"nanodet/internal/dto"
	"nanodet/internal/imageio"
	"nanodet/internal/logger"
	"nanodet/internal/models"
	"nanodet/internal/predictor"
	"nanodet/internal/publish"
	"nanodet/internal/render"
	"nanodet/internal/repository"
	"nanodet/internal/repository/sqlite"
)

// App runs one detection over a single image.
type App struct {
	config  *config.Config
	logger  *logger.Logger
	engines map[string]predictor.EngineFactory
	stdout  io.Writer
	now     func() time.Time
}

// NewApp wires an App. engines maps the -engine names to their factories.
func NewApp(cfg *config.Config, log *logger.Logger, engines map[string]predictor.EngineFactory) *App {
	if log == nil {
		log = logger.New(io.Discard)
	}
	return &App{
		config:  cfg,
		logger:  log,
		engines: engines,
		stdout:  os.Stdout,
		now:     time.Now,
	}
}

// SetOutput redirects the run summary, stdout by default.
func (a *App) SetOutput(w io.Writer) {
	a.stdout = w
}

// Run executes the pipeline. Any error is a *StageError; the journal and the
// publisher only log warnings because the result image already exists.
func (a *App) Run(ctx context.Context) error {
	start := a.now()
	cfg := a.config

	proto, weights, err := cfg.LoadModelFiles()
	if err != nil {
		return fail(StageLoadModelFiles, err)
	}

	img, err := imageio.Decode(cfg.ImagePath)
	if err != nil {
		return fail(StageDecodeImage, err)
	}
	a.logger.Info("Decoded %s: %dx%d", cfg.ImagePath, img.Width, img.Height)

	p, err := a.initPredictor(proto, weights)
	if err != nil {
		return fail(StageInitPredictor, err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			a.logger.Warning("Error releasing predictor: %v", err)
		}
	}()

	out, err := p.Predict(img)
	if err != nil {
		return fail(StagePredict, err)
	}

	result, err := p.ProcessOutput(out)
	if err != nil {
		return fail(StageProcessOutput, err)
	}

	var objects []models.ObjectInfo
	switch r := result.(type) {
	case predictor.DetectionList:
		objects = r.Objects
	default:
		return fail(StageProcessOutput, fmt.Errorf("unexpected result type %T", result))
	}
	a.logger.Info("Detected %d objects", len(objects))

	annotated := render.Annotate(img, objects, cfg.BoxThickness, cfg.DrawLabels)

	if err := imageio.Encode(annotated, cfg.OutputPath); err != nil {
		return fail(StageEncodeOutput, err)
	}

	adjusted := make([]models.ObjectInfo, len(objects))
	for i, obj := range objects {
		adjusted[i] = obj.AdjustToImageSize(img.Height, img.Width)
	}

	run := &models.Run{
		InputPath:    cfg.ImagePath,
		OutputPath:   cfg.OutputPath,
		Engine:       cfg.Engine,
		ComputeUnits: cfg.ComputeUnits,
		ModelCfg:     cfg.ModelCfg,
		Width:        img.Width,
		Height:       img.Height,
		ObjectCount:  len(objects),
		Duration:     a.now().Sub(start),
		Timestamp:    start,
	}

	if cfg.DBPath != "" {
		if err := a.record(run, adjusted); err != nil {
			a.logger.Warning("%v", fail(StageRecord, err))
		}
	}

	if cfg.PublishURL != "" {
		publisher := publish.New(cfg.PublishURL, cfg.PublishImage, a.logger)
		if err := publisher.Publish(ctx, summarize(run, adjusted)); err != nil {
			a.logger.Warning("%v", fail(StagePublish, err))
		}
	}

	fmt.Fprintf(a.stdout, "Nanodet Object-Detector Done.\nNumber of objects: %d\nSave result image:%s\n",
		len(objects), cfg.OutputPath)
	return nil
}

func (a *App) initPredictor(proto, weights []byte) (*predictor.Predictor, error) {
	cfg := a.config

	units, err := predictor.ParseComputeUnits(cfg.ComputeUnits)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", predictor.ErrInvalidOption, err)
	}

	factory, ok := a.engines[cfg.Engine]
	if !ok {
		return nil, fmt.Errorf("%w: unknown engine %q", predictor.ErrInvalidOption, cfg.Engine)
	}

	p := predictor.New(factory, a.logger)
	err = p.Init(predictor.Options{
		ProtoContent:   proto,
		ModelContent:   weights,
		ComputeUnits:   units,
		ModelCfg:       cfg.ModelCfg,
		ScoreThreshold: float32(cfg.ScoreThreshold),
		NMSThreshold:   float32(cfg.NMSThreshold),
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (a *App) record(run *models.Run, objects []models.ObjectInfo) error {
	db, err := sqlite.New(a.config.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	return saveRun(sqlite.NewRunRepository(db), sqlite.NewDetectionRepository(db), run, objects)
}

func saveRun(runs repository.RunRepository, detections repository.DetectionRepository, run *models.Run, objects []models.ObjectInfo) error {
	id, err := runs.Insert(run)
	if err != nil {
		return err
	}
	run.ID = id

	batch := make([]models.Detection, 0, len(objects))
	for _, obj := range objects {
		batch = append(batch, models.Detection{
			RunID:   id,
			ClassID: obj.ClassID,
			Label:   obj.Label,
			X1:      float64(obj.X1),
			Y1:      float64(obj.Y1),
			X2:      float64(obj.X2),
			Y2:      float64(obj.Y2),
			Score:   float64(obj.Score),
		})
	}
	return detections.InsertBatch(batch)
}

func summarize(run *models.Run, objects []models.ObjectInfo) dto.RunSummary {
	results := make([]dto.DetectionResult, 0, len(objects))
	for _, obj := range objects {
		results = append(results, dto.NewDetectionResult(obj))
	}
	return dto.RunSummary{
		Input:        run.InputPath,
		Output:       run.OutputPath,
		Engine:       run.Engine,
		ComputeUnits: run.ComputeUnits,
		ModelCfg:     run.ModelCfg,
		Width:        run.Width,
		Height:       run.Height,
		Objects:      results,
		Duration:     run.Duration,
		Timestamp:    run.Timestamp,
	}
}
