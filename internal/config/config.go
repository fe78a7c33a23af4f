package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DefaultOutputPath is the result image name written to the working directory.
const DefaultOutputPath = "Nanodet object-detector_predictions.png"

// ErrUsage marks missing or invalid command-line flags.
var ErrUsage = errors.New("invalid usage")

type Config struct {
	ProtoPath      string
	ModelPath      string
	ImagePath      string
	OutputPath     string
	ModelCfg       string
	ComputeUnits   string
	Engine         string
	ScoreThreshold float64
	NMSThreshold   float64
	BoxThickness   int
	DrawLabels     bool
	DBPath         string
	PublishURL     string
	PublishImage   bool
	LogDirectory   string
	OnnxRuntimeLib string
}

func defaults() *Config {
	return &Config{
		OutputPath:     DefaultOutputPath,
		ModelCfg:       "e1",
		ComputeUnits:   "cpu",
		Engine:         "opencv",
		ScoreThreshold: 0.4,
		NMSThreshold:   0.5,
		BoxThickness:   1,
	}
}

func newFlagSet(name string, cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&cfg.ProtoPath, "p", cfg.ProtoPath, "model description path (yaml)")
	fs.StringVar(&cfg.ModelPath, "m", cfg.ModelPath, "model weights path")
	fs.StringVar(&cfg.ImagePath, "i", cfg.ImagePath, "input image path")
	fs.StringVar(&cfg.OutputPath, "o", cfg.OutputPath, "output image path, format follows the extension")
	fs.StringVar(&cfg.ModelCfg, "c", cfg.ModelCfg, "model variant tag")
	fs.StringVar(&cfg.ComputeUnits, "u", cfg.ComputeUnits, "compute units: cpu, cuda, tensorrt, openvino, coreml")
	fs.StringVar(&cfg.Engine, "engine", cfg.Engine, "inference engine: opencv, onnx")
	fs.Float64Var(&cfg.ScoreThreshold, "score", cfg.ScoreThreshold, "minimum detection score")
	fs.Float64Var(&cfg.NMSThreshold, "nms", cfg.NMSThreshold, "NMS IoU threshold")
	fs.IntVar(&cfg.BoxThickness, "thickness", cfg.BoxThickness, "box outline thickness in pixels")
	fs.BoolVar(&cfg.DrawLabels, "labels", cfg.DrawLabels, "draw class labels above boxes")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "sqlite run journal path (disabled when empty)")
	fs.StringVar(&cfg.PublishURL, "publish", cfg.PublishURL, "websocket URL to publish the result to (disabled when empty)")
	fs.BoolVar(&cfg.PublishImage, "publish-image", cfg.PublishImage, "attach the result image to the published summary")
	fs.StringVar(&cfg.LogDirectory, "logdir", cfg.LogDirectory, "log directory (console only when empty)")
	return fs
}

// Usage prints the flag summary.
func Usage(w io.Writer, name string) {
	fs := newFlagSet(name, defaults())
	fs.SetOutput(w)
	fmt.Fprintf(w, "usage: %s -p <model.yaml> -m <weights> -i <image> [options]\n", name)
	fs.PrintDefaults()
}

// Load parses args, then fills flags left unset from the environment and an
// optional .env file. Nothing is read from disk until the required flags are
// present and valid.
func Load(name string, args []string) (*Config, error) {
	cfg := defaults()
	fs := newFlagSet(name, cfg)
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected arguments %v", ErrUsage, fs.Args())
	}

	required := []struct{ name, value string }{
		{"p", cfg.ProtoPath},
		{"m", cfg.ModelPath},
		{"i", cfg.ImagePath},
	}
	for _, f := range required {
		if f.value == "" {
			return nil, fmt.Errorf("%w: missing required flag -%s", ErrUsage, f.name)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	cfg.applyEnv(set)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(set map[string]bool) {
	if !set["o"] {
		c.OutputPath = getEnv("OUTPUT_PATH", c.OutputPath)
	}
	if !set["c"] {
		c.ModelCfg = getEnv("MODEL_CFG", c.ModelCfg)
	}
	if !set["u"] {
		c.ComputeUnits = getEnv("COMPUTE_UNITS", c.ComputeUnits)
	}
	if !set["engine"] {
		c.Engine = getEnv("NANODET_ENGINE", c.Engine)
	}
	if !set["score"] {
		c.ScoreThreshold = getEnvAsFloat("SCORE_THRESHOLD", c.ScoreThreshold)
	}
	if !set["nms"] {
		c.NMSThreshold = getEnvAsFloat("NMS_THRESHOLD", c.NMSThreshold)
	}
	if !set["thickness"] {
		c.BoxThickness = getEnvAsInt("BOX_THICKNESS", c.BoxThickness)
	}
	if !set["labels"] {
		c.DrawLabels = getEnvAsBool("DRAW_LABELS", c.DrawLabels)
	}
	if !set["db"] {
		c.DBPath = getEnv("DB_PATH", c.DBPath)
	}
	if !set["publish"] {
		c.PublishURL = getEnv("PUBLISH_URL", c.PublishURL)
	}
	if !set["publish-image"] {
		c.PublishImage = getEnvAsBool("PUBLISH_IMAGE", c.PublishImage)
	}
	if !set["logdir"] {
		c.LogDirectory = getEnv("LOG_DIR", c.LogDirectory)
	}
	c.OnnxRuntimeLib = getEnv("ONNXRUNTIME_LIB", c.OnnxRuntimeLib)
}

func (c *Config) validate() error {
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 1 {
		return fmt.Errorf("%w: score threshold %v outside [0,1]", ErrUsage, c.ScoreThreshold)
	}
	if c.NMSThreshold < 0 || c.NMSThreshold > 1 {
		return fmt.Errorf("%w: nms threshold %v outside [0,1]", ErrUsage, c.NMSThreshold)
	}
	if c.BoxThickness < 1 {
		return fmt.Errorf("%w: thickness must be at least 1, got %d", ErrUsage, c.BoxThickness)
	}
	if c.OutputPath == "" {
		return fmt.Errorf("%w: empty output path", ErrUsage)
	}
	return nil
}

// LoadModelFiles reads the model description and the weights into memory.
func (c *Config) LoadModelFiles() (proto, model []byte, err error) {
	proto, err = readNonEmpty(c.ProtoPath)
	if err != nil {
		return nil, nil, err
	}
	model, err = readNonEmpty(c.ModelPath)
	if err != nil {
		return nil, nil, err
	}
	return proto, model, nil
}

func readNonEmpty(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("file %s is empty", path)
	}
	return data, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
