package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"nanodet/internal/app"
	"nanodet/internal/config"
	"nanodet/internal/logger"
	"nanodet/internal/predictor"
	"nanodet/internal/predictor/onnx"
	"nanodet/internal/predictor/opencv"
)

func main() {
	os.Exit(run())
}

func run() int {
	name := filepath.Base(os.Args[0])

	cfg, err := config.Load(name, os.Args[1:])
	if err != nil {
		if errors.Is(err, config.ErrUsage) {
			config.Usage(os.Stderr, name)
		}
		fmt.Fprintln(os.Stderr, &app.StageError{Stage: app.StageParseArgs, Err: err})
		return -1
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return -1
	}
	defer log.Close()

	engines := map[string]predictor.EngineFactory{
		"opencv": opencv.NewFactory(log),
		"onnx":   onnx.NewFactory(cfg.OnnxRuntimeLib, log),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.NewApp(cfg, log, engines).Run(ctx); err != nil {
		log.Error("%v", err)
		return -1
	}
	return 0
}
