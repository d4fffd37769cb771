// Command firecheck classifies one image and prints the verdict as a single JSON line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"firewatch/internal/config"
	"firewatch/internal/logger"
	"firewatch/internal/service/ai"
	"firewatch/internal/service/fire"

	"github.com/urfave/cli/v2"
)

// output is the JSON printed on stdout. Error is only set on failure.
type output struct {
	Error      string  `json:"error,omitempty"`
	Fire       bool    `json:"fire"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source,omitempty"`
}

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	code := 0
	cliApp := &cli.App{
		Name:            "firecheck",
		Usage:           "detect fire in an image",
		ArgsUsage:       "<image_path>",
		HideHelpCommand: true,
		Writer:          stdout,
		ErrWriter:       stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "model", Usage: "ONNX detection model `FILE`"},
			&cli.StringFlag{Name: "labels", Usage: "class names `FILE`, one per line"},
			&cli.Float64Flag{Name: "conf", Value: fire.DefaultModelThreshold, Usage: "minimum detection confidence"},
			&cli.BoolFlag{Name: "mock", Usage: "fake the verdict from the file name"},
			&cli.BoolFlag{Name: "debug", Usage: "write diagnostics to stderr"},
		},
		Action: func(c *cli.Context) error {
			code = check(c, stdout, stderr)
			return nil
		},
		// keep urfave from calling os.Exit
		ExitErrHandler: func(*cli.Context, error) {},
	}

	if err := cliApp.Run(args); err != nil {
		writeResult(stdout, output{Error: err.Error()})
		return 2
	}
	return code
}

func check(c *cli.Context, stdout, stderr io.Writer) int {
	path := c.Args().First()
	if path == "" {
		writeResult(stdout, output{Error: "Image path required"})
		return 1
	}

	level := "error"
	if c.Bool("debug") {
		level = "debug"
	}
	log := logger.NewConsoleLogger(stderr, level)

	cfg := config.Load()
	cfg.Mock = c.Bool("mock") || cfg.Mock
	cfg.ConfidenceThreshold = c.Float64("conf")
	if c.IsSet("model") {
		cfg.ModelPath = c.String("model")
	}
	if c.IsSet("labels") {
		cfg.LabelsPath = c.String("labels")
	}

	var detector fire.ObjectDetector
	if !cfg.Mock {
		d := ai.NewDetectorService(cfg, log)
		defer d.Close()
		detector = d
	}
	estimator := fire.NewEstimator(fire.OptionsFromConfig(cfg), detector, log)
	log.Debug("Estimator mode: %s", estimator.Mode())

	result, err := estimator.EstimateFile(context.Background(), path)
	if err != nil {
		msg := err.Error()
		switch {
		case errors.Is(err, fire.ErrImageNotFound):
			msg = fmt.Sprintf("Image not found: %s", path)
		case errors.Is(err, fire.ErrCorruptImage):
			msg = fmt.Sprintf("Invalid image: %s", path)
		}
		writeResult(stdout, output{Error: msg})
		return 1
	}

	out := output{Fire: result.Fire, Confidence: result.Confidence}
	if c.Bool("debug") {
		out.Source = string(result.Source)
	}
	writeResult(stdout, out)
	return 0
}

func writeResult(w io.Writer, out output) {
	// Encode appends the newline
	json.NewEncoder(w).Encode(out)
}
