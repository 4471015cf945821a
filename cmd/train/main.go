// Command train fits the crop classifier and writes the model artifact the
// server loads at startup.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/config"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/monitoring"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/prediction"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).RunContext(ctx, os.Args); err != nil {
		slog.Error("Training failed", "error", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	defaults := prediction.DefaultTrainOptions()

	return &cli.App{
		Name:   "train",
		Usage:  "train the Luwero crop classifier",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: config.DefaultModelPath, Usage: "artifact path", EnvVars: []string{"MODEL_PATH"}},
			&cli.StringFlag{Name: "csv", Usage: "labelled samples (season,soil_type,temperature,rainfall,crop); synthetic data when empty"},
			&cli.IntFlag{Name: "samples", Value: prediction.DefaultSyntheticSamples, Usage: "synthetic sample count"},
			&cli.Int64Flag{Name: "seed", Value: defaults.Seed, Usage: "random seed"},
			&cli.IntFlag{Name: "trees", Value: defaults.Trees, Usage: "number of trees"},
			&cli.IntFlag{Name: "max-depth", Value: defaults.MaxDepth, Usage: "maximum tree depth"},
			&cli.IntFlag{Name: "min-samples-split", Value: defaults.MinSamplesSplit, Usage: "minimum samples to split a node"},
			&cli.Float64Flag{Name: "holdout", Value: 0.2, Usage: "share of samples kept back for evaluation; the saved model is refit on all samples"},
			&cli.StringFlag{Name: "log-level", Value: "info"},
		},
		Action: train,
	}
}

func train(c *cli.Context) error {
	logger := monitoring.NewLoggerTo(c.App.ErrWriter, monitoring.ParseLevel(c.String("log-level")))

	samples, err := loadSamples(c.String("csv"), c.Int("samples"), c.Int64("seed"))
	if err != nil {
		return err
	}

	opts := prediction.DefaultTrainOptions()
	opts.Seed = c.Int64("seed")
	opts.Trees = c.Int("trees")
	opts.MaxDepth = c.Int("max-depth")
	opts.MinSamplesSplit = c.Int("min-samples-split")

	trainSet, testSet := splitSamples(samples, c.Float64("holdout"), opts.Seed)

	start := time.Now()
	model, err := prediction.Train(c.Context, trainSet, opts)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	logger.Info("Model trained",
		"samples", len(trainSet),
		"trees", opts.Trees,
		"duration_ms", time.Since(start).Milliseconds())

	out := c.App.Writer
	fmt.Fprintf(out, "classes: %v\n", model.Forest.Classes())
	fmt.Fprintf(out, "train accuracy: %.3f\n", prediction.Accuracy(model, trainSet))
	if len(testSet) > 0 {
		fmt.Fprintf(out, "holdout accuracy: %.3f (%d samples)\n", prediction.Accuracy(model, testSet), len(testSet))

		start = time.Now()
		model, err = prediction.Train(c.Context, samples, opts)
		if err != nil {
			return fmt.Errorf("refit: %w", err)
		}
		logger.Info("Model refit on all samples",
			"samples", len(samples),
			"duration_ms", time.Since(start).Milliseconds())
	}

	path := c.String("out")
	if err := prediction.SaveModel(path, model, prediction.ArtifactInfo{Samples: len(samples), Options: opts}); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	fmt.Fprintf(out, "saved %s (%d samples)\n", path, len(samples))
	return nil
}

func loadSamples(path string, n int, seed int64) ([]prediction.Sample, error) {
	if path == "" {
		if n <= 0 {
			return nil, fmt.Errorf("samples must be positive, got %d", n)
		}
		return prediction.GenerateSynthetic(n, seed), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open samples: %w", err)
	}
	defer f.Close()

	samples, err := prediction.LoadSamplesCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}

// splitSamples shuffles a copy of samples and keeps the last holdout share
// for evaluation. The training side is never empty.
func splitSamples(samples []prediction.Sample, holdout float64, seed int64) (train, test []prediction.Sample) {
	shuffled := append([]prediction.Sample(nil), samples...)
	rand.New(rand.NewSource(seed)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if holdout <= 0 || holdout >= 1 {
		return shuffled, nil
	}
	cut := len(shuffled) - int(float64(len(shuffled))*holdout)
	if cut < 1 {
		cut = 1
	}
	return shuffled[:cut], shuffled[cut:]
}
