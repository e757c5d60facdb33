// Package restoration drives the patch-based restoration pipeline for single
// images and for batches of images.
package restoration

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/code4indo/DE-GAN/internal/logger"
	"github.com/code4indo/DE-GAN/internal/models"
	"github.com/code4indo/DE-GAN/pkg/config"
	"github.com/code4indo/DE-GAN/pkg/imageio"
	"github.com/code4indo/DE-GAN/pkg/postprocess"
	"github.com/code4indo/DE-GAN/pkg/predictor"
	"github.com/code4indo/DE-GAN/pkg/tiling"
)

// Params holds the restoration parameters shared by every job of a run.
type Params struct {
	// Task selects the post-processing applied to the model output.
	Task models.Task

	// TileSize is the edge length of every tile the predictor sees.
	TileSize int

	// TileWorkers bounds how many tiles of one image are predicted at once.
	// Values below 2 keep tile prediction strictly sequential.
	TileWorkers int

	// ClampOutput clamps predictions into [0,1] before 8-bit conversion.
	ClampOutput bool

	// SaveIntermediaryResults determines whether to save intermediary processing results.
	// When enabled, every stage of a job is written as PNG images.
	SaveIntermediaryResults bool

	// IntermediaryDir is the directory where intermediary results will be saved.
	// Only used when SaveIntermediaryResults is true.
	IntermediaryDir string
}

// ParamsFromConfig derives run parameters for task from cfg.
func ParamsFromConfig(cfg *config.Config, task models.Task) *Params {
	return &Params{
		Task:                    task,
		TileSize:                cfg.Processing.TileSize,
		TileWorkers:             cfg.Processing.TileWorkers,
		ClampOutput:             cfg.Processing.ClampOutput,
		SaveIntermediaryResults: cfg.Output.SaveIntermediaryResults,
		IntermediaryDir:         cfg.Output.IntermediaryDir,
	}
}

// Runner restores images with one shared predictor.
//
// A job runs these steps:
// 1. Load the image as normalized grayscale
// 2. Pad it to a tile-aligned canvas and split it into tiles
// 3. Predict every tile in sequence order
// 4. Merge the predicted tiles back into a canvas
// 5. Crop and post-process for the task
// 6. Save the 8-bit result
//
// Any failure ends the job as Failed; it is never returned to the caller.
type Runner struct {
	params  *Params
	adapter *predictor.Adapter
	log     zerolog.Logger
}

// NewRunner creates a runner that predicts tiles with p.
func NewRunner(params *Params, p predictor.Predictor, log zerolog.Logger) *Runner {
	return &Runner{
		params:  params,
		adapter: predictor.NewAdapter(p, params.TileSize),
		log:     logger.Component(log, "restoration"),
	}
}

// Task returns the task this runner restores for.
func (r *Runner) Task() models.Task { return r.params.Task }

// RunJob restores one image and returns its finalized report. The report is
// Success only if the output file was written.
func (r *Runner) RunJob(ctx context.Context, inputPath, outputPath string) *models.ImageJobReport {
	start := time.Now()
	rep := models.NewImageJobReport(inputPath, outputPath)
	log := r.log.With().Str("input", inputPath).Logger()

	err := r.runSteps(ctx, rep, inputPath, outputPath, log)
	elapsed := time.Since(start)

	if err != nil {
		rep.Fail(err, elapsed)
		log.Error().Err(err).Float64("seconds", rep.ProcessingTimeSeconds).Msg("job failed")
		return rep
	}

	rep.Succeed(elapsed)
	log.Debug().
		Str("output", outputPath).
		Int("tiles", rep.TileCount).
		Float64("seconds", rep.ProcessingTimeSeconds).
		Msg("job succeeded")
	return rep
}

// runSteps executes the pipeline and records dimensions and statistics into
// rep as they become known. Panics are converted into errors.
func (r *Runner) runSteps(ctx context.Context, rep *models.ImageJobReport, inputPath, outputPath string, log zerolog.Logger) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("unexpected failure: %v", p)
		}
	}()

	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))

	// Step 1: load
	img, err := imageio.Load(inputPath)
	if err != nil {
		return err
	}
	height, width := img.Dims()
	rep.SetOriginalDimensions(height, width)

	// Step 2: pad and split
	canvas, grid, err := tiling.Pad(img, r.params.TileSize)
	if err != nil {
		return err
	}
	rep.SetPaddedDimensions(grid.PaddedHeight, grid.PaddedWidth)
	r.saveIntermediaryResult(stem, "01_padded_canvas", canvas, -1, log)

	tiles, _, err := tiling.Split(canvas, r.params.TileSize)
	if err != nil {
		return err
	}
	log.Debug().
		Int("height", height).
		Int("width", width).
		Int("padded_height", grid.PaddedHeight).
		Int("padded_width", grid.PaddedWidth).
		Int("tiles", len(tiles)).
		Msg("split image into tiles")

	// Step 3: predict
	predicted, latencies, err := r.predictTiles(ctx, tiles, log)
	if err != nil {
		return err
	}
	rep.SetTileLatencies(latencies)
	if r.params.SaveIntermediaryResults {
		for i := range tiles {
			r.saveIntermediaryResult(stem, "02_tiles", tiles[i].Data, i, log)
			r.saveIntermediaryResult(stem, "03_predicted_tiles", predicted[i].Data, i, log)
		}
	}

	// Step 4: merge
	merged, err := tiling.Merge(predicted, grid)
	if err != nil {
		return err
	}
	r.saveIntermediaryResult(stem, "04_merged_canvas", merged, -1, log)

	// Step 5: crop and post-process
	result, err := postprocess.Finalize(merged, height, width, r.params.Task)
	if err != nil {
		return err
	}
	if !postprocess.InRange(result) {
		log.Debug().Bool("clamped", r.params.ClampOutput).Msg("predictor output outside [0,1]")
	}
	rep.SetOutputMeanIntensity(mat.Sum(result) / float64(height*width))
	r.saveIntermediaryResult(stem, "05_final", result, -1, log)

	// Step 6: save
	return imageio.Save(outputPath, postprocess.ToGray(result, r.params.ClampOutput))
}
