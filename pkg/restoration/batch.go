package restoration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/code4indo/DE-GAN/internal/models"
	"github.com/code4indo/DE-GAN/pkg/imageio"
)

// ErrInvalidInput is returned by RunBatch when the input path is neither a
// file nor a directory.
var ErrInvalidInput = errors.New("input path not found or is not a valid file/directory")

// job pairs an input image with the path its result is written to.
type job struct {
	input  string
	output string
}

// RunBatch restores inputPath, which is either a single image or a directory
// of images. A file input writes to outputPath; a directory input writes
// every recognized image under the same name inside outputPath, creating it
// if needed. Jobs never stop the batch: a failing image is recorded and the
// next one runs. Once ctx is cancelled no further job is started and the
// report covers the jobs that ran. Only setup problems are returned as errors.
func (r *Runner) RunBatch(ctx context.Context, inputPath, outputPath string, env models.EnvironmentInfo) (*models.BatchReport, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidInput, inputPath, err)
	}

	var jobs []job
	switch {
	case info.IsDir():
		jobs, err = r.planDirectory(inputPath, outputPath)
		if err != nil {
			return nil, err
		}
	case info.Mode().IsRegular():
		if dir := filepath.Dir(outputPath); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				r.log.Warn().Err(err).Str("dir", dir).Msg("failed to create output directory")
			}
		}
		jobs = []job{{input: inputPath, output: outputPath}}
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, inputPath)
	}

	start := time.Now()
	batch := models.NewBatchReport(r.params.Task, inputPath, outputPath, env, start)

	for i, j := range jobs {
		if err := ctx.Err(); err != nil {
			r.log.Warn().Err(err).Int("skipped", len(jobs)-i).Msg("batch interrupted")
			break
		}
		rep := r.RunJob(ctx, j.input, j.output)
		batch.Add(rep)
		r.log.Info().
			Str("file", filepath.Base(j.input)).
			Str("status", string(rep.Status)).
			Float64("seconds", rep.ProcessingTimeSeconds).
			Int("n", i+1).
			Int("of", len(jobs)).
			Msg("processed image")
	}

	batch.Finalize(time.Since(start))
	return batch, nil
}

// planDirectory lists the recognized images of inputDir in name order and
// maps each onto the same file name inside outputDir.
func (r *Runner) planDirectory(inputDir, outputDir string) ([]job, error) {
	if _, err := os.Stat(outputDir); os.IsNotExist(err) {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return nil, &models.IOError{Op: "create output directory", Path: outputDir, Err: err}
		}
		r.log.Info().Str("dir", outputDir).Msg("created output directory")
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, &models.IOError{Op: "read input directory", Path: inputDir, Err: err}
	}

	var jobs []job
	for _, entry := range entries {
		if entry.IsDir() || !imageio.IsImageFile(entry.Name()) {
			continue
		}
		jobs = append(jobs, job{
			input:  filepath.Join(inputDir, entry.Name()),
			output: filepath.Join(outputDir, entry.Name()),
		})
	}

	r.log.Info().Int("images", len(jobs)).Str("dir", inputDir).Msg("found images")
	return jobs, nil
}
