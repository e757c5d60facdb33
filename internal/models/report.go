package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

// JobStatus is the lifecycle state of a single image job.
type JobStatus string

const (
	StatusPending JobStatus = "Pending"
	StatusSuccess JobStatus = "Success"
	StatusFailed  JobStatus = "Failed"
)

// Overall batch outcomes.
const (
	OverallCompleted           = "Completed"
	OverallCompletedWithErrors = "Completed with errors"
)

// ImageJobReport records the outcome of processing one image. It starts in
// StatusPending and is finalized exactly once, by Succeed or Fail.
type ImageJobReport struct {
	// InputFile is the path of the degraded source image.
	InputFile string `json:"input_file"`

	// OutputFile is where the restored image is (or would have been) written.
	OutputFile string `json:"output_file"`

	Status JobStatus `json:"status"`

	// ProcessingTimeSeconds is -1 until the job is finalized, then the wall
	// clock time of the job rounded to two decimals.
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`

	// ErrorMessage is nil unless the job failed.
	ErrorMessage *string `json:"error_message"`

	// OriginalDimensions and PaddedDimensions are formatted as "WxH" and stay
	// nil when the job failed before they were known.
	OriginalDimensions *string `json:"original_dimensions"`
	PaddedDimensions   *string `json:"padded_dimensions"`

	TileCount           int      `json:"tile_count,omitempty"`
	MeanTileSeconds     float64  `json:"mean_tile_seconds,omitempty"`
	OutputMeanIntensity *float64 `json:"output_mean_intensity,omitempty"`
}

// NewImageJobReport creates a pending report for one job.
func NewImageJobReport(inputFile, outputFile string) *ImageJobReport {
	return &ImageJobReport{
		InputFile:             inputFile,
		OutputFile:            outputFile,
		Status:                StatusPending,
		ProcessingTimeSeconds: -1,
	}
}

// SetOriginalDimensions records the size of the decoded input.
func (r *ImageJobReport) SetOriginalDimensions(height, width int) {
	s := formatDimensions(height, width)
	r.OriginalDimensions = &s
}

// SetPaddedDimensions records the size of the tile-aligned canvas.
func (r *ImageJobReport) SetPaddedDimensions(height, width int) {
	s := formatDimensions(height, width)
	r.PaddedDimensions = &s
}

// SetTileLatencies stores the tile count and mean per-tile prediction time.
func (r *ImageJobReport) SetTileLatencies(latencies []time.Duration) {
	r.TileCount = len(latencies)
	if len(latencies) == 0 {
		return
	}
	secs := make([]float64, len(latencies))
	for i, d := range latencies {
		secs[i] = d.Seconds()
	}
	r.MeanTileSeconds = roundTo(stat.Mean(secs, nil), 4)
}

// SetOutputMeanIntensity stores the mean normalized intensity of the result.
func (r *ImageJobReport) SetOutputMeanIntensity(mean float64) {
	m := roundTo(mean, 4)
	r.OutputMeanIntensity = &m
}

// Finalized reports whether the job has left the pending state.
func (r *ImageJobReport) Finalized() bool {
	return r.Status != StatusPending
}

// Succeed marks the job successful. It returns false and changes nothing if
// the report was already finalized.
func (r *ImageJobReport) Succeed(elapsed time.Duration) bool {
	if r.Finalized() {
		return false
	}
	r.Status = StatusSuccess
	r.ProcessingTimeSeconds = roundSeconds(elapsed)
	return true
}

// Fail marks the job failed with err as its message. It returns false and
// changes nothing if the report was already finalized.
func (r *ImageJobReport) Fail(err error, elapsed time.Duration) bool {
	if r.Finalized() {
		return false
	}
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	r.Status = StatusFailed
	r.ErrorMessage = &msg
	r.ProcessingTimeSeconds = roundSeconds(elapsed)
	return true
}

// ExecutionSummary holds the run configuration and aggregate counts.
type ExecutionSummary struct {
	Task       string `json:"task"`
	InputPath  string `json:"input_path"`
	OutputPath string `json:"output_path"`

	TotalImagesProcessed       int     `json:"total_images_processed"`
	TotalSuccess               int     `json:"total_success"`
	TotalFailed                int     `json:"total_failed"`
	TotalProcessingTimeSeconds float64 `json:"total_processing_time_seconds"`
	MeanImageSeconds           float64 `json:"mean_image_seconds"`
	StddevImageSeconds         float64 `json:"stddev_image_seconds"`
	OverallStatus              string  `json:"overall_status"`
}

// EnvironmentInfo is advisory runtime metadata. Missing fields are not errors.
type EnvironmentInfo struct {
	GoVersion           string   `json:"go_version"`
	OS                  string   `json:"os"`
	Arch                string   `json:"arch"`
	NumCPU              int      `json:"num_cpu"`
	PredictorBackend    string   `json:"predictor_backend"`
	AcceleratorDetected bool     `json:"gpu_detected"`
	AcceleratorDetails  []string `json:"gpu_details,omitempty"`
}

// BatchReport aggregates every job of one run.
type BatchReport struct {
	RunID             string            `json:"run_id"`
	ReportGeneratedAt string            `json:"report_generated_at"`
	ExecutionSummary  ExecutionSummary  `json:"execution_summary"`
	EnvironmentInfo   EnvironmentInfo   `json:"environment_info"`
	ImageDetails      []*ImageJobReport `json:"image_details"`
}

// NewBatchReport starts a report for a run of task over inputPath.
func NewBatchReport(task Task, inputPath, outputPath string, env EnvironmentInfo, now time.Time) *BatchReport {
	return &BatchReport{
		RunID:             uuid.NewString(),
		ReportGeneratedAt: now.Format(time.RFC3339),
		ExecutionSummary: ExecutionSummary{
			Task:       string(task),
			InputPath:  inputPath,
			OutputPath: outputPath,
		},
		EnvironmentInfo: env,
		ImageDetails:    make([]*ImageJobReport, 0),
	}
}

// Add appends a finished job report.
func (b *BatchReport) Add(r *ImageJobReport) {
	b.ImageDetails = append(b.ImageDetails, r)
}

// Finalize computes the summary counts once every job has completed.
func (b *BatchReport) Finalize(elapsed time.Duration) {
	s := &b.ExecutionSummary
	s.TotalImagesProcessed = len(b.ImageDetails)
	s.TotalSuccess, s.TotalFailed = 0, 0

	times := make([]float64, 0, len(b.ImageDetails))
	for _, r := range b.ImageDetails {
		switch r.Status {
		case StatusSuccess:
			s.TotalSuccess++
		case StatusFailed:
			s.TotalFailed++
		}
		if r.ProcessingTimeSeconds >= 0 {
			times = append(times, r.ProcessingTimeSeconds)
		}
	}

	s.TotalProcessingTimeSeconds = roundSeconds(elapsed)
	s.MeanImageSeconds, s.StddevImageSeconds = 0, 0
	if len(times) > 0 {
		mean, std := stat.MeanStdDev(times, nil)
		s.MeanImageSeconds = roundTo(mean, 2)
		if !math.IsNaN(std) {
			s.StddevImageSeconds = roundTo(std, 2)
		}
	}

	if s.TotalFailed == 0 {
		s.OverallStatus = OverallCompleted
	} else {
		s.OverallStatus = OverallCompletedWithErrors
	}
}

func formatDimensions(height, width int) string {
	return fmt.Sprintf("%dx%d", width, height)
}

func roundSeconds(d time.Duration) float64 {
	return roundTo(d.Seconds(), 2)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
