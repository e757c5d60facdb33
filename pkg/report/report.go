// Package report places and persists the JSON batch report of a run.
package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/code4indo/DE-GAN/internal/models"
)

// Environment collects advisory runtime metadata for the report.
func Environment(backend string, accelerators []string) models.EnvironmentInfo {
	return models.EnvironmentInfo{
		GoVersion:           runtime.Version(),
		OS:                  runtime.GOOS,
		Arch:                runtime.GOARCH,
		NumCPU:              runtime.NumCPU(),
		PredictorBackend:    backend,
		AcceleratorDetected: len(accelerators) > 0,
		AcceleratorDetails:  accelerators,
	}
}

// Path decides where the report for outputPath goes. A directory output gets
// a timestamped report inside it; a file output gets "<name>_report.json"
// next to it, creating the parent directory if needed.
func Path(outputPath string, now time.Time) (string, error) {
	if info, err := os.Stat(outputPath); err == nil && info.IsDir() {
		return filepath.Join(outputPath, "report-"+now.Format("20060102-150405")+".json"), nil
	}

	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &models.IOError{Op: "create report directory", Path: dir, Err: err}
	}
	return strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + "_report.json", nil
}

// Write stores r at path as indented JSON.
func Write(path string, r *models.BatchReport) error {
	data, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return &models.IOError{Op: "encode report", Path: path, Err: err}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return &models.IOError{Op: "write report", Path: path, Err: err}
	}
	return nil
}
