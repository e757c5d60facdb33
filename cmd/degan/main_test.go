package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/code4indo/DE-GAN/pkg/config"
)

// writeConfig stores a config using the identity backend with reports enabled
func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Predictor.Backend = config.BackendIdentity
	cfg.Processing.TileSize = 16
	cfg.Output.WriteReport = true
	path := filepath.Join(dir, "degan.yaml")
	if err := config.SaveConfig(cfg, path); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeImage(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 12, 9))); err != nil {
		t.Fatal(err)
	}
}

func TestRunCommand(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := writeConfig(t, tmpDir)
	in := filepath.Join(tmpDir, "in")
	out := filepath.Join(tmpDir, "out")
	if err := os.MkdirAll(in, 0755); err != nil {
		t.Fatal(err)
	}
	writeImage(t, filepath.Join(in, "one.png"))
	writeImage(t, filepath.Join(in, "two.png"))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", cfgPath, "run", "binarize", in, out}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "success 2, failed 0") {
		t.Errorf("summary missing from output:\n%s", stdout.String())
	}

	reports, _ := filepath.Glob(filepath.Join(out, "report-*.json"))
	if len(reports) != 1 {
		t.Errorf("expected one report in %s, found %v", out, reports)
	}
	for _, name := range []string{"one.png", "two.png"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}
}

func TestRunCommandSetupErrors(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := writeConfig(t, tmpDir)
	img := filepath.Join(tmpDir, "a.png")
	writeImage(t, img)

	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"wrong argument count", []string{"run", "binarize", img}},
		{"unknown task", []string{"-config", cfgPath, "run", "sharpen", img, "out.png"}},
		{"unknown backend", []string{"-config", cfgPath, "-backend", "torch", "run", "binarize", img, "out.png"}},
		{"missing input", []string{"-config", cfgPath, "run", "binarize", filepath.Join(tmpDir, "nope"), "out.png"}},
		{"unknown command", []string{"restore"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(context.Background(), tt.args, &stdout, &stderr); code != 1 {
				t.Errorf("expected exit 1, got %d", code)
			}
		})
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "degan.yaml")
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"config", "init", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr.String())
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if cfg.Processing.TileSize != config.DefaultTileSize {
		t.Errorf("expected default tile size, got %d", cfg.Processing.TileSize)
	}
}

func TestRunCommandUnreachableModelServer(t *testing.T) {
	tmpDir := t.TempDir()
	img := filepath.Join(tmpDir, "a.png")
	writeImage(t, img)
	out := filepath.Join(tmpDir, "out.png")

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := down.URL
	down.Close()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-backend", "http", "-endpoint", endpoint, "run", "binarize", img, out}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "not reachable") {
		t.Errorf("expected a reachability error, got:\n%s", stderr.String())
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("no image may be processed when the model cannot be loaded")
	}
	if reports, _ := filepath.Glob(filepath.Join(tmpDir, "*_report.json")); len(reports) != 0 {
		t.Errorf("no report may be written, found %v", reports)
	}
}
