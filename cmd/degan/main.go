package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/code4indo/DE-GAN/internal/logger"
	"github.com/code4indo/DE-GAN/internal/models"
	"github.com/code4indo/DE-GAN/pkg/config"
	"github.com/code4indo/DE-GAN/pkg/predictor"
	"github.com/code4indo/DE-GAN/pkg/report"
	"github.com/code4indo/DE-GAN/pkg/restoration"
	"github.com/code4indo/DE-GAN/pkg/server"
)

const usage = `Usage:
  degan [flags] run <task> <input_path> <output_path>
  degan [flags] serve <task>
  degan config init <path>

Tasks: binarize, deblur, unwatermark

Flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		// After the first signal the default handler returns, so a second
		// interrupt terminates immediately.
		<-ctx.Done()
		stop()
	}()
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// options holds the command line overrides applied on top of the config file.
type options struct {
	configPath string
	backend    string
	endpoint   string
	workers    int
	logLevel   string
	jsonLogs   bool
	addr       string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("degan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	var opts options
	fs.StringVar(&opts.configPath, "config", "", "Path to a YAML configuration file")
	fs.StringVar(&opts.backend, "backend", "", "Predictor backend: http, onnx or identity (overrides config)")
	fs.StringVar(&opts.endpoint, "endpoint", "", "Model server URL for the http backend (overrides config)")
	fs.IntVar(&opts.workers, "workers", 0, "Tiles predicted concurrently per image (overrides config)")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")
	fs.BoolVar(&opts.jsonLogs, "json-logs", false, "Emit JSON log lines instead of console output")
	fs.StringVar(&opts.addr, "addr", "", "Listen address for serve (overrides config)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 1
	}

	switch rest[0] {
	case "config":
		if len(rest) != 3 || rest[1] != "init" {
			fs.Usage()
			return 1
		}
		if err := config.CreateDefaultConfigFile(rest[2]); err != nil {
			fmt.Fprintf(stderr, "Failed to write config: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "Default configuration written to %s\n", rest[2])
		return 0

	case "run":
		if len(rest) != 4 {
			fs.Usage()
			return 1
		}
		return runBatch(ctx, opts, rest[1], rest[2], rest[3], stdout, stderr)

	case "serve":
		if len(rest) != 2 {
			fs.Usage()
			return 1
		}
		return serve(opts, rest[1], stderr)

	default:
		fmt.Fprintf(stderr, "Unknown command %q\n\n", rest[0])
		fs.Usage()
		return 1
	}
}

// setup loads the configuration, applies overrides and builds the logger,
// the predictor and the runner for taskName.
func setup(opts options, taskName string, stderr io.Writer) (*config.Config, *restoration.Runner, predictor.Predictor, predictor.Info, zerolog.Logger, error) {
	nop := zerolog.Nop()

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, nil, nil, predictor.Info{}, nop, err
	}
	if opts.backend != "" {
		cfg.Predictor.Backend = opts.backend
	}
	if opts.endpoint != "" {
		cfg.Predictor.Endpoint = opts.endpoint
	}
	if opts.workers > 0 {
		cfg.Processing.TileWorkers = opts.workers
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.jsonLogs {
		cfg.Logging.JSON = true
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, predictor.Info{}, nop, err
	}

	log, err := logger.New(stderr, cfg.Logging.Level, cfg.Logging.JSON)
	if err != nil {
		return nil, nil, nil, predictor.Info{}, nop, err
	}

	task, err := models.ParseTask(taskName)
	if err != nil {
		return nil, nil, nil, predictor.Info{}, log, err
	}

	p, info, err := predictor.Load(cfg, task, log)
	if err != nil {
		return nil, nil, nil, predictor.Info{}, log, err
	}

	runner := restoration.NewRunner(restoration.ParamsFromConfig(cfg, task), p, log)
	return cfg, runner, p, info, log, nil
}

func runBatch(ctx context.Context, opts options, taskName, inputPath, outputPath string, stdout, stderr io.Writer) int {
	cfg, runner, p, info, log, err := setup(opts, taskName, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer predictor.Close(p)

	log.Info().
		Str("task", taskName).
		Str("backend", info.Backend).
		Int("tile_size", cfg.Processing.TileSize).
		Int("tile_workers", cfg.Processing.TileWorkers).
		Msg("starting restoration")

	batch, err := runner.RunBatch(ctx, inputPath, outputPath, report.Environment(info.Backend, info.Accelerators))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	printSummary(stdout, batch)

	if cfg.Output.WriteReport {
		path, err := report.Path(outputPath, time.Now())
		if err == nil {
			err = report.Write(path, batch)
		}
		if err != nil {
			fmt.Fprintf(stderr, "Failed to save report: %v\n", err)
		} else {
			fmt.Fprintf(stdout, "Report saved to: %s\n", path)
		}
	}
	return 0
}

func printSummary(w io.Writer, batch *models.BatchReport) {
	s := batch.ExecutionSummary
	fmt.Fprintln(w, "================================")
	fmt.Fprintf(w, "Task: %s\n", s.Task)
	fmt.Fprintf(w, "Status: %s\n", s.OverallStatus)
	fmt.Fprintf(w, "Images processed: %d (success %d, failed %d)\n", s.TotalImagesProcessed, s.TotalSuccess, s.TotalFailed)
	fmt.Fprintf(w, "Total time: %.2f seconds\n", s.TotalProcessingTimeSeconds)
	for _, r := range batch.ImageDetails {
		if r.Status == models.StatusFailed && r.ErrorMessage != nil {
			fmt.Fprintf(w, "- %s: %s\n", r.InputFile, *r.ErrorMessage)
		}
	}
	fmt.Fprintln(w, "================================")
}

func serve(opts options, taskName string, stderr io.Writer) int {
	cfg, runner, p, info, log, err := setup(opts, taskName, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer predictor.Close(p)

	if err := server.New(runner, info.Backend, log).Run(cfg.Server.Addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		return 1
	}
	return 0
}
