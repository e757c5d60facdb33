package predictor

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/code4indo/DE-GAN/internal/models"
	"github.com/code4indo/DE-GAN/pkg/config"
)

// Info describes the loaded backend for the report's environment block.
type Info struct {
	Backend      string
	Accelerators []string
}

// Load builds the predictor configured for task. It is called once per run
// and the result is shared by every job.
func Load(cfg *config.Config, task models.Task, log zerolog.Logger) (Predictor, Info, error) {
	info := Info{Backend: cfg.Predictor.Backend}

	var (
		p    Predictor
		safe = cfg.Predictor.ConcurrentSafe
	)

	switch cfg.Predictor.Backend {
	case config.BackendIdentity:
		p = Identity{}

	case config.BackendHTTP:
		client, err := NewHTTPClient(cfg.Predictor.Endpoint, task, cfg.Predictor.Timeout, nil)
		if err != nil {
			return nil, info, err
		}
		// The client's timeout bounds the check.
		if err := client.Ping(context.Background()); err != nil {
			return nil, info, &models.ConfigurationError{Reason: "model server " + cfg.Predictor.Endpoint + " is not reachable", Err: err}
		}
		p = client
		log.Info().
			Str("endpoint", cfg.Predictor.Endpoint).
			Dur("timeout", cfg.Predictor.Timeout).
			Msg("using remote model server")

	case config.BackendONNX:
		path, err := cfg.ModelPath(task)
		if err != nil {
			return nil, info, err
		}
		onnx, err := NewONNX(path, cfg.Predictor.UseCUDA)
		if err != nil {
			return nil, info, err
		}
		p = onnx
		safe = false
		if cfg.Predictor.UseCUDA {
			info.Accelerators = []string{"CUDA (OpenCV DNN)"}
		}
		log.Info().Str("weights", path).Bool("cuda", cfg.Predictor.UseCUDA).Msg("loaded ONNX model")

	default:
		return nil, info, &models.ConfigurationError{Reason: fmt.Sprintf("unknown predictor backend %q", cfg.Predictor.Backend)}
	}

	if !safe {
		p = Serialize(p)
	}
	return p, info, nil
}

// Close releases p if it holds resources.
func Close(p Predictor) error {
	if c, ok := p.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
