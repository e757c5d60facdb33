package restoration

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/code4indo/DE-GAN/internal/models"
	"github.com/code4indo/DE-GAN/pkg/tiling"
)

// predictTiles runs the predictor over tiles and returns the predictions in
// the same order, together with the latency of each call. The first failing
// tile aborts the job.
func (r *Runner) predictTiles(ctx context.Context, tiles []tiling.Tile, log zerolog.Logger) ([]tiling.Tile, []time.Duration, error) {
	if r.params.TileWorkers < 2 || len(tiles) < 2 {
		return r.predictSequential(ctx, tiles, log)
	}
	return r.predictParallel(ctx, tiles, log)
}

func (r *Runner) predictSequential(ctx context.Context, tiles []tiling.Tile, log zerolog.Logger) ([]tiling.Tile, []time.Duration, error) {
	predicted := make([]tiling.Tile, 0, len(tiles))
	latencies := make([]time.Duration, 0, len(tiles))

	for _, tile := range tiles {
		if err := ctx.Err(); err != nil {
			return nil, nil, &models.PredictionError{Index: tile.Index, Err: err}
		}

		start := time.Now()
		out, err := r.adapter.Predict(ctx, tile)
		if err != nil {
			return nil, nil, err
		}
		latencies = append(latencies, time.Since(start))
		predicted = append(predicted, out)

		log.Debug().Int("tile", tile.Index).Int("of", len(tiles)).Msg("predicted tile")
	}
	return predicted, latencies, nil
}

// predictParallel spreads tiles over a bounded set of workers. Every result
// lands in the slot of its sequence index, so the merge order is unaffected
// by completion order.
func (r *Runner) predictParallel(ctx context.Context, tiles []tiling.Tile, log zerolog.Logger) ([]tiling.Tile, []time.Duration, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	numWorkers := r.params.TileWorkers
	if numWorkers > len(tiles) {
		numWorkers = len(tiles)
	}

	predicted := make([]tiling.Tile, len(tiles))
	latencies := make([]time.Duration, len(tiles))
	errs := make([]error, len(tiles))

	indices := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				if err := ctx.Err(); err != nil {
					errs[i] = &models.PredictionError{Index: i, Err: err}
					continue
				}
				start := time.Now()
				predicted[i], errs[i] = r.adapter.Predict(ctx, tiles[i])
				latencies[i] = time.Since(start)
				if errs[i] != nil {
					cancel()
				}
			}
		}()
	}

	for i := range tiles {
		indices <- i
	}
	close(indices)
	wg.Wait()

	if err := firstError(errs); err != nil {
		return nil, nil, err
	}

	log.Debug().Int("tiles", len(tiles)).Int("workers", numWorkers).Msg("predicted tiles in parallel")
	return predicted, latencies, nil
}

// firstError prefers a genuine failure over the cancellations it triggered
// in the other workers.
func firstError(errs []error) error {
	var canceled error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !errors.Is(err, context.Canceled) {
			return err
		}
		if canceled == nil {
			canceled = err
		}
	}
	return canceled
}
