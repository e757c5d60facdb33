package restoration

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/code4indo/DE-GAN/pkg/imageio"
	"github.com/code4indo/DE-GAN/pkg/postprocess"
)

// saveIntermediaryResult writes one pipeline stage of the image named stem as
// a PNG under IntermediaryDir. A negative index stores a single image per
// stage, otherwise the stage is a directory of numbered images. Failures are
// logged and never affect the job.
func (r *Runner) saveIntermediaryResult(stem, stage string, data *mat.Dense, index int, log zerolog.Logger) {
	if !r.params.SaveIntermediaryResults {
		return
	}

	stageDir := filepath.Join(r.params.IntermediaryDir, stem)
	filename := filepath.Join(stageDir, stage+".png")
	if index >= 0 {
		stageDir = filepath.Join(stageDir, stage)
		filename = filepath.Join(stageDir, fmt.Sprintf("%03d.png", index))
	}

	if err := os.MkdirAll(stageDir, 0755); err != nil {
		log.Warn().Err(err).Str("stage", stage).Msg("failed to create intermediary directory")
		return
	}
	if err := imageio.Save(filename, postprocess.ToGray(data, true)); err != nil {
		log.Warn().Err(err).Str("stage", stage).Int("index", index).Msg("failed to save intermediary result")
	}
}
