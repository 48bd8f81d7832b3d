package cfr

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/coolbeans/shamroq/pkg/types"
)

// Extractor turns a list of XML volumes into one regulation table.
type Extractor struct {
	logger  *zap.Logger
	workers int
}

// NewExtractor creates an Extractor. workers bounds how many volumes are
// parsed at once; values below 1 mean sequential parsing.
func NewExtractor(logger *zap.Logger, workers int) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	return &Extractor{logger: logger, workers: workers}
}

// VolumeResult is the outcome of parsing one volume.
type VolumeResult struct {
	Path    string
	Records int
	Err     error
}

// ExtractVolumes parses every volume and concatenates the records in
// input-list order. A volume that cannot be read or parsed is logged and
// contributes no rows; only context cancellation aborts the run.
func (extractor *Extractor) ExtractVolumes(ctx context.Context, paths []string) (types.RegulationTable, []VolumeResult, error) {
	perVolume := make([][]types.RegulationRecord, len(paths))
	results := make([]VolumeResult, len(paths))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(extractor.workers)

	for index, path := range paths {
		index, path := index, path
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			records, err := ParseFile(path)
			results[index] = VolumeResult{Path: path, Records: len(records), Err: err}
			if err != nil {
				extractor.logger.Error("Error occurred while parsing XML",
					zap.String("volume", path), zap.Error(err))
				return nil
			}

			extractor.logger.Info("Parsed volume",
				zap.String("volume", path), zap.Int("sections", len(records)))
			perVolume[index] = records
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, results, err
	}

	total := 0
	for _, records := range perVolume {
		total += len(records)
	}

	table := make(types.RegulationTable, 0, total)
	for _, records := range perVolume {
		table = append(table, records...)
	}

	return table, results, nil
}
