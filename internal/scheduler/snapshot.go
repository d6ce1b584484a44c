package scheduler

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/modules/portfolio"
)

// SnapshotJob records the current total value of every portfolio once a day
// so value history survives later trades and price corrections.
type SnapshotJob struct {
	log     zerolog.Logger
	service *portfolio.Service
}

// NewSnapshotJob creates a new snapshot job
func NewSnapshotJob(log zerolog.Logger, service *portfolio.Service) *SnapshotJob {
	return &SnapshotJob{
		log:     log.With().Str("job", "portfolio_snapshots").Logger(),
		service: service,
	}
}

// Name returns the job name
func (j *SnapshotJob) Name() string {
	return "portfolio_snapshots"
}

// Run executes the snapshot job
func (j *SnapshotJob) Run() error {
	start := time.Now()
	if err := j.service.WriteSnapshots(); err != nil {
		return err
	}
	j.log.Info().
		Dur("duration", time.Since(start)).
		Msg("Portfolio snapshots written")
	return nil
}
