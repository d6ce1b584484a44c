package scheduler

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/database"
)

// MaintenanceJob compacts the database WAL and refreshes query planner
// statistics.
type MaintenanceJob struct {
	log zerolog.Logger
	db  *database.DB
}

// NewMaintenanceJob creates a new maintenance job
func NewMaintenanceJob(log zerolog.Logger, db *database.DB) *MaintenanceJob {
	return &MaintenanceJob{
		log: log.With().Str("job", "db_maintenance").Logger(),
		db:  db,
	}
}

// Name returns the job name
func (j *MaintenanceJob) Name() string {
	return "db_maintenance"
}

// Run executes the maintenance job
func (j *MaintenanceJob) Run() error {
	start := time.Now()
	if err := j.db.Maintain(); err != nil {
		return err
	}
	j.log.Info().
		Dur("duration", time.Since(start)).
		Msg("Database maintenance complete")
	return nil
}
