package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mpnn-design-labs/design-node/internal/database"
	"github.com/mpnn-design-labs/design-node/internal/pipeline"
	"github.com/mpnn-design-labs/design-node/internal/utils"
)

// Janitor periodically prunes finished jobs past their retention window,
// removing both the index rows and the workspaces on disk. Running jobs
// are never touched.
type Janitor struct {
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	logger    *utils.LogsManager
	cm        *utils.ConfigManager
	dbManager *database.SQLiteManager
	jobsDir   string
	retention time.Duration
	interval  time.Duration
}

// NewJanitor creates a retention janitor. A zero or negative jobs_retention
// disables pruning entirely.
func NewJanitor(ctx context.Context, cm *utils.ConfigManager, logger *utils.LogsManager, dbManager *database.SQLiteManager, jobsDir string) *Janitor {
	janitorCtx, cancel := context.WithCancel(ctx)

	return &Janitor{
		ctx:       janitorCtx,
		cancel:    cancel,
		logger:    logger,
		cm:        cm,
		dbManager: dbManager,
		jobsDir:   jobsDir,
		retention: cm.GetConfigDuration("jobs_retention", 7*24*time.Hour),
		interval:  cm.GetConfigDuration("prune_interval", time.Hour),
	}
}

// Start launches the background pruning loop
func (j *Janitor) Start() {
	if j.retention <= 0 {
		j.logger.Info("Job retention disabled, janitor not started", "workers")
		return
	}

	j.logger.Info(fmt.Sprintf("Starting janitor (retention %s, interval %s)", j.retention, j.interval), "workers")

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				j.logger.Error(fmt.Sprintf("Janitor panic recovered: %v", r), "workers")
			}
		}()

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				j.pruneOnce()
			case <-j.ctx.Done():
				j.logger.Info("Janitor stopping (context done)", "workers")
				return
			}
		}
	}()
}

// pruneOnce deletes one batch of expired jobs and their workspaces
func (j *Janitor) pruneOnce() {
	ids, err := j.dbManager.PruneJobs(j.retention)
	if err != nil {
		j.logger.Error(fmt.Sprintf("Janitor prune failed: %v", err), "workers")
		return
	}
	if len(ids) == 0 {
		return
	}

	for _, id := range ids {
		ws, err := pipeline.OpenWorkspace(j.jobsDir, id)
		if err != nil {
			// index row without a workspace, nothing left to remove
			continue
		}
		ws.Cleanup()
	}

	j.logger.Info(fmt.Sprintf("Janitor pruned %d job(s) older than %s", len(ids), j.retention), "workers")
}

// Stop gracefully stops the janitor
func (j *Janitor) Stop() {
	j.cancel()
	j.wg.Wait()
}
