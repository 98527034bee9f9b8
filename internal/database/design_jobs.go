package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mpnn-design-labs/design-node/internal/types"
)

// InitDesignJobsTable creates the design jobs index table
func (sqlm *SQLiteManager) InitDesignJobsTable() error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS design_jobs (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		status TEXT CHECK(status IN ('RUNNING', 'COMPLETED', 'ERRORED')) NOT NULL DEFAULT 'RUNNING',
		input_cid TEXT NOT NULL,
		input_sha256 TEXT NOT NULL,
		runtime_ms INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_design_jobs_status ON design_jobs(status);
	CREATE INDEX IF NOT EXISTS idx_design_jobs_created_at ON design_jobs(created_at);
	`

	if _, err := sqlm.db.Exec(createTableSQL); err != nil {
		sqlm.logger.Error(fmt.Sprintf("Failed to create design_jobs table: %s", err.Error()), "database")
		return err
	}
	return nil
}

// CreateJob inserts a new job in RUNNING state
func (sqlm *SQLiteManager) CreateJob(job types.DesignJob) error {
	_, err := ExecWithLogging(sqlm.db, `
		INSERT INTO design_jobs (id, filename, status, input_cid, input_sha256)
		VALUES (?, ?, ?, ?, ?)`,
		sqlm.logger, "database",
		job.ID, job.Filename, types.JobStatusRunning, job.InputCID, job.InputSHA)
	return err
}

// CompleteJob marks a job COMPLETED and records its model runtime
func (sqlm *SQLiteManager) CompleteJob(id string, runtimeMS int64) error {
	return sqlm.finishJob(id, types.JobStatusCompleted, runtimeMS, "")
}

// FailJob marks a job ERRORED with its failure message
func (sqlm *SQLiteManager) FailJob(id, errMsg string) error {
	return sqlm.finishJob(id, types.JobStatusErrored, 0, errMsg)
}

func (sqlm *SQLiteManager) finishJob(id, status string, runtimeMS int64, errMsg string) error {
	affected, err := ExecWithAffectedRowsCheck(sqlm.db, `
		UPDATE design_jobs
		SET status = ?, runtime_ms = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		sqlm.logger, "database",
		status, runtimeMS, nullableString(errMsg), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("job %s not found", id)
		}
		return err
	}
	_ = affected
	return nil
}

// GetJob returns one job by id, or nil when the id is unknown
func (sqlm *SQLiteManager) GetJob(id string) (*types.DesignJob, error) {
	return QueryRowSingle(sqlm.db, `
		SELECT id, filename, status, input_cid, input_sha256, runtime_ms, error_message, created_at, updated_at
		FROM design_jobs WHERE id = ?`,
		scanDesignJobRow, sqlm.logger, "database", id)
}

// ListJobs returns jobs newest first, capped at limit (0 means no cap)
func (sqlm *SQLiteManager) ListJobs(limit int) ([]*types.DesignJob, error) {
	query := `
		SELECT id, filename, status, input_cid, input_sha256, runtime_ms, error_message, created_at, updated_at
		FROM design_jobs ORDER BY created_at DESC, id DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return QueryRows(sqlm.db, query, scanDesignJobRows, sqlm.logger, "database", args...)
}

// PruneJobs deletes finished jobs older than maxAge and returns their ids
// so the caller can remove the matching workspaces. Running jobs are never
// pruned.
func (sqlm *SQLiteManager) PruneJobs(maxAge time.Duration) ([]string, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format("2006-01-02 15:04:05")

	stale, err := QueryRows(sqlm.db, `
		SELECT id, filename, status, input_cid, input_sha256, runtime_ms, error_message, created_at, updated_at
		FROM design_jobs WHERE status != ? AND created_at < ?`,
		scanDesignJobRows, sqlm.logger, "database",
		types.JobStatusRunning, cutoff)
	if err != nil {
		return nil, err
	}
	if len(stale) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(stale))
	for _, job := range stale {
		if _, err := ExecWithLogging(sqlm.db,
			"DELETE FROM design_jobs WHERE id = ?",
			sqlm.logger, "database", job.ID); err != nil {
			return ids, err
		}
		ids = append(ids, job.ID)
	}
	return ids, nil
}

func scanDesignJobRow(row *sql.Row) (*types.DesignJob, error) {
	var job types.DesignJob
	var errMsg sql.NullString
	err := row.Scan(&job.ID, &job.Filename, &job.Status, &job.InputCID,
		&job.InputSHA, &job.RuntimeMS, &errMsg, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	job.Error = ScanNullableString(errMsg)
	return &job, nil
}

func scanDesignJobRows(rows *sql.Rows) (*types.DesignJob, error) {
	var job types.DesignJob
	var errMsg sql.NullString
	err := rows.Scan(&job.ID, &job.Filename, &job.Status, &job.InputCID,
		&job.InputSHA, &job.RuntimeMS, &errMsg, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	job.Error = ScanNullableString(errMsg)
	return &job, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
