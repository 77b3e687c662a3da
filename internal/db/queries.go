package db

// priorityRank orders the textual priority column for claiming.
const priorityRank = `CASE priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END`

const jobColumns = `id, title, description, priority, category, estimated_time, due_date,
	status, attempts, max_attempts, last_error,
	created_at, updated_at, next_attempt_at, claimed_at, completed_at`

const (
	insertJob = `
		INSERT INTO print_jobs (` + jobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	getJobByID = `
		SELECT ` + jobColumns + `
		FROM print_jobs WHERE id = ?`

	selectNextEligible = `
		SELECT ` + jobColumns + `
		FROM print_jobs
		WHERE status = 'pending' AND attempts < max_attempts AND next_attempt_at <= ?
		ORDER BY ` + priorityRank + ` DESC, created_at ASC, id ASC
		LIMIT 1`

	claimJob = `
		UPDATE print_jobs
		SET status = 'in_progress', claimed_at = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'`

	markJobCompleted = `
		UPDATE print_jobs
		SET status = 'completed', completed_at = ?, updated_at = ?
		WHERE id = ? AND status = 'in_progress'`

	markJobFailed = `
		UPDATE print_jobs
		SET status = 'failed', attempts = ?, last_error = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND status = 'in_progress'`

	requeueJob = `
		UPDATE print_jobs
		SET status = 'pending', attempts = ?, last_error = ?, next_attempt_at = ?,
		    claimed_at = NULL, updated_at = ?
		WHERE id = ? AND status = 'in_progress'`

	listJobsByStatus = `
		SELECT ` + jobColumns + `
		FROM print_jobs WHERE status = ?
		ORDER BY ` + priorityRank + ` DESC, created_at ASC, id ASC
		LIMIT ? OFFSET ?`

	listAllJobs = `
		SELECT ` + jobColumns + `
		FROM print_jobs
		ORDER BY created_at DESC, id ASC
		LIMIT ? OFFSET ?`

	countByStatus = `
		SELECT status, COUNT(*) FROM print_jobs GROUP BY status`

	countCreatedSince = `
		SELECT COUNT(*) FROM print_jobs WHERE created_at > ?`

	resetInProgress = `
		UPDATE print_jobs
		SET status = 'pending', claimed_at = NULL, updated_at = ?
		WHERE status = 'in_progress'`

	reclaimStale = `
		UPDATE print_jobs
		SET status = 'pending', claimed_at = NULL, updated_at = ?
		WHERE status = 'in_progress' AND claimed_at IS NOT NULL AND claimed_at < ?`

	deleteTerminalBefore = `
		DELETE FROM print_jobs
		WHERE status IN ('completed', 'failed') AND created_at < ?`
)
