package sqlite

// migrations returns the versioned schema for the SQLite backend.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS accounts (
				id TEXT PRIMARY KEY,
				handle TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'unknown',
				proxy_id TEXT,
				last_checked_at DATETIME,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			CREATE TABLE IF NOT EXISTS proxies (
				id TEXT PRIMARY KEY,
				address TEXT NOT NULL,
				protocol TEXT NOT NULL DEFAULT '',
				username TEXT NOT NULL DEFAULT '',
				password TEXT NOT NULL DEFAULT ''
			);

			CREATE TABLE IF NOT EXISTS automation_tasks (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				action_type TEXT NOT NULL,
				enabled INTEGER NOT NULL DEFAULT 0,
				account_ids TEXT NOT NULL DEFAULT '[]',
				target_type TEXT NOT NULL,
				target_value TEXT NOT NULL DEFAULT '',
				interval_minutes INTEGER NOT NULL,
				daily_limit INTEGER NOT NULL DEFAULT 0,
				today_count INTEGER NOT NULL DEFAULT 0,
				last_run_at DATETIME,
				next_run_at DATETIME,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_tasks_due
				ON automation_tasks(enabled, next_run_at);

			CREATE TABLE IF NOT EXISTS workflows (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				enabled INTEGER NOT NULL DEFAULT 0,
				trigger_type TEXT NOT NULL,
				trigger_config TEXT NOT NULL DEFAULT '{}',
				last_run_at DATETIME,
				next_run_at DATETIME,
				run_count INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_workflows_due
				ON workflows(enabled, trigger_type, next_run_at);

			CREATE TABLE IF NOT EXISTS workflow_steps (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				step_order INTEGER NOT NULL,
				step_type TEXT NOT NULL,
				config TEXT NOT NULL DEFAULT '{}',
				on_success TEXT,
				on_failure TEXT
			);

			CREATE INDEX IF NOT EXISTS idx_steps_workflow
				ON workflow_steps(workflow_id, step_order);

			CREATE TABLE IF NOT EXISTS task_run_logs (
				id TEXT PRIMARY KEY,
				task_id TEXT NOT NULL,
				account_id TEXT NOT NULL,
				action_type TEXT NOT NULL,
				target TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL,
				started_at DATETIME NOT NULL,
				completed_at DATETIME,
				error TEXT NOT NULL DEFAULT ''
			);

			CREATE INDEX IF NOT EXISTS idx_task_run_logs_task
				ON task_run_logs(task_id, started_at);

			CREATE TABLE IF NOT EXISTS workflow_run_logs (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL,
				run_id TEXT NOT NULL,
				step_id TEXT,
				status TEXT NOT NULL,
				started_at DATETIME NOT NULL,
				completed_at DATETIME,
				error TEXT NOT NULL DEFAULT '',
				result TEXT
			);

			CREATE INDEX IF NOT EXISTS idx_workflow_run_logs_workflow
				ON workflow_run_logs(workflow_id, started_at);

			CREATE INDEX IF NOT EXISTS idx_workflow_run_logs_run
				ON workflow_run_logs(run_id);

			CREATE TABLE IF NOT EXISTS alerts (
				id TEXT PRIMARY KEY,
				account_id TEXT NOT NULL,
				kind TEXT NOT NULL,
				severity TEXT NOT NULL,
				message TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_alerts_created
				ON alerts(created_at);
		`,
	}
}
