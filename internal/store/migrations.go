package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Bindings map a (channel, label) pair to a plugin action.
		`CREATE TABLE IF NOT EXISTS bindings (
			id TEXT PRIMARY KEY,
			channel TEXT NOT NULL CHECK(channel IN ('gesture', 'expression', 'blink')),
			label TEXT NOT NULL,
			plugin_name TEXT NOT NULL,
			action_name TEXT NOT NULL,
			config TEXT NOT NULL DEFAULT '{}',
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(channel, label)
		)`,

		// History is append-only: one row per dispatched event.
		`CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME NOT NULL,
			channel TEXT NOT NULL,
			label TEXT NOT NULL,
			confidence REAL NOT NULL,
			frame_index INTEGER NOT NULL DEFAULT 0
		)`,

		// Results reported by the action executor.
		`CREATE TABLE IF NOT EXISTS action_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME NOT NULL,
			channel TEXT NOT NULL,
			label TEXT NOT NULL,
			plugin_name TEXT NOT NULL,
			action_name TEXT NOT NULL,
			status TEXT NOT NULL CHECK(status IN ('success', 'failure')),
			detail TEXT NOT NULL DEFAULT ''
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_history_channel_label ON history(channel, label)`,
		`CREATE INDEX IF NOT EXISTS idx_action_results_timestamp ON action_results(timestamp)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}
