package db

// SQLite schema of the new archive store

var sqliteMigrations = []Migration{
	{
		Version: 1,
		Name:    "create_archives_table",
		Up: `
			CREATE TABLE IF NOT EXISTS archives (
				id INTEGER PRIMARY KEY,
				slug TEXT NOT NULL,
				title TEXT NOT NULL,
				description TEXT,
				path TEXT NOT NULL UNIQUE,
				hash TEXT NOT NULL,
				pages INTEGER NOT NULL DEFAULT 0,
				size INTEGER NOT NULL DEFAULT 0,
				thumbnail INTEGER NOT NULL DEFAULT 1,
				language TEXT,
				released_at TEXT,
				has_metadata INTEGER NOT NULL DEFAULT 0,
				protected INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
				deleted_at TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_archives_hash ON archives(hash);
			CREATE INDEX IF NOT EXISTS idx_archives_slug ON archives(slug);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_archives_slug;
			DROP INDEX IF EXISTS idx_archives_hash;
			DROP TABLE IF EXISTS archives;
		`,
	},
	{
		Version: 2,
		Name:    "create_archive_metadata_tables",
		Up: `
			CREATE TABLE IF NOT EXISTS archive_names (
				archive_id INTEGER NOT NULL REFERENCES archives(id) ON DELETE CASCADE,
				kind TEXT NOT NULL CHECK (kind IN ('artist', 'circle', 'parody')),
				position INTEGER NOT NULL,
				name TEXT NOT NULL,
				PRIMARY KEY (archive_id, kind, position)
			);
			CREATE TABLE IF NOT EXISTS archive_tags (
				archive_id INTEGER NOT NULL REFERENCES archives(id) ON DELETE CASCADE,
				position INTEGER NOT NULL,
				name TEXT NOT NULL,
				category TEXT NOT NULL CHECK (category IN ('male', 'female', 'misc')),
				PRIMARY KEY (archive_id, position)
			);
			CREATE TABLE IF NOT EXISTS archive_sources (
				archive_id INTEGER NOT NULL REFERENCES archives(id) ON DELETE CASCADE,
				position INTEGER NOT NULL,
				name TEXT NOT NULL,
				url TEXT NOT NULL,
				PRIMARY KEY (archive_id, position)
			);
			CREATE INDEX IF NOT EXISTS idx_archive_tags_name ON archive_tags(name);
			CREATE INDEX IF NOT EXISTS idx_archive_names_name ON archive_names(kind, name);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_archive_names_name;
			DROP INDEX IF EXISTS idx_archive_tags_name;
			DROP TABLE IF EXISTS archive_sources;
			DROP TABLE IF EXISTS archive_tags;
			DROP TABLE IF EXISTS archive_names;
		`,
	},
}
