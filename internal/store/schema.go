package store

// Schema v1 - history tables
const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- One row per successful stats check
CREATE TABLE IF NOT EXISTS stat_snapshots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  script_id TEXT NOT NULL,
  video_id TEXT NOT NULL,
  views INTEGER NOT NULL DEFAULT 0,
  likes INTEGER NOT NULL DEFAULT 0,
  comments INTEGER NOT NULL DEFAULT 0,
  growth_rate REAL NOT NULL DEFAULT 0,
  checked_at DATETIME NOT NULL
);

-- One row per upload try, failed or not
CREATE TABLE IF NOT EXISTS upload_attempts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  script_id TEXT NOT NULL,
  video_path TEXT NOT NULL,
  thumbnail TEXT,
  video_id TEXT,
  started_at DATETIME NOT NULL,
  completed_at DATETIME,
  error TEXT
);
`

// Schema v2 - lookup indexes
const schemaV2 = `
CREATE INDEX IF NOT EXISTS idx_snapshots_video_checked ON stat_snapshots(video_id, checked_at);
CREATE INDEX IF NOT EXISTS idx_uploads_script ON upload_attempts(script_id);
`
