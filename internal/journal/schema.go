package journal

const schemaSQL = `
CREATE TABLE IF NOT EXISTS requests (
  id TEXT PRIMARY KEY,
  method TEXT NOT NULL,
  path TEXT NOT NULL,
  status INTEGER NOT NULL,
  bytes INTEGER NOT NULL,
  duration_ns INTEGER NOT NULL,
  remote_addr TEXT,
  user_agent TEXT,
  created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_requests_path_created ON requests(path, created_at);

CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status)
`
