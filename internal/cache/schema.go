package cache

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    path                 TEXT PRIMARY KEY,
    mtime_ns             INTEGER NOT NULL,
    size_bytes           INTEGER NOT NULL,
    agent                TEXT NOT NULL,
    session_id           TEXT NOT NULL,
    messages             INTEGER NOT NULL,
    user_messages        INTEGER NOT NULL,
    assistant_messages   INTEGER NOT NULL,
    total_cost           REAL NOT NULL,
    first_at             TEXT,
    last_at              TEXT,
    first_prompt         TEXT,
    deleted              INTEGER NOT NULL DEFAULT 0,
    cached_at            TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_agent ON sessions(agent);
`
