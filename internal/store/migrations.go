package store

// The PRIMARY KEY on records.id is the deduplication guarantee: the runner's
// exists-then-insert is only a cheap pre-filter, the constraint is what makes
// ingestion at-most-once under concurrent runs.
const schema = `
CREATE TABLE IF NOT EXISTS records (
    id             TEXT PRIMARY KEY,
    query          TEXT NOT NULL,
    location       TEXT NOT NULL,
    is_reply       BOOLEAN NOT NULL DEFAULT 0,
    parent_id      TEXT NOT NULL DEFAULT '',
    title          TEXT NOT NULL DEFAULT '',
    text           TEXT NOT NULL DEFAULT '',
    score          INTEGER NOT NULL DEFAULT 0,
    author         TEXT NOT NULL DEFAULT '[deleted]',
    url            TEXT NOT NULL DEFAULT '',
    reply_count    INTEGER NOT NULL DEFAULT 0,
    source_channel TEXT NOT NULL DEFAULT '',
    created_at     DATETIME NOT NULL,
    scraped_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_location ON records(location);
CREATE INDEX IF NOT EXISTS idx_records_channel ON records(source_channel);
CREATE INDEX IF NOT EXISTS idx_records_is_reply ON records(is_reply);
CREATE INDEX IF NOT EXISTS idx_records_scraped_at ON records(scraped_at);
`
