package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id          TEXT PRIMARY KEY,
    email       TEXT NOT NULL UNIQUE,
    provider    TEXT NOT NULL DEFAULT 'gmail',
    display_name TEXT,
    created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS snoozes (
    account_id   TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    thread_id    TEXT NOT NULL,
    snooze_until DATETIME NOT NULL,
    created_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
    unsnoozed_at DATETIME,
    PRIMARY KEY (account_id, thread_id)
);

CREATE INDEX IF NOT EXISTS idx_snoozes_until ON snoozes(snooze_until);
`
