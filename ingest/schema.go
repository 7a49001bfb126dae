package ingest

// Schema holds the intake DDL. The extraction pipeline's tables reference
// raw_messages, so this schema must be applied first on a fresh database.
const Schema = `
CREATE TABLE IF NOT EXISTS raw_messages (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    message_id           TEXT,
    subject              TEXT,
    sender               TEXT,
    recipients           TEXT,
    cc                   TEXT,
    bcc                  TEXT,
    sent_at              TEXT,
    sha256               TEXT UNIQUE,
    size_bytes           INTEGER,
    stored_path          TEXT,
    body_preview         TEXT,
    parser_version       TEXT,
    template_id          TEXT,
    detection_confidence REAL,
    source_filename      TEXT,
    ingest_ts            TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS attachments (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    raw_message_id  INTEGER NOT NULL,
    filename        TEXT,
    content_type    TEXT,
    size_bytes      INTEGER,
    sha256          TEXT,
    stored_path     TEXT,
    content_id      TEXT,
    FOREIGN KEY(raw_message_id) REFERENCES raw_messages(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_raw_messages_template ON raw_messages(template_id);
CREATE INDEX IF NOT EXISTS idx_attachments_message   ON attachments(raw_message_id);
`
