// Package ingest takes .eml files into durable storage: raw bytes and
// attachments are spilled to content-addressed paths, metadata and a
// template guess are recorded in SQLite, and duplicate messages (same raw
// sha256) are skipped. HTML bodies additionally get a sanitized markdown
// preview so operators can grep the database without opening form markup.
package ingest

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/carenotes/mailfile"
	"github.com/hazyhaar/carenotes/template"
)

// ParserVersion is stamped on every ingested row so a later parser change
// can find rows worth re-ingesting.
const ParserVersion = "carenotes-ingest-v1"

// Pipeline copies messages into storage and records their metadata.
type Pipeline struct {
	db        *sql.DB
	rawDir    string
	attachDir string
	sanitizer *bluemonday.Policy
	md        *converter.Converter
}

// New ensures the intake schema and storage directories exist.
func New(db *sql.DB, rawDir, attachDir string) (*Pipeline, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("ingest: migrate: %w", err)
	}
	for _, dir := range []string{rawDir, attachDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ingest: mkdir %s: %w", dir, err)
		}
	}
	return &Pipeline{
		db:        db,
		rawDir:    rawDir,
		attachDir: attachDir,
		sanitizer: bluemonday.UGCPolicy(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}, nil
}

// IngestDir ingests every .eml file directly under dir (non-recursive), in
// name order. Returns the number of newly stored messages.
func (p *Pipeline) IngestDir(dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.eml"))
	if err != nil {
		return 0, fmt.Errorf("ingest: glob %s: %w", dir, err)
	}
	sort.Strings(matches)

	stored := 0
	for _, path := range matches {
		ok, err := p.IngestFile(path)
		if err != nil {
			return stored, err
		}
		if ok {
			stored++
		}
	}
	return stored, nil
}

// IngestFile ingests a single message. Returns false when an identical
// message (same raw sha256) was already stored.
func (p *Pipeline) IngestFile(path string) (bool, error) {
	env, err := mailfile.Load(path)
	if err != nil {
		return false, err
	}

	digest := env.SHA256()
	exists, err := p.exists(digest)
	if err != nil {
		return false, err
	}
	if exists {
		slog.Info("skipping already ingested message", "file", filepath.Base(path))
		return false, nil
	}

	storedPath, err := p.storeRaw(env, digest)
	if err != nil {
		return false, err
	}

	templateID, confidence := template.Detect(env.Subject)

	rawID, err := p.insertMessage(env, digest, storedPath, templateID, confidence, filepath.Base(path))
	if err != nil {
		return false, err
	}

	if err := p.storeAttachments(rawID, digest, env); err != nil {
		return false, err
	}

	slog.Info("ingested message",
		"file", filepath.Base(path),
		"sha256", digest,
		"template", templateID,
		"attachments", len(env.Attachments))
	return true, nil
}

func (p *Pipeline) exists(digest string) (bool, error) {
	var one int
	err := p.db.QueryRow(`SELECT 1 FROM raw_messages WHERE sha256 = ? LIMIT 1`, digest).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ingest: dedup lookup: %w", err)
	}
	return true, nil
}

func (p *Pipeline) storeRaw(env *mailfile.Envelope, digest string) (string, error) {
	dest := filepath.Join(p.rawDir, digest+".eml")
	if _, err := os.Stat(dest); os.IsNotExist(err) {
		if err := os.WriteFile(dest, env.RawBytes, 0o644); err != nil {
			return "", fmt.Errorf("ingest: store raw: %w", err)
		}
	}
	return dest, nil
}

func (p *Pipeline) insertMessage(env *mailfile.Envelope, digest, storedPath, templateID string, confidence float64, sourceName string) (int64, error) {
	recipients, _ := json.Marshal(env.Recipients)
	cc, _ := json.Marshal(env.CC)
	bcc, _ := json.Marshal(env.BCC)

	var sentAt any
	if !env.SentAt.IsZero() {
		sentAt = env.SentAt.Format(time.RFC3339)
	}
	var tmpl any
	if templateID != "" {
		tmpl = templateID
	}

	res, err := p.db.Exec(`
        INSERT INTO raw_messages (
            message_id, subject, sender, recipients, cc, bcc,
            sent_at, sha256, size_bytes, stored_path, body_preview,
            parser_version, template_id, detection_confidence, source_filename
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		env.MessageID, env.Subject, env.Sender,
		string(recipients), string(cc), string(bcc),
		sentAt, digest, len(env.RawBytes), storedPath, p.preview(env),
		ParserVersion, tmpl, confidence, sourceName)
	if err != nil {
		return 0, fmt.Errorf("ingest: insert message: %w", err)
	}
	return res.LastInsertId()
}

func (p *Pipeline) storeAttachments(rawID int64, digest string, env *mailfile.Envelope) error {
	if len(env.Attachments) == 0 {
		return nil
	}

	dir := filepath.Join(p.attachDir, digest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ingest: mkdir attachments: %w", err)
	}

	for _, att := range env.Attachments {
		dest := filepath.Join(dir, filepath.Base(att.Filename))
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			if err := os.WriteFile(dest, att.Payload, 0o644); err != nil {
				return fmt.Errorf("ingest: store attachment %s: %w", att.Filename, err)
			}
		}
		_, err := p.db.Exec(`
            INSERT INTO attachments (
                raw_message_id, filename, content_type, size_bytes,
                sha256, stored_path, content_id
            ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rawID, att.Filename, att.ContentType, len(att.Payload),
			att.SHA256, dest, att.ContentID)
		if err != nil {
			return fmt.Errorf("ingest: insert attachment %s: %w", att.Filename, err)
		}
	}
	return nil
}

// preview renders a plain-text view of the message body. HTML bodies are
// sanitized first; the raw stored HTML keeps its markup untouched because
// extraction depends on the form's class attributes.
func (p *Pipeline) preview(env *mailfile.Envelope) string {
	if env.HTMLBody == "" {
		return strings.TrimSpace(env.TextBody)
	}
	md, err := p.md.ConvertString(p.sanitizer.Sanitize(env.HTMLBody))
	if err != nil || strings.TrimSpace(md) == "" {
		return strings.TrimSpace(env.TextBody)
	}
	return strings.TrimSpace(md)
}
