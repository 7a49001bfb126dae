package pipeline

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hazyhaar/carenotes/extract"
)

// Processing statuses. Terminal once written: a document carrying any status
// row is excluded from future batches until the row is deleted externally.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Store wraps the extraction side of the carenotes database: the status
// table and the entity tables.
type Store struct {
	db *sql.DB
}

// NewStore ensures the extraction schema exists on db and returns a store.
// The caller keeps ownership of the connection.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(Schema()); err != nil {
		return nil, fmt.Errorf("pipeline: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying connection for the api and report layers.
func (s *Store) DB() *sql.DB { return s.db }

type pendingDoc struct {
	ID         int64
	TemplateID string
	StoredPath string
}

// pending returns documents with no status row, oldest first. limit <= 0
// means no cap.
func pending(tx *sql.Tx, limit int) ([]pendingDoc, error) {
	q := `
        SELECT rm.id, COALESCE(rm.template_id, ''), COALESCE(rm.stored_path, '')
        FROM raw_messages rm
        LEFT JOIN processed_entities pe ON pe.raw_message_id = rm.id
        WHERE pe.raw_message_id IS NULL
        ORDER BY rm.id`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := tx.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("select pending: %w", err)
	}
	defer rows.Close()

	var docs []pendingDoc
	for rows.Next() {
		var d pendingDoc
		if err := rows.Scan(&d.ID, &d.TemplateID, &d.StoredPath); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// recordStatus upserts the status row for a document. The uniqueness
// constraint on raw_message_id makes reprocessing overwrite, never
// duplicate.
func recordStatus(tx *sql.Tx, rawID int64, entityType string, entityID *int64, status, errMsg string) error {
	_, err := tx.Exec(`
        INSERT INTO processed_entities (raw_message_id, entity_type, entity_id, status, error)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(raw_message_id) DO UPDATE SET
            entity_type = excluded.entity_type,
            entity_id   = excluded.entity_id,
            status      = excluded.status,
            error       = excluded.error,
            processed_at = CURRENT_TIMESTAMP`,
		rawID, nullStr(entityType), entityID, status, nullStr(errMsg))
	if err != nil {
		return fmt.Errorf("record status for %d: %w", rawID, err)
	}
	return nil
}

// insertEntity writes the canonical record into the entity table matching
// its type, with columns driven by the same mapping tables the extractor
// used.
func insertEntity(tx *sql.Tx, rawID int64, res *extract.Result) (int64, error) {
	table, ok := entityTables[res.EntityType]
	if !ok {
		return 0, fmt.Errorf("no entity table for type %q", res.EntityType)
	}
	mappings := extract.EntityMappings()[res.EntityType]

	columns := []string{"raw_message_id"}
	values := []any{rawID}
	for _, m := range mappings {
		columns = append(columns, m.Key)
		v, err := driverValue(res.Canonical[m.Key])
		if err != nil {
			return 0, fmt.Errorf("encode %s: %w", m.Key, err)
		}
		values = append(values, v)
	}

	additional, err := json.Marshal(res.Additional)
	if err != nil {
		return 0, fmt.Errorf("encode additional fields: %w", err)
	}
	columns = append(columns, "additional_fields")
	values = append(values, string(additional))

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	result, err := tx.Exec(
		fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders),
		values...)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", table, err)
	}
	return result.LastInsertId()
}

// driverValue converts a canonical value into its storage representation:
// bools as 0/1, list values as JSON text, absent as NULL.
func driverValue(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case []string:
		data, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	default:
		return val, nil
	}
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
