// Package api exposes a read-only operational surface over the carenotes
// database: liveness, processing status counts, per-document status lookup
// and the pending backlog.
package api

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Service holds the API handlers over a shared database connection.
type Service struct {
	db *sql.DB
}

// New builds the router. The caller owns db and the listener.
func New(db *sql.DB) http.Handler {
	s := &Service{db: db}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/status", s.handleStatus)
	r.Get("/documents/{id}", s.handleDocument)
	r.Get("/pending", s.handlePending)
	return r
}

func (s *Service) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		http.Error(w, "database unreachable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus returns processing counts grouped by status, plus totals.
// GET /status
func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM processed_entities GROUP BY status`)
	if err != nil {
		slog.Error("status query failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	counts := map[string]int{}
	total := 0
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		counts[status] = n
		total += n
	}

	var messages int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM raw_messages`).Scan(&messages); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages":  messages,
		"processed": total,
		"by_status": counts,
	})
}

// DocumentStatus is the per-document processing record.
type DocumentStatus struct {
	RawMessageID int64  `json:"raw_message_id"`
	Subject      string `json:"subject"`
	TemplateID   string `json:"template_id,omitempty"`
	EntityType   string `json:"entity_type,omitempty"`
	EntityID     *int64 `json:"entity_id,omitempty"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	ProcessedAt  string `json:"processed_at"`
}

// handleDocument returns the status row for one ingested message.
// GET /documents/{id}
func (s *Service) handleDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid document id", http.StatusBadRequest)
		return
	}

	var (
		doc                      DocumentStatus
		tmpl, entityType, errMsg sql.NullString
		entityID                 sql.NullInt64
	)
	err = s.db.QueryRow(`
        SELECT pe.raw_message_id, rm.subject, rm.template_id,
               pe.entity_type, pe.entity_id, pe.status, pe.error, pe.processed_at
        FROM processed_entities pe
        JOIN raw_messages rm ON rm.id = pe.raw_message_id
        WHERE pe.raw_message_id = ?`, id).
		Scan(&doc.RawMessageID, &doc.Subject, &tmpl,
			&entityType, &entityID, &doc.Status, &errMsg, &doc.ProcessedAt)
	if err == sql.ErrNoRows {
		http.Error(w, "document not found or not yet processed", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("document query failed", "error", err, "id", id)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	doc.TemplateID = tmpl.String
	doc.EntityType = entityType.String
	doc.Error = errMsg.String
	if entityID.Valid {
		doc.EntityID = &entityID.Int64
	}
	writeJSON(w, http.StatusOK, doc)
}

// handlePending returns how many ingested messages have no status row yet.
// GET /pending
func (s *Service) handlePending(w http.ResponseWriter, r *http.Request) {
	var n int
	err := s.db.QueryRow(`
        SELECT COUNT(*)
        FROM raw_messages rm
        LEFT JOIN processed_entities pe ON pe.raw_message_id = rm.id
        WHERE pe.raw_message_id IS NULL`).Scan(&n)
	if err != nil {
		slog.Error("pending query failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"pending": n})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
