// Package pipeline drives batch extraction: it selects documents that carry
// no processing status yet, resolves an extractor per template, and persists
// canonical records plus a durable per-document status row.
//
// The whole run happens in one transaction. Per-document failures are
// isolated logically (they become error status rows and the loop moves on)
// but durability is batch-atomic: a crash before commit loses the run, which
// is safe to repeat because extraction is a pure function of its input.
package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hazyhaar/carenotes/extract"
	"github.com/hazyhaar/carenotes/mailfile"
)

// Loader resolves a stored document path into a parsed envelope. The
// ingestion side owns the storage layout; the pipeline only forwards paths.
type Loader interface {
	Load(path string) (*mailfile.Envelope, error)
}

// LoaderFunc adapts a plain function to the Loader interface.
type LoaderFunc func(path string) (*mailfile.Envelope, error)

// Load implements Loader.
func (f LoaderFunc) Load(path string) (*mailfile.Envelope, error) { return f(path) }

// Pipeline is the batch extraction engine.
type Pipeline struct {
	store  *Store
	loader Loader
}

// New creates a pipeline over a migrated store and a document loader.
func New(store *Store, loader Loader) *Pipeline {
	return &Pipeline{store: store, loader: loader}
}

// ProcessAll processes every document without a status row, oldest first,
// capped at limit when limit > 0. It returns the number of documents
// attempted (success + error + skipped). Per-document load and extraction
// failures become error status rows; persistence failures abort the run and
// roll everything back, since they signal an environment problem rather than
// bad input.
func (p *Pipeline) ProcessAll(limit int) (int, error) {
	runID := uuid.NewString()

	tx, err := p.store.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("pipeline: begin: %w", err)
	}
	defer tx.Rollback()

	docs, err := pending(tx, limit)
	if err != nil {
		return 0, fmt.Errorf("pipeline: %w", err)
	}

	attempted := 0
	for _, doc := range docs {
		attempted++

		ext, ok := extract.ForTemplate(doc.TemplateID)
		if !ok {
			if err := recordStatus(tx, doc.ID, "", nil, StatusSkipped, "no extractor"); err != nil {
				return 0, err
			}
			slog.Debug("no extractor for document",
				"run", runID, "doc", doc.ID, "template", doc.TemplateID)
			continue
		}

		res, extractErr := p.loadAndExtract(doc, ext)
		if extractErr != nil {
			if err := recordStatus(tx, doc.ID, ext.EntityType, nil, StatusError, extractErr.Error()); err != nil {
				return 0, err
			}
			slog.Warn("document failed",
				"run", runID, "doc", doc.ID, "template", doc.TemplateID, "error", extractErr)
			continue
		}

		// A failing entity write is an environment problem, not a document
		// problem: abort the run and roll back.
		entityID, err := insertEntity(tx, doc.ID, res)
		if err != nil {
			return 0, fmt.Errorf("pipeline: doc %d: %w", doc.ID, err)
		}
		if err := recordStatus(tx, doc.ID, res.EntityType, &entityID, StatusSuccess, ""); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("pipeline: commit: %w", err)
	}

	slog.Info("extraction run complete", "run", runID, "attempted", attempted)
	return attempted, nil
}

// loadAndExtract resolves the stored document and runs its extractor. Any
// error here is a per-document failure the caller records as an error
// status without aborting the batch.
func (p *Pipeline) loadAndExtract(doc pendingDoc, ext *extract.Extractor) (*extract.Result, error) {
	env, err := p.loader.Load(doc.StoredPath)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return ext.Extract(env)
}
