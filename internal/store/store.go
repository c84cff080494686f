// Package store persists ProceedingUpdate records. Two drivers are
// provided: Postgres (pgx) for shared deployments and SQLite for the
// single-machine install.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/lexdesk/expedientes-cli/internal/model"
)

// ErrNotFound is returned when an update id does not resolve to a record.
var ErrNotFound = eris.New("store: update not found")

// UpdateFields is a partial manual edit. Nil pointers leave the column
// untouched; AI bookkeeping fields are never part of a manual edit.
type UpdateFields struct {
	Category     *model.Category
	Title        *string
	Summary      *string
	DocumentDate *time.Time
}

// AnalysisFields is the unconditional overwrite applied by re-analysis.
type AnalysisFields struct {
	Category   model.Category
	Title      string
	Summary    string
	AIAnalyzed bool
	Raw        json.RawMessage
}

// Store defines the persistence interface for proceeding updates.
type Store interface {
	// CreateUpdate assigns an id and timestamps and inserts the record.
	CreateUpdate(ctx context.Context, u *model.Update) (*model.Update, error)
	GetUpdate(ctx context.Context, id string) (*model.Update, error)
	// ListUpdates returns a proceeding's updates ordered by document date
	// descending, records without a document date last, creation time
	// descending as tiebreak.
	ListUpdates(ctx context.Context, juicioID string) ([]model.Update, error)
	// EditUpdate applies the supplied fields only.
	EditUpdate(ctx context.Context, id string, fields UpdateFields) (*model.Update, error)
	// SaveAnalysis overwrites the AI-derived fields.
	SaveAnalysis(ctx context.Context, id string, a AnalysisFields) (*model.Update, error)
	DeleteUpdate(ctx context.Context, id string) error
	// DeleteUpdatesByJuicio removes all of a proceeding's updates,
	// returning their document paths for blob cleanup.
	DeleteUpdatesByJuicio(ctx context.Context, juicioID string) ([]string, error)

	Migrate(ctx context.Context) error
	Close() error
}

// nullable conversion helpers shared by both drivers.

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func derefTime(p *time.Time) time.Time {
	if p == nil {
		return time.Time{}
	}
	return *p
}
