package updates

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lexdesk/expedientes-cli/internal/analysis"
	"github.com/lexdesk/expedientes-cli/internal/blob"
	"github.com/lexdesk/expedientes-cli/internal/model"
	"github.com/lexdesk/expedientes-cli/internal/ocr"
	"github.com/lexdesk/expedientes-cli/internal/store"
)

// MaxDocumentBytes is the upload size limit for a single document. Transport
// layers should cap request bodies near this before buffering.
const MaxDocumentBytes = 10 << 20

var (
	// ErrValidation covers rejected input: missing juicio, missing or
	// oversized document, or a file that is not a PDF.
	ErrValidation = eris.New("updates: invalid input")

	// ErrDocumentMissing is returned by Reanalyze when the update has no
	// stored document to analyze.
	ErrDocumentMissing = eris.New("updates: update has no stored document")
)

var pdfMagic = []byte("%PDF")

// CreateInput carries a new document plus any manually provided fields.
// Manual fields are pointers so an absent field can be told apart from an
// explicit empty value.
type CreateInput struct {
	JuicioID     string
	FileName     string
	FileData     []byte
	Category     *model.Category
	Title        *string
	Summary      *string
	DocumentDate *time.Time
}

// Manager orchestrates document ingestion: store the file, extract its text,
// analyze it, and persist the resulting update record.
type Manager struct {
	store     store.Store
	blobs     blob.Store
	extractor ocr.Extractor
	analyzer  analysis.Analyzer
}

func NewManager(s store.Store, b blob.Store, e ocr.Extractor, a analysis.Analyzer) *Manager {
	return &Manager{store: s, blobs: b, extractor: e, analyzer: a}
}

// Create ingests a PDF for a proceeding. The document is stored first, then
// analyzed; analysis failures never abort the creation, they fall back to
// placeholder fields. Manually supplied fields win over AI output.
func (m *Manager) Create(ctx context.Context, in CreateInput) (*model.Update, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	filename := blob.SanitizeFilename(in.FileName)
	docPath := blob.UpdatePath(in.JuicioID, filename)
	if err := m.blobs.Save(docPath, in.FileData); err != nil {
		return nil, eris.Wrap(err, "updates: store document")
	}

	text := m.extractor.ExtractText(ctx, m.blobs.LocalPath(docPath))
	result := m.analyzer.Analyze(ctx, text)

	rec := &model.Update{
		JuicioID:      in.JuicioID,
		Category:      result.Category,
		Title:         result.Title,
		Summary:       result.Summary,
		DocumentDate:  time.Now().UTC().Truncate(24 * time.Hour),
		DocumentPath:  docPath,
		DocumentName:  filename,
		AIAnalyzed:    len(result.Raw) > 0,
		AIRawResponse: result.Raw,
	}

	if in.Category != nil {
		rec.Category = *in.Category
	}
	if in.Title != nil && *in.Title != "" {
		rec.Title = *in.Title
	}
	if in.Summary != nil && *in.Summary != "" {
		rec.Summary = *in.Summary
	}
	if in.DocumentDate != nil {
		rec.DocumentDate = *in.DocumentDate
	}

	created, err := m.store.CreateUpdate(ctx, rec)
	if err != nil {
		return nil, err
	}

	zap.L().Info("update created",
		zap.String("id", created.ID),
		zap.String("juicio_id", created.JuicioID),
		zap.String("tipo", string(created.Category)),
		zap.Bool("ai_analyzed", created.AIAnalyzed))
	return created, nil
}

func validateCreate(in CreateInput) error {
	if strings.TrimSpace(in.JuicioID) == "" {
		return eris.Wrap(ErrValidation, "juicio id is required")
	}
	if len(in.FileData) == 0 {
		return eris.Wrap(ErrValidation, "document file is required")
	}
	if len(in.FileData) > MaxDocumentBytes {
		return eris.Wrap(ErrValidation, "document exceeds 10MB limit")
	}
	if !isPDF(in.FileName, in.FileData) {
		return eris.Wrap(ErrValidation, "document must be a PDF")
	}
	if in.Category != nil && *in.Category != "" {
		if _, ok := model.ParseCategory(string(*in.Category)); !ok {
			return eris.Wrapf(ErrValidation, "unknown category %q", *in.Category)
		}
	}
	return nil
}

func isPDF(name string, data []byte) bool {
	if bytes.HasPrefix(data, pdfMagic) {
		return true
	}
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// Edit applies manual field changes. It never touches the stored document or
// the AI fields beyond what the caller sets.
func (m *Manager) Edit(ctx context.Context, id string, fields store.UpdateFields) (*model.Update, error) {
	if fields.Category != nil && *fields.Category != "" {
		if _, ok := model.ParseCategory(string(*fields.Category)); !ok {
			return nil, eris.Wrapf(ErrValidation, "unknown category %q", *fields.Category)
		}
	}
	return m.store.EditUpdate(ctx, id, fields)
}

// Reanalyze re-runs text extraction and AI analysis on the stored document
// and overwrites the update's category, title and summary with the result,
// discarding any manual edits to those fields.
func (m *Manager) Reanalyze(ctx context.Context, id string) (*model.Update, error) {
	rec, err := m.store.GetUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rec.HasDocument() || !m.blobs.Exists(rec.DocumentPath) {
		return nil, ErrDocumentMissing
	}

	text := m.extractor.ExtractText(ctx, m.blobs.LocalPath(rec.DocumentPath))
	result := m.analyzer.Analyze(ctx, text)

	saved, err := m.store.SaveAnalysis(ctx, id, store.AnalysisFields{
		Category:   result.Category,
		Title:      result.Title,
		Summary:    result.Summary,
		AIAnalyzed: len(result.Raw) > 0,
		Raw:        result.Raw,
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("update reanalyzed",
		zap.String("id", saved.ID),
		zap.String("tipo", string(saved.Category)),
		zap.Bool("ai_analyzed", saved.AIAnalyzed))
	return saved, nil
}

// Delete removes the stored document first, then the record. A missing blob
// is tolerated so a record can always be cleaned up.
func (m *Manager) Delete(ctx context.Context, id string) error {
	rec, err := m.store.GetUpdate(ctx, id)
	if err != nil {
		return err
	}
	if rec.HasDocument() {
		if err := m.blobs.Delete(rec.DocumentPath); err != nil {
			zap.L().Warn("failed to delete document blob",
				zap.String("id", id),
				zap.String("path", rec.DocumentPath),
				zap.Error(err))
		}
	}
	return m.store.DeleteUpdate(ctx, id)
}

// DeleteByJuicio removes every update of a proceeding along with the stored
// documents.
func (m *Manager) DeleteByJuicio(ctx context.Context, juicioID string) error {
	paths, err := m.store.DeleteUpdatesByJuicio(ctx, juicioID)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := m.blobs.Delete(p); err != nil {
			zap.L().Warn("failed to delete document blob",
				zap.String("path", p),
				zap.Error(err))
		}
	}
	return nil
}

func (m *Manager) Get(ctx context.Context, id string) (*model.Update, error) {
	return m.store.GetUpdate(ctx, id)
}

func (m *Manager) List(ctx context.Context, juicioID string) ([]model.Update, error) {
	return m.store.ListUpdates(ctx, juicioID)
}
