package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lexdesk/expedientes-cli/internal/analysis"
	"github.com/lexdesk/expedientes-cli/internal/blob"
	"github.com/lexdesk/expedientes-cli/internal/ocr"
	"github.com/lexdesk/expedientes-cli/internal/store"
	"github.com/lexdesk/expedientes-cli/internal/updates"
	"github.com/lexdesk/expedientes-cli/pkg/gemini"
)

// appEnv bundles the wired components a command needs.
type appEnv struct {
	Store   store.Store
	Blobs   blob.Store
	Manager *updates.Manager
}

func (e *appEnv) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("closing store", zap.Error(err))
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func initExtractor() ocr.Extractor {
	if cfg.OCR.Provider == "pdftotext" {
		return ocr.NewPdfToText(cfg.OCR.PdfToTextPath)
	}
	return ocr.NewNative()
}

func initAnalyzer() analysis.Analyzer {
	var client gemini.Client
	if cfg.Gemini.Key != "" {
		client = gemini.NewClient(cfg.Gemini.Key,
			gemini.WithBaseURL(cfg.Gemini.BaseURL),
			gemini.WithModel(cfg.Gemini.Model),
			gemini.WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.Gemini.RatePerSecond), 1)),
		)
		zap.L().Info("gemini analysis enabled", zap.String("model", cfg.Gemini.Model))
	} else {
		zap.L().Warn("EXPEDIENTES_GEMINI_KEY not set, documents will be stored without AI analysis")
	}
	return analysis.NewDocumentAnalyzer(client)
}

func initEnv(ctx context.Context) (*appEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	blobs, err := blob.NewDisk(cfg.Blob.Root)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	mgr := updates.NewManager(st, blobs, initExtractor(), initAnalyzer())

	return &appEnv{Store: st, Blobs: blobs, Manager: mgr}, nil
}
