package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lexdesk/expedientes-cli/internal/model"
	"github.com/lexdesk/expedientes-cli/internal/store"
	"github.com/lexdesk/expedientes-cli/internal/updates"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for proceeding updates",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func newRouter(env *appEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/juicios/{juicioID}/updates", func(r chi.Router) {
		r.Post("/", handleCreateUpdate(env))
		r.Get("/", handleListUpdates(env))
		r.Delete("/", handleDeleteByJuicio(env))
	})

	r.Route("/updates/{id}", func(r chi.Router) {
		r.Get("/", handleGetUpdate(env))
		r.Patch("/", handleEditUpdate(env))
		r.Delete("/", handleDeleteUpdate(env))
		r.Post("/reanalyze", handleReanalyze(env))
		r.Get("/documento", handleDownloadDocument(env))
	})

	return r
}

type createResponse struct {
	Success bool          `json:"success"`
	Update  *model.Update `json:"update"`
}

func handleCreateUpdate(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// cap the body before buffering; 1MB of slack for the form fields
		r.Body = http.MaxBytesReader(w, r.Body, updates.MaxDocumentBytes+1<<20)
		if err := r.ParseMultipartForm(updates.MaxDocumentBytes); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, http.StatusRequestEntityTooLarge, "el documento excede el límite de 10MB")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}

		file, header, err := r.FormFile("documento")
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "el documento PDF es obligatorio")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read uploaded file")
			return
		}

		in := updates.CreateInput{
			JuicioID: chi.URLParam(r, "juicioID"),
			FileName: header.Filename,
			FileData: data,
		}
		if v := r.FormValue("tipo"); v != "" {
			cat := model.Category(v)
			in.Category = &cat
		}
		if v := r.FormValue("titulo"); v != "" {
			in.Title = &v
		}
		if v := r.FormValue("sintesis"); v != "" {
			in.Summary = &v
		}
		if v := r.FormValue("fecha_documento"); v != "" {
			d, err := time.Parse("2006-01-02", v)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "fecha_documento must be YYYY-MM-DD")
				return
			}
			in.DocumentDate = &d
		}

		u, err := env.Manager.Create(r.Context(), in)
		if err != nil {
			writeManagerError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, createResponse{Success: true, Update: u})
	}
}

func handleListUpdates(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := env.Manager.List(r.Context(), chi.URLParam(r, "juicioID"))
		if err != nil {
			writeManagerError(w, err)
			return
		}
		if list == nil {
			list = []model.Update{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleGetUpdate(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := env.Manager.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeManagerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func handleEditUpdate(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Category     *string `json:"tipo"`
			Title        *string `json:"titulo"`
			Summary      *string `json:"sintesis"`
			DocumentDate *string `json:"fecha_documento"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		var fields store.UpdateFields
		if req.Category != nil {
			cat := model.Category(*req.Category)
			fields.Category = &cat
		}
		fields.Title = req.Title
		fields.Summary = req.Summary
		if req.DocumentDate != nil {
			d, err := time.Parse("2006-01-02", *req.DocumentDate)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "fecha_documento must be YYYY-MM-DD")
				return
			}
			fields.DocumentDate = &d
		}

		u, err := env.Manager.Edit(r.Context(), chi.URLParam(r, "id"), fields)
		if err != nil {
			writeManagerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func handleDeleteUpdate(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := env.Manager.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeManagerError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleDeleteByJuicio(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := env.Manager.DeleteByJuicio(r.Context(), chi.URLParam(r, "juicioID")); err != nil {
			writeManagerError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleReanalyze(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := env.Manager.Reanalyze(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeManagerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func handleDownloadDocument(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := env.Manager.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeManagerError(w, err)
			return
		}
		if !u.HasDocument() || !env.Blobs.Exists(u.DocumentPath) {
			writeError(w, http.StatusNotFound, "el documento no está disponible")
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", u.DocumentName))
		http.ServeFile(w, r, env.Blobs.LocalPath(u.DocumentPath))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encoding response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeManagerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "update not found")
	case errors.Is(err, updates.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, updates.ErrDocumentMissing):
		writeError(w, http.StatusNotFound, "el documento original no está disponible para re-análisis")
	default:
		zap.L().Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
