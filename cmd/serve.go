package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vetdocs/triage/internal/model"
	"github.com/vetdocs/triage/internal/ocr"
	"github.com/vetdocs/triage/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the document upload server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := os.MkdirAll(cfg.Server.UploadDir, 0o755); err != nil {
			return eris.Wrap(err, "create upload dir")
		}

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{allowedOrigin()},
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Content-Type"},
		}))

		r.Get("/health", handleHealth)
		r.Post("/documents", handleUpload(ctx, env))
		r.Get("/runs", handleListRuns(env.Store))
		r.Get("/runs/{id}", handleGetRun(env.Store))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
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

func allowedOrigin() string {
	if cfg.Server.AllowedOrigin != "" {
		return cfg.Server.AllowedOrigin
	}
	return "*"
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload accepts a multipart document upload, stages it in the upload
// directory, and kicks off a pipeline run in the background. The response
// carries the staged filename so clients can poll /runs for the outcome.
func handleUpload(ctx context.Context, env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.Server.MaxUploadMB<<20)

		file, header, err := r.FormFile("document")
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "document file is required")
			return
		}
		defer file.Close()

		if !ocr.SupportedExt(header.Filename) {
			writeJSONError(w, http.StatusUnsupportedMediaType, fmt.Sprintf("unsupported file type: %s", filepath.Ext(header.Filename)))
			return
		}

		staged, err := stageUpload(file, header.Filename)
		if err != nil {
			zap.L().Error("staging upload failed", zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "failed to store upload")
			return
		}

		// Process asynchronously; the server context outlives the request.
		go func() {
			rec, err := env.Pipeline.Run(ctx, staged)
			if err != nil {
				zap.L().Error("upload processing failed",
					zap.String("document", header.Filename),
					zap.Error(err),
				)
				return
			}
			zap.L().Info("upload processed",
				zap.String("document", header.Filename),
				zap.String("category", string(rec.Category())),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":   "accepted",
			"filename": filepath.Base(staged),
		})
	}
}

// stageUpload copies the uploaded file into the upload directory under a
// unique name that preserves the original filename for identity hints.
func stageUpload(file io.Reader, original string) (string, error) {
	name := fmt.Sprintf("%s_%s", uuid.NewString()[:8], filepath.Base(original))
	dst := filepath.Join(cfg.Server.UploadDir, name)

	out, err := os.Create(dst)
	if err != nil {
		return "", eris.Wrapf(err, "create %s", dst)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(dst)
		return "", eris.Wrap(err, "write upload")
	}
	return dst, nil
}

func handleListRuns(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.RunFilter{
			Status:   model.RunStatus(r.URL.Query().Get("status")),
			Filename: r.URL.Query().Get("filename"),
			Limit:    50,
		}

		runs, err := st.ListRuns(r.Context(), filter)
		if err != nil {
			zap.L().Error("list runs failed", zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "failed to list runs")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
	}
}

func handleGetRun(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := st.GetRun(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeJSONError(w, http.StatusNotFound, "run not found")
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
