package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/supplytrace/esg-cli/internal/task"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the task trigger server",
	Long:  "Serves the per-company processing endpoint the task fan-out layer calls, one request per company.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(e.Orchestrator),
		}

		// Graceful shutdown: stop accepting new companies, let in-flight
		// requests finish.
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
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

// newRouter builds the HTTP API over the orchestrator.
func newRouter(o *task.Orchestrator) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/task_upload", handleTaskUpload(o))

	r.Get("/tasks/{task_id}/progress", func(w http.ResponseWriter, req *http.Request) {
		progress, err := o.Progress(req.Context(), chi.URLParam(req, "task_id"))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, progress)
	})

	return r
}

// taskUploadRequest is the per-company trigger payload. All fields required.
type taskUploadRequest struct {
	TaskDocID    string `json:"task_doc_id"`
	CompanyDocID string `json:"company_doc_id"`
	OrgID        string `json:"org_id"`
}

// handleTaskUpload processes exactly one company per call. Fan-out across a
// task's companies is the caller's responsibility.
func handleTaskUpload(o *task.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body taskUploadRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		var missing []string
		if body.TaskDocID == "" {
			missing = append(missing, "task_doc_id")
		}
		if body.CompanyDocID == "" {
			missing = append(missing, "company_doc_id")
		}
		if body.OrgID == "" {
			missing = append(missing, "org_id")
		}
		if len(missing) > 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": strings.Join(missing, ", ") + " required in the JSON body",
			})
			return
		}

		supplier, err := o.ProcessCompany(req.Context(), body.TaskDocID, body.CompanyDocID, body.OrgID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": fmt.Sprintf("error processing company: %v", err),
			})
			return
		}

		// supplier is nil when enrichment failed and the failure was
		// recorded on the company record.
		writeJSON(w, http.StatusOK, map[string]any{
			"company": body.CompanyDocID,
			"result":  supplier,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
