package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/pipeline"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server for triggering runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve")
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
			Handler: newServeMux(ctx, env),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(context.Background())
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// runStore tracks triggered runs so their results can be polled.
type runStore struct {
	mu   sync.Mutex
	runs map[string]*runRecord
}

type runRecord struct {
	ID     string              `json:"id"`
	Query  string              `json:"query"`
	Status string              `json:"status"` // "running", "done", "failed"
	Error  string              `json:"error,omitempty"`
	Result *pipeline.RunResult `json:"result,omitempty"`
}

func newRunStore() *runStore {
	return &runStore{runs: map[string]*runRecord{}}
}

func (s *runStore) create(query string) *runRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &runRecord{ID: uuid.NewString(), Query: query, Status: "running"}
	s.runs[rec.ID] = rec
	return rec
}

func (s *runStore) finish(id string, result *pipeline.RunResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[id]
	if !ok {
		return
	}
	if err != nil {
		rec.Status = "failed"
		rec.Error = err.Error()
		return
	}
	rec.Status = "done"
	rec.Result = result
}

// get returns a snapshot of the record. Callers encode it outside the lock
// while the run goroutine may still be mutating the stored one.
func (s *runStore) get(id string) (runRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[id]
	if !ok {
		return runRecord{}, false
	}
	return *rec, true
}

// newServeMux builds the HTTP API: health, run trigger, run status.
func newServeMux(ctx context.Context, env *pipelineEnv) http.Handler {
	store := newRunStore()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/runs", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.Query == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
			return
		}

		rec := store.create(body.Query)

		// The run outlives the request; it is bound to the server context so
		// shutdown cancels it.
		go func() {
			refs, err := env.Pipeline.Monitor(ctx, rec.Query)
			if err != nil {
				zap.L().Error("discovery failed", zap.String("run_id", rec.ID), zap.Error(err))
				store.finish(rec.ID, nil, err)
				return
			}
			result, err := env.Pipeline.Run(ctx, refs)
			if err != nil {
				zap.L().Error("run failed", zap.String("run_id", rec.ID), zap.Error(err))
				store.finish(rec.ID, nil, err)
				return
			}
			zap.L().Info("run complete",
				zap.String("run_id", rec.ID),
				zap.Int("committed", result.Funnel.Committed))
			store.finish(rec.ID, result, nil)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"run_id": rec.ID,
			"status": rec.Status,
		})
	})

	r.Get("/api/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
		rec, ok := store.get(chi.URLParam(req, "id"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
