package main

import (
	"context"
	"encoding/json"
	"errors"
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

	"github.com/Olivia98106/semi-code/internal/export"
	"github.com/Olivia98106/semi-code/internal/model"
	"github.com/Olivia98106/semi-code/internal/prompt"
	"github.com/Olivia98106/semi-code/internal/store"
	"github.com/Olivia98106/semi-code/pkg/grobid"

	extractpkg "github.com/Olivia98106/semi-code/internal/extract"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for the interactive annotation UI",
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

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func newRouter(env *appEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", handleHealth(env))
	r.Get("/chains", handleListChains(env))
	r.Get("/labels/values", handleLabelValues(env))
	r.Get("/documents", handleListDocuments(env))
	r.Route("/documents/{id}", func(r chi.Router) {
		r.Get("/annotations", handleAnnotations(env))
		r.Post("/ask", handleAsk(env))
		r.Post("/labels", handleManualLabel(env))
		r.Get("/summary", handleSummary(env))
	})
	r.Route("/export", func(r chi.Router) {
		r.Get("/labels.tsv", handleExportLabels(env, false))
		r.Get("/labels.xlsx", handleExportLabels(env, true))
		r.Get("/audit.tsv", handleExportAudit(env))
		r.Get("/documents/{id}/tei", handleExportTEI(env))
		r.Get("/documents/{id}/content.json", handleExportContent(env, false))
		r.Get("/documents/{id}/content.txt", handleExportContent(env, true))
	})
	return r
}

func handleHealth(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		grobidStatus := "up"
		if err := env.Grobid.IsAlive(r.Context()); err != nil {
			grobidStatus = "down"
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"grobid": grobidStatus,
		})
	}
}

// handleListChains feeds the UI's variable dropdown.
func handleListChains(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chains, err := env.Store.ListChains(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if chains == nil {
			chains = []model.Chain{}
		}
		writeJSON(w, http.StatusOK, chains)
	}
}

// handleLabelValues feeds the UI's existing-label suggestions for a variable.
func handleLabelValues(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variable := r.URL.Query().Get("variable")
		if variable == "" {
			http.Error(w, `{"error":"variable is required"}`, http.StatusBadRequest)
			return
		}
		values, err := env.Store.LabelValues(r.Context(), variable)
		if err != nil {
			writeError(w, err)
			return
		}
		if values == nil {
			values = []string{}
		}
		writeJSON(w, http.StatusOK, values)
	}
}

func handleListDocuments(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := env.Store.ListDocuments(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if docs == nil {
			docs = []model.Document{}
		}
		writeJSON(w, http.StatusOK, docs)
	}
}

func handleAnnotations(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := env.openSession(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}

		res, err := s.Annotations(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}

		var fcfg model.FilterConfig
		if raw := r.URL.Query().Get("types"); raw != "" {
			fcfg = filterConfigFromTypes(strings.Split(raw, ","))
		} else {
			fcfg = model.DefaultFilterConfig()
		}

		writeJSON(w, http.StatusOK, export.BuildContent(s.Doc.DocID, res, fcfg))
	}
}

func handleAsk(env *appEnv) http.HandlerFunc {
	type askRequest struct {
		Question string `json:"question"`
		Variable string `json:"variable"`
		Full     bool   `json:"full"`
	}
	type askResponse struct {
		Result      string `json:"result"`
		Confidence  string `json:"confidence,omitempty"`
		Evidence    string `json:"evidence,omitempty"`
		Raw         string `json:"raw"`
		ParseFailed bool   `json:"parse_failed"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		question := req.Question
		if req.Variable != "" {
			chain, err := env.Store.GetChain(r.Context(), req.Variable)
			if err != nil {
				writeError(w, err)
				return
			}
			question = chain.Prompt
		}
		if question == "" {
			http.Error(w, `{"error":"question or variable is required"}`, http.StatusBadRequest)
			return
		}

		s, err := env.openSession(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}

		parsed, err := env.askDocument(r.Context(), s, prompt.Build(question), req.Full)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, askResponse{
			Result:      parsed.Result,
			Confidence:  string(parsed.Confidence),
			Evidence:    parsed.Evidence,
			Raw:         parsed.Raw,
			ParseFailed: parsed.ParseFailed,
		})
	}
}

func handleManualLabel(env *appEnv) http.HandlerFunc {
	type labelRequest struct {
		Variable string `json:"variable"`
		Label    string `json:"label"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req labelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.Variable == "" {
			http.Error(w, `{"error":"variable is required"}`, http.StatusBadRequest)
			return
		}

		docID := chi.URLParam(r, "id")
		if _, err := env.Store.GetDocument(r.Context(), docID); err != nil {
			writeError(w, err)
			return
		}

		var prior model.LabelRecord
		if rec, err := env.Store.GetLabel(r.Context(), docID, req.Variable); err == nil {
			prior = *rec
		} else if !errors.Is(err, store.ErrNotFound) {
			writeError(w, err)
			return
		}

		rec := model.LabelRecord{
			DocID:         docID,
			Variable:      req.Variable,
			Label:         req.Label,
			AILabel:       prior.AILabel,
			ManualLabel:   req.Label,
			PromptVersion: prior.PromptVersion,
			Source:        model.SourceManual,
			UpdatedAt:     time.Now().UTC(),
		}
		if err := env.Store.UpsertLabel(r.Context(), rec); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func handleSummary(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := env.openSession(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}

		kb, err := s.KB(r.Context(), env.Extractor.DefaultMode())
		if err != nil {
			writeError(w, err)
			return
		}

		raw, err := env.Engine.Ask(r.Context(), kb, prompt.SummaryPrompt)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"summary": raw})
	}
}

func handleExportLabels(env *appEnv, asXLSX bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := env.Store.ListLabels(r.Context(), store.LabelFilter{})
		if err != nil {
			writeError(w, err)
			return
		}

		if asXLSX {
			w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			w.Header().Set("Content-Disposition", `attachment; filename="labels.xlsx"`)
			if err := export.LabelTableXLSX(records, w); err != nil {
				zap.L().Error("write xlsx export", zap.Error(err))
			}
			return
		}

		w.Header().Set("Content-Type", "text/tab-separated-values; charset=utf-8")
		w.Write(export.LabelTable(records))
	}
}

func handleExportAudit(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := env.Store.ListLabels(r.Context(), store.LabelFilter{})
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/tab-separated-values; charset=utf-8")
		w.Write(export.AuditLog(records))
	}
}

func handleExportTEI(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := env.openSession(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		res, err := s.Annotations(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.Write(res.TEI)
	}
}

func handleExportContent(env *appEnv, asText bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := env.openSession(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		res, err := s.Annotations(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}

		fcfg := model.DefaultFilterConfig()
		if raw := r.URL.Query().Get("types"); raw != "" {
			fcfg = filterConfigFromTypes(strings.Split(raw, ","))
		}

		if asText {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			fmt.Fprint(w, export.FilteredText(s.Doc.DocID, res, fcfg))
			return
		}
		out, err := export.FilteredJSON(s.Doc.DocID, res, fcfg)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(out)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain sentinels onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, grobid.ErrServiceUnavailable):
		code = http.StatusServiceUnavailable
	case errors.Is(err, extractpkg.ErrCorruptDocument):
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
