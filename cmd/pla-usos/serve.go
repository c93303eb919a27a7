package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajuntament-olot/pla-usos/internal/catalog"
	"github.com/ajuntament-olot/pla-usos/internal/consult"
	"github.com/ajuntament-olot/pla-usos/internal/eligibility"
	"github.com/ajuntament-olot/pla-usos/internal/mapimage"
	"github.com/ajuntament-olot/pla-usos/internal/proximity"
	"github.com/ajuntament-olot/pla-usos/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the consultation API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Route("/api", func(r chi.Router) {
			r.Get("/zones", handleZones(env))
			r.Get("/headings", handleHeadings(env))
			r.Get("/addresses", handleSearchAddresses(env))
			r.Get("/addresses/{domCode}/activities", handleActivityConditions(env))
			r.Post("/consultations", handleCreateConsultation(env))
			r.Get("/consultations", handleListConsultations(env))
			r.Get("/consultations/{id}/report", handleRegenerateReport(env))
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
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

func handleZones(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		zones, err := env.Catalog.ListZones(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, zones)
	}
}

func handleHeadings(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		headings, err := env.Catalog.ListHeadings(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, headings)
	}
}

func handleSearchAddresses(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		addrs, err := env.Catalog.SearchAddresses(r.Context(), q, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, addrs)
	}
}

func handleActivityConditions(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conditions, err := env.Catalog.ActivityConditions(r.Context(), chi.URLParam(r, "domCode"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, conditions)
	}
}

func handleCreateConsultation(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req consult.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.DomCode == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "dom_code is required"})
			return
		}
		if !req.OtherActivity && req.HeadingID == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "heading_id or other_activity is required"})
			return
		}

		outcome, err := env.Service.Run(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}

		if outcome.Pending {
			writeJSON(w, http.StatusAccepted, outcome)
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=consulta-%s.pdf", outcome.RecordID))
		w.Header().Set("X-Consultation-Id", outcome.RecordID)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(outcome.PDF)
	}
}

func handleListConsultations(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		list, err := env.Store.ListConsultations(r.Context(), store.Filter{
			DomCode: r.URL.Query().Get("dom_code"),
			Verdict: r.URL.Query().Get("verdict"),
			Limit:   limit,
			Offset:  offset,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleRegenerateReport(env *env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		pdf, err := env.Service.RegenerateReport(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=consulta-%s.pdf", id))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(pdf)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case eris.Is(err, catalog.ErrNotFound) || eris.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case eris.Is(err, eligibility.ErrUnhandledCondition) || eris.Is(err, eligibility.ErrMissingValue):
		status = http.StatusUnprocessableEntity
	case eris.Is(err, proximity.ErrTimeout) || eris.Is(err, mapimage.ErrUnavailable):
		status = http.StatusGatewayTimeout
	}

	if status == http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err))
	} else {
		zap.L().Warn("request rejected", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
