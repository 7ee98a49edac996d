package main

import (
	"context"
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

	"github.com/motorline-group/pricing-cli/internal/engine"
	"github.com/motorline-group/pricing-cli/internal/model"
	"github.com/motorline-group/pricing-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analysis HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		eng, err := buildEngine(st)
		if err != nil {
			return err
		}

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "OPTIONS"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Get("/api/analysis/fleet", func(w http.ResponseWriter, req *http.Request) {
			q := req.URL.Query()
			filter := engine.FleetFilter{
				Model:  q.Get("model"),
				Source: q.Get("source"),
			}
			if s := q.Get("position"); s != "" {
				pos, ok := model.ParsePosition(s)
				if !ok {
					writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown position"})
					return
				}
				filter.Position = pos
			}

			report, err := eng.AnalyzeFleet(req.Context(), filter)
			if err != nil {
				zap.L().Error("fleet analysis failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "analysis failed"})
				return
			}
			writeJSON(w, http.StatusOK, report)
		})

		r.Get("/api/analysis/vehicle/{id}", func(w http.ResponseWriter, req *http.Request) {
			id := chi.URLParam(req, "id")

			mo := eng.MatchOptions()
			if ok := queryInt(req, "yearTolerance", &mo.YearTolerance); !ok {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid yearTolerance"})
				return
			}
			if ok := queryInt(req, "powerTolerance", &mo.PowerToleranceCV); !ok {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid powerTolerance"})
				return
			}

			report, err := eng.AnalyzeVehicleWith(req.Context(), id, mo)
			if err != nil {
				if eris.Is(err, store.ErrNotFound) {
					writeJSON(w, http.StatusNotFound, map[string]string{"error": "vehicle not found"})
					return
				}
				zap.L().Error("vehicle analysis failed", zap.String("id", id), zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "analysis failed"})
				return
			}
			writeJSON(w, http.StatusOK, report)
		})

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

// queryInt overwrites dst when the parameter is present. Returns false on
// an unparseable value.
func queryInt(req *http.Request, name string, dst *int) bool {
	s := req.URL.Query().Get(name)
	if s == "" {
		return true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return false
	}
	*dst = n
	return true
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
