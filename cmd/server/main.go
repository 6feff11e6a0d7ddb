package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/plannr/plannr/blueprint-go/internal/auth"
	"github.com/plannr/plannr/blueprint-go/internal/backend/postgres"
	"github.com/plannr/plannr/blueprint-go/internal/backend/redis"
	"github.com/plannr/plannr/blueprint-go/internal/backend/sqlite"
	"github.com/plannr/plannr/blueprint-go/internal/blueprint"
	"github.com/plannr/plannr/blueprint-go/internal/collab"
	"github.com/plannr/plannr/blueprint-go/internal/config"
	"github.com/plannr/plannr/blueprint-go/internal/document"
	mw "github.com/plannr/plannr/blueprint-go/internal/middleware"
)

// storage is what both database backends provide.
type storage interface {
	blueprint.Repository
	collab.RelayStore
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		slog.Error("open storage", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	relayStore, closeRelay, err := openRelayStore(ctx, cfg, store)
	if err != nil {
		slog.Error("open collaboration backend", "backend", cfg.CollabBackend, "error", err)
		os.Exit(1)
	}
	defer closeRelay()

	hub, err := collab.NewHub(collab.HubOptions{
		Store:          relayStore,
		CacheSize:      cfg.RelayCacheSize,
		CursorTTL:      cfg.CursorTTL,
		SweepInterval:  cfg.CursorSweepInterval,
		OriginPatterns: cfg.Origins(),
	})
	if err != nil {
		slog.Error("create hub", "error", err)
		os.Exit(1)
	}
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	authService := auth.NewService(cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	blueprintService := blueprint.NewService(store)
	blueprintHandler := blueprint.NewHandler(blueprintService)

	r := mux.NewRouter()

	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	r.HandleFunc("/auth/guest", authHandler.Guest).Methods("POST", "OPTIONS")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)
	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/editor/config", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(cfg.Editor())
	}).Methods("GET")
	blueprintHandler.Routes(api)

	r.HandleFunc("/ws/blueprints/{blueprintId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, blueprintService)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown", "error", err)
		}
		stopHub()
	}()

	slog.Info("server starting", "addr", addr, "storage", cfg.StorageBackend, "collab", cfg.CollabBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func openStorage(ctx context.Context, cfg *config.Config) (storage, error) {
	switch cfg.StorageBackend {
	case "sqlite":
		return sqlite.Open(cfg.SQLitePath)
	case "postgres":
		return postgres.Open(ctx, cfg.DatabaseURL)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

// openRelayStore picks where the relay persists shapes and cursors. The
// database backends reuse the document store.
func openRelayStore(ctx context.Context, cfg *config.Config, store storage) (collab.RelayStore, func(), error) {
	noop := func() {}
	switch cfg.CollabBackend {
	case "none":
		return nil, noop, nil
	case "ws":
		slog.Warn("the relay cannot use itself as a backend, keeping records in memory")
		return nil, noop, nil
	case "sqlite", "postgres":
		if cfg.CollabBackend != cfg.StorageBackend {
			return nil, noop, fmt.Errorf("collaboration backend %q needs STORAGE_BACKEND=%s", cfg.CollabBackend, cfg.CollabBackend)
		}
		return store, noop, nil
	case "redis":
		b, err := redis.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, noop, err
		}
		return b, func() { b.Close() }, nil
	}
	return nil, noop, fmt.Errorf("unknown collaboration backend %q", cfg.CollabBackend)
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, authSvc *auth.Service, blueprints *blueprint.Service) {
	blueprintID := mux.Vars(r)["blueprintId"]

	id, err := authSvc.FromQuery(r)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	if _, err := blueprints.Get(r.Context(), blueprintID); err != nil {
		if errors.Is(err, document.ErrNotFound) {
			http.Error(w, "blueprint not found", http.StatusNotFound)
			return
		}
		slog.Error("load blueprint for websocket", "blueprint", blueprintID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	hub.ServeWS(w, r, blueprintID, id.ActorID, id.DisplayName)
}
