package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/config"
	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/crypto"
	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/database"
	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/handlers"
	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/logging"
	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/relay"
	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/store"
	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/transport"
)

func main() {
	config.Load()
	logging.Init()
	defer logging.Close()

	backend, err := openStore()
	if err != nil {
		log.Fatalf("Store init: %v", err)
	}
	defer database.Close()
	handlers.Store = backend

	if err := store.Seed(context.Background(), backend, config.Cfg.SeedFile); err != nil {
		log.Fatalf("Seed documents: %v", err)
	}

	sessions := relay.NewRegistry(config.Cfg.SessionRetention)
	if err := sessions.StartPruner(); err != nil {
		log.Fatalf("Session pruner: %v", err)
	}
	handlers.Sessions = sessions

	log.Printf("Config: store=%s, data=%s, connect_timeout=%s, known_hosts=%q",
		backend.Name(), config.Cfg.DataPath, config.Cfg.ConnectTimeout, config.Cfg.SSHKnownHosts)

	srv := &http.Server{
		Addr:    config.Cfg.ListenAddr,
		Handler: newRouter(),
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server starting on %s", config.Cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-sigCtx.Done()
	log.Println("Shutting down...")

	sessions.Stop()
	sessions.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

// openStore builds the document backend selected by LEIZI_STORE_BACKEND.
func openStore() (store.Backend, error) {
	switch config.Cfg.StoreBackend {
	case "", "file":
		return store.NewFileStore(config.Cfg.DataPath)
	case "sqlite":
		if err := database.Init(); err != nil {
			return nil, fmt.Errorf("database init: %w", err)
		}
		return store.NewSQLStore(database.DB, crypto.New(database.DB, config.Cfg.EncryptionKey)), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", config.Cfg.StoreBackend)
	}
}

func newRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: config.Cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", handlers.HealthCheck)

	r.Get("/ws/ssh", handlers.RelayWS(transport.KindSSH))
	r.Get("/ws/telnet", handlers.RelayWS(transport.KindTelnet))
	r.Get("/ws/serial", handlers.RelayWS(transport.KindSerial))

	r.Route("/api", func(r chi.Router) {
		r.Get("/config", handlers.GetDocument(store.DocConfig))
		r.Post("/config", handlers.PutDocument(store.DocConfig))
		r.Put("/config", handlers.PutDocument(store.DocConfig))
		r.Get("/shortcut", handlers.GetDocument(store.DocShortcut))
		r.Post("/shortcut", handlers.PutDocument(store.DocShortcut))
		r.Put("/shortcut", handlers.PutDocument(store.DocShortcut))

		r.Get("/serial/ports", handlers.ListSerialPorts)
		r.Post("/sftp/list", handlers.ListSFTPDirectory)

		r.Get("/sessions", handlers.ListSessions)
		r.Delete("/sessions/{id}", handlers.CloseSession)

		r.Get("/server-logs", handlers.GetServerLogs)
		r.Delete("/server-logs", handlers.ClearServerLogs)
	})

	return r
}
