package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"chatrooms/internal/chat"
	"chatrooms/internal/config"
	"chatrooms/internal/db"
	"chatrooms/internal/message"
	"chatrooms/internal/room"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Bad configuration: %v", err)
	}

	// Database (Platform Layer)
	database, err := db.NewDatabase(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("❌ Failed to connect to DB: %v", err)
	}
	defer database.Close()
	log.Println("✅ Connected to PostgreSQL")

	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Database Schema Initialized")

	// Repositories
	roomRepo := room.NewRepository(database.Conn)
	msgRepo := message.NewRepository(database.Conn)

	// Realtime core
	hub := chat.NewHub(msgRepo)

	// Optional Redis bridge for multi-instance fan-out
	var bridge *chat.Bridge
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		log.Println("✅ Connected to Redis")

		bridge = chat.NewBridge(rdb)
		hub.AttachBridge(bridge)
	}

	roomHandler := room.NewHandler(roomRepo, hub)
	msgHandler := message.NewHandler(hub, msgRepo)
	chatHandler := chat.NewHandler(hub)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/rooms", func(r chi.Router) {
		r.Post("/", roomHandler.Create)
		r.Get("/", roomHandler.List)

		r.Route("/{roomId}", func(r chi.Router) {
			r.Get("/", roomHandler.Get)
			r.Patch("/", roomHandler.Update)
			r.Delete("/", roomHandler.Delete)

			r.Post("/messages", msgHandler.Create)
			r.Get("/messages", msgHandler.List)
		})
	})
	r.Delete("/messages/{id}", msgHandler.Delete)

	// WebSocket (Real-time)
	r.Get("/ws", chatHandler.ServeWs)

	srv := &http.Server{Addr: cfg.Addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("🚀 Server starting on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	hub.Close()
	if bridge != nil {
		bridge.Close()
	}
}
