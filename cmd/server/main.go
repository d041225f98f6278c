package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"termchat/internal/auth"
	"termchat/internal/chat"
	"termchat/internal/config"
	"termchat/internal/handlers"
	"termchat/internal/store"
	"termchat/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize user store
	users, err := newUserStore(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize user store: %v", err)
	}
	defer users.Close()

	// Initialize services
	authService := auth.NewService(users, cfg)

	// Chat engine: directory, log, presence, manager, sweeper
	directory := chat.NewDirectory(cfg.Chat.DefaultRoom)
	messageLog := chat.NewMessageLog(cfg.Chat.MessageMaxAge, cfg.Chat.MessageCap)
	presence := chat.NewPresence()
	manager := chat.NewManager(authService, directory, messageLog, presence, cfg.Chat)
	sweeper := chat.NewSweeper(messageLog, cfg.Chat.SweepInterval)

	manager.Start()
	sweeper.Start()

	// Initialize handlers
	authHandlers := handlers.NewAuthHandlers(authService)
	apiHandlers := handlers.NewAPIHandlers(users, manager, directory, messageLog, presence)
	wsHandlers := handlers.NewWebSocketHandlers(manager)

	// Setup routes
	mux := http.NewServeMux()
	setupRoutes(mux, cfg, authService, authHandlers, apiHandlers, wsHandlers)

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      corsMiddleware(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	logger.Info("🚀 Server started on http://localhost%s", cfg.Server.Port)
	logger.Info("📡 WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)
	printAPIEndpoints()

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown: %v", err)
	}

	sweeper.Stop()
	manager.Stop()
	logger.Info("Server stopped")
}

func newUserStore(cfg *config.Config) (store.UserStore, error) {
	if cfg.Database.URL == "" {
		logger.Warn("DATABASE_URL not set, user accounts are kept in memory")
		return store.NewMemoryStore(), nil
	}
	return store.NewPostgresStore(cfg.Database.URL)
}

func setupRoutes(mux *http.ServeMux, cfg *config.Config, authService *auth.Service, authHandlers *handlers.AuthHandlers, apiHandlers *handlers.APIHandlers, wsHandlers *handlers.WebSocketHandlers) {
	limiter := handlers.NewRateLimiter(cfg.API.RateLimit, cfg.API.RateWindow)

	api := http.NewServeMux()
	api.HandleFunc("/api/register", authHandlers.Register)
	api.HandleFunc("/api/login", authHandlers.Login)
	api.HandleFunc("/api/rooms", handlers.RequireAuth(authService, apiHandlers.ListRooms))
	api.HandleFunc("/api/messages/", handlers.RequireAuth(authService, apiHandlers.RoomMessages))
	api.HandleFunc("/api/stats", handlers.RequireAuth(authService, apiHandlers.Stats))
	mux.Handle("/api/", limiter.Middleware(api))

	// WebSocket route
	mux.HandleFunc("/ws", wsHandlers.HandleWebSocket)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func printAPIEndpoints() {
	logger.Info("🔗 API endpoints:")
	logger.Info("   POST /api/register")
	logger.Info("   POST /api/login")
	logger.Info("   GET  /api/rooms")
	logger.Info("   GET  /api/messages/{roomId}")
	logger.Info("   GET  /api/stats")
}
