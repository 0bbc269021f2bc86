package handlers

import (
	"net/http"
	"time"

	"webchat-backend/internal/middleware"
	"webchat-backend/internal/service/chat"
	"webchat-backend/internal/service/user"
	"webchat-backend/internal/ws"
	"webchat-backend/pkg/api"
	"webchat-backend/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router.
type Router struct {
	users    user.Service
	chats    chat.Service
	wsServer *ws.Server
	metrics  *observability.Collector
	logger   *zap.Logger

	// AllowedOrigins for CORS; defaults to localhost dev origins.
	AllowedOrigins []string
	// RequestTimeout bounds every API request.
	RequestTimeout time.Duration
}

// NewRouter creates a new router instance.
func NewRouter(users user.Service, chats chat.Service, wsServer *ws.Server, metrics *observability.Collector, logger *zap.Logger) *Router {
	return &Router{
		users:          users,
		chats:          chats,
		wsServer:       wsServer,
		metrics:        metrics,
		logger:         logger,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		RequestTimeout: 30 * time.Second,
	}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Recovery(rt.logger))
	router.Use(middleware.Logger(rt.logger, rt.metrics))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health and metrics
	router.Get("/health", rt.healthCheck)
	router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())

	// WebSocket endpoint; the upgrade must not run under the request
	// timeout, the connection outlives any deadline.
	router.Get("/ws", rt.wsServer.HandleWebSocket)

	// API v1 routes
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(rt.RequestTimeout, rt.logger))
		r.Use(middleware.CircuitBreaker(middleware.DefaultCircuitBreakerConfig("api"), rt.logger))

		hub := rt.wsServer.Hub()

		r.Route("/users", func(r chi.Router) {
			userHandler := NewUserHandler(rt.users, rt.logger)
			chatHandler := NewChatHandler(rt.chats, rt.users, hub, rt.logger)
			r.Post("/", userHandler.CreateUser)
			r.Get("/", userHandler.ListUsers)
			r.Get("/{userID}", userHandler.GetUser)
			r.Put("/{userID}", userHandler.UpdateUser)
			r.Delete("/{userID}", userHandler.DeleteUser)
			r.Get("/by-username/{username}", userHandler.GetUserByUsername)
			r.Get("/{userID}/chats", chatHandler.ListUserChats)
		})

		r.Route("/chats", func(r chi.Router) {
			chatHandler := NewChatHandler(rt.chats, rt.users, hub, rt.logger)
			messageHandler := NewMessageHandler(rt.chats, hub, rt.logger)
			r.Post("/", chatHandler.CreateChat)
			r.Get("/", chatHandler.ListChats)
			r.Get("/{chatID}", chatHandler.GetChat)
			r.Delete("/{chatID}", chatHandler.DeleteChat)
			r.Post("/{chatID}/participants", chatHandler.AddParticipant)
			r.Delete("/{chatID}/participants/{userID}", chatHandler.RemoveParticipant)
			r.Post("/{chatID}/messages", messageHandler.SendMessage)
			r.Get("/{chatID}/messages", messageHandler.ListMessages)
		})

		r.Route("/messages", func(r chi.Router) {
			messageHandler := NewMessageHandler(rt.chats, hub, rt.logger)
			r.Put("/{messageID}/status", messageHandler.UpdateMessageStatus)
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, map[string]string{"status": "healthy"})
}
