package router

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/flymebot/internal/conversation"
	"github.com/wolfman30/flymebot/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/flymebot/internal/http/middleware"
	"github.com/wolfman30/flymebot/internal/webchat"
	"github.com/wolfman30/flymebot/pkg/logging"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	WebChat             *webchat.Handler
	AdminConversations  *handlers.AdminConversationsHandler
	AdminAuthSecret     string
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string
	HealthChecks        map[string]HealthCheck

	// Per-IP limit for the public chat endpoints; zero disables it.
	ChatRateLimit float64
	ChatRateBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthHandler(cfg.HealthChecks))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.ConversationHandler != nil {
		r.Route("/conversations", func(c chi.Router) {
			c.Use(middleware.Compress(5))
			c.Post("/message", cfg.ConversationHandler.Message)
			c.Post("/jobs", cfg.ConversationHandler.Enqueue)
			c.Get("/jobs/{jobID}", cfg.ConversationHandler.Job)
		})
	}

	if cfg.WebChat != nil {
		r.Route("/chat", func(chat chi.Router) {
			chat.Get("/widget.js", cfg.WebChat.HandleWidgetJS)
			chat.Get("/ws", cfg.WebChat.HandleWebSocket)
			chat.Group(func(limited chi.Router) {
				if cfg.ChatRateLimit > 0 {
					limited.Use(httpmiddleware.RateLimit(cfg.ChatRateLimit, cfg.ChatRateBurst))
				}
				limited.Post("/message", cfg.WebChat.HandleMessage)
				limited.Get("/history", cfg.WebChat.HandleHistory)
			})
		})
	}

	// Admin routes are only mounted when a signing secret is configured.
	if cfg.AdminAuthSecret != "" && cfg.AdminConversations != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			cfg.AdminConversations.Routes(admin)
		})
	}

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		resp := map[string]string{"status": "ok"}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				resp[name] = err.Error()
				resp["status"] = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp[name] = "ok"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
