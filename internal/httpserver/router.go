package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "wachat/docs"
	"wachat/internal/config"
	"wachat/internal/feed"
	"wachat/internal/security"
	"wachat/internal/service"
	"wachat/internal/ws"
)

// Deps is everything the router needs. Services are built by the caller so
// tests and cmd/server share the same wiring.
type Deps struct {
	Config        *config.Config
	Log           zerolog.Logger
	Tokens        *security.TokenService
	Profiles      *service.ProfileService
	Conversations *service.ConversationService
	Messages      *service.MessageService
	Hub           *ws.Hub
	Feed          feed.Feed
	Limiter       *SendLimiter
}

// NewRouter constructs the main HTTP router and wires routes and middleware.
func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	log := d.Log.With().Str("component", "http").Logger()

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": cfg.AppName + " API",
			"version": "1.0.0",
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(AuthMiddleware(d.Tokens, log))

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", handleListProfiles(d.Profiles))
			r.Put("/me", handleUpsertMyProfile(d.Profiles))
			r.Get("/{userID}", handleGetProfile(d.Profiles))
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", handleListConversations(d.Conversations))
			r.Get("/ids", handleListConversationIDs(d.Conversations))
			r.Post("/direct", handleCreateDirectConversation(d.Conversations))
			r.Get("/{conversationID}/participants/{userID}", handleCheckParticipant(d.Conversations))
			r.Get("/{conversationID}/messages", handleListMessages(d.Messages))
			r.With(d.Limiter.Middleware).Post("/{conversationID}/messages", handleCreateMessage(d.Messages))
		})

		r.Route("/messages", func(r chi.Router) {
			r.Get("/", handleListRecentMessages(d.Messages))
			r.Get("/{messageID}", handleGetMessage(d.Messages))
		})

		r.Mount("/uploads", UploadRoutes(cfg.UploadDir, log))
	})

	r.Get("/ws", ws.MakeHandler(d.Hub, d.Tokens, d.Feed, d.Conversations, cfg.CORSOrigins, d.Log))

	return r
}
