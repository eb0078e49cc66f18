package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/privylex/privylex/internal/api/handlers"
	"github.com/privylex/privylex/internal/api/middleware"
	"github.com/privylex/privylex/internal/auth"
	"github.com/privylex/privylex/internal/cache"
	"github.com/privylex/privylex/internal/chat"
	"github.com/privylex/privylex/internal/config"
	"github.com/privylex/privylex/internal/lifecycle"
	"github.com/privylex/privylex/internal/protection"
	"github.com/privylex/privylex/internal/session"
)

type Router struct {
	mux   *chi.Mux
	redis *redis.Client
	cfg   *config.Config
	jwt   *auth.JWTMiddleware

	manager   *lifecycle.Manager
	chats     *chat.Controller
	selection *session.Selection
}

func NewRouter(client protection.Client, rdb *redis.Client, cfg *config.Config) *Router {
	manager := lifecycle.NewManager(client, lifecycle.Options{
		AppAddress:        cfg.Protection.AppAddress,
		WorkerpoolAddress: cfg.Protection.WorkerpoolAddress,
		GatewayURL:        cfg.Protection.GatewayURL,
	})
	selection := session.NewSelection()

	var insights chat.ResultCache
	if rdb != nil {
		insights = cache.NewInsightCache(rdb)
	}

	return &Router{
		mux:       chi.NewRouter(),
		redis:     rdb,
		cfg:       cfg,
		jwt:       auth.NewJWTMiddleware(cfg.Auth.JWTSecret),
		manager:   manager,
		chats:     chat.NewController(selection, manager, insights),
		selection: selection,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(50, 100)
	r.Use(rl.Limit)

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	docH := handlers.NewDocumentHandler(rt.manager, rt.chats, rt.selection)
	sessH := handlers.NewSessionHandler(rt.selection, rt.manager)
	chatH := handlers.NewChatHandler(rt.chats, rt.selection)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.jwt.Authenticate)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", docH.Upload)
			r.Get("/", docH.List)
			r.Get("/{id}", docH.Get)
			r.Delete("/{id}", docH.Delete)
			r.Get("/{id}/status", docH.Status)
			r.Post("/{id}/protect", docH.Protect)
			r.Post("/{id}/access", docH.GrantAccess)
		})

		r.Route("/session", func(r chi.Router) {
			r.Get("/", sessH.Get)
			r.Put("/", sessH.Select)
		})

		r.Route("/chat", func(r chi.Router) {
			r.Post("/", chatH.Submit)
			r.Get("/transcript", chatH.Transcript)
			r.Get("/stream", chatH.Stream)
		})
	})

	return r
}
