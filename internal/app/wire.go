package app

import (
	"log/slog"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/traitors/server/internal/auth"
	"github.com/traitors/server/internal/guard"
	"github.com/traitors/server/internal/handler"
	"github.com/traitors/server/internal/repository"
	"github.com/traitors/server/internal/service"
	"github.com/traitors/server/internal/storage"
)

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	Store     repository.Store
	Objects   storage.ObjectStore
	Random    service.RandomSource
	Publisher service.EventPublisher // nil disables game events
	Logger    *slog.Logger

	SessionSecret    string
	SessionTTL       time.Duration
	CookieSecure     bool
	GameMasterSecret string
	CardDrawCooldown time.Duration
	CORSOrigins      []string
	AuthRateLimit    int // requests per minute per client IP on auth endpoints
	TrustedProxies   []netip.Prefix
	PublicURL        string
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) chi.Router {
	logger := deps.Logger
	store := deps.Store

	// Auth
	tokens := auth.NewSessionTokens(deps.SessionSecret)
	authn := auth.NewAuthenticator(tokens, store.Sessions, store.Users, logger)
	cookie := auth.CookieConfig{TTL: deps.SessionTTL, Secure: deps.CookieSecure}

	// Services
	events := service.NewEvents(deps.Publisher, logger)
	authSvc := service.NewAuthService(store, deps.Random, events, service.AuthConfig{
		GameMasterSecret: deps.GameMasterSecret,
		SessionTTL:       deps.SessionTTL,
	}, logger)
	voteSvc := service.NewVoteService(store, events, logger)
	messageSvc := service.NewMessageService(store, deps.Objects, events, logger)
	announcementSvc := service.NewAnnouncementService(store, deps.Objects, events, logger)
	cardSvc := service.NewCardService(store, deps.CardDrawCooldown, events, logger)
	mediaSvc := service.NewMediaService(deps.Objects)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, tokens, authn, cookie, guard.NewLoginLockout(), logger)
	playerHandler := handler.NewPlayerHandler(authSvc)
	voteHandler := handler.NewVoteHandler(voteSvc)
	messageHandler := handler.NewMessageHandler(messageSvc)
	announcementHandler := handler.NewAnnouncementHandler(announcementSvc)
	cardHandler := handler.NewCardHandler(cardSvc)
	objectHandler := handler.NewObjectHandler(mediaSvc, logger)
	inviteHandler := handler.NewInviteHandler(deps.PublicURL)

	authLimit := deps.AuthRateLimit
	if authLimit <= 0 {
		authLimit = 20
	}
	authLimiter := guard.NewRateLimiter(authLimit, time.Minute)

	gameMasterOnly := auth.RequireCapability(auth.GameMaster)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.TrustedRealIP(deps.TrustedProxies))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORSWithOrigins(deps.CORSOrigins...))
	r.Use(handler.SecurityHeaders)
	r.Use(handler.JSONContentType)

	// Health (no auth)
	r.Get("/health", handler.HealthHandler(store.Health))

	// Objects are addressed by unguessable keys; handlers set their own content type.
	r.Get("/objects/*", objectHandler.Serve)
	r.Put("/objects/*", objectHandler.Upload)

	r.Route("/api", func(r chi.Router) {
		r.Get("/invite/qr", inviteHandler.QR)

		// Auth routes (no session)
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(handler.RateLimit(authLimiter))
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
				r.Post("/gamemaster", authHandler.RegisterGameMaster)
			})
			r.Post("/logout", authHandler.Logout)

			r.With(authn.RequireSession).Get("/me", authHandler.Me)
			r.With(authn.RequireSession).Post("/change-codeword", authHandler.ChangeCodeword)
		})

		// Session-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authn.RequireSession)

			r.Get("/players", playerHandler.List)
			r.Get("/suspicion", voteHandler.Suspicion)

			r.Route("/votes", func(r chi.Router) {
				r.Post("/", voteHandler.Cast)
				r.Delete("/", voteHandler.Clear)
				r.With(gameMasterOnly).Get("/details", voteHandler.Details)
			})

			r.Route("/messages", func(r chi.Router) {
				r.Post("/", messageHandler.Send)
				r.Get("/public", messageHandler.Public)
				r.Get("/inbox", messageHandler.Inbox)
				r.Get("/private/received", messageHandler.Received)
				r.Get("/private/count", messageHandler.Count)
				r.With(gameMasterOnly).Get("/private/admin/all", messageHandler.AllPrivate)
				r.Get("/private/{targetId}", messageHandler.Thread)
			})

			r.Route("/announcements", func(r chi.Router) {
				r.Get("/", announcementHandler.List)
				r.With(gameMasterOnly).Post("/", announcementHandler.Create)
				r.With(gameMasterOnly).Delete("/{id}", announcementHandler.Delete)
			})

			r.Route("/cards", func(r chi.Router) {
				r.Get("/can-draw", cardHandler.CanDraw)
				r.Post("/draw", cardHandler.Draw)
			})

			r.Post("/objects/upload", objectHandler.CreateUpload)
			r.Put("/media-attachments", objectHandler.Attach)
		})
	})

	return r
}
