package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/auth"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/domain"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/metrics"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/middleware"
)

// Router holds all handlers and creates the chi router
type Router struct {
	authHandler     *AuthHandler
	networkHandler  *NetworkHandler
	forumHandler    *ForumHandler
	resourceHandler *ResourceHandler
	healthHandler   *HealthHandler
	jwtManager      *auth.JWTManager
	users           middleware.UserLookup
	metrics         *metrics.Collector
	allowedOrigins  []string
	logger          *zap.Logger
}

// RouterConfig gathers the collaborators of NewRouter. Metrics may be nil.
type RouterConfig struct {
	Auth           *AuthHandler
	Network        *NetworkHandler
	Forum          *ForumHandler
	Resources      *ResourceHandler
	Health         *HealthHandler
	JWTManager     *auth.JWTManager
	Users          middleware.UserLookup
	Metrics        *metrics.Collector
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter creates a new router
func NewRouter(cfg RouterConfig) *Router {
	return &Router{
		authHandler:     cfg.Auth,
		networkHandler:  cfg.Network,
		forumHandler:    cfg.Forum,
		resourceHandler: cfg.Resources,
		healthHandler:   cfg.Health,
		jwtManager:      cfg.JWTManager,
		users:           cfg.Users,
		metrics:         cfg.Metrics,
		allowedOrigins:  cfg.AllowedOrigins,
		logger:          cfg.Logger,
	}
}

// Setup configures and returns the chi router
func (rt *Router) Setup() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.LoggingMiddleware(rt.logger))
	r.Use(middleware.RecoveryMiddleware(rt.logger))
	if rt.metrics != nil {
		r.Use(rt.metrics.Middleware)
	}
	r.Use(middleware.CORSMiddleware(rt.allowedOrigins))
	r.Use(chimiddleware.Compress(5))

	r.Route("/health", func(r chi.Router) {
		r.Get("/", rt.healthHandler.Health)
		r.Get("/ready", rt.healthHandler.Ready)
		r.Get("/live", rt.healthHandler.Live)
	})
	if rt.metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	authenticate := middleware.AuthMiddleware(rt.jwtManager, rt.users)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", rt.authHandler.Register)
			r.Post("/login", rt.authHandler.Login)
			r.Post("/refresh", rt.authHandler.Refresh)
			r.With(authenticate).Get("/me", rt.authHandler.Me)
		})

		r.Route("/network", func(r chi.Router) {
			r.Use(authenticate)
			rt.networkRoutes(r)
		})

		r.Route("/forum", rt.forumRoutes(authenticate))
		r.Route("/resources", rt.resourceRoutes(authenticate))
	})

	return r
}

func (rt *Router) networkRoutes(r chi.Router) {
	h := rt.networkHandler

	r.Get("/stats", h.Stats)
	r.Get("/members", h.Members)
	r.Get("/members/follow-ups", h.FollowUps)
	r.Get("/members/recent", h.RecentCommunications)
	r.Get("/members/key-relationships", h.KeyRelationships)

	r.Put("/relationship/{connectionId}", h.UpdateRelationship)
	r.Post("/relationship/{connectionId}/communication", h.LogCommunication)
	r.Post("/relationship/{connectionId}/follow-up", h.ScheduleFollowUp)
	r.Post("/relationship/{connectionId}/note", h.AddNote)

	r.Get("/chapters", h.Chapters)
	r.Get("/industries", h.Industries)

	r.Get("/connections", h.MyConnections)
	r.Get("/requests", h.PendingRequests)
	r.Get("/chapter-members", h.ChapterMembers)

	r.Post("/request", h.SendRequest)
	r.Post("/request/{connectionId}/accept", h.Accept)
	r.Post("/request/{connectionId}/reject", h.Reject)
	r.Delete("/connection/{connectionId}", h.Remove)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(domain.RoleAdmin))
		r.Post("/connection", h.CreateDirect)
		r.Post("/connections/bulk", h.BulkAdd)
	})

	r.Get("/potential-connections", h.PotentialConnections)
	r.Get("/search", h.Search)
}

func (rt *Router) forumRoutes(authenticate func(http.Handler) http.Handler) func(chi.Router) {
	h := rt.forumHandler
	return func(r chi.Router) {
		r.Get("/categories", h.ListCategories)
		r.Get("/topics", h.ListTopics)
		r.Get("/topics/{id}", h.GetTopic)
		r.Get("/search", h.SearchTopics)
		r.Get("/filters", h.Filters)
		r.Get("/topic-form-options", h.FormOptions)
		r.Get("/trending-tags", h.TrendingTags)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/topics", h.CreateTopic)
			r.Delete("/topics/{id}", h.DeleteTopic)
			r.Post("/topics/{id}/lock", h.LockTopic)
			r.Post("/topics/{id}/pin", h.PinTopic)

			r.Post("/topics/{id}/replies", h.AddReply)
			r.Put("/replies/{replyId}", h.EditReply)
			r.Delete("/replies/{replyId}", h.DeleteReply)
			r.Post("/replies/{replyId}/like", h.LikeReply)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(domain.RoleModerator))
				r.Post("/categories", h.AddCategory)
				r.Put("/categories/{id}", h.UpdateCategory)
				r.Delete("/categories/{id}", h.DeleteCategory)
			})
		})
	}
}

func (rt *Router) resourceRoutes(authenticate func(http.Handler) http.Handler) func(chi.Router) {
	h := rt.resourceHandler
	return func(r chi.Router) {
		r.Get("/search", h.Search)
		r.Get("/filter-options", h.FilterOptions)
		r.Get("/recent", h.Recent)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Get("/{id}/comments", h.Comments)
		r.Get("/{id}/commenters", h.Commenters)
		r.Post("/{id}/view", h.View)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Post("/{id}/access", h.Access)
			r.Post("/{id}/like", h.Like)
			r.Post("/{id}/bookmark", h.Bookmark)
			r.Post("/{id}/comments", h.AddComment)
			r.Post("/{id}/comments/{commentId}/like", h.LikeComment)
			r.Post("/{id}/comments/{commentId}/replies", h.ReplyToComment)
			r.Delete("/{id}/comments/{commentId}", h.DeleteComment)
		})
	}
}
