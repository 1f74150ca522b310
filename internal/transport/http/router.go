package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"clipfeed/internal/handler"
	"clipfeed/internal/httputil"
	"clipfeed/internal/metrics"
	authmw "clipfeed/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler         *handler.AuthHandler
	UserHandler         *handler.UserHandler
	FollowHandler       *handler.FollowHandler
	FeedHandler         *handler.FeedHandler
	VideoHandler        *handler.VideoHandler
	CommentHandler      *handler.CommentHandler
	NotificationHandler *handler.NotificationHandler
	Metrics             *metrics.Metrics
	JWTSecret           string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(authmw.RequestLogger(cfg.Metrics))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteOK(w, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	// Public routes - no authentication required
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", cfg.AuthHandler.Signup)
		r.Post("/login", cfg.AuthHandler.Login)
		r.Post("/refresh", cfg.AuthHandler.Refresh)
	})

	// Readable anonymously; a valid token personalises the response.
	r.Group(func(r chi.Router) {
		r.Use(authmw.OptionalAuthMiddleware(cfg.JWTSecret))

		r.Get("/feed", cfg.FeedHandler.GetFeed)
		r.Get("/feed/suggested", cfg.FeedHandler.GetSuggested)
		r.Get("/search", cfg.FeedHandler.Search)

		r.Get("/users/{username}", cfg.UserHandler.GetProfile)
		r.Get("/users/{username}/followers", cfg.FollowHandler.GetFollowers)
		r.Get("/users/{username}/following", cfg.FollowHandler.GetFollowing)
		r.Get("/users/{username}/videos", cfg.UserHandler.ListVideos)

		r.Get("/videos/{id}", cfg.VideoHandler.Get)
		r.Get("/videos/{id}/comments", cfg.CommentHandler.List)
	})

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		r.Get("/me", cfg.AuthHandler.Me)
		r.Post("/auth/logout", cfg.AuthHandler.Logout)
		r.Post("/auth/logout-all", cfg.AuthHandler.LogoutAll)

		r.Get("/feed/following", cfg.FeedHandler.GetFollowingFeed)

		r.Patch("/users/{username}", cfg.UserHandler.UpdateProfile)
		r.Post("/users/{username}/follow", cfg.FollowHandler.Toggle)

		r.Post("/videos", cfg.VideoHandler.Upload)
		r.Delete("/videos/{id}", cfg.VideoHandler.Delete)
		r.Post("/videos/{id}/like", cfg.VideoHandler.Like)
		r.Post("/videos/{id}/share", cfg.VideoHandler.Share)

		r.Post("/videos/{id}/comments", cfg.CommentHandler.Create)
		r.Delete("/videos/{id}/comments/{commentId}", cfg.CommentHandler.Delete)
		r.Post("/videos/{id}/comments/{commentId}/like", cfg.CommentHandler.Like)
		r.Post("/videos/{id}/comments/{commentId}/replies", cfg.CommentHandler.CreateReply)
		r.Delete("/videos/{id}/comments/{commentId}/replies/{replyId}", cfg.CommentHandler.DeleteReply)
		r.Post("/videos/{id}/comments/{commentId}/replies/{replyId}/like", cfg.CommentHandler.LikeReply)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", cfg.NotificationHandler.List)
			r.Get("/has-new", cfg.NotificationHandler.HasNew)
			r.Get("/unread-count", cfg.NotificationHandler.GetUnreadCount)
			r.Post("/read-all", cfg.NotificationHandler.MarkAllRead)
			r.Delete("/{id}", cfg.NotificationHandler.Delete)
		})
	})

	return r
}
