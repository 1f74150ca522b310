package http

import (
	"github.com/go-chi/chi/v5"

	"clipfeed/internal/config"
	"clipfeed/internal/dispatch"
	"clipfeed/internal/handler"
	"clipfeed/internal/media"
	"clipfeed/internal/metrics"
	"clipfeed/internal/model"
	"clipfeed/internal/queue"
	"clipfeed/internal/repository"
	"clipfeed/internal/service"
)

// Stores groups the backends the services are built on. Publisher is
// optional.
type Stores struct {
	Users         repository.UserRepository
	Videos        repository.VideoRepository
	Notifications repository.NotificationRepository
	Sessions      repository.SessionRepository
	Files         media.Store
	Publisher     queue.Publisher
}

// App is the wired service layer plus the router serving it.
type App struct {
	Router chi.Router
	Auth   *service.AuthService
}

// NewApp builds services and handlers over stores and mounts them.
func NewApp(cfg *config.Config, stores Stores, dispatcher dispatch.Dispatcher, m *metrics.Metrics) *App {
	notificationService := service.NewNotificationService(stores.Notifications, stores.Users, stores.Files)
	engagementService := service.NewEngagementService(stores.Videos, stores.Users, notificationService, dispatcher, m)
	commentService := service.NewCommentService(stores.Videos, stores.Users, notificationService, dispatcher, stores.Files)
	followService := service.NewFollowService(stores.Users, notificationService, dispatcher, stores.Files, m)
	feedService := service.NewFeedService(stores.Videos, stores.Users, stores.Files, dispatcher, stores.Publisher, m, service.FeedOptions{
		PageSize:     cfg.FeedPageSize,
		FollowingCap: cfg.FollowingFeedCap,
		Order:        model.ParseFeedOrder(cfg.FeedOrder),
	})
	videoService := service.NewVideoService(stores.Videos, stores.Users, stores.Notifications, stores.Files, dispatcher, stores.Publisher)
	userService := service.NewUserService(stores.Users, stores.Files)
	authService := service.NewAuthService(stores.Sessions, stores.Users, cfg)

	router := NewRouter(RouterConfig{
		AuthHandler:         handler.NewAuthHandler(userService, authService),
		UserHandler:         handler.NewUserHandler(userService, videoService),
		FollowHandler:       handler.NewFollowHandler(followService, userService),
		FeedHandler:         handler.NewFeedHandler(feedService),
		VideoHandler:        handler.NewVideoHandler(videoService, engagementService),
		CommentHandler:      handler.NewCommentHandler(commentService, engagementService),
		NotificationHandler: handler.NewNotificationHandler(notificationService),
		Metrics:             m,
		JWTSecret:           cfg.JWTSecret,
	})

	return &App{Router: router, Auth: authService}
}
