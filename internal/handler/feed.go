package handler

import (
	"net/http"

	"clipfeed/internal/httputil"
	"clipfeed/internal/model"
	"clipfeed/internal/service"
	"clipfeed/internal/transport/http/middleware"
)

type FeedHandler struct {
	feedService *service.FeedService
}

func NewFeedHandler(feedService *service.FeedService) *FeedHandler {
	return &FeedHandler{
		feedService: feedService,
	}
}

// viewerUsername is empty for anonymous requests.
func viewerUsername(r *http.Request) string {
	username, _ := middleware.GetUsernameFromContext(r.Context())
	return username
}

// GetFeed handles GET /feed
//
// Query params:
//   - skip: optional, number of ranked videos already served (default 0)
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	skip, ok := intQuery(w, r, "skip", 0)
	if !ok {
		return
	}

	feed, err := h.feedService.HomeFeed(r.Context(), viewerUsername(r), skip)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteOK(w, map[string]any{"videos": feed})
}

// GetFollowingFeed handles GET /feed/following
func (h *FeedHandler) GetFollowingFeed(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.GetUsernameFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	skip, ok := intQuery(w, r, "skip", 0)
	if !ok {
		return
	}

	feed, err := h.feedService.FollowingFeed(r.Context(), username, skip)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteOK(w, map[string]any{"videos": feed})
}

// GetSuggested handles GET /feed/suggested?limit=
// A limit of 0 returns every account.
func (h *FeedHandler) GetSuggested(w http.ResponseWriter, r *http.Request) {
	limit, ok := intQuery(w, r, "limit", 0)
	if !ok {
		return
	}

	users, err := h.feedService.Suggested(r.Context(), limit, middleware.ViewerID(r.Context()))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteOK(w, map[string]any{"users": users})
}

// Search handles GET /search?q=&mode=accounts|videos
func (h *FeedHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	mode := model.SearchMode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = model.SearchAccounts
	}

	result, err := h.feedService.Search(r.Context(), query, mode, viewerUsername(r))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteOK(w, result)
}
