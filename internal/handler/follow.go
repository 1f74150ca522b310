package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"clipfeed/internal/httputil"
	"clipfeed/internal/model"
	"clipfeed/internal/service"
	"clipfeed/internal/transport/http/middleware"
)

type FollowHandler struct {
	followService *service.FollowService
	userService   *service.UserService
}

func NewFollowHandler(followService *service.FollowService, userService *service.UserService) *FollowHandler {
	return &FollowHandler{
		followService: followService,
		userService:   userService,
	}
}

// Toggle handles POST /users/{username}/follow
// Follows the user, or unfollows when the caller already follows them.
func (h *FollowHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	target, err := h.userService.GetByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	followed, err := h.followService.ToggleFollow(r.Context(), actorID, target.ID)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteOK(w, model.FollowResponse{Followed: followed})
}

// GetFollowers handles GET /users/{username}/followers
func (h *FollowHandler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	result, err := h.followService.Followers(r.Context(), chi.URLParam(r, "username"), middleware.ViewerID(r.Context()))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteOK(w, result)
}

// GetFollowing handles GET /users/{username}/following
func (h *FollowHandler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	result, err := h.followService.Following(r.Context(), chi.URLParam(r, "username"), middleware.ViewerID(r.Context()))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteOK(w, result)
}
