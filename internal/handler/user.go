package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"clipfeed/internal/httputil"
	"clipfeed/internal/media"
	"clipfeed/internal/model"
	"clipfeed/internal/service"
	"clipfeed/internal/transport/http/middleware"
)

type UserHandler struct {
	userService  *service.UserService
	videoService *service.VideoService
}

func NewUserHandler(userService *service.UserService, videoService *service.VideoService) *UserHandler {
	return &UserHandler{
		userService:  userService,
		videoService: videoService,
	}
}

// GetProfile handles GET /users/{username}
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.userService.GetProfile(r.Context(), chi.URLParam(r, "username"), middleware.ViewerID(r.Context()))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteOK(w, profile)
}

// UpdateProfile handles PATCH /users/{username}
// Multipart form with optional name, bio and photo fields.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !parseMultipart(w, r, model.MaxPhotoSizeBytes) {
		return
	}

	var update model.ProfileUpdate
	if values, ok := r.MultipartForm.Value["name"]; ok && len(values) > 0 {
		update.Name = &values[0]
	}
	if values, ok := r.MultipartForm.Value["bio"]; ok && len(values) > 0 {
		update.Bio = &values[0]
	}

	photo, err := formUpload(r, "photo", media.UploadPhoto)
	if err != nil {
		writeUploadError(w, r, err)
		return
	}

	profile, err := h.userService.UpdateProfile(r.Context(), userID, chi.URLParam(r, "username"), update, photo)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteOK(w, profile)
}

// ListVideos handles GET /users/{username}/videos?kind=uploaded|liked
func (h *UserHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	kind := model.VideoListKind(r.URL.Query().Get("kind"))

	videos, err := h.videoService.ListUserVideos(r.Context(), chi.URLParam(r, "username"), kind, middleware.ViewerID(r.Context()))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteOK(w, map[string]any{"videos": videos})
}
