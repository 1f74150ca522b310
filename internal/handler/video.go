package handler

import (
	"net/http"

	"clipfeed/internal/httputil"
	"clipfeed/internal/media"
	"clipfeed/internal/model"
	"clipfeed/internal/service"
	"clipfeed/internal/transport/http/middleware"
)

// VideoHandler serves video uploads, lookups and the video-level toggles.
type VideoHandler struct {
	videoService      *service.VideoService
	engagementService *service.EngagementService
}

func NewVideoHandler(videoService *service.VideoService, engagementService *service.EngagementService) *VideoHandler {
	return &VideoHandler{
		videoService:      videoService,
		engagementService: engagementService,
	}
}

// Upload handles POST /videos
// Multipart form: video (mp4 file), caption, music, tags.
func (h *VideoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !parseMultipart(w, r, model.MaxVideoSizeBytes) {
		return
	}

	upload, err := formUpload(r, "video", media.UploadVideo)
	if err != nil {
		writeUploadError(w, r, err)
		return
	}

	input := model.CreateVideoInput{
		Caption: r.FormValue("caption"),
		Music:   r.FormValue("music"),
		Tags:    model.ParseTags(r.FormValue("tags")),
	}

	videoID, err := h.videoService.Upload(r.Context(), userID, input, upload)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteData(w, http.StatusCreated, model.UploadVideoResponse{VideoID: videoID.Hex()})
}

// Get handles GET /videos/{id}
func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	videoID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	video, err := h.videoService.Get(r.Context(), videoID, middleware.ViewerID(r.Context()))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteOK(w, video)
}

// Delete handles DELETE /videos/{id}
// Only the uploader can delete a video.
func (h *VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	videoID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.videoService.Delete(r.Context(), userID, videoID); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Like handles POST /videos/{id}/like
func (h *VideoHandler) Like(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	videoID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	liked, err := h.engagementService.ToggleLike(r.Context(), userID, model.LikeTarget{Kind: model.LikeVideo, VideoID: videoID})
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteOK(w, model.LikeResponse{Liked: liked})
}

// Share handles POST /videos/{id}/share
func (h *VideoHandler) Share(w http.ResponseWriter, r *http.Request) {
	videoID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.videoService.Share(r.Context(), videoID); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteOK(w, map[string]string{"message": "Video shared"})
}
