package handler

import (
	"net/http"

	"clipfeed/internal/httputil"
	"clipfeed/internal/model"
	"clipfeed/internal/service"
	"clipfeed/internal/transport/http/middleware"
)

type CommentHandler struct {
	commentService    *service.CommentService
	engagementService *service.EngagementService
}

func NewCommentHandler(commentService *service.CommentService, engagementService *service.EngagementService) *CommentHandler {
	return &CommentHandler{
		commentService:    commentService,
		engagementService: engagementService,
	}
}

// List handles GET /videos/{id}/comments
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	videoID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	comments, err := h.commentService.ListComments(r.Context(), videoID, middleware.ViewerID(r.Context()))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteOK(w, map[string]any{"comments": comments})
}

// Create handles POST /videos/{id}/comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	videoID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req model.CreateCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	commentID, err := h.commentService.CreateComment(r.Context(), userID, videoID, req.Comment)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusCreated, map[string]string{"commentId": commentID.Hex()})
}

// Delete handles DELETE /videos/{id}/comments/{commentId}
// Only the poster can delete a comment.
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	videoID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	commentID, ok := idParam(w, r, "commentId")
	if !ok {
		return
	}

	if err := h.commentService.DeleteComment(r.Context(), userID, videoID, commentID); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Like handles POST /videos/{id}/comments/{commentId}/like
func (h *CommentHandler) Like(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	videoID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	commentID, ok := idParam(w, r, "commentId")
	if !ok {
		return
	}

	liked, err := h.engagementService.ToggleLike(r.Context(), userID, model.LikeTarget{
		Kind:      model.LikeComment,
		VideoID:   videoID,
		CommentID: commentID,
	})
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteOK(w, model.LikeResponse{Liked: liked})
}

// CreateReply handles POST /videos/{id}/comments/{commentId}/replies
func (h *CommentHandler) CreateReply(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	videoID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	commentID, ok := idParam(w, r, "commentId")
	if !ok {
		return
	}

	var req model.CreateCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	replyID, err := h.commentService.CreateReply(r.Context(), userID, videoID, commentID, req.Comment)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusCreated, map[string]string{"replyId": replyID.Hex()})
}

// DeleteReply handles DELETE /videos/{id}/comments/{commentId}/replies/{replyId}
func (h *CommentHandler) DeleteReply(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	videoID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	commentID, ok := idParam(w, r, "commentId")
	if !ok {
		return
	}
	replyID, ok := idParam(w, r, "replyId")
	if !ok {
		return
	}

	if err := h.commentService.DeleteReply(r.Context(), userID, videoID, commentID, replyID); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LikeReply handles POST /videos/{id}/comments/{commentId}/replies/{replyId}/like
func (h *CommentHandler) LikeReply(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	videoID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	commentID, ok := idParam(w, r, "commentId")
	if !ok {
		return
	}
	replyID, ok := idParam(w, r, "replyId")
	if !ok {
		return
	}

	liked, err := h.engagementService.ToggleLike(r.Context(), userID, model.LikeTarget{
		Kind:      model.LikeReply,
		VideoID:   videoID,
		CommentID: commentID,
		ReplyID:   replyID,
	})
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteOK(w, model.LikeResponse{Liked: liked})
}
