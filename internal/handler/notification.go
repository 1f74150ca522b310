package handler

import (
	"net/http"

	"clipfeed/internal/httputil"
	"clipfeed/internal/model"
	"clipfeed/internal/service"
)

type NotificationHandler struct {
	notifService *service.NotificationService
}

func NewNotificationHandler(notifService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notifService: notifService,
	}
}

// List handles GET /notifications
// Returns the inbox of the authenticated user, newest first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	notifications, err := h.notifService.List(r.Context(), userID)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteOK(w, notifications)
}

// HasNew handles GET /notifications/has-new
// Only the most recent entry is inspected.
func (h *NotificationHandler) HasNew(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	hasNew, err := h.notifService.HasUnread(r.Context(), userID)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteOK(w, map[string]bool{"hasNew": hasNew})
}

// MarkAllRead handles POST /notifications/read-all
// Marks all notifications as read for the authenticated user.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.notifService.MarkAllRead(r.Context(), userID); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteOK(w, map[string]string{"message": "All notifications marked as read"})
}

// GetUnreadCount handles GET /notifications/unread-count
// Returns the count of unread notifications (for badge display).
func (h *NotificationHandler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	count, err := h.notifService.UnreadCount(r.Context(), userID)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteOK(w, map[string]int{"unread_count": count})
}

// Delete handles DELETE /notifications/{id}
// Deleting an entry that is already gone succeeds.
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	notificationID, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	err := h.notifService.Delete(r.Context(), model.DeleteByID, userID, model.NotificationMatcher{ID: notificationID})
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
