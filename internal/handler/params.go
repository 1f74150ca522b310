package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"clipfeed/internal/httputil"
	"clipfeed/internal/media"
	"clipfeed/internal/model"
	"clipfeed/internal/transport/http/middleware"
)

// multipartOverhead is the room left for non-file form fields.
const multipartOverhead = 1 << 20

// requireUser returns the authenticated caller or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
	}
	return userID, ok
}

// idParam parses the named URL parameter as an ObjectID or writes a 400.
func idParam(w http.ResponseWriter, r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid "+name)
		return primitive.NilObjectID, false
	}
	return id, true
}

// intQuery reads a non-negative integer query parameter, using def when
// it is absent.
func intQuery(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		httputil.WriteBadRequest(w, "Invalid "+name+" parameter")
		return 0, false
	}
	return n, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// parseMultipart limits the body to maxFile plus form overhead and parses it.
func parseMultipart(w http.ResponseWriter, r *http.Request, maxFile int64) bool {
	maxFormSize := maxFile + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrNotMultipart):
			httputil.WriteBadRequest(w, "Content-Type must be multipart/form-data")
		case errors.As(err, &tooLarge), strings.Contains(err.Error(), "request body too large"):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, model.ErrFileTooLarge.Error())
		default:
			httputil.WriteBadRequest(w, "Invalid form data")
		}
		return false
	}
	return true
}

// formUpload reads the named file from a parsed multipart form. A missing
// file yields a nil upload and no error.
func formUpload(r *http.Request, field string, kind media.UploadKind) (*media.Upload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, model.InvalidInput("invalid " + field + " upload")
	}
	defer file.Close()
	return media.ReadUpload(file, header, kind)
}

// writeUploadError answers upload read failures with the media error codes.
func writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrFileTooLarge):
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, err.Error())
	case errors.Is(err, model.ErrInvalidPhotoType), errors.Is(err, model.ErrInvalidVideoType):
		httputil.WriteBadRequestWithCode(w, model.CodeInvalidMediaType, err.Error())
	default:
		httputil.WriteServiceError(w, r, err)
	}
}

// clientIP extracts the client IP from the request
func clientIP(r *http.Request) string {
	// Check X-Forwarded-For header (for proxied requests)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// RemoteAddr is "IP:port"
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
