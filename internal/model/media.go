package model

// Upload limits
const (
	MaxVideoSizeBytes = 40 * 1024 * 1024
	MaxPhotoSizeBytes = 2 * 1024 * 1024

	PhotoWidth  = 200
	PhotoHeight = 200
	PhotoFolder = "photos"
	VideoFolder = "videos"
	PhotoExt    = ".jpg"
	VideoExt    = ".mp4"

	MediaCacheControl = "public, max-age=31536000" // 1 year
)

// Supported content types for upload validation
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeMP4  = "video/mp4"
)

var allowedPhotoTypes = map[string]struct{}{
	ContentTypeJPEG: {},
	ContentTypePNG:  {},
}

// Error codes for HTTP responses
const (
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeInvalidMediaType = "INVALID_MEDIA_TYPE"
)

var (
	ErrFileTooLarge     = newError(ErrInvalidInput, "file too large")
	ErrInvalidPhotoType = newError(ErrInvalidInput, "only .png and .jpeg photos are allowed")
	ErrInvalidVideoType = newError(ErrInvalidInput, "only .mp4 videos are allowed")
)

// IsAllowedPhotoType reports if the provided content type is a supported photo.
func IsAllowedPhotoType(contentType string) bool {
	_, ok := allowedPhotoTypes[contentType]
	return ok
}

// IsAllowedVideoType reports if the provided content type is a supported video.
func IsAllowedVideoType(contentType string) bool {
	return contentType == ContentTypeMP4
}

// UploadVideoResponse is returned after a video upload.
type UploadVideoResponse struct {
	VideoID string `json:"videoId"`
}
