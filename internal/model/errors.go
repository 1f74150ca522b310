package model

import "errors"

// Error kinds. Every domain error below wraps exactly one of these so the
// transport layer can classify it with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUploadFailed = errors.New("upload failed")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
)

type domainError struct {
	kind error
	msg  string
}

func (e *domainError) Error() string { return e.msg }
func (e *domainError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &domainError{kind: kind, msg: msg}
}

// InvalidInput builds a validation error with a caller-supplied message.
func InvalidInput(msg string) error {
	return newError(ErrInvalidInput, msg)
}

var (
	ErrUserNotFound    = newError(ErrNotFound, "user does not exist")
	ErrVideoNotFound   = newError(ErrNotFound, "video does not exist")
	ErrCommentNotFound = newError(ErrNotFound, "comment does not exist")
	ErrReplyNotFound   = newError(ErrNotFound, "reply does not exist")

	ErrNotVideoOwner   = newError(ErrForbidden, "only the uploader can delete this video")
	ErrNotCommentOwner = newError(ErrForbidden, "only the poster can delete this comment")
	ErrNotReplyOwner   = newError(ErrForbidden, "only the poster can delete this reply")
	ErrNotProfileOwner = newError(ErrForbidden, "you can only update your own profile")

	ErrNoVideoFile = newError(ErrUploadFailed, "video upload unsuccessful")
	ErrPhotoUpload = newError(ErrUploadFailed, "profile photo upload unsuccessful")

	ErrCannotFollowSelf = newError(ErrInvalidInput, "cannot follow yourself")
	ErrEmptySearchQuery = newError(ErrInvalidInput, "search query is required")
	ErrInvalidLimit     = newError(ErrInvalidInput, "limit must not be negative")
)
