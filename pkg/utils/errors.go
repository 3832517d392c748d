package utils

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorKind is the closed set of failures the API reports to clients.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
)

// StatusCode maps the kind to its HTTP status.
func (k ErrorKind) StatusCode() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

func (k ErrorKind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindInternal:
		return "internal"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// AppError is a client-facing failure. Message is safe to show; Err holds the
// cause for server logs only.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status of the error.
func (e *AppError) StatusCode() int {
	return e.Kind.StatusCode()
}

// BadRequest reports malformed or missing input. Never used for auth failures.
func BadRequest(message string) *AppError {
	return &AppError{Kind: KindBadRequest, Message: message}
}

// Unauthorized reports a missing or rejected identity.
func Unauthorized(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: message}
}

// Forbidden reports an identity acting on someone else's resource.
func Forbidden(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

// Internal wraps an infrastructure fault behind a generic message.
func Internal(err error) *AppError {
	return &AppError{Kind: KindInternal, Message: "Internal server error", Err: err}
}

// SendError writes err as an error response. Anything that is not an AppError
// is treated as internal and its text is never sent to the client.
func SendError(c *gin.Context, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = Internal(err)
	}

	entry := logrus.WithFields(logrus.Fields{
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
		"kind":   appErr.Kind.String(),
	})
	if requestID := c.GetString(RequestIDKey); requestID != "" {
		entry = entry.WithField("request_id", requestID)
	}
	if appErr.Kind == KindInternal {
		entry.Errorf("Request failed: %v", err)
	} else {
		entry.Debugf("Request rejected: %v", err)
	}

	SendErrorResponse(c, appErr.StatusCode(), appErr.Message)
}
