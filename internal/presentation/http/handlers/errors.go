// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bernice-stories/bernice/internal/apperrors"
)

// StatusFor maps an error kind to its HTTP status code.
func StatusFor(err error) int {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeConflict:
		return http.StatusConflict
	case apperrors.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrorTypeTransaction:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error body. Internal causes are logged but never
// sent to the client.
func respondError(c *gin.Context, log *slog.Logger, operation string, err error, extra gin.H) {
	status := StatusFor(err)
	body := gin.H{}
	for k, v := range extra {
		body[k] = v
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Type != apperrors.ErrorTypeInternal {
		body["error"] = appErr.Message
		body["code"] = appErr.Code
	} else {
		body["error"] = "internal server error"
		body["code"] = "INTERNAL_ERROR"
	}

	if status >= http.StatusInternalServerError {
		log.Error("Request failed", "operation", operation, "status", status, "error", err.Error())
	} else {
		log.Debug("Request rejected", "operation", operation, "status", status, "error", err.Error())
	}
	c.JSON(status, body)
}

func badRequestBody(c *gin.Context, log *slog.Logger, operation string, err error) {
	log.Debug("Request JSON binding failed", "operation", operation, "error", err.Error())
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
}

func invalidQuery(message string) error {
	return apperrors.Validation(message)
}
