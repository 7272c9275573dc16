// Package common holds helpers shared by the front and admin APIs.
package common

import (
	"errors"
	"net/http"

	"github.com/contentforge/studio/internal/credits"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Error codes returned next to the error message.
const (
	CodeValidation          = "validation_failed"
	CodeForbidden           = "forbidden"
	CodeNotFound            = "not_found"
	CodeInsufficientBalance = "insufficient_balance"
	CodeConflict            = "conflict"
	CodeUnavailable         = "unavailable"
	CodeInternal            = "internal"
)

// StatusOf maps a ledger error to an HTTP status and error code.
func StatusOf(err error) (int, string) {
	switch {
	case errors.Is(err, credits.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, credits.ErrForbidden):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, credits.ErrAccountNotFound), errors.Is(err, credits.ErrTransactionNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, credits.ErrInsufficientBalance):
		return http.StatusConflict, CodeInsufficientBalance
	case errors.Is(err, credits.ErrConflict):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, credits.ErrTransientStore):
		return http.StatusServiceUnavailable, CodeUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// WriteError renders err as {"error": ..., "code": ...}. Store details are logged, never returned.
func WriteError(c *gin.Context, err error) {
	status, code := StatusOf(err)
	message := publicMessage(err, code)
	if status >= http.StatusInternalServerError || code == CodeConflict {
		log.WithError(err).WithFields(log.Fields{
			"path":       c.FullPath(),
			"request_id": RequestID(c),
		}).Warn("request failed")
	}
	body := gin.H{"error": message, "code": code}
	var validation credits.ValidationError
	if errors.As(err, &validation) {
		body["field"] = validation.Field
	}
	c.JSON(status, body)
}

func publicMessage(err error, code string) string {
	var validation credits.ValidationError
	switch {
	case errors.As(err, &validation):
		return validation.Field + ": " + validation.Message
	case code == CodeValidation, code == CodeForbidden, code == CodeNotFound, code == CodeInsufficientBalance:
		return trimPrefix(err.Error())
	case code == CodeConflict:
		return "concurrent update, retry the request"
	case code == CodeUnavailable:
		return "service temporarily unavailable"
	default:
		return "internal error"
	}
}

func trimPrefix(msg string) string {
	const prefix = "credits: "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}
