// Package handlers implements the gin handlers of the read API.
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/OpportunityRadar/pkg/errors"
)

// APIError is the body of every error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// ErrorEnvelope wraps APIError.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// respondError maps an application error to its HTTP status.  Server errors
// are masked.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	if code == errors.CodeUnknown {
		code = errors.ErrCodeInternal
	}
	status := errors.HTTPStatusForCode(code)
	_ = c.Error(err)

	body := APIError{Code: string(code), Message: errors.DefaultMessageForCode(code)}
	var ae *errors.AppError
	if status < 500 && errors.As(err, &ae) {
		body.Message = ae.Message
		body.Detail = ae.Detail
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: body})
}

// parseLimit reads ?limit=N.  Missing means def; values above max clamp to
// max.
func parseLimit(c *gin.Context, def, max int) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.NewValidation("limit must be a positive integer").WithDetail(raw)
	}
	if max > 0 && n > max {
		n = max
	}
	return n, nil
}
