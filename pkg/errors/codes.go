package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeMessaging          ErrorCode = "COMMON_014"
	ErrCodeStorage            ErrorCode = "COMMON_015"
)

// Input / Output Error Codes
const (
	ErrCodeInputUnavailable   ErrorCode = "IO_001"
	ErrCodeInputMissingColumn ErrorCode = "IO_002"
	ErrCodeInputMalformed     ErrorCode = "IO_003"
	ErrCodeOutputWriteFailed  ErrorCode = "IO_004"
	ErrCodeArtifactNotFound   ErrorCode = "IO_005"
)

// Pipeline Error Codes
const (
	ErrCodePipelineFailed   ErrorCode = "PIPE_001"
	ErrCodePublishFailed    ErrorCode = "PIPE_002"
	ErrCodeCategoryNotFound ErrorCode = "PIPE_003"
)

// Aliases for the most frequently used codes.
const (
	CodeInternal   = ErrCodeInternal
	CodeNotFound   = ErrCodeNotFound
	CodeValidation = ErrCodeValidation
	CodeOK         = ErrorCode("OK")
	CodeUnknown    = ErrorCode("UNKNOWN")
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeMessaging:          http.StatusInternalServerError,
	ErrCodeStorage:            http.StatusInternalServerError,

	ErrCodeInputUnavailable:   http.StatusServiceUnavailable,
	ErrCodeInputMissingColumn: http.StatusUnprocessableEntity,
	ErrCodeInputMalformed:     http.StatusUnprocessableEntity,
	ErrCodeOutputWriteFailed:  http.StatusInternalServerError,
	ErrCodeArtifactNotFound:   http.StatusServiceUnavailable,

	ErrCodePipelineFailed:   http.StatusInternalServerError,
	ErrCodePublishFailed:    http.StatusInternalServerError,
	ErrCodeCategoryNotFound: http.StatusNotFound,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeMessaging:          "messaging error",
	ErrCodeStorage:            "object storage error",

	ErrCodeInputUnavailable:   "input table unavailable",
	ErrCodeInputMissingColumn: "input table is missing a required column",
	ErrCodeInputMalformed:     "input table contains a malformed value",
	ErrCodeOutputWriteFailed:  "failed to write output artifact",
	ErrCodeArtifactNotFound:   "opportunity artifact not available",

	ErrCodePipelineFailed:   "opportunity pipeline failed",
	ErrCodePublishFailed:    "failed to publish results",
	ErrCodeCategoryNotFound: "category not found",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
