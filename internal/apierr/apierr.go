// Package apierr renders the wire error envelope. Every error response
// carries a stable code and a human-readable message:
//
//	{"error": {"code": "FORBIDDEN", "message": "Access denied"}}
package apierr

import (
	"github.com/labstack/echo/v4"
)

// Stable error codes shared across endpoints.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeAuthRequired     = "AUTH_REQUIRED"
	CodeTokenExpired     = "TOKEN_EXPIRED"
	CodeInvalidCreds     = "INVALID_CREDENTIALS"
	CodeForbidden        = "FORBIDDEN"
	CodeCompanyDeleted   = "COMPANY_DELETED"
	CodeNotFound         = "NOT_FOUND"
	CodeUserNotFound     = "USER_NOT_FOUND"
	CodeDuplicateEmail   = "DUPLICATE_EMAIL"
	CodeDuplicateCompany = "DUPLICATE_COMPANY"
	CodeDuplicateRecord  = "DUPLICATE_RECORD"
	CodeInternal         = "INTERNAL_ERROR"
)

// JSON writes the error envelope with the given status, code and message.
func JSON(c echo.Context, status int, code, message string) error {
	return c.JSON(status, echo.Map{
		"error": echo.Map{
			"code":    code,
			"message": message,
		},
	})
}
