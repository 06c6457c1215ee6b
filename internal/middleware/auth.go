package middleware

import (
	"errors"
	"net/http"

	"csrd-service/internal/apierr"
	"csrd-service/internal/model"
	"csrd-service/internal/store"
	"csrd-service/pkg/jwtutil"
	"csrd-service/pkg/logger"
	"csrd-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "session"

// identityKey is the echo context key holding the resolved Identity.
const identityKey = "identity"

// Auth returns a middleware that verifies the session cookie and
// resolves it to an Identity. Role and company are re-read from the
// directory on every request; the token claims are only trusted to
// locate the user id, so a role downgrade or company deactivation takes
// effect before the token expires.
func Auth(directory store.Directory) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			cookie, err := c.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				prometheus.RecordAuthError("missing_token")
				return apierr.JSON(c, http.StatusUnauthorized, apierr.CodeAuthRequired, "Not authenticated")
			}

			claims, err := jwtutil.Verify(cookie.Value)
			if err != nil {
				log.Debug("Invalid session token", zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return apierr.JSON(c, http.StatusUnauthorized, apierr.CodeTokenExpired, "Session expired")
			}

			ctx := c.Request().Context()
			user, err := directory.GetUserByID(ctx, claims.UserID)
			if err != nil {
				if errors.Is(err, store.ErrUserNotFound) {
					prometheus.RecordAuthError("user_not_found")
					return apierr.JSON(c, http.StatusUnauthorized, apierr.CodeAuthRequired, "Not authenticated")
				}
				log.Error("Failed to resolve session user", zap.Error(err))
				return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Authentication failed")
			}

			company, err := directory.GetCompanyByID(ctx, user.CompanyID)
			if err != nil {
				log.Error("Failed to resolve session company", zap.Error(err))
				return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Authentication failed")
			}
			if company.Deactivated() {
				prometheus.RecordAuthError("company_deleted")
				return apierr.JSON(c, http.StatusForbidden, apierr.CodeCompanyDeleted, "Company account has been deactivated")
			}

			c.Set(identityKey, model.Identity{
				UserID:    user.ID,
				Email:     user.Email,
				Name:      user.Name,
				Role:      user.Role,
				CompanyID: user.CompanyID,
			})

			return next(c)
		}
	}
}

// IdentityFrom returns the Identity stored by Auth. The second return
// value is false when the request never passed the middleware.
func IdentityFrom(c echo.Context) (model.Identity, bool) {
	ident, ok := c.Get(identityKey).(model.Identity)
	return ident, ok
}
