package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"csrd-service/internal/apierr"
	"csrd-service/internal/middleware"
	"csrd-service/internal/model"
	"csrd-service/internal/store"
	"csrd-service/pkg/config"
	"csrd-service/pkg/jwtutil"
	"csrd-service/pkg/logger"
	"csrd-service/pkg/password"
	"csrd-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthHandler serves registration, login, logout and the current-session
// endpoint.
type AuthHandler struct {
	directory store.Directory
	cfg       *config.Config
}

func NewAuthHandler(directory store.Directory, cfg *config.Config) *AuthHandler {
	return &AuthHandler{directory: directory, cfg: cfg}
}

func validEmail(s string) bool {
	at := strings.Index(s, "@")
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t")
}

// Register creates a new company together with its first admin user.
func (h *AuthHandler) Register(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.Inc()

	var req struct {
		Name        string `json:"name"`
		Email       string `json:"email"`
		Password    string `json:"password"`
		CompanyName string `json:"companyName"`
		LegalEntity string `json:"legalEntity"`
		Industry    string `json:"industry"`
		Country     string `json:"country"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "invalid request")
	}

	switch {
	case len(req.Name) < 2:
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "name must be at least 2 characters")
	case !validEmail(req.Email):
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "a valid email is required")
	case len(req.Password) < 8:
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "password must be at least 8 characters")
	case len(req.CompanyName) < 2:
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "company name must be at least 2 characters")
	case req.LegalEntity == "":
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "legal entity is required")
	case req.Industry == "":
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "industry is required")
	case req.Country == "":
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "country of registration is required")
	}

	ctx := c.Request().Context()

	defer prometheus.TrackDBOperation("query")(time.Now())
	taken, err := h.directory.EmailTaken(ctx, req.Email, "")
	if err != nil {
		log.Error("Failed to check email uniqueness", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Registration failed")
	}
	if taken {
		prometheus.RecordAuthError("email_already_exists")
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeDuplicateEmail, "Email already registered")
	}

	nameTaken, err := h.directory.CompanyNameTaken(ctx, req.CompanyName, "")
	if err != nil {
		log.Error("Failed to check company name uniqueness", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Registration failed")
	}
	if nameTaken {
		prometheus.RecordAuthError("company_already_exists")
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeDuplicateCompany, "Company name already exists")
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		prometheus.RecordAuthError("password_hash_failed")
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Registration failed")
	}

	company := model.Company{
		Name:                  req.CompanyName,
		LegalEntity:           req.LegalEntity,
		Industry:              req.Industry,
		CountryOfRegistration: req.Country,
	}
	admin := model.User{
		Email:    req.Email,
		Name:     req.Name,
		Password: hashed,
		Role:     model.RoleAdmin,
	}

	// The whole sequence is transactional; a concurrent registration
	// with the same email or company name loses on the unique index.
	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.directory.RegisterCompany(ctx, &company, &admin); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			prometheus.RecordAuthError("email_already_exists")
			return apierr.JSON(c, http.StatusBadRequest, apierr.CodeDuplicateEmail, "Email already registered")
		case errors.Is(err, store.ErrDuplicateCompany):
			prometheus.RecordAuthError("company_already_exists")
			return apierr.JSON(c, http.StatusBadRequest, apierr.CodeDuplicateCompany, "Company name already exists")
		}
		log.Error("Failed to register company", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Registration failed")
	}

	log.Info("Company registered",
		zap.String("company", company.Name),
		zap.String("company_id", company.ID),
		zap.String("admin_email", admin.Email))

	return c.JSON(http.StatusCreated, echo.Map{
		"data": echo.Map{
			"id":         admin.ID,
			"email":      admin.Email,
			"name":       admin.Name,
			"role":       admin.Role,
			"company_id": admin.CompanyID,
			"created_at": admin.CreatedAt,
		},
	})
}

// Login authenticates credentials and issues the session cookie.
func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email      string `json:"email"`
		Password   string `json:"password"`
		RememberMe bool   `json:"rememberMe"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "invalid request")
	}
	if req.Email == "" || req.Password == "" {
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "email and password are required")
	}

	ctx := c.Request().Context()

	defer prometheus.TrackDBOperation("query")(time.Now())
	user, err := h.directory.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			// Same body as a wrong password, to avoid account enumeration.
			prometheus.RecordAuthError("user_not_found")
			return apierr.JSON(c, http.StatusUnauthorized, apierr.CodeInvalidCreds, "Invalid email or password")
		}
		log.Error("Failed to look up user", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Login failed")
	}

	company, err := h.directory.GetCompanyByID(ctx, user.CompanyID)
	if err != nil {
		log.Error("Failed to look up company", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Login failed")
	}
	if company.Deactivated() {
		prometheus.RecordAuthError("company_deleted")
		return apierr.JSON(c, http.StatusForbidden, apierr.CodeCompanyDeleted, "Company account has been deactivated")
	}

	if !password.Verify(req.Password, user.Password) {
		log.Info("Invalid password", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_password")
		return apierr.JSON(c, http.StatusUnauthorized, apierr.CodeInvalidCreds, "Invalid email or password")
	}

	token, err := jwtutil.Generate(user.ID, user.Email, string(user.Role), user.CompanyID, req.RememberMe)
	if err != nil {
		log.Error("Failed to generate session token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Login failed")
	}

	h.setSessionCookie(c, token, h.cfg.Session.TTL(req.RememberMe))
	prometheus.IncreaseActiveSessions()

	log.Info("User logged in",
		zap.String("email", user.Email),
		zap.String("company_id", user.CompanyID),
		zap.String("role", string(user.Role)))

	return c.JSON(http.StatusOK, echo.Map{
		"data": echo.Map{
			"user": echo.Map{
				"id":         user.ID,
				"email":      user.Email,
				"name":       user.Name,
				"role":       user.Role,
				"company_id": user.CompanyID,
				"company": echo.Map{
					"id":   company.ID,
					"name": company.Name,
				},
			},
		},
	})
}

// Logout clears the session cookie. Tokens are not revocable server-side
// before expiry; deletion is purely client-side.
func (h *AuthHandler) Logout(c echo.Context) error {
	h.setSessionCookie(c, "", -time.Second)
	prometheus.DecreaseActiveSessions()
	return c.JSON(http.StatusOK, echo.Map{
		"data": echo.Map{"message": "Logged out successfully"},
	})
}

// Session returns the current user and company, re-read from the
// directory. Unlike the generic auth middleware it reports the precise
// failure: missing cookie, expired token, deleted user, or deactivated
// company.
func (h *AuthHandler) Session(c echo.Context) error {
	log := logger.FromContext(c)

	cookie, err := c.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return apierr.JSON(c, http.StatusUnauthorized, apierr.CodeAuthRequired, "Not authenticated")
	}

	claims, err := jwtutil.Verify(cookie.Value)
	if err != nil {
		prometheus.RecordAuthError("invalid_token")
		return apierr.JSON(c, http.StatusUnauthorized, apierr.CodeTokenExpired, "Session expired")
	}

	ctx := c.Request().Context()
	user, err := h.directory.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return apierr.JSON(c, http.StatusNotFound, apierr.CodeUserNotFound, "User not found")
		}
		log.Error("Failed to look up session user", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to fetch session")
	}

	company, err := h.directory.GetCompanyByID(ctx, user.CompanyID)
	if err != nil {
		log.Error("Failed to look up session company", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to fetch session")
	}
	if company.Deactivated() {
		prometheus.RecordAuthError("company_deleted")
		return apierr.JSON(c, http.StatusForbidden, apierr.CodeCompanyDeleted, "Company account deactivated")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": echo.Map{
			"user": echo.Map{
				"id":         user.ID,
				"email":      user.Email,
				"name":       user.Name,
				"role":       user.Role,
				"company_id": user.CompanyID,
				"company": echo.Map{
					"id":   company.ID,
					"name": company.Name,
				},
			},
		},
	})
}

func (h *AuthHandler) setSessionCookie(c echo.Context, token string, ttl time.Duration) {
	cookie := &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.cfg.Server.IsProduction(),
	}
	c.SetCookie(cookie)
}
