package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"csrd-service/internal/apierr"
	"csrd-service/internal/authz"
	"csrd-service/internal/middleware"
	"csrd-service/internal/model"
	"csrd-service/internal/store"
	"csrd-service/pkg/config"
	"csrd-service/pkg/logger"
	"csrd-service/pkg/password"
	"csrd-service/prometheus"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// UserHandler serves the user lifecycle endpoints: listing, invitation,
// edit and deletion, all scoped to the caller's company.
type UserHandler struct {
	directory store.Directory
	cfg       *config.Config
}

func NewUserHandler(directory store.Directory, cfg *config.Config) *UserHandler {
	return &UserHandler{directory: directory, cfg: cfg}
}

// List returns one page of the caller's company users.
func (h *UserHandler) List(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordUserOperation("list")

	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		return apierr.JSON(c, http.StatusUnauthorized, apierr.CodeAuthRequired, "Not authenticated")
	}

	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit < 1 || limit > 200 {
		limit = 50
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	users, total, err := h.directory.ListUsers(c.Request().Context(), ident.CompanyID, page, limit)
	if err != nil {
		log.Error("Failed to list users", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to fetch users")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": echo.Map{
			"users": users,
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// Get returns a single user of the caller's company.
func (h *UserHandler) Get(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordUserOperation("access")

	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		return apierr.JSON(c, http.StatusUnauthorized, apierr.CodeAuthRequired, "Not authenticated")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	target, err := h.directory.GetUserByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return apierr.JSON(c, http.StatusNotFound, apierr.CodeNotFound, "User not found")
		}
		log.Error("Failed to fetch user", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to fetch user")
	}

	if !authz.CanViewUser(ident, target) {
		prometheus.RecordAuthError("forbidden")
		return apierr.JSON(c, http.StatusForbidden, apierr.CodeForbidden, "Access denied")
	}

	return c.JSON(http.StatusOK, echo.Map{"data": echo.Map{"user": target}})
}

// Invite creates a user in the caller's company with a generated
// temporary password. Outside production mode the temporary password is
// echoed in the response; there is no email delivery path.
func (h *UserHandler) Invite(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.InviteCounter.Inc()
	prometheus.RecordUserOperation("invite")

	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		return apierr.JSON(c, http.StatusUnauthorized, apierr.CodeAuthRequired, "Not authenticated")
	}

	if ident.Role != model.RoleAdmin && ident.Role != model.RoleManager {
		prometheus.RecordAuthError("forbidden")
		return apierr.JSON(c, http.StatusForbidden, apierr.CodeForbidden, "Insufficient permissions to invite users")
	}

	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
		Role  string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "invalid request")
	}
	if !validEmail(req.Email) {
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "a valid email is required")
	}
	if len(req.Name) < 2 {
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "name must be at least 2 characters")
	}
	if !model.ValidRole(req.Role) {
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "role must be one of admin, manager, auditor, user")
	}

	targetRole := model.Role(req.Role)
	if !authz.CanInvite(ident.Role, targetRole) {
		prometheus.RecordAuthError("forbidden")
		return apierr.JSON(c, http.StatusForbidden, apierr.CodeForbidden,
			fmt.Sprintf("Managers cannot create %s users", targetRole))
	}

	ctx := c.Request().Context()
	taken, err := h.directory.EmailTaken(ctx, req.Email, "")
	if err != nil {
		log.Error("Failed to check email uniqueness", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to invite user")
	}
	if taken {
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeDuplicateEmail, "Email already registered")
	}

	tempPassword := uuid.NewString()
	hashed, err := password.Hash(tempPassword)
	if err != nil {
		log.Error("Failed to hash temporary password", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to invite user")
	}

	user := model.User{
		Email:     req.Email,
		Name:      req.Name,
		Password:  hashed,
		Role:      targetRole,
		CompanyID: ident.CompanyID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.directory.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return apierr.JSON(c, http.StatusBadRequest, apierr.CodeDuplicateEmail, "Email already registered")
		}
		log.Error("Failed to create invited user", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to invite user")
	}

	// TODO: deliver the temporary password out of band once an email
	// sender exists, and stop echoing it even in development.
	log.Info("User invited",
		zap.String("email", user.Email),
		zap.String("role", string(user.Role)),
		zap.String("invited_by", ident.UserID))

	resp := echo.Map{"user": user}
	if !h.cfg.Server.IsProduction() {
		resp["tempPassword"] = tempPassword
	}
	return c.JSON(http.StatusCreated, echo.Map{"data": resp})
}

// Update modifies a user's name, email and role, subject to the edit
// and role-assignment rules.
func (h *UserHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordUserOperation("update")

	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		return apierr.JSON(c, http.StatusUnauthorized, apierr.CodeAuthRequired, "Not authenticated")
	}

	ctx := c.Request().Context()
	target, err := h.directory.GetUserByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return apierr.JSON(c, http.StatusNotFound, apierr.CodeNotFound, "User not found")
		}
		log.Error("Failed to fetch user", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to update user")
	}

	if !authz.SameCompany(ident, target.CompanyID) {
		prometheus.RecordAuthError("forbidden")
		return apierr.JSON(c, http.StatusForbidden, apierr.CodeForbidden, "Access denied")
	}
	if !authz.CanEditUser(ident, target) {
		prometheus.RecordAuthError("forbidden")
		return apierr.JSON(c, http.StatusForbidden, apierr.CodeForbidden,
			fmt.Sprintf("You cannot edit %s users", target.Role))
	}

	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "invalid request")
	}
	if len(req.Name) < 2 {
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "name must be at least 2 characters")
	}
	if !validEmail(req.Email) {
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "a valid email is required")
	}
	if !model.ValidRole(req.Role) {
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "role must be one of admin, manager, auditor, user")
	}

	newRole := model.Role(req.Role)
	if newRole != target.Role && !authz.CanAssignRole(ident.Role, newRole) {
		prometheus.RecordAuthError("forbidden")
		return apierr.JSON(c, http.StatusForbidden, apierr.CodeForbidden,
			fmt.Sprintf("You cannot assign %s role", newRole))
	}

	if req.Email != target.Email {
		taken, err := h.directory.EmailTaken(ctx, req.Email, target.ID)
		if err != nil {
			log.Error("Failed to check email uniqueness", zap.Error(err))
			return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to update user")
		}
		if taken {
			return apierr.JSON(c, http.StatusBadRequest, apierr.CodeDuplicateEmail, "Email already in use")
		}
	}

	target.Name = req.Name
	target.Email = req.Email
	target.Role = newRole

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := h.directory.UpdateUser(ctx, &target); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return apierr.JSON(c, http.StatusBadRequest, apierr.CodeDuplicateEmail, "Email already in use")
		}
		log.Error("Failed to update user", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to update user")
	}

	log.Info("User updated",
		zap.String("user_id", target.ID),
		zap.String("updated_by", ident.UserID))

	return c.JSON(http.StatusOK, echo.Map{"data": echo.Map{"user": target}})
}

// Delete removes a user. Self-deletion and removing the company's last
// admin are blocked.
func (h *UserHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordUserOperation("delete")

	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		return apierr.JSON(c, http.StatusUnauthorized, apierr.CodeAuthRequired, "Not authenticated")
	}

	ctx := c.Request().Context()
	target, err := h.directory.GetUserByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return apierr.JSON(c, http.StatusNotFound, apierr.CodeNotFound, "User not found")
		}
		log.Error("Failed to fetch user", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to delete user")
	}

	adminCount, err := h.directory.CountAdmins(ctx, ident.CompanyID)
	if err != nil {
		log.Error("Failed to count admins", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to delete user")
	}

	allowed, reason := authz.CanDeleteUser(ident, target, adminCount)
	if !allowed {
		prometheus.RecordAuthError("forbidden")
		return apierr.JSON(c, http.StatusForbidden, apierr.CodeForbidden, reason)
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.directory.DeleteUser(ctx, target.ID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return apierr.JSON(c, http.StatusNotFound, apierr.CodeNotFound, "User not found")
		}
		log.Error("Failed to delete user", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to delete user")
	}

	log.Info("User deleted",
		zap.String("user_id", target.ID),
		zap.String("deleted_by", ident.UserID))

	return c.JSON(http.StatusOK, echo.Map{
		"data": echo.Map{
			"message":       "User deleted successfully",
			"deletedUserId": target.ID,
		},
	})
}
