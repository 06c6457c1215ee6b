package handler

import (
	"errors"
	"net/http"
	"time"

	"csrd-service/internal/apierr"
	"csrd-service/internal/authz"
	"csrd-service/internal/middleware"
	"csrd-service/internal/store"
	"csrd-service/pkg/logger"
	"csrd-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CompanyHandler serves the company record endpoints.
type CompanyHandler struct {
	directory store.Directory
}

func NewCompanyHandler(directory store.Directory) *CompanyHandler {
	return &CompanyHandler{directory: directory}
}

// Get returns the company record with its user count and audit fields.
func (h *CompanyHandler) Get(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCompanyOperation("access")

	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		return apierr.JSON(c, http.StatusUnauthorized, apierr.CodeAuthRequired, "Not authenticated")
	}

	ctx := c.Request().Context()

	defer prometheus.TrackDBOperation("query")(time.Now())
	company, err := h.directory.GetCompanyByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrCompanyNotFound) {
			return apierr.JSON(c, http.StatusNotFound, apierr.CodeNotFound, "Company not found")
		}
		log.Error("Failed to fetch company", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to fetch company")
	}

	if !authz.CanViewCompany(ident, company) {
		prometheus.RecordAuthError("forbidden")
		return apierr.JSON(c, http.StatusForbidden, apierr.CodeForbidden, "Access denied")
	}

	userCount, err := h.directory.CountUsers(ctx, company.ID)
	if err != nil {
		log.Error("Failed to count company users", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to fetch company")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": echo.Map{
			"id":                      company.ID,
			"name":                    company.Name,
			"legal_entity":            company.LegalEntity,
			"industry":                company.Industry,
			"country_of_registration": company.CountryOfRegistration,
			"user_count":              userCount,
			"created_by":              company.CreatedBy,
			"updated_by":              company.UpdatedBy,
			"created_at":              company.CreatedAt,
			"updated_at":              company.UpdatedAt,
		},
	})
}

// Update replaces the company's editable fields. All fields are
// required; there is no partial update on the company record.
func (h *CompanyHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCompanyOperation("update")

	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		return apierr.JSON(c, http.StatusUnauthorized, apierr.CodeAuthRequired, "Not authenticated")
	}

	ctx := c.Request().Context()
	company, err := h.directory.GetCompanyByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrCompanyNotFound) {
			return apierr.JSON(c, http.StatusNotFound, apierr.CodeNotFound, "Company not found")
		}
		log.Error("Failed to fetch company", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to update company")
	}

	if !authz.CanEditCompany(ident, company) {
		prometheus.RecordAuthError("forbidden")
		return apierr.JSON(c, http.StatusForbidden, apierr.CodeForbidden, "Insufficient permissions")
	}

	var req struct {
		Name                  string `json:"name"`
		LegalEntity           string `json:"legal_entity"`
		Industry              string `json:"industry"`
		CountryOfRegistration string `json:"country_of_registration"`
	}
	if err := c.Bind(&req); err != nil {
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "invalid request")
	}
	if req.Name == "" || req.LegalEntity == "" || req.Industry == "" || req.CountryOfRegistration == "" {
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "All fields are required")
	}

	taken, err := h.directory.CompanyNameTaken(ctx, req.Name, company.ID)
	if err != nil {
		log.Error("Failed to check company name uniqueness", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to update company")
	}
	if taken {
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeDuplicateCompany, "Company name already exists")
	}

	company.Name = req.Name
	company.LegalEntity = req.LegalEntity
	company.Industry = req.Industry
	company.CountryOfRegistration = req.CountryOfRegistration
	company.UpdatedBy = ident.UserID

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := h.directory.UpdateCompany(ctx, &company); err != nil {
		if errors.Is(err, store.ErrDuplicateCompany) {
			return apierr.JSON(c, http.StatusBadRequest, apierr.CodeDuplicateCompany, "Company name already exists")
		}
		log.Error("Failed to update company", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to update company")
	}

	log.Info("Company updated",
		zap.String("company_id", company.ID),
		zap.String("updated_by", ident.UserID))

	return c.JSON(http.StatusOK, echo.Map{"data": company})
}

// Delete soft-deletes the company. Members of a deleted company can no
// longer log in; the record itself is retained.
func (h *CompanyHandler) Delete(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordCompanyOperation("delete")

	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		return apierr.JSON(c, http.StatusUnauthorized, apierr.CodeAuthRequired, "Not authenticated")
	}

	ctx := c.Request().Context()
	company, err := h.directory.GetCompanyByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrCompanyNotFound) {
			return apierr.JSON(c, http.StatusNotFound, apierr.CodeNotFound, "Company not found")
		}
		log.Error("Failed to fetch company", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to delete company")
	}

	if !authz.CanDeleteCompany(ident, company) {
		prometheus.RecordAuthError("forbidden")
		return apierr.JSON(c, http.StatusForbidden, apierr.CodeForbidden, "Admin access required")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.directory.SoftDeleteCompany(ctx, company.ID, ident.UserID); err != nil {
		log.Error("Failed to delete company", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to delete company")
	}

	log.Info("Company soft-deleted",
		zap.String("company_id", company.ID),
		zap.String("deleted_by", ident.UserID))

	return c.JSON(http.StatusOK, echo.Map{
		"data": echo.Map{"message": "Company deleted"},
	})
}
