package handler

import (
	"errors"
	"net/http"
	"time"

	"csrd-service/internal/apierr"
	"csrd-service/internal/authz"
	"csrd-service/internal/middleware"
	"csrd-service/internal/model"
	"csrd-service/internal/store"
	"csrd-service/pkg/logger"
	"csrd-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// DisclosureHandler serves the sustainability disclosure modules:
// ESRS 2 general disclosures, environmental/social/governance topics,
// EU Taxonomy alignment and external assurance. All records belong to
// the caller's company; auditors can read but not write.
type DisclosureHandler struct {
	directory store.Directory
}

func NewDisclosureHandler(directory store.Directory) *DisclosureHandler {
	return &DisclosureHandler{directory: directory}
}

// guardWrite resolves the identity and checks the disclosure write rule.
// It returns a nil error response when access is granted.
func (h *DisclosureHandler) guardWrite(c echo.Context) (model.Identity, error) {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		return model.Identity{}, apierr.JSON(c, http.StatusUnauthorized, apierr.CodeAuthRequired, "Not authenticated")
	}
	if !authz.CanEditDisclosures(ident, ident.CompanyID) {
		prometheus.RecordAuthError("forbidden")
		return model.Identity{}, apierr.JSON(c, http.StatusForbidden, apierr.CodeForbidden, "Auditors cannot modify disclosure records")
	}
	return ident, nil
}

func (h *DisclosureHandler) guardRead(c echo.Context) (model.Identity, error) {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		return model.Identity{}, apierr.JSON(c, http.StatusUnauthorized, apierr.CodeAuthRequired, "Not authenticated")
	}
	return ident, nil
}

// reportingPeriodLayout is the wire format of a reporting period.
const reportingPeriodLayout = "2006-01"

// CreateGeneralDisclosure creates the ESRS 2 record for one reporting
// period. One record per (company, period).
func (h *DisclosureHandler) CreateGeneralDisclosure(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordDisclosureOperation("esrs2", "create")

	ident, errResp := h.guardWrite(c)
	if errResp != nil {
		return errResp
	}

	var req struct {
		ReportingPeriod           string `json:"reporting_period"`
		ConsolidationScope        string `json:"consolidation_scope"`
		ValueChainBoundaries      string `json:"value_chain_boundaries"`
		BoardRoleInSustainability string `json:"board_role_in_sustainability"`
		ESGIntegrationInPay       *int   `json:"esg_integration_in_remuneration"`
		AssessmentProcess         string `json:"assessment_process"`
	}
	if err := c.Bind(&req); err != nil {
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "invalid request")
	}

	period, err := time.Parse(reportingPeriodLayout, req.ReportingPeriod)
	if err != nil {
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "reporting period must be in YYYY-MM format")
	}
	if req.ConsolidationScope == "" || req.ValueChainBoundaries == "" ||
		req.BoardRoleInSustainability == "" || req.AssessmentProcess == "" {
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "all narrative fields are required")
	}
	if req.ESGIntegrationInPay != nil && (*req.ESGIntegrationInPay < 0 || *req.ESGIntegrationInPay > 100) {
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "esg integration in remuneration must be between 0 and 100")
	}

	d := model.GeneralDisclosure{
		CompanyID:                 ident.CompanyID,
		ReportingPeriod:           period,
		ConsolidationScope:        req.ConsolidationScope,
		ValueChainBoundaries:      req.ValueChainBoundaries,
		BoardRoleInSustainability: req.BoardRoleInSustainability,
		ESGIntegrationInPay:       req.ESGIntegrationInPay,
		AssessmentProcess:         req.AssessmentProcess,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.directory.CreateGeneralDisclosure(c.Request().Context(), &d); err != nil {
		if errors.Is(err, store.ErrDuplicateForPeriod) {
			return apierr.JSON(c, http.StatusConflict, apierr.CodeDuplicateRecord,
				"A record already exists for this company and reporting period")
		}
		log.Error("Failed to create general disclosure", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to create record")
	}

	return c.JSON(http.StatusCreated, echo.Map{"data": d})
}

// UpdateGeneralDisclosure applies a partial update to the ESRS 2 record.
// Absent fields are left unchanged; presence is signalled by pointers.
func (h *DisclosureHandler) UpdateGeneralDisclosure(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordDisclosureOperation("esrs2", "update")

	ident, errResp := h.guardWrite(c)
	if errResp != nil {
		return errResp
	}

	ctx := c.Request().Context()
	d, err := h.directory.GetGeneralDisclosure(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return apierr.JSON(c, http.StatusNotFound, apierr.CodeNotFound, "Record not found")
		}
		log.Error("Failed to fetch general disclosure", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to update record")
	}
	if !authz.CanViewDisclosures(ident, d.CompanyID) {
		prometheus.RecordAuthError("forbidden")
		return apierr.JSON(c, http.StatusForbidden, apierr.CodeForbidden, "Access denied")
	}

	var req struct {
		ReportingPeriod           *string `json:"reporting_period"`
		ConsolidationScope        *string `json:"consolidation_scope"`
		ValueChainBoundaries      *string `json:"value_chain_boundaries"`
		BoardRoleInSustainability *string `json:"board_role_in_sustainability"`
		ESGIntegrationInPay       *int    `json:"esg_integration_in_remuneration"`
		AssessmentProcess         *string `json:"assessment_process"`
	}
	if err := c.Bind(&req); err != nil {
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "invalid request")
	}

	if req.ReportingPeriod != nil {
		period, err := time.Parse(reportingPeriodLayout, *req.ReportingPeriod)
		if err != nil {
			return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "reporting period must be in YYYY-MM format")
		}
		d.ReportingPeriod = period
	}
	if req.ConsolidationScope != nil {
		d.ConsolidationScope = *req.ConsolidationScope
	}
	if req.ValueChainBoundaries != nil {
		d.ValueChainBoundaries = *req.ValueChainBoundaries
	}
	if req.BoardRoleInSustainability != nil {
		d.BoardRoleInSustainability = *req.BoardRoleInSustainability
	}
	if req.ESGIntegrationInPay != nil {
		if *req.ESGIntegrationInPay < 0 || *req.ESGIntegrationInPay > 100 {
			return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "esg integration in remuneration must be between 0 and 100")
		}
		d.ESGIntegrationInPay = req.ESGIntegrationInPay
	}
	if req.AssessmentProcess != nil {
		d.AssessmentProcess = *req.AssessmentProcess
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := h.directory.UpdateGeneralDisclosure(ctx, &d); err != nil {
		if errors.Is(err, store.ErrDuplicateForPeriod) {
			return apierr.JSON(c, http.StatusConflict, apierr.CodeDuplicateRecord,
				"A record already exists for this company and reporting period")
		}
		log.Error("Failed to update general disclosure", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to update record")
	}

	return c.JSON(http.StatusOK, echo.Map{"data": d})
}

// ListGeneralDisclosures lists the company's ESRS 2 records, newest
// reporting period first.
func (h *DisclosureHandler) ListGeneralDisclosures(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordDisclosureOperation("esrs2", "list")

	ident, errResp := h.guardRead(c)
	if errResp != nil {
		return errResp
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	records, err := h.directory.ListGeneralDisclosures(c.Request().Context(), ident.CompanyID)
	if err != nil {
		log.Error("Failed to list general disclosures", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to fetch records")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": records})
}

// CreateEnvironmentalTopics creates an ESRS E1-E5 record.
func (h *DisclosureHandler) CreateEnvironmentalTopics(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordDisclosureOperation("environmental", "create")

	ident, errResp := h.guardWrite(c)
	if errResp != nil {
		return errResp
	}

	var d model.EnvironmentalTopics
	if err := c.Bind(&d); err != nil {
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "invalid request")
	}
	d.ID = ""
	d.CompanyID = ident.CompanyID

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.directory.CreateEnvironmentalTopics(c.Request().Context(), &d); err != nil {
		log.Error("Failed to create environmental topics record", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to create record")
	}
	return c.JSON(http.StatusCreated, echo.Map{"data": d})
}

// ListEnvironmentalTopics lists the company's E1-E5 records.
func (h *DisclosureHandler) ListEnvironmentalTopics(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordDisclosureOperation("environmental", "list")

	ident, errResp := h.guardRead(c)
	if errResp != nil {
		return errResp
	}

	records, err := h.directory.ListEnvironmentalTopics(c.Request().Context(), ident.CompanyID)
	if err != nil {
		log.Error("Failed to list environmental topics", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to fetch records")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": records})
}

// CreateSocialTopics creates an ESRS S1-S4 record.
func (h *DisclosureHandler) CreateSocialTopics(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordDisclosureOperation("social", "create")

	ident, errResp := h.guardWrite(c)
	if errResp != nil {
		return errResp
	}

	var d model.SocialTopics
	if err := c.Bind(&d); err != nil {
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "invalid request")
	}
	d.ID = ""
	d.CompanyID = ident.CompanyID

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.directory.CreateSocialTopics(c.Request().Context(), &d); err != nil {
		log.Error("Failed to create social topics record", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to create record")
	}
	return c.JSON(http.StatusCreated, echo.Map{"data": d})
}

// ListSocialTopics lists the company's S1-S4 records.
func (h *DisclosureHandler) ListSocialTopics(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordDisclosureOperation("social", "list")

	ident, errResp := h.guardRead(c)
	if errResp != nil {
		return errResp
	}

	records, err := h.directory.ListSocialTopics(c.Request().Context(), ident.CompanyID)
	if err != nil {
		log.Error("Failed to list social topics", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to fetch records")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": records})
}

// CreateGovernance creates an ESRS G1 record.
func (h *DisclosureHandler) CreateGovernance(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordDisclosureOperation("governance", "create")

	ident, errResp := h.guardWrite(c)
	if errResp != nil {
		return errResp
	}

	var d model.Governance
	if err := c.Bind(&d); err != nil {
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "invalid request")
	}
	d.ID = ""
	d.CompanyID = ident.CompanyID

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.directory.CreateGovernance(c.Request().Context(), &d); err != nil {
		log.Error("Failed to create governance record", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to create record")
	}
	return c.JSON(http.StatusCreated, echo.Map{"data": d})
}

// ListGovernance lists the company's G1 records.
func (h *DisclosureHandler) ListGovernance(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordDisclosureOperation("governance", "list")

	ident, errResp := h.guardRead(c)
	if errResp != nil {
		return errResp
	}

	records, err := h.directory.ListGovernance(c.Request().Context(), ident.CompanyID)
	if err != nil {
		log.Error("Failed to list governance records", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to fetch records")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": records})
}

// CreateEuTaxonomy creates an EU Taxonomy alignment record.
func (h *DisclosureHandler) CreateEuTaxonomy(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordDisclosureOperation("taxonomy", "create")

	ident, errResp := h.guardWrite(c)
	if errResp != nil {
		return errResp
	}

	var d model.EuTaxonomy
	if err := c.Bind(&d); err != nil {
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "invalid request")
	}
	d.ID = ""
	d.CompanyID = ident.CompanyID

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.directory.CreateEuTaxonomy(c.Request().Context(), &d); err != nil {
		log.Error("Failed to create EU taxonomy record", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to create record")
	}
	return c.JSON(http.StatusCreated, echo.Map{"data": d})
}

// ListEuTaxonomy lists the company's EU Taxonomy records.
func (h *DisclosureHandler) ListEuTaxonomy(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordDisclosureOperation("taxonomy", "list")

	ident, errResp := h.guardRead(c)
	if errResp != nil {
		return errResp
	}

	records, err := h.directory.ListEuTaxonomy(c.Request().Context(), ident.CompanyID)
	if err != nil {
		log.Error("Failed to list EU taxonomy records", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to fetch records")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": records})
}

// CreateAssurance creates an external assurance record.
func (h *DisclosureHandler) CreateAssurance(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordDisclosureOperation("assurance", "create")

	ident, errResp := h.guardWrite(c)
	if errResp != nil {
		return errResp
	}

	var d model.Assurance
	if err := c.Bind(&d); err != nil {
		return apierr.JSON(c, http.StatusBadRequest, apierr.CodeValidation, "invalid request")
	}
	d.ID = ""
	d.CompanyID = ident.CompanyID

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.directory.CreateAssurance(c.Request().Context(), &d); err != nil {
		log.Error("Failed to create assurance record", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to create record")
	}
	return c.JSON(http.StatusCreated, echo.Map{"data": d})
}

// ListAssurance lists the company's assurance records.
func (h *DisclosureHandler) ListAssurance(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordDisclosureOperation("assurance", "list")

	ident, errResp := h.guardRead(c)
	if errResp != nil {
		return errResp
	}

	records, err := h.directory.ListAssurance(c.Request().Context(), ident.CompanyID)
	if err != nil {
		log.Error("Failed to list assurance records", zap.Error(err))
		return apierr.JSON(c, http.StatusInternalServerError, apierr.CodeInternal, "Failed to fetch records")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": records})
}
