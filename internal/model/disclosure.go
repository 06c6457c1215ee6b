package model

import (
	"time"
)

// GeneralDisclosure holds the ESRS 2 general disclosures for a company
// and reporting period. One record per (company, period).
type GeneralDisclosure struct {
	ID                        string    `json:"id" gorm:"type:uuid;primaryKey"`
	CompanyID                 string    `json:"company_id" gorm:"type:uuid;not null;uniqueIndex:idx_general_disclosure_period"`
	ReportingPeriod           time.Time `json:"reporting_period" gorm:"uniqueIndex:idx_general_disclosure_period"`
	ConsolidationScope        string    `json:"consolidation_scope" gorm:"type:text"`
	ValueChainBoundaries      string    `json:"value_chain_boundaries" gorm:"type:text"`
	BoardRoleInSustainability string    `json:"board_role_in_sustainability" gorm:"type:text"`
	ESGIntegrationInPay       *int      `json:"esg_integration_in_remuneration"`
	AssessmentProcess         string    `json:"assessment_process" gorm:"type:text"`
	CreatedAt                 time.Time `json:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

// EnvironmentalTopics holds the ESRS E1-E5 disclosures for a company.
type EnvironmentalTopics struct {
	ID                       string    `json:"id" gorm:"type:uuid;primaryKey"`
	CompanyID                string    `json:"company_id" gorm:"type:uuid;index;not null"`
	E1Material               bool      `json:"e1_material"`
	E1ClimatePolicy          string    `json:"e1_climate_policy" gorm:"type:text"`
	E1ReductionTarget        string    `json:"e1_reduction_target" gorm:"type:text"`
	E1Scope1TCO2e            *float64  `json:"e1_scope1_tco2e"`
	E1Scope2TCO2e            *float64  `json:"e1_scope2_tco2e"`
	E2NOxTPerYear            *float64  `json:"e2_nox_t_per_year"`
	E2SOxTPerYear            *float64  `json:"e2_sox_t_per_year"`
	E3WaterWithdrawalM3      *float64  `json:"e3_water_withdrawal_m3"`
	E3WaterRecyclingRatePct  *float64  `json:"e3_water_recycling_rate_pct"`
	E4ProtectedAreasImpact   string    `json:"e4_protected_areas_impact" gorm:"type:text"`
	E5RecyclingRatePct       *float64  `json:"e5_recycling_rate_pct"`
	E5RecycledInputMatPct    *float64  `json:"e5_recycled_input_materials_pct"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// SocialTopics holds the ESRS S1-S4 disclosures for a company.
type SocialTopics struct {
	ID                        string    `json:"id" gorm:"type:uuid;primaryKey"`
	CompanyID                 string    `json:"company_id" gorm:"type:uuid;index;not null"`
	S1Material                bool      `json:"s1_material"`
	S1EmployeeCountByContract string    `json:"s1_employee_count_by_contract" gorm:"type:text"`
	S1HealthAndSafety         string    `json:"s1_health_and_safety" gorm:"type:text"`
	S1TrainingHoursPerEmp     *float64  `json:"s1_training_hours_per_employee"`
	S2Material                bool      `json:"s2_material"`
	S2PctSuppliersAudited     *float64  `json:"s2_pct_suppliers_audited"`
	S2RemediationActions      string    `json:"s2_remediation_actions" gorm:"type:text"`
	S3Material                bool      `json:"s3_material"`
	S3CommunityEngagement     string    `json:"s3_community_engagement" gorm:"type:text"`
	S3ComplaintsAndOutcomes   string    `json:"s3_complaints_and_outcomes" gorm:"type:text"`
	S4Material                bool      `json:"s4_material"`
	S4ProductSafetyIncidents  *int      `json:"s4_product_safety_incidents"`
	S4ConsumerRemediation     string    `json:"s4_consumer_remediation" gorm:"type:text"`
	CreatedAt                 time.Time `json:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

// Governance holds the ESRS G1 disclosures for a company.
type Governance struct {
	ID                           string    `json:"id" gorm:"type:uuid;primaryKey"`
	CompanyID                    string    `json:"company_id" gorm:"type:uuid;index;not null"`
	G1BoardCompositionIndep      string    `json:"g1_board_composition_independence" gorm:"type:text"`
	G1GenderDiversityPct         *float64  `json:"g1_gender_diversity_pct"`
	G1ESGOversight               string    `json:"g1_esg_oversight" gorm:"type:text"`
	G1WhistleblowerCases         string    `json:"g1_whistleblower_cases" gorm:"type:text"`
	G1AntiCorruptionPolicies     string    `json:"g1_anti_corruption_policies" gorm:"type:text"`
	G1RelatedPartyControls       string    `json:"g1_related_party_controls" gorm:"type:text"`
	CreatedAt                    time.Time `json:"created_at"`
	UpdatedAt                    time.Time `json:"updated_at"`
}

// EuTaxonomy holds the EU Taxonomy alignment disclosures for a company.
type EuTaxonomy struct {
	ID                        string    `json:"id" gorm:"type:uuid;primaryKey"`
	CompanyID                 string    `json:"company_id" gorm:"type:uuid;index;not null"`
	EconomicActivities        string    `json:"economic_activities" gorm:"type:text"`
	EligibleRevenuePct        *float64  `json:"taxonomy_eligible_revenue_pct"`
	AlignedRevenuePct         *float64  `json:"taxonomy_aligned_revenue_pct"`
	TechnicalScreeningCrit    string    `json:"technical_screening_criteria" gorm:"type:text"`
	DNSHStatus                string    `json:"dnsh_status" gorm:"type:varchar(50)"`
	SocialSafeguardsStatus    string    `json:"social_safeguards_status" gorm:"type:varchar(50)"`
	EligibleCapexPct          *float64  `json:"taxonomy_eligible_capex_pct"`
	AlignedCapexPct           *float64  `json:"taxonomy_aligned_capex_pct"`
	AlignedOpexPct            *float64  `json:"taxonomy_aligned_opex_pct"`
	CreatedAt                 time.Time `json:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

// Assurance holds the external assurance disclosures for a company.
type Assurance struct {
	ID                          string    `json:"id" gorm:"type:uuid;primaryKey"`
	CompanyID                   string    `json:"company_id" gorm:"type:uuid;index;not null"`
	AssuranceProvider           string    `json:"assurance_provider" gorm:"type:varchar(200)"`
	ScopeOfAssurance            string    `json:"scope_of_assurance" gorm:"type:varchar(50)"`
	ReportingStandards          string    `json:"reporting_standards" gorm:"type:varchar(200)"`
	ConclusionSummary           string    `json:"assurance_conclusion_summary" gorm:"type:text"`
	MaterialMisstatements       string    `json:"material_misstatements_identified" gorm:"type:text"`
	ManagementResponse          string    `json:"management_response" gorm:"type:text"`
	ChecklistDataCollection     bool      `json:"checklist_data_collection_documented"`
	ChecklistInternalControls   bool      `json:"checklist_internal_controls_tested"`
	ChecklistSourceDocs         bool      `json:"checklist_source_documentation_trail"`
	ChecklistCalculationMethod  bool      `json:"checklist_calculation_method_validated"`
	CreatedAt                   time.Time `json:"created_at"`
	UpdatedAt                   time.Time `json:"updated_at"`
}
