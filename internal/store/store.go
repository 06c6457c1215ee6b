package store

import (
	"context"

	"csrd-service/internal/model"
)

// UserStore is the user directory shared by the auth guard and the user
// management handlers.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	// ListUsers returns one page of the company's users ordered by
	// creation time (newest first) along with the total count.
	ListUsers(ctx context.Context, companyID string, page, limit int) ([]model.User, int64, error)
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id string) error
	CountAdmins(ctx context.Context, companyID string) (int64, error)
	// EmailTaken reports whether another user (excluding excludeID, if
	// non-empty) already uses the given email.
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
}

// CompanyStore is the company directory.
type CompanyStore interface {
	// RegisterCompany atomically creates the company, its first admin
	// user, and backfills the company's CreatedBy with the new user's
	// id. Either all three steps commit or none do.
	RegisterCompany(ctx context.Context, company *model.Company, admin *model.User) error
	// GetCompanyByID returns the company even when soft-deleted, so
	// callers can distinguish deactivation from absence.
	GetCompanyByID(ctx context.Context, id string) (model.Company, error)
	CompanyNameTaken(ctx context.Context, name, excludeID string) (bool, error)
	CountUsers(ctx context.Context, companyID string) (int64, error)
	UpdateCompany(ctx context.Context, company *model.Company) error
	SoftDeleteCompany(ctx context.Context, id, deletedBy string) error
}

// DisclosureStore persists the sustainability disclosure records. All
// records are company-scoped; tenant isolation is enforced by the
// handlers before any call lands here.
type DisclosureStore interface {
	CreateGeneralDisclosure(ctx context.Context, d *model.GeneralDisclosure) error
	GetGeneralDisclosure(ctx context.Context, id string) (model.GeneralDisclosure, error)
	UpdateGeneralDisclosure(ctx context.Context, d *model.GeneralDisclosure) error
	ListGeneralDisclosures(ctx context.Context, companyID string) ([]model.GeneralDisclosure, error)

	CreateEnvironmentalTopics(ctx context.Context, d *model.EnvironmentalTopics) error
	ListEnvironmentalTopics(ctx context.Context, companyID string) ([]model.EnvironmentalTopics, error)

	CreateSocialTopics(ctx context.Context, d *model.SocialTopics) error
	ListSocialTopics(ctx context.Context, companyID string) ([]model.SocialTopics, error)

	CreateGovernance(ctx context.Context, d *model.Governance) error
	ListGovernance(ctx context.Context, companyID string) ([]model.Governance, error)

	CreateEuTaxonomy(ctx context.Context, d *model.EuTaxonomy) error
	ListEuTaxonomy(ctx context.Context, companyID string) ([]model.EuTaxonomy, error)

	CreateAssurance(ctx context.Context, d *model.Assurance) error
	ListAssurance(ctx context.Context, companyID string) ([]model.Assurance, error)
}

// Directory is the full tenant directory, injected into handlers and
// middleware instead of being reached through a package-global handle.
type Directory interface {
	UserStore
	CompanyStore
	DisclosureStore
}
