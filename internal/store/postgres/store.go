package postgres

import (
	"context"
	"errors"

	"csrd-service/internal/model"
	"csrd-service/internal/store"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store implements store.Directory on top of a gorm Postgres connection.
type Store struct {
	db *gorm.DB
}

// New creates a Store. The connection must be opened with
// TranslateError enabled so unique-index violations surface as
// gorm.ErrDuplicatedKey.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return store.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.User{}, store.ErrUserNotFound
		}
		return model.User{}, err
	}
	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.User{}, store.ErrUserNotFound
		}
		return model.User{}, err
	}
	return user, nil
}

func (s *Store) ListUsers(ctx context.Context, companyID string, page, limit int) ([]model.User, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("company_id = ?", companyID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []model.User
	err := s.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *Store) UpdateUser(ctx context.Context, user *model.User) error {
	result := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"name":     user.Name,
			"email":    user.Email,
			"role":     user.Role,
			"password": user.Password,
		})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return store.ErrDuplicateEmail
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrUserNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&model.User{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrUserNotFound
	}
	return nil
}

func (s *Store) CountAdmins(ctx context.Context, companyID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("company_id = ? AND role = ?", companyID, model.RoleAdmin).
		Count(&count).Error
	return count, err
}

func (s *Store) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	q := s.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// RegisterCompany creates the company and its first admin in a single
// transaction, then backfills the company's creator. A unique-index
// violation on either insert aborts the whole sequence.
func (s *Store) RegisterCompany(ctx context.Context, company *model.Company, admin *model.User) error {
	if company.ID == "" {
		company.ID = uuid.NewString()
	}
	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}
	admin.CompanyID = company.ID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(company).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return store.ErrDuplicateCompany
			}
			return err
		}
		if err := tx.Create(admin).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return store.ErrDuplicateEmail
			}
			return err
		}
		if err := tx.Model(company).Update("created_by", admin.ID).Error; err != nil {
			return err
		}
		company.CreatedBy = admin.ID
		return nil
	})
	return err
}

func (s *Store) GetCompanyByID(ctx context.Context, id string) (model.Company, error) {
	var company model.Company
	// Unscoped so soft-deleted companies are still visible to the
	// deactivation checks at login and session verification.
	if err := s.db.WithContext(ctx).Unscoped().First(&company, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Company{}, store.ErrCompanyNotFound
		}
		return model.Company{}, err
	}
	return company, nil
}

func (s *Store) CompanyNameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	q := s.db.WithContext(ctx).Model(&model.Company{}).Where("name = ?", name)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) CountUsers(ctx context.Context, companyID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("company_id = ?", companyID).Count(&count).Error
	return count, err
}

func (s *Store) UpdateCompany(ctx context.Context, company *model.Company) error {
	result := s.db.WithContext(ctx).Model(&model.Company{}).Where("id = ?", company.ID).
		Updates(map[string]interface{}{
			"name":                    company.Name,
			"legal_entity":            company.LegalEntity,
			"industry":                company.Industry,
			"country_of_registration": company.CountryOfRegistration,
			"updated_by":              company.UpdatedBy,
		})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return store.ErrDuplicateCompany
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrCompanyNotFound
	}
	return nil
}

func (s *Store) SoftDeleteCompany(ctx context.Context, id, deletedBy string) error {
	if err := s.db.WithContext(ctx).Model(&model.Company{}).Where("id = ?", id).
		Update("deleted_by", deletedBy).Error; err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Delete(&model.Company{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrCompanyNotFound
	}
	return nil
}

func (s *Store) CreateGeneralDisclosure(ctx context.Context, d *model.GeneralDisclosure) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(d).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return store.ErrDuplicateForPeriod
		}
		return err
	}
	return nil
}

func (s *Store) GetGeneralDisclosure(ctx context.Context, id string) (model.GeneralDisclosure, error) {
	var d model.GeneralDisclosure
	if err := s.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.GeneralDisclosure{}, store.ErrRecordNotFound
		}
		return model.GeneralDisclosure{}, err
	}
	return d, nil
}

func (s *Store) UpdateGeneralDisclosure(ctx context.Context, d *model.GeneralDisclosure) error {
	if err := s.db.WithContext(ctx).Save(d).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return store.ErrDuplicateForPeriod
		}
		return err
	}
	return nil
}

func (s *Store) ListGeneralDisclosures(ctx context.Context, companyID string) ([]model.GeneralDisclosure, error) {
	var out []model.GeneralDisclosure
	err := s.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("reporting_period DESC").
		Find(&out).Error
	return out, err
}

func (s *Store) CreateEnvironmentalTopics(ctx context.Context, d *model.EnvironmentalTopics) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(d).Error
}

func (s *Store) ListEnvironmentalTopics(ctx context.Context, companyID string) ([]model.EnvironmentalTopics, error) {
	var out []model.EnvironmentalTopics
	err := s.db.WithContext(ctx).Where("company_id = ?", companyID).
		Order("created_at DESC").Find(&out).Error
	return out, err
}

func (s *Store) CreateSocialTopics(ctx context.Context, d *model.SocialTopics) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(d).Error
}

func (s *Store) ListSocialTopics(ctx context.Context, companyID string) ([]model.SocialTopics, error) {
	var out []model.SocialTopics
	err := s.db.WithContext(ctx).Where("company_id = ?", companyID).
		Order("created_at DESC").Find(&out).Error
	return out, err
}

func (s *Store) CreateGovernance(ctx context.Context, d *model.Governance) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(d).Error
}

func (s *Store) ListGovernance(ctx context.Context, companyID string) ([]model.Governance, error) {
	var out []model.Governance
	err := s.db.WithContext(ctx).Where("company_id = ?", companyID).
		Order("created_at DESC").Find(&out).Error
	return out, err
}

func (s *Store) CreateEuTaxonomy(ctx context.Context, d *model.EuTaxonomy) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(d).Error
}

func (s *Store) ListEuTaxonomy(ctx context.Context, companyID string) ([]model.EuTaxonomy, error) {
	var out []model.EuTaxonomy
	err := s.db.WithContext(ctx).Where("company_id = ?", companyID).
		Order("created_at DESC").Find(&out).Error
	return out, err
}

func (s *Store) CreateAssurance(ctx context.Context, d *model.Assurance) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(d).Error
}

func (s *Store) ListAssurance(ctx context.Context, companyID string) ([]model.Assurance, error) {
	var out []model.Assurance
	err := s.db.WithContext(ctx).Where("company_id = ?", companyID).
		Order("created_at DESC").Find(&out).Error
	return out, err
}
