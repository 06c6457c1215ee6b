package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"csrd-service/internal/middleware"
	"csrd-service/internal/model"
	"csrd-service/internal/store"
	"csrd-service/pkg/config"
	"csrd-service/pkg/jwtutil"
	"csrd-service/pkg/password"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// memDirectory is an in-memory store.Directory used to drive the
// handlers without a database.
type memDirectory struct {
	mu        sync.Mutex
	users     map[string]model.User
	companies map[string]model.Company

	general       map[string]model.GeneralDisclosure
	environmental []model.EnvironmentalTopics
	social        []model.SocialTopics
	governance    []model.Governance
	taxonomy      []model.EuTaxonomy
	assurance     []model.Assurance
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		users:     make(map[string]model.User),
		companies: make(map[string]model.Company),
		general:   make(map[string]model.GeneralDisclosure),
	}
}

func (m *memDirectory) CreateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return store.ErrDuplicateEmail
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now()
	m.users[user.ID] = *user
	return nil
}

func (m *memDirectory) GetUserByID(ctx context.Context, id string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, store.ErrUserNotFound
	}
	return u, nil
}

func (m *memDirectory) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, store.ErrUserNotFound
}

func (m *memDirectory) ListUsers(ctx context.Context, companyID string, page, limit int) ([]model.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.User
	for _, u := range m.users {
		if u.CompanyID == companyID {
			all = append(all, u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return []model.User{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (m *memDirectory) UpdateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if id != user.ID && u.Email == user.Email {
			return store.ErrDuplicateEmail
		}
	}
	if _, ok := m.users[user.ID]; !ok {
		return store.ErrUserNotFound
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memDirectory) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return store.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memDirectory) CountAdmins(ctx context.Context, companyID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.users {
		if u.CompanyID == companyID && u.Role == model.RoleAdmin {
			n++
		}
	}
	return n, nil
}

func (m *memDirectory) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.Email == email && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memDirectory) RegisterCompany(ctx context.Context, company *model.Company, admin *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.companies {
		if c.Name == company.Name {
			return store.ErrDuplicateCompany
		}
	}
	for _, u := range m.users {
		if u.Email == admin.Email {
			return store.ErrDuplicateEmail
		}
	}
	company.ID = uuid.NewString()
	company.CreatedAt = time.Now()
	admin.ID = uuid.NewString()
	admin.CompanyID = company.ID
	admin.CreatedAt = time.Now()
	company.CreatedBy = admin.ID
	m.companies[company.ID] = *company
	m.users[admin.ID] = *admin
	return nil
}

func (m *memDirectory) GetCompanyByID(ctx context.Context, id string) (model.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return model.Company{}, store.ErrCompanyNotFound
	}
	return c, nil
}

func (m *memDirectory) CompanyNameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.companies {
		if c.Name == name && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memDirectory) CountUsers(ctx context.Context, companyID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.users {
		if u.CompanyID == companyID {
			n++
		}
	}
	return n, nil
}

func (m *memDirectory) UpdateCompany(ctx context.Context, company *model.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.companies[company.ID]; !ok {
		return store.ErrCompanyNotFound
	}
	m.companies[company.ID] = *company
	return nil
}

func (m *memDirectory) SoftDeleteCompany(ctx context.Context, id, deletedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return store.ErrCompanyNotFound
	}
	c.DeletedBy = deletedBy
	c.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	m.companies[id] = c
	return nil
}

func (m *memDirectory) CreateGeneralDisclosure(ctx context.Context, d *model.GeneralDisclosure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.general {
		if existing.CompanyID == d.CompanyID && existing.ReportingPeriod.Equal(d.ReportingPeriod) {
			return store.ErrDuplicateForPeriod
		}
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	m.general[d.ID] = *d
	return nil
}

func (m *memDirectory) GetGeneralDisclosure(ctx context.Context, id string) (model.GeneralDisclosure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.general[id]
	if !ok {
		return model.GeneralDisclosure{}, store.ErrRecordNotFound
	}
	return d, nil
}

func (m *memDirectory) UpdateGeneralDisclosure(ctx context.Context, d *model.GeneralDisclosure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.general {
		if id != d.ID && existing.CompanyID == d.CompanyID && existing.ReportingPeriod.Equal(d.ReportingPeriod) {
			return store.ErrDuplicateForPeriod
		}
	}
	if _, ok := m.general[d.ID]; !ok {
		return store.ErrRecordNotFound
	}
	m.general[d.ID] = *d
	return nil
}

func (m *memDirectory) ListGeneralDisclosures(ctx context.Context, companyID string) ([]model.GeneralDisclosure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.GeneralDisclosure
	for _, d := range m.general {
		if d.CompanyID == companyID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReportingPeriod.After(out[j].ReportingPeriod) })
	return out, nil
}

func (m *memDirectory) CreateEnvironmentalTopics(ctx context.Context, d *model.EnvironmentalTopics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	m.environmental = append(m.environmental, *d)
	return nil
}

func (m *memDirectory) ListEnvironmentalTopics(ctx context.Context, companyID string) ([]model.EnvironmentalTopics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.EnvironmentalTopics
	for _, d := range m.environmental {
		if d.CompanyID == companyID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memDirectory) CreateSocialTopics(ctx context.Context, d *model.SocialTopics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	m.social = append(m.social, *d)
	return nil
}

func (m *memDirectory) ListSocialTopics(ctx context.Context, companyID string) ([]model.SocialTopics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SocialTopics
	for _, d := range m.social {
		if d.CompanyID == companyID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memDirectory) CreateGovernance(ctx context.Context, d *model.Governance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	m.governance = append(m.governance, *d)
	return nil
}

func (m *memDirectory) ListGovernance(ctx context.Context, companyID string) ([]model.Governance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Governance
	for _, d := range m.governance {
		if d.CompanyID == companyID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memDirectory) CreateEuTaxonomy(ctx context.Context, d *model.EuTaxonomy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	m.taxonomy = append(m.taxonomy, *d)
	return nil
}

func (m *memDirectory) ListEuTaxonomy(ctx context.Context, companyID string) ([]model.EuTaxonomy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.EuTaxonomy
	for _, d := range m.taxonomy {
		if d.CompanyID == companyID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memDirectory) CreateAssurance(ctx context.Context, d *model.Assurance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	m.assurance = append(m.assurance, *d)
	return nil
}

func (m *memDirectory) ListAssurance(ctx context.Context, companyID string) ([]model.Assurance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Assurance
	for _, d := range m.assurance {
		if d.CompanyID == companyID {
			out = append(out, d)
		}
	}
	return out, nil
}

var _ store.Directory = (*memDirectory)(nil)

func testCtx() context.Context {
	return context.Background()
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: "8080", Env: "development"},
		Session: config.SessionConfig{
			SigningKey:      "test-signing-key",
			TTLDays:         7,
			RememberTTLDays: 30,
		},
	}
}

// newTestServer wires the routes the way the service binary does, so
// tests go through the auth middleware with real session cookies.
func newTestServer(t *testing.T, dir store.Directory) *echo.Echo {
	t.Helper()

	cfg := testConfig()
	if err := jwtutil.Initialize(&cfg.Session); err != nil {
		t.Fatalf("initialize session tokens: %v", err)
	}

	authHandler := NewAuthHandler(dir, cfg)
	companyHandler := NewCompanyHandler(dir)
	userHandler := NewUserHandler(dir, cfg)
	disclosureHandler := NewDisclosureHandler(dir)

	e := echo.New()

	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/session", authHandler.Session)

	authGuard := middleware.Auth(dir)

	companies := e.Group("/companies", authGuard)
	companies.GET("/:id", companyHandler.Get)
	companies.PUT("/:id", companyHandler.Update)
	companies.DELETE("/:id", companyHandler.Delete)

	users := e.Group("/users", authGuard)
	users.GET("", userHandler.List)
	users.POST("/invite", userHandler.Invite)
	users.GET("/:id", userHandler.Get)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	disclosures := e.Group("/disclosures", authGuard)
	disclosures.POST("/esrs2", disclosureHandler.CreateGeneralDisclosure)
	disclosures.GET("/esrs2", disclosureHandler.ListGeneralDisclosures)
	disclosures.PUT("/esrs2/:id", disclosureHandler.UpdateGeneralDisclosure)
	disclosures.POST("/environmental", disclosureHandler.CreateEnvironmentalTopics)
	disclosures.GET("/environmental", disclosureHandler.ListEnvironmentalTopics)
	disclosures.POST("/social", disclosureHandler.CreateSocialTopics)
	disclosures.GET("/social", disclosureHandler.ListSocialTopics)
	disclosures.POST("/governance", disclosureHandler.CreateGovernance)
	disclosures.GET("/governance", disclosureHandler.ListGovernance)
	disclosures.POST("/taxonomy", disclosureHandler.CreateEuTaxonomy)
	disclosures.GET("/taxonomy", disclosureHandler.ListEuTaxonomy)
	disclosures.POST("/assurance", disclosureHandler.CreateAssurance)
	disclosures.GET("/assurance", disclosureHandler.ListAssurance)

	return e
}

// doJSON performs a request against the test server. cookies may be nil
// for unauthenticated calls.
func doJSON(e *echo.Echo, method, path string, body interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response body: %v (%s)", err, rec.Body.String())
	}
	return out
}

// errorCode extracts the code from the error envelope.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rec)
	e, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("response has no error envelope: %s", rec.Body.String())
	}
	code, _ := e["code"].(string)
	return code
}

// sessionCookie pulls the session cookie out of a login response.
func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

var (
	hashOnce   sync.Once
	sharedHash string
)

// testPassword is the plaintext used by seeded users. Its bcrypt hash is
// computed once; hashing at cost 12 is too slow to repeat per user.
const testPassword = "correct-horse-battery"

func passwordHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		h, err := password.Hash(testPassword)
		if err != nil {
			t.Fatalf("hash test password: %v", err)
		}
		sharedHash = h
	})
	return sharedHash
}

// seedCompany creates a company with one admin and returns both.
func seedCompany(t *testing.T, dir *memDirectory, name, adminEmail string) (model.Company, model.User) {
	t.Helper()
	company := model.Company{
		Name:                  name,
		LegalEntity:           name + " GmbH",
		Industry:              "Manufacturing",
		CountryOfRegistration: "Germany",
	}
	admin := model.User{
		Email:    adminEmail,
		Name:     "Admin " + name,
		Password: passwordHash(t),
		Role:     model.RoleAdmin,
	}
	if err := dir.RegisterCompany(context.Background(), &company, &admin); err != nil {
		t.Fatalf("seed company %s: %v", name, err)
	}
	return company, admin
}

// seedUser adds a user with the given role to an existing company.
func seedUser(t *testing.T, dir *memDirectory, companyID, email string, role model.Role) model.User {
	t.Helper()
	u := model.User{
		Email:     email,
		Name:      "User " + email,
		Password:  passwordHash(t),
		Role:      role,
		CompanyID: companyID,
	}
	if err := dir.CreateUser(context.Background(), &u); err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}

// login authenticates a seeded user and returns the session cookie.
func login(t *testing.T, e *echo.Echo, email string) *http.Cookie {
	t.Helper()
	rec := doJSON(e, http.MethodPost, "/auth/login", map[string]interface{}{
		"email":    email,
		"password": testPassword,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d (%s)", email, rec.Code, rec.Body.String())
	}
	return sessionCookie(t, rec)
}
