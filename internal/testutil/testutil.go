package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/lexvault/internal/auth"
	"github.com/hugh/lexvault/internal/database"
	"github.com/hugh/lexvault/internal/database/models"
	"github.com/hugh/lexvault/internal/policy"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Every connection to :memory: is a separate database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// TestLogger discards all output.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// CreateTestOrg creates a test organization
func CreateTestOrg(t *testing.T, db *gorm.DB) *models.Organization {
	t.Helper()

	org := &models.Organization{
		Base: models.Base{
			ID: uuid.New(),
		},
		Name:     "Test Firm " + uuid.New().String()[:8],
		IsActive: true,
	}

	if err := db.Create(org).Error; err != nil {
		t.Fatalf("failed to create test organization: %v", err)
	}

	return org
}

const TestPassword = "testpassword123"

// CreateTestUser creates a user with the given role. org may be nil for a SuperAdmin.
func CreateTestUser(t *testing.T, db *gorm.DB, org *models.Organization, role models.Role) *models.User {
	t.Helper()

	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Base: models.Base{
			ID: uuid.New(),
		},
		Email:        "test-" + uuid.New().String()[:8] + "@example.com",
		PasswordHash: hash,
		Name:         "Test User",
		Role:         role,
		IsActive:     true,
	}
	if org != nil {
		user.OrganizationID = &org.ID
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	user.Organization = org
	return user
}

// CreateTestCase creates a case owned by orgID (nil for a legacy unscoped case).
func CreateTestCase(t *testing.T, db *gorm.DB, orgID *uuid.UUID, title string) *models.Case {
	t.Helper()

	c := &models.Case{
		Base: models.Base{
			ID: uuid.New(),
		},
		Title:          title,
		Description:    "Test case " + title,
		OrganizationID: orgID,
	}

	if err := db.Create(c).Error; err != nil {
		t.Fatalf("failed to create test case: %v", err)
	}

	return c
}

// CreateTestDocument creates a document row pointing at handle.
func CreateTestDocument(t *testing.T, db *gorm.DB, caseID *uuid.UUID, filename, handle string) *models.Document {
	t.Helper()

	doc := &models.Document{
		Base: models.Base{
			ID: uuid.New(),
		},
		Filename:        filename,
		FilePath:        handle,
		MIMEType:        "application/pdf",
		UploadedAt:      time.Now().UTC(),
		CaseID:          caseID,
		EmbeddingStatus: models.EmbeddingFailed,
	}

	if err := db.Create(doc).Error; err != nil {
		t.Fatalf("failed to create test document: %v", err)
	}

	return doc
}

// Actor returns the policy actor for user.
func Actor(user *models.User) *policy.Actor {
	return policy.ActorFromUser(user)
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// CountAudit returns the number of audit rows with the given action.
func CountAudit(t *testing.T, db *gorm.DB, action models.AuditAction) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.AuditLog{}).Where("action = ?", action).Count(&n).Error; err != nil {
		t.Fatalf("failed to count audit rows: %v", err)
	}
	return n
}

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	Org        *models.Organization
	User       *models.User
	Token      string
}

// NewTestContext creates a DB with one organization and an OrgAdmin in it.
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	org := CreateTestOrg(t, db)
	user := CreateTestUser(t, db, org, models.RoleOrgAdmin)
	token := GenerateTestToken(t, jwtService, user)

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		Org:        org,
		User:       user,
		Token:      token,
	}
}

// AddUser creates another user in the setup's database and returns it with a token.
func (ts *TestSetup) AddUser(t *testing.T, org *models.Organization, role models.Role) (*models.User, string) {
	t.Helper()
	user := CreateTestUser(t, ts.DB, org, role)
	return user, GenerateTestToken(t, ts.JWTService, user)
}
