package dto

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/lexvault/internal/database/models"
	"github.com/stretchr/testify/assert"
)

func TestCreateUserRequest_Validate(t *testing.T) {
	valid := CreateUserRequest{
		Email:    "paralegal@firm.example",
		Password: "Str0ng!Passw0rd",
		Name:     "Pat Paralegal",
		Role:     "org_editor",
	}
	assert.Empty(t, valid.Validate())

	tests := []struct {
		name  string
		mod   func(r *CreateUserRequest)
		field string
	}{
		{"bad email", func(r *CreateUserRequest) { r.Email = "nope" }, "email"},
		{"weak password", func(r *CreateUserRequest) { r.Password = "password" }, "password"},
		{"blank name", func(r *CreateUserRequest) { r.Name = "  " }, "name"},
		{"unknown role", func(r *CreateUserRequest) { r.Role = "owner" }, "role"},
		{"bad org id", func(r *CreateUserRequest) { r.OrganizationID = "not-a-uuid" }, "organization_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mod(&req)
			errs := req.Validate()
			assert.Contains(t, errs, tt.field)
			assert.Len(t, errs, 1)
		})
	}
}

func TestCreateCaseRequest_Validate(t *testing.T) {
	assert.Empty(t, CreateCaseRequest{Title: "Smith v. Jones"}.Validate())
	assert.Empty(t, CreateCaseRequest{Title: "Smith v. Jones", OrganizationID: uuid.NewString()}.Validate())
	assert.Contains(t, CreateCaseRequest{Title: ""}.Validate(), "title")
	assert.Contains(t, CreateCaseRequest{Title: strings.Repeat("x", 256)}.Validate(), "title")
	assert.Contains(t, CreateCaseRequest{Title: "ok", OrganizationID: "123"}.Validate(), "organization_id")
}

func TestSendMessageRequest_Validate(t *testing.T) {
	assert.Empty(t, SendMessageRequest{Content: "Summarize the lease terms"}.Validate(100))
	assert.Equal(t, "Message content is required", SendMessageRequest{Content: " \n\t"}.Validate(100)["content"])
	assert.Equal(t, "Message is too long", SendMessageRequest{Content: strings.Repeat("é", 101)}.Validate(100)["content"])
	assert.Empty(t, SendMessageRequest{Content: strings.Repeat("é", 100)}.Validate(100))
}

func TestPaginationParams(t *testing.T) {
	p := PaginationParams{Page: 0, PerPage: 500}
	p.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 100, p.PerPage)
	assert.Equal(t, 0, p.Offset())
	assert.Equal(t, 3, p.TotalPages(201))
	assert.Equal(t, 0, p.TotalPages(0))
}

func TestDocumentFromModel_HidesStorage(t *testing.T) {
	caseID := uuid.New()
	doc := &models.Document{
		Base:            models.Base{ID: uuid.New()},
		Filename:        "lease.pdf",
		FilePath:        "secret-handle.age",
		MIMEType:        "application/pdf",
		UploadedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		CaseID:          &caseID,
		ExtractedText:   "Lease agreement",
		EmbeddingStatus: models.EmbeddingStub,
	}

	out := DocumentFromModel(doc)
	assert.Equal(t, caseID.String(), out.CaseID)
	assert.True(t, out.HasText)
	assert.Equal(t, "stub", out.EmbeddingStatus)
	assert.Equal(t, "2024-05-01T12:00:00Z", out.UploadedAt)
}

func TestNewPage_EmptyListEncodesAsArray(t *testing.T) {
	page := NewPage[CaseDTO](nil, 0, PaginationParams{Page: 1, PerPage: 20})
	assert.NotNil(t, page.Data)
	assert.Equal(t, 0, page.TotalPages)
}
