package handlers_test

import (
	"bytes"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/lexvault/internal/api/dto"
	"github.com/hugh/lexvault/internal/database/models"
	"github.com/hugh/lexvault/internal/ingest"
	"github.com/hugh/lexvault/internal/tasks"
	"github.com/hugh/lexvault/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const leaseText = "This residential lease is entered into between the landlord and the tenant for a term of twelve months."

func TestDocumentHandler_UploadToCase(t *testing.T) {
	env := setupRouter(t)
	c := testutil.CreateTestCase(t, env.DB, &env.Org.ID, "Lease dispute")

	req := uploadRequest(t, "/api/v1/cases/"+c.ID.String()+"/documents", env.Token, "lease.txt", []byte(leaseText), nil)
	req.RemoteAddr = "203.0.113.9:4000"
	rr := env.do(req)
	testutil.AssertStatus(t, rr, http.StatusCreated)

	var result ingest.Result
	testutil.ParseJSONResponse(t, rr, &result)
	assert.Equal(t, ingest.StatusSuccess, result.Status)
	assert.Equal(t, ingest.OCRSuccess, result.OCRStatus)
	assert.Equal(t, models.EmbeddingStub, result.EmbeddingStatus)
	assert.Equal(t, len(leaseText), result.Characters)

	var doc models.Document
	require.NoError(t, env.DB.First(&doc, "id = ?", result.DocumentID).Error)
	assert.Equal(t, "lease.txt", doc.Filename)
	assert.Equal(t, c.ID, *doc.CaseID)
	assert.Len(t, env.Vault.blobs, 1)

	var entry models.AuditLog
	require.NoError(t, env.DB.Where("action = ?", models.AuditUpload).First(&entry).Error)
	assert.Equal(t, "203.0.113.9", entry.IPAddress)
	assert.Equal(t, env.Org.ID, *entry.OrganizationID)
}

func TestDocumentHandler_Upload_Rejections(t *testing.T) {
	env := setupRouter(t)
	otherOrg := testutil.CreateTestOrg(t, env.DB)
	theirs := testutil.CreateTestCase(t, env.DB, &otherOrg.ID, "Theirs")
	ours := testutil.CreateTestCase(t, env.DB, &env.Org.ID, "Ours")

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
	}{
		{
			name:       "other organization's case",
			req:        uploadRequest(t, "/api/v1/cases/"+theirs.ID.String()+"/documents", env.Token, "a.txt", []byte("x"), nil),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unscoped upload by org admin",
			req:        uploadRequest(t, "/api/v1/documents", env.Token, "a.txt", []byte("x"), nil),
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "missing file part",
			req:        uploadRequest(t, "/api/v1/cases/"+ours.ID.String()+"/documents", env.Token, "", nil, map[string]string{"note": "x"}),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty file",
			req:        uploadRequest(t, "/api/v1/cases/"+ours.ID.String()+"/documents", env.Token, "empty.pdf", nil, nil),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid case_id field",
			req:        uploadRequest(t, "/api/v1/documents", env.Token, "a.txt", []byte("x"), map[string]string{"case_id": "42"}),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "too large",
			req:        uploadRequest(t, "/api/v1/cases/"+ours.ID.String()+"/documents", env.Token, "big.bin", bytes.Repeat([]byte("a"), testMaxUpload+1), nil),
			wantStatus: http.StatusRequestEntityTooLarge,
		},
		{
			name:       "unauthenticated",
			req:        uploadRequest(t, "/api/v1/cases/"+ours.ID.String()+"/documents", "", "a.txt", []byte("x"), nil),
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(tt.req)
			testutil.AssertStatus(t, rr, tt.wantStatus)
		})
	}

	var docs int64
	require.NoError(t, env.DB.Model(&models.Document{}).Count(&docs).Error)
	assert.Zero(t, docs)
	assert.Empty(t, env.Vault.blobs)
	assert.Zero(t, testutil.CountAudit(t, env.DB, models.AuditUpload))
}

func TestDocumentHandler_Upload_CaseIDField(t *testing.T) {
	env := setupRouter(t)
	c := testutil.CreateTestCase(t, env.DB, &env.Org.ID, "Lease dispute")

	rr := env.do(uploadRequest(t, "/api/v1/documents", env.Token, "lease.txt", []byte(leaseText), map[string]string{"case_id": c.ID.String()}))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	var doc models.Document
	require.NoError(t, env.DB.First(&doc).Error)
	assert.Equal(t, c.ID, *doc.CaseID)
}

func TestDocumentHandler_Upload_SuperAdminUnscoped(t *testing.T) {
	env := setupRouter(t)
	_, superToken := env.AddUser(t, nil, models.RoleSuperAdmin)

	rr := env.do(uploadRequest(t, "/api/v1/documents", superToken, "memo.txt", []byte(leaseText), nil))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	var doc models.Document
	require.NoError(t, env.DB.First(&doc).Error)
	assert.Nil(t, doc.CaseID)
}

func TestDocumentHandler_ListGetDownload(t *testing.T) {
	env := setupRouter(t)
	c := testutil.CreateTestCase(t, env.DB, &env.Org.ID, "Lease dispute")

	rr := env.do(uploadRequest(t, "/api/v1/cases/"+c.ID.String()+"/documents", env.Token, "lease.txt", []byte(leaseText), nil))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	var result ingest.Result
	testutil.ParseJSONResponse(t, rr, &result)
	docPath := "/api/v1/documents/" + result.DocumentID.String()

	rr = env.do(testutil.AuthenticatedRequest(t, http.MethodGet, "/api/v1/cases/"+c.ID.String()+"/documents", nil, env.Token))
	testutil.AssertStatus(t, rr, http.StatusOK)
	var list []dto.DocumentDTO
	testutil.ParseJSONResponse(t, rr, &list)
	require.Len(t, list, 1)
	assert.Equal(t, result.DocumentID.String(), list[0].ID)
	assert.True(t, list[0].HasText)
	assert.NotContains(t, rr.Body.String(), ".age", "storage handles are never exposed")

	rr = env.do(testutil.AuthenticatedRequest(t, http.MethodGet, docPath, nil, env.Token))
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = env.do(testutil.AuthenticatedRequest(t, http.MethodGet, docPath+"/download", nil, env.Token))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, leaseText, rr.Body.String())
	assert.Contains(t, rr.Header().Get("Content-Disposition"), `filename="lease.txt"`)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.Equal(t, int64(1), testutil.CountAudit(t, env.DB, models.AuditDownload))

	// Another organization sees nothing.
	otherOrg := testutil.CreateTestOrg(t, env.DB)
	_, otherToken := env.AddUser(t, otherOrg, models.RoleOrgAdmin)
	rr = env.do(testutil.AuthenticatedRequest(t, http.MethodGet, docPath+"/download", nil, otherToken))
	testutil.AssertStatus(t, rr, http.StatusNotFound)
	assert.Equal(t, int64(1), testutil.CountAudit(t, env.DB, models.AuditDownload))
}

func TestDocumentHandler_Reprocess(t *testing.T) {
	env := setupRouter(t)
	c := testutil.CreateTestCase(t, env.DB, &env.Org.ID, "Lease dispute")
	doc := testutil.CreateTestDocument(t, env.DB, &c.ID, "scan.pdf", "h1")

	rr := env.do(testutil.AuthenticatedRequest(t, http.MethodPost, "/api/v1/documents/"+doc.ID.String()+"/reprocess", nil, env.Token))
	testutil.AssertStatus(t, rr, http.StatusAccepted)

	var resp dto.ReprocessResponse
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.True(t, resp.Queued)
	require.Len(t, env.Queue.tasks, 1)
	assert.Equal(t, tasks.TypeDocumentReprocess, env.Queue.tasks[0].Type())

	// A pending job for the same document is not an error.
	env.Queue.err = asynq.ErrTaskIDConflict
	rr = env.do(testutil.AuthenticatedRequest(t, http.MethodPost, "/api/v1/documents/"+doc.ID.String()+"/reprocess", nil, env.Token))
	testutil.AssertStatus(t, rr, http.StatusAccepted)
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.False(t, resp.Queued)

	env.Queue.err = errors.New("redis down")
	rr = env.do(testutil.AuthenticatedRequest(t, http.MethodPost, "/api/v1/documents/"+doc.ID.String()+"/reprocess", nil, env.Token))
	testutil.AssertStatus(t, rr, http.StatusInternalServerError)
	assert.NotContains(t, rr.Body.String(), "redis")

	rr = env.do(testutil.AuthenticatedRequest(t, http.MethodPost, "/api/v1/documents/"+uuid.NewString()+"/reprocess", nil, env.Token))
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}
