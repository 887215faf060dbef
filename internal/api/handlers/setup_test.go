package handlers_test

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/hugh/lexvault/internal/admin"
	"github.com/hugh/lexvault/internal/api/handlers"
	"github.com/hugh/lexvault/internal/api/middleware"
	"github.com/hugh/lexvault/internal/apperr"
	"github.com/hugh/lexvault/internal/audit"
	"github.com/hugh/lexvault/internal/auth"
	"github.com/hugh/lexvault/internal/cases"
	"github.com/hugh/lexvault/internal/chat"
	"github.com/hugh/lexvault/internal/embedding"
	"github.com/hugh/lexvault/internal/extract"
	"github.com/hugh/lexvault/internal/ingest"
	"github.com/hugh/lexvault/internal/policy"
	"github.com/hugh/lexvault/internal/testutil"
)

type memVault struct {
	mu    sync.Mutex
	blobs map[string][]byte
	seq   int
}

func (v *memVault) Store(_ context.Context, raw []byte, name string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seq++
	handle := fmt.Sprintf("%d_%s.age", v.seq, name)
	v.blobs[handle] = append([]byte(nil), raw...)
	return handle, nil
}

func (v *memVault) Retrieve(_ context.Context, handle string) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	data, ok := v.blobs[handle]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return data, nil
}

func (v *memVault) Discard(_ context.Context, handle string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.blobs, handle)
	return nil
}

// plainExtractor treats every upload as its own text.
type plainExtractor struct{}

func (plainExtractor) Extract(_ context.Context, data []byte, _ string) extract.Result {
	return extract.Result{Text: string(data), Strategy: "text"}
}

type cannedGenerator struct {
	reply string
	err   error
}

func (g cannedGenerator) Generate(context.Context, string) (string, error) {
	return g.reply, g.err
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

type testEnv struct {
	*testutil.TestSetup
	Router *chi.Mux
	Vault  *memVault
	Queue  *fakeQueue
}

const testMaxUpload = 1 << 20

func setupRouter(t *testing.T) *testEnv {
	t.Helper()

	ts := testutil.NewTestContext(t)
	logger := testutil.TestLogger()
	enforcer := policy.NewEnforcer(logger)
	recorder := audit.NewRecorder(ts.DB, logger)
	vault := &memVault{blobs: make(map[string][]byte)}
	queue := &fakeQueue{}

	authService := auth.NewService(ts.DB, ts.JWTService, recorder, logger)
	caseService := cases.NewService(ts.DB, enforcer, recorder, vault, logger)
	embedder := embedding.NewService(nil, embedding.Options{}, logger)
	ingestService := ingest.NewService(ts.DB, enforcer, caseService, vault, plainExtractor{}, embedder, recorder, logger)
	chatService := chat.NewService(ts.DB, caseService, cannedGenerator{reply: "The lease term is 12 months."}, recorder, time.Second, logger)
	adminService := admin.NewService(ts.DB, enforcer, recorder, logger)

	authHandler := handlers.NewAuthHandler(authService, logger)
	caseHandler := handlers.NewCaseHandler(caseService, logger)
	documentHandler := handlers.NewDocumentHandler(caseService, ingestService, queue, testMaxUpload, logger)
	chatHandler := handlers.NewChatHandler(chatService, logger)
	adminHandler := handlers.NewAdminHandler(adminService, logger)
	auditHandler := handlers.NewAuditHandler(audit.NewReader(ts.DB, enforcer), logger)

	r := chi.NewRouter()
	r.Use(middleware.Origin)
	r.Post("/api/v1/auth/login", authHandler.Login)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(ts.JWTService, authService))

		r.Get("/api/v1/me", authHandler.Me)
		r.Route("/api/v1/cases", func(r chi.Router) {
			r.Get("/", caseHandler.List)
			r.Post("/", caseHandler.Create)
			r.Get("/{id}", caseHandler.Get)
			r.Delete("/{id}", caseHandler.Delete)
			r.Get("/{id}/documents", documentHandler.ListByCase)
			r.Post("/{id}/documents", documentHandler.UploadToCase)
			r.Get("/{id}/messages", chatHandler.History)
			r.Post("/{id}/messages", chatHandler.Send)
		})
		r.Route("/api/v1/documents", func(r chi.Router) {
			r.Post("/", documentHandler.Upload)
			r.Get("/{id}", documentHandler.Get)
			r.Get("/{id}/download", documentHandler.Download)
			r.Post("/{id}/reprocess", documentHandler.Reprocess)
		})
		r.Get("/api/v1/organizations", adminHandler.ListOrganizations)
		r.Post("/api/v1/organizations", adminHandler.CreateOrganization)
		r.Post("/api/v1/organizations/{id}/deactivate", adminHandler.DeactivateOrganization)
		r.Get("/api/v1/users", adminHandler.ListUsers)
		r.Post("/api/v1/users", adminHandler.CreateUser)
		r.Get("/api/v1/audit-logs", auditHandler.List)
	})

	return &testEnv{TestSetup: ts, Router: r, Vault: vault, Queue: queue}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.Router.ServeHTTP(rr, req)
	return rr
}

// uploadRequest builds a multipart upload with a single "file" part.
func uploadRequest(t *testing.T, path, token, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("writing field: %v", err)
		}
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("creating form file: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("writing form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}
