package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"skywardportal/internal/app"
	"skywardportal/pkg/store"
)

// fakeObjects is a minimal ObjectStore for handler tests.
type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.objects[key] = data
	f.mu.Unlock()
	return nil
}

func (f *fakeObjects) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[key]; !ok {
		return "", errors.New("object not found")
	}
	return "https://objects.test/" + key, nil
}

func (f *fakeObjects) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	delete(f.objects, key)
	f.mu.Unlock()
	return nil
}

// denyLimiter rejects everything; used to test 429 handling.
type denyLimiter struct{}

func (denyLimiter) Allow(string) bool { return false }

func newTestServer() *Server {
	now := time.Date(2025, time.March, 7, 12, 0, 0, 0, time.UTC)
	a := app.New(store.NewMemoryStore(), newFakeObjects(), nil, app.Options{
		Now: func() time.Time { return now },
	})
	return New(Config{
		App:           a,
		Sessions:      store.NewMemorySessionStore(),
		RefreshTokens: store.NewMemoryRefreshTokenStore(),
	})
}

func doJSON(s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeAuth(t testingT, rec *httptest.ResponseRecorder) authResponse {
	t.Helper()
	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode auth response: %v (%s)", err, rec.Body.String())
	}
	return resp
}

// testingT narrows *testing.T for helpers.
type testingT interface {
	Helper()
	Fatalf(format string, args ...any)
}

func signup(t testingT, s *Server, email string) authResponse {
	t.Helper()
	rec := doJSON(s, http.MethodPost, "/api/auth/signup", "", signupRequest{
		Email:    email,
		Password: "s3cret",
		FullName: "Aziz Aziz",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d: %s", rec.Code, rec.Body.String())
	}
	return decodeAuth(t, rec)
}

func multipartUpload(t testingT, fields map[string]string, fileField string, fileNames ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, name := range fileNames {
		part, err := writer.CreateFormFile(fileField, name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte("%PDF-1.4 stub " + name)); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func adminApprove(t testingT, s *Server, adminToken, leadID string) {
	t.Helper()
	rec := doJSON(s, http.MethodPost, "/api/admin/leads/"+leadID+"/approve", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve status = %d: %s", rec.Code, rec.Body.String())
	}
}

func captureLead(t testingT, s *Server, token string) captureLeadResponse {
	t.Helper()
	rec := doJSON(s, http.MethodPost, "/api/leads", token, captureLeadRequest{FullName: "Aziz Aziz", Age: 25})
	if rec.Code != http.StatusCreated {
		t.Fatalf("capture status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp captureLeadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode capture response: %v", err)
	}
	return resp
}
