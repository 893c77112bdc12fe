package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"readability-backend/internal/analyses"
	"readability-backend/internal/quota"
	"readability-backend/internal/shared/auth"
	"readability-backend/internal/shared/server/middleware"
)

// closeNotifyingRecorder lets gin's Stream run against a recorder.
type closeNotifyingRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *closeNotifyingRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func setupRunRouter(t *testing.T) (*gin.Engine, *Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")

	repo := analyses.NewMemoryRepo()
	history := &analyses.Service{Repo: repo}
	runs := NewRuns(Settings{Models: okTasks()}, Deps{
		Fetcher: &stubFetcher{html: sampleHTML},
		History: history,
		Quota:   &quota.Service{Store: repo, Snapshots: history},
	})
	h := NewHandler(runs)

	router := gin.New()
	router.Use(middleware.Auth("dev"))
	h.RegisterRoutes(router.Group("/api/v1"))
	return router, h
}

func bearer(t *testing.T, sub string) string {
	t.Helper()
	token, err := auth.SignJWT(auth.Claims{Sub: sub, Role: "member"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + token
}

func serve(router *gin.Engine, req *http.Request, authz string) *httptest.ResponseRecorder {
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func postJSON(path string, body any) *http.Request {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func waitRun(t *testing.T, h *Handler, sub, runID string) Snapshot {
	t.Helper()
	o, err := h.Runs.Get(analyses.Caller{ID: sub}, runID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := o.Wait(ctx)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	return snap
}

func TestAnalyzePasteValidation(t *testing.T) {
	router, _ := setupRunRouter(t)
	authz := bearer(t, "user-1")

	resp := serve(router, postJSON("/api/v1/readability/analyze/paste", gin.H{"text": strings.Repeat("x", 99)}), authz)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "100 characters") {
		t.Fatalf("expected minimum length message, got %s", resp.Body.String())
	}

	resp = serve(router, postJSON("/api/v1/readability/analyze/url", gin.H{"url": "http://127.0.0.1/admin"}), authz)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for private address, got %d", resp.Code)
	}
}

func TestRunLifecycleOverHTTP(t *testing.T) {
	router, h := setupRunRouter(t)
	authz := bearer(t, "user-1")

	resp := serve(router, postJSON("/api/v1/readability/analyze/paste", gin.H{"text": sampleHTML}), authz)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}
	var started struct {
		RunID string `json:"runId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&started); err != nil || started.RunID == "" {
		t.Fatalf("expected run id, got %v", err)
	}
	waitRun(t, h, "user-1", started.RunID)

	resp = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/readability/runs/"+started.RunID, nil), authz)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.State != StateComplete || snap.Result == nil || snap.Partial.Preview == nil {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	other := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/readability/runs/"+started.RunID, nil), bearer(t, "user-2"))
	if other.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another owner, got %d", other.Code)
	}

	stream := &closeNotifyingRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/readability/runs/"+started.RunID+"/events", nil)
	req.Header.Set("Authorization", authz)
	router.ServeHTTP(stream, req)
	if body := stream.Body.String(); !strings.Contains(body, "event:done") || !strings.Contains(body, `"state":"complete"`) {
		t.Fatalf("expected terminal event, got %s", body)
	}

	resp = serve(router, httptest.NewRequest(http.MethodDelete, "/api/v1/readability/runs/"+started.RunID, nil), authz)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	resp = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/readability/runs/"+started.RunID, nil), authz)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after reset, got %d", resp.Code)
	}
}

func TestAnalyzeUploadRejectsWrongExtension(t *testing.T) {
	router, h := setupRunRouter(t)
	authz := bearer(t, "user-1")

	upload := func(name, content string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, _ := w.CreateFormFile("file", name)
		_, _ = part.Write([]byte(content))
		_ = w.Close()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/readability/analyze/upload", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		return serve(router, req, authz)
	}

	if resp := upload("page.pdf", sampleHTML); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for pdf, got %d", resp.Code)
	}

	resp := upload("page.html", sampleHTML)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}
	var started struct {
		RunID string `json:"runId"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&started)
	snap := waitRun(t, h, "user-1", started.RunID)
	if snap.State != StateComplete || snap.Result.Source.FileName != "page.html" {
		t.Fatalf("unexpected upload result %+v", snap)
	}
}
