package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"manuscript-review-api/config"
	"manuscript-review-api/controllers"
	"manuscript-review-api/middleware"
	"manuscript-review-api/models"
	"manuscript-review-api/routes"
	"manuscript-review-api/services"
	"manuscript-review-api/store"
	"manuscript-review-api/workflow"

	"github.com/gin-gonic/gin"
)

const testPassword = "s3cret-pass"

type testAPI struct {
	t      *testing.T
	router *gin.Engine
	store  *store.MemoryStore
	tokens map[string]string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "api-test-secret")

	st := store.NewMemoryStore()
	hash, err := controllers.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	api := &testAPI{t: t, store: st, tokens: make(map[string]string)}
	for _, u := range []models.User{
		{UserID: "admin-1", Email: "admin@example.org", Role: models.RoleAdmin},
		{UserID: "author-1", Email: "author@example.org", Role: models.RoleResearcher},
		{UserID: "r1", Email: "r1@example.org", Role: models.RolePeerReviewer},
		{UserID: "r2", Email: "r2@example.org", Role: models.RolePeerReviewer},
	} {
		u := u
		u.Password = hash
		if err := st.CreateUser(context.Background(), &u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
		token, err := middleware.GenerateToken(u)
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		api.tokens[u.UserID] = token
	}

	files := services.NewLocalFileStorage(t.TempDir(), []byte("file-secret"), time.Minute, "")
	svc := services.NewManuscriptService(st, services.NewNotificationService(st, st), config.DefaultWorkflowSettings())

	router := gin.New()
	routes.SetupRoutes(router, routes.Handlers{
		Users:         st,
		Auth:          controllers.NewAuthController(st),
		Manuscripts:   controllers.NewManuscriptController(svc, files),
		Notifications: controllers.NewNotificationController(st),
		Files:         controllers.NewFileController(files),
	})
	api.router = router
	return api
}

func (a *testAPI) send(req *http.Request, user string) *httptest.ResponseRecorder {
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+a.tokens[user])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) json(method, path, user string, payload interface{}) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	return a.send(req, user)
}

func (a *testAPI) multipart(path, user string, fields map[string]string, fileName, content string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if fileName != "" {
		fw, _ := mw.CreateFormFile("file", fileName)
		_, _ = fw.Write([]byte(content))
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.send(req, user)
}

func (a *testAPI) expect(w *httptest.ResponseRecorder, status int) {
	a.t.Helper()
	if w.Code != status {
		a.t.Fatalf("expected %d, got %d: %s", status, w.Code, w.Body.String())
	}
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) workflow.ManuscriptView {
	t.Helper()
	var out struct {
		Manuscript workflow.ManuscriptView `json:"manuscript"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	return out.Manuscript
}

func TestLogin(t *testing.T) {
	a := newTestAPI(t)

	w := a.json(http.MethodPost, "/api/v1/login", "", map[string]string{"email": "author@example.org", "password": testPassword})
	a.expect(w, http.StatusOK)
	var resp controllers.LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Token == "" || resp.User.UserID != "author-1" {
		t.Fatalf("unexpected login response: %s", w.Body.String())
	}
	if strings.Contains(w.Body.String(), "$2a$") {
		t.Fatalf("password hash leaked in response")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	prof := httptest.NewRecorder()
	a.router.ServeHTTP(prof, req)
	a.expect(prof, http.StatusOK)

	w = a.json(http.MethodPost, "/api/v1/login", "", map[string]string{"email": "author@example.org", "password": "wrong"})
	a.expect(w, http.StatusUnauthorized)
	w = a.json(http.MethodPost, "/api/v1/login", "", map[string]string{"email": "nobody@example.org", "password": testPassword})
	a.expect(w, http.StatusUnauthorized)
	w = a.json(http.MethodPost, "/api/v1/login", "", map[string]string{"email": "not-an-email"})
	a.expect(w, http.StatusBadRequest)
}

func TestReviewLifecycleOverHTTP(t *testing.T) {
	a := newTestAPI(t)

	w := a.multipart("/api/v1/manuscripts", "author-1", map[string]string{"title": "Tidal mixing"}, "paper.pdf", "%PDF v1")
	a.expect(w, http.StatusCreated)
	view := decodeView(t, w)
	if view.Status != models.StatusPending || view.VersionNumber != 1 {
		t.Fatalf("unexpected created view: %+v", view)
	}
	id := view.ID
	base := "/api/v1/manuscripts/" + id

	a.expect(a.json(http.MethodPost, base+"/status", "admin-1", map[string]string{"status": "screened"}), http.StatusOK)
	a.expect(a.json(http.MethodPost, base+"/reviewers", "admin-1", map[string]string{"reviewer_id": "r1"}), http.StatusOK)
	a.expect(a.json(http.MethodPost, base+"/reviewers", "admin-1", map[string]string{"reviewer_id": "r2"}), http.StatusOK)

	// Pending invitations block manual decisions.
	a.expect(a.json(http.MethodPost, base+"/status", "admin-1", map[string]string{"status": "Rejected"}), http.StatusConflict)

	a.expect(a.json(http.MethodPost, base+"/decision", "r1", map[string]string{"decision": "accept"}), http.StatusOK)
	a.expect(a.json(http.MethodPost, base+"/decision", "r2", map[string]string{"decision": "reject"}), http.StatusOK)

	w = a.multipart(base+"/reviews", "r1", map[string]string{"comment": "Convincing.", "recommendation": "publication"}, "review.docx", "review body")
	a.expect(w, http.StatusCreated)
	if got := decodeView(t, w).Status; got != models.StatusBackToAdmin {
		t.Fatalf("expected back to admin, got %s", got)
	}

	w = a.json(http.MethodPost, base+"/status", "admin-1", map[string]string{"status": "for publication", "note": "accepted"})
	a.expect(w, http.StatusOK)
	if got := decodeView(t, w).Status; got != models.StatusForPublication {
		t.Fatalf("expected for publication, got %s", got)
	}

	w = a.json(http.MethodGet, base, "author-1", nil)
	a.expect(w, http.StatusOK)
	authorView := decodeView(t, w)
	if len(authorView.VisibleReviewers) != 1 || authorView.VisibleReviewers[0].ReviewerID != "r1" {
		t.Fatalf("expected author to see r1 only, got %+v", authorView.VisibleReviewers)
	}
	if len(authorView.Submissions) != 1 || authorView.Submissions[0].ReviewFile == "" {
		t.Fatalf("expected one visible review with a file, got %+v", authorView.Submissions)
	}

	reviewFile := authorView.Submissions[0].ReviewFile
	w = a.json(http.MethodGet, base+"/file-link?path="+url.QueryEscape(reviewFile), "author-1", nil)
	a.expect(w, http.StatusOK)
	var link struct {
		URL string `json:"url"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &link)
	dl := a.send(httptest.NewRequest(http.MethodGet, link.URL, nil), "")
	a.expect(dl, http.StatusOK)
	if dl.Body.String() != "review body" {
		t.Fatalf("unexpected download body %q", dl.Body.String())
	}
	if !strings.Contains(dl.Header().Get("Content-Disposition"), "review.docx") {
		t.Fatalf("expected original file name, got %q", dl.Header().Get("Content-Disposition"))
	}

	w = a.json(http.MethodGet, base+"/file-link?path="+url.QueryEscape("reviews/other/secret.pdf"), "author-1", nil)
	a.expect(w, http.StatusNotFound)
}

func TestErrorMapping(t *testing.T) {
	a := newTestAPI(t)
	w := a.multipart("/api/v1/manuscripts", "author-1", map[string]string{"title": "Errors"}, "paper.pdf", "x")
	a.expect(w, http.StatusCreated)
	base := "/api/v1/manuscripts/" + decodeView(t, w).ID

	cases := []struct {
		name   string
		w      *httptest.ResponseRecorder
		status int
	}{
		{"no token", a.json(http.MethodGet, base, "", nil), http.StatusUnauthorized},
		{"role guard", a.json(http.MethodPost, base+"/status", "r1", map[string]string{"status": "screened"}), http.StatusForbidden},
		{"unknown status", a.json(http.MethodPost, base+"/status", "admin-1", map[string]string{"status": "archived"}), http.StatusBadRequest},
		{"table refuses", a.json(http.MethodPost, base+"/status", "admin-1", map[string]string{"status": "For Publication"}), http.StatusConflict},
		{"missing manuscript", a.json(http.MethodGet, "/api/v1/manuscripts/nope", "admin-1", nil), http.StatusNotFound},
		{"reviewer not assigned", a.json(http.MethodGet, base, "r1", nil), http.StatusForbidden},
		{"reviewer acts outside review", a.json(http.MethodPost, base+"/decision", "r1", map[string]string{"decision": "accept"}), http.StatusConflict},
		{"missing file", a.multipart("/api/v1/manuscripts", "author-1", map[string]string{"title": "No file"}, "", ""), http.StatusBadRequest},
		{"bad file type", a.multipart("/api/v1/manuscripts", "author-1", map[string]string{"title": "Exe"}, "run.exe", "MZ"), http.StatusBadRequest},
		{"bad list filter", a.json(http.MethodGet, "/api/v1/manuscripts?status=bogus", "admin-1", nil), http.StatusBadRequest},
		{"bad download token", a.json(http.MethodGet, "/api/v1/files/download?token=abc", "", nil), http.StatusForbidden},
	}
	for _, tc := range cases {
		if tc.w.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d: %s", tc.name, tc.status, tc.w.Code, tc.w.Body.String())
		}
		if !strings.Contains(tc.w.Body.String(), `"error"`) {
			t.Fatalf("%s: expected error body, got %s", tc.name, tc.w.Body.String())
		}
	}
}

func TestListManuscriptsScopesToCaller(t *testing.T) {
	a := newTestAPI(t)
	for _, title := range []string{"One", "Two"} {
		a.expect(a.multipart("/api/v1/manuscripts", "author-1", map[string]string{"title": title}, "p.pdf", "x"), http.StatusCreated)
	}

	var page struct {
		Items      []workflow.ManuscriptView `json:"items"`
		NextCursor string                    `json:"next_cursor"`
	}
	w := a.json(http.MethodGet, "/api/v1/manuscripts?limit=1", "admin-1", nil)
	a.expect(w, http.StatusOK)
	_ = json.Unmarshal(w.Body.Bytes(), &page)
	if len(page.Items) != 1 || page.NextCursor == "" {
		t.Fatalf("expected a first page with a cursor, got %s", w.Body.String())
	}

	w = a.json(http.MethodGet, "/api/v1/manuscripts?status=pending", "r1", nil)
	a.expect(w, http.StatusOK)
	page.Items = nil
	_ = json.Unmarshal(w.Body.Bytes(), &page)
	if len(page.Items) != 0 {
		t.Fatalf("expected reviewer to see nothing, got %d", len(page.Items))
	}
}

func TestNotificationsEndpoints(t *testing.T) {
	a := newTestAPI(t)
	ctx := context.Background()
	if err := a.store.CreateNotifications(ctx, []models.Notification{
		{UserID: "author-1", Title: "Received", Message: "Thanks", Type: "info", CreateAt: time.Now()},
		{UserID: "r1", Title: "Invite", Message: "Please review", Type: "info", CreateAt: time.Now()},
	}); err != nil {
		t.Fatalf("seed notifications: %v", err)
	}

	var list struct {
		Items []models.Notification `json:"items"`
	}
	w := a.json(http.MethodGet, "/api/v1/notifications?unread=1", "author-1", nil)
	a.expect(w, http.StatusOK)
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Items) != 1 || list.Items[0].Title != "Received" {
		t.Fatalf("unexpected notifications: %s", w.Body.String())
	}
	id := list.Items[0].NotificationID

	path := "/api/v1/notifications/" + strconv.FormatUint(uint64(id), 10) + "/read"
	a.expect(a.json(http.MethodPatch, path, "r1", nil), http.StatusNotFound)
	a.expect(a.json(http.MethodPatch, path, "author-1", nil), http.StatusOK)
	a.expect(a.json(http.MethodPatch, "/api/v1/notifications/zero/read", "author-1", nil), http.StatusBadRequest)

	w = a.json(http.MethodGet, "/api/v1/notifications?unread=true", "author-1", nil)
	list.Items = nil
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Items) != 0 {
		t.Fatalf("expected no unread notifications, got %d", len(list.Items))
	}
}
