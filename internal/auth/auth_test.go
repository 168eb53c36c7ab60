package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/medialog/medialog/internal/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestPasswordHashRoundtrip(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "hunter2hunter2" {
		t.Fatalf("hash equals plaintext")
	}
	if !CheckPassword(hash, "hunter2hunter2") {
		t.Fatalf("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatalf("wrong password accepted")
	}
}

func TestManagerIssueVerify(t *testing.T) {
	manager, err := NewManager(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	user := domain.User{ID: "user-1", Role: domain.RoleAdmin}
	token, err := manager.Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != domain.RoleAdmin {
		t.Fatalf("claims = %+v, want user-1/admin", claims)
	}
}

func TestManagerRejectsExpiredToken(t *testing.T) {
	manager, err := NewManager(testSecret, time.Millisecond)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := manager.Issue(domain.User{ID: "user-1", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if _, err := manager.Verify(token); err == nil {
		t.Fatalf("expired token accepted")
	}
}

func TestManagerRejectsForeignSignature(t *testing.T) {
	managerA, _ := NewManager(testSecret, time.Hour)
	managerB, _ := NewManager(strings.Repeat("z", 32), time.Hour)

	token, err := managerA.Issue(domain.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := managerB.Verify(token); err == nil {
		t.Fatalf("token with foreign signature accepted")
	}
}

func TestNewManagerRejectsWeakSecret(t *testing.T) {
	if _, err := NewManager("short", time.Hour); err == nil {
		t.Fatalf("weak secret accepted")
	}
}

type staticLoader struct {
	user domain.User
	err  error
}

func (l staticLoader) GetByID(ctx context.Context, id string) (domain.User, error) {
	return l.user, l.err
}

func TestMiddleware(t *testing.T) {
	manager, _ := NewManager(testSecret, time.Hour)
	user := domain.User{ID: "user-1", Role: domain.RoleUser}
	token, _ := manager.Issue(user)

	handler := Middleware(manager, staticLoader{user: user})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := UserFromContext(r.Context())
		if !ok || got.ID != "user-1" {
			t.Errorf("user in context = %+v ok=%v", got, ok)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	// Valid token passes through.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	// Missing header is rejected.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", rec.Code)
	}

	// Garbage token is rejected.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status with bad token = %d, want 401", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	adminCtx := context.WithValue(context.Background(), userContextKey, domain.User{ID: "a", Role: domain.RoleAdmin})
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(adminCtx)
	rec := httptest.NewRecorder()
	RequireAdmin(next).ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("admin status = %d, want 204", rec.Code)
	}

	userCtx := context.WithValue(context.Background(), userContextKey, domain.User{ID: "b", Role: domain.RoleUser})
	req = httptest.NewRequest(http.MethodGet, "/", nil).WithContext(userCtx)
	rec = httptest.NewRecorder()
	RequireAdmin(next).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin status = %d, want 403", rec.Code)
	}
}
