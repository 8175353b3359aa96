package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"formcoach/internal/utils"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("middleware-test-secret")
}

func protectedRouter() *gin.Engine {
	router := gin.New()
	router.Use(AuthRequired())
	router.GET("/api/history", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":  GetUserID(c),
			"username": GetUsername(c),
			"role":     GetRole(c),
		})
	})
	return router
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse error body %q: %v", w.Body.String(), err)
	}
	return body["error"]
}

func TestAuthRequired_MissingHeader(t *testing.T) {
	router := protectedRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/history", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
	if got := errorBody(t, w); got != "authorization header required" {
		t.Errorf("error = %q, expected %q", got, "authorization header required")
	}
}

func TestAuthRequired_MalformedHeader(t *testing.T) {
	router := protectedRouter()

	for _, header := range []string{
		"justatoken",
		"Basic dXNlcjpwYXNz",
		"Bearer",
	} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/history", nil)
		req.Header.Set("Authorization", header)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected status 401, got %d", header, w.Code)
		}
		if got := errorBody(t, w); got != "invalid authorization header format" {
			t.Errorf("header %q: error = %q, expected %q", header, got, "invalid authorization header format")
		}
	}
}

func TestAuthRequired_RejectedToken(t *testing.T) {
	router := protectedRouter()

	expired, err := utils.GenerateToken(7, "coach_dana", "user", -1)
	if err != nil {
		t.Fatalf("failed to issue expired token: %v", err)
	}

	for name, token := range map[string]string{
		"garbage": "not.a.token",
		"expired": expired,
	} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/history", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s token: expected status 401, got %d", name, w.Code)
		}
		if got := errorBody(t, w); got != "invalid or expired token" {
			t.Errorf("%s token: error = %q, expected %q", name, got, "invalid or expired token")
		}
	}
}

func TestAuthRequired_PropagatesClaims(t *testing.T) {
	router := protectedRouter()

	token, err := utils.GenerateToken(7, "coach_dana", "user", 1)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/history", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		UserID   uint   `json:"user_id"`
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body.UserID != 7 {
		t.Errorf("user_id = %d, expected 7", body.UserID)
	}
	if body.Username != "coach_dana" {
		t.Errorf("username = %q, expected %q", body.Username, "coach_dana")
	}
	if body.Role != "user" {
		t.Errorf("role = %q, expected %q", body.Role, "user")
	}
}

func adminRouter(role string, withRole bool) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if withRole {
			c.Set(ContextRole, role)
		}
		c.Next()
	})
	router.Use(AdminRequired())
	router.GET("/api/system-logs", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestAdminRequired_BlocksNonAdmins(t *testing.T) {
	cases := []struct {
		name     string
		role     string
		withRole bool
	}{
		{"no role in context", "", false},
		{"regular user", "user", true},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/system-logs", nil)
		adminRouter(tc.role, tc.withRole).ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Errorf("%s: expected status 403, got %d", tc.name, w.Code)
		}
		if got := errorBody(t, w); got != "admin access required" {
			t.Errorf("%s: error = %q, expected %q", tc.name, got, "admin access required")
		}
	}
}

func TestAdminRequired_AllowsAdmin(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/system-logs", nil)
	adminRouter("admin", true).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestContextGetters_Defaults(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if id := GetUserID(c); id != 0 {
		t.Errorf("GetUserID on empty context = %d, expected 0", id)
	}
	if name := GetUsername(c); name != "" {
		t.Errorf("GetUsername on empty context = %q, expected empty", name)
	}
	if role := GetRole(c); role != "" {
		t.Errorf("GetRole on empty context = %q, expected empty", role)
	}
}
