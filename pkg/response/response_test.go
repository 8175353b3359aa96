package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performError(err error) *httptest.ResponseRecorder {
	router := gin.New()
	router.GET("/t", func(c *gin.Context) {
		Error(c, err)
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/t", nil)
	router.ServeHTTP(w, req)
	return w
}

func TestError_AppErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
	}{
		{"bad request", NewBadRequest("bad input"), http.StatusBadRequest},
		{"unauthorized", NewUnauthorized("no token"), http.StatusUnauthorized},
		{"forbidden", NewForbidden("not yours"), http.StatusForbidden},
		{"not found", NewNotFound("missing"), http.StatusNotFound},
		{"conflict", NewConflict("exists"), http.StatusConflict},
		{"unavailable", NewUnavailable("ai down"), http.StatusServiceUnavailable},
		{"server error", NewServerError("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performError(tt.err)
			if w.Code != tt.status {
				t.Errorf("status = %d, expected %d", w.Code, tt.status)
			}

			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON body: %v", err)
			}
			if body["error"] != tt.err.Message {
				t.Errorf("error = %q, expected %q", body["error"], tt.err.Message)
			}
		})
	}
}

func TestError_GenericError(t *testing.T) {
	w := performError(errors.New("database exploded"))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, expected 500", w.Code)
	}
}

func TestIsStatus(t *testing.T) {
	err := NewUnavailable("upstream failed")
	if !IsStatus(err, http.StatusServiceUnavailable) {
		t.Error("IsStatus should match 503")
	}
	if IsStatus(err, http.StatusBadRequest) {
		t.Error("IsStatus should not match 400")
	}
	if IsStatus(errors.New("plain"), http.StatusInternalServerError) {
		t.Error("plain errors carry no status")
	}
}

func TestAppError_Error(t *testing.T) {
	err := NewBadRequest("invalid analysis type")
	if err.Error() != "invalid analysis type" {
		t.Errorf("Error() = %q", err.Error())
	}
}
