package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	authdomain "medreminder-backend/internal/auth/domain"
	authUsecase "medreminder-backend/internal/auth/usecase"
	"medreminder-backend/internal/reminder/channel"
	"medreminder-backend/internal/reminder/repository"
	"medreminder-backend/internal/reminder/scheduler"
	reminderUsecase "medreminder-backend/internal/reminder/usecase"
	"medreminder-backend/pkg/config"
	"medreminder-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T, secret string) (*gin.Engine, authUsecase.AuthUsecase) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.Discard()

	cfg := &config.Config{
		Environment: "test",
		Auth:        config.AuthConfig{JWTSecret: secret, TokenExpiry: time.Minute},
	}
	repo := repository.NewMemoryReminderRepository()
	engine := scheduler.NewEngine(repo, channel.Disabled(), scheduler.DefaultEngineConfig(), log)
	authUc := authUsecase.NewAuthUsecase(cfg)

	h := NewHandler(authUc, reminderUsecase.NewReminderUsecase(repo, log), engine, cfg, log)
	return h.Router(), authUc
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("health = %d %s", w.Code, w.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	r, _ := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodOptions, "/api/reminders", nil)
	req.Header.Set("Origin", "https://pharmacy.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://pharmacy.example.com" {
		t.Fatalf("Allow-Origin = %q", got)
	}
}

func TestDebugRunRequiresOperatorToken(t *testing.T) {
	r, authUc := newTestRouter(t, "s3cret")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/reminders/debug/run", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", w.Code)
	}

	token, err := authUc.IssueToken("ops-1", authdomain.RoleAdmin)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/reminders/debug/run", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req.WithContext(context.Background()))
	if w.Code != http.StatusOK {
		t.Fatalf("status with token = %d, body = %s", w.Code, w.Body.String())
	}
}
