package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"medreminder-backend/internal/reminder/domain"
	"medreminder-backend/internal/reminder/repository"
	"medreminder-backend/internal/reminder/scheduler"
	"medreminder-backend/internal/reminder/usecase"
	"medreminder-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

type okChannel struct{}

func (okChannel) Deliver(context.Context, string, *domain.Reminder) (string, error) {
	return "msg-1", nil
}

type brokenTrigger struct{}

func (brokenTrigger) RunOnce(context.Context) (scheduler.TickReport, error) {
	return scheduler.TickReport{}, errors.New("database unavailable")
}

func (brokenTrigger) SendNow(context.Context, string) (*domain.Reminder, error) {
	return nil, errors.New("database unavailable")
}

type testServer struct {
	router *gin.Engine
	repo   repository.ReminderRepository
}

func newTestServer(t *testing.T, trigger Trigger, guard gin.HandlerFunc) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.Discard()

	repo := repository.NewMemoryReminderRepository()
	uc := usecase.NewReminderUsecase(repo, log)
	if trigger == nil {
		trigger = scheduler.NewEngine(repo, okChannel{}, scheduler.DefaultEngineConfig(), log)
	}
	if guard == nil {
		guard = func(c *gin.Context) { c.Next() }
	}

	r := gin.New()
	NewReminderHandler(uc, trigger, log).RegisterRoutes(r.Group("/api"), guard)
	return &testServer{router: r, repo: repo}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return w, resp
}

func createBody() map[string]interface{} {
	return map[string]interface{}{
		"orderId":      "order-1",
		"userId":       "patient@example.com",
		"reminderDate": "2025-01-15",
		"reminderTime": "09:00",
		"notes":        "after food",
		"reminderMedications": []map[string]interface{}{
			{"name": "Amoxicillin", "quantity": 3},
		},
	}
}

func TestCreateReminder(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w, resp := s.do(t, http.MethodPost, "/api/reminders", createBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if resp["success"] != true {
		t.Fatalf("success = %v", resp["success"])
	}
	reminder := resp["reminder"].(map[string]interface{})
	if reminder["scheduledAt"] != "2025-01-15T03:30:00Z" {
		t.Fatalf("scheduledAt = %v", reminder["scheduledAt"])
	}
	if reminder["status"] != "active" || reminder["sent"] != false || reminder["attempts"] != float64(0) {
		t.Fatalf("reminder = %v", reminder)
	}
	if _, ok := reminder["lastError"]; !ok {
		t.Fatal("lastError should be present as null")
	}
	meds := reminder["reminderMedications"].([]interface{})
	if len(meds) != 1 {
		t.Fatalf("medications = %v", meds)
	}
}

func TestCreateReminderValidation(t *testing.T) {
	s := newTestServer(t, nil, nil)

	tests := []struct {
		name   string
		mutate func(map[string]interface{})
	}{
		{"missing date", func(b map[string]interface{}) { delete(b, "reminderDate") }},
		{"missing time", func(b map[string]interface{}) { b["reminderTime"] = "" }},
		{"missing order", func(b map[string]interface{}) { delete(b, "orderId") }},
		{"bad time format", func(b map[string]interface{}) { b["reminderTime"] = "25:00" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := createBody()
			tt.mutate(body)
			w, resp := s.do(t, http.MethodPost, "/api/reminders", body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			if resp["success"] != false {
				t.Fatalf("success = %v", resp["success"])
			}
		})
	}
}

func TestGetUserRemindersAndGetByID(t *testing.T) {
	s := newTestServer(t, nil, nil)
	_, created := s.do(t, http.MethodPost, "/api/reminders", createBody())
	id := created["reminder"].(map[string]interface{})["id"].(string)

	w, resp := s.do(t, http.MethodGet, "/api/reminders/user/patient@example.com", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if data := resp["data"].([]interface{}); len(data) != 1 {
		t.Fatalf("data = %v", data)
	}

	w, resp = s.do(t, http.MethodGet, "/api/reminders/user/nobody@example.com", nil)
	if w.Code != http.StatusOK || len(resp["data"].([]interface{})) != 0 {
		t.Fatalf("unexpected response for unknown user: %d %v", w.Code, resp)
	}

	w, _ = s.do(t, http.MethodGet, "/api/reminders/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET by id status = %d", w.Code)
	}
	w, _ = s.do(t, http.MethodGet, "/api/reminders/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET missing status = %d, want 404", w.Code)
	}
}

func TestCancelReminder(t *testing.T) {
	s := newTestServer(t, nil, nil)
	_, created := s.do(t, http.MethodPost, "/api/reminders", createBody())
	id := created["reminder"].(map[string]interface{})["id"].(string)

	w, resp := s.do(t, http.MethodPost, "/api/reminders/"+id+"/cancel", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp["reminder"].(map[string]interface{})["status"] != "cancelled" {
		t.Fatalf("reminder = %v", resp["reminder"])
	}

	w, _ = s.do(t, http.MethodPost, "/api/reminders/"+id+"/cancel", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("second cancel status = %d, want 409", w.Code)
	}
	w, _ = s.do(t, http.MethodPost, "/api/reminders/missing/cancel", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("cancel missing status = %d, want 404", w.Code)
	}
}

func TestSendTestReminder(t *testing.T) {
	s := newTestServer(t, nil, nil)
	_, created := s.do(t, http.MethodPost, "/api/reminders", createBody())
	id := created["reminder"].(map[string]interface{})["id"].(string)

	w, resp := s.do(t, http.MethodPost, "/api/reminders/test/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if resp["message"] != "Test reminder sent successfully" {
		t.Fatalf("message = %v", resp["message"])
	}
	reminder := resp["reminder"].(map[string]interface{})
	if reminder["sent"] != true || reminder["attempts"] != float64(1) || reminder["status"] != "completed" {
		t.Fatalf("reminder = %v", reminder)
	}

	w, _ = s.do(t, http.MethodPost, "/api/reminders/test/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d, want 404", w.Code)
	}
}

func TestRunScheduler(t *testing.T) {
	s := newTestServer(t, nil, nil)
	due := &domain.Reminder{
		OrderID:      "order-1",
		UserID:       "patient@example.com",
		ReminderDate: "2025-01-15",
		ReminderTime: "09:00",
		ScheduledAt:  time.Now().Add(-time.Second),
		Status:       domain.StatusActive,
	}
	if err := s.repo.Create(context.Background(), due); err != nil {
		t.Fatalf("Create: %v", err)
	}

	w, resp := s.do(t, http.MethodPost, "/api/reminders/debug/run", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	report := resp["report"].(map[string]interface{})
	if report["due"] != float64(1) || report["sent"] != float64(1) {
		t.Fatalf("report = %v", report)
	}
}

func TestTriggerFailures(t *testing.T) {
	s := newTestServer(t, brokenTrigger{}, nil)

	w, resp := s.do(t, http.MethodPost, "/api/reminders/debug/run", nil)
	if w.Code != http.StatusInternalServerError || resp["success"] != false {
		t.Fatalf("debug/run = %d %v", w.Code, resp)
	}
	w, _ = s.do(t, http.MethodPost, "/api/reminders/test/any", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("test/:id = %d, want 500", w.Code)
	}
}

func TestGuardProtectsOperatorRoutes(t *testing.T) {
	deny := func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "unauthorized"})
	}
	s := newTestServer(t, nil, deny)

	for _, path := range []string{"/api/reminders/debug/run", "/api/reminders/test/x", "/api/reminders/x/cancel"} {
		w, _ := s.do(t, http.MethodPost, path, nil)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s status = %d, want 401", path, w.Code)
		}
	}
	w, _ := s.do(t, http.MethodPost, "/api/reminders", createBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("create should not be guarded, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil, nil)
	w, resp := s.do(t, http.MethodGet, "/api/reminders/health", nil)
	if w.Code != http.StatusOK || resp["success"] != true {
		t.Fatalf("health = %d %v", w.Code, resp)
	}
	if _, err := time.Parse(time.RFC3339Nano, resp["now"].(string)); err != nil {
		t.Fatalf("now is not RFC3339: %v", err)
	}
}
