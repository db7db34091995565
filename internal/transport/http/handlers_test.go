package httpt_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medremind/internal/entity"
	"medremind/internal/metrics"
	"medremind/internal/notifier"
	"medremind/internal/repository"
	"medremind/internal/retry"
	"medremind/internal/scheduler"
	"medremind/internal/service"
	httpt "medremind/internal/transport/http"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubScheduler struct {
	running bool
}

func (s *stubScheduler) Start(context.Context) { s.running = true }
func (s *stubScheduler) Stop()                 { s.running = false }
func (s *stubScheduler) Status() scheduler.Status {
	return scheduler.Status{Running: s.running, TickInterval: time.Second, BatchLimit: 100, SubBatchSize: 10}
}

type stubWorkers struct{}

func (stubWorkers) FreeWorkers() int { return 5 }

type okSender struct{}

func (okSender) Send(context.Context, entity.NotificationEvent) error { return nil }

func newTestHandler(t *testing.T) (*httpt.Handler, *clock.Mock) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clk := clock.NewMock()
	clk.Set(time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC))

	log := zap.NewNop().Sugar()
	index := repository.NewScheduleIndex(rdb)
	retries := repository.NewRetryRepository(rdb, time.Hour)
	manager := retry.NewManager(retries, index, clk, log, 2, time.Minute)
	dispatcher := notifier.NewDispatcher(
		map[entity.Channel]notifier.Sender{entity.ChannelPush: okSender{}},
		time.Second, log)

	svc, err := service.NewReminderService(
		repository.NewReminderRepository(rdb),
		manager,
		dispatcher,
		retries,
		repository.NewContactRepository(rdb),
		clk,
		log,
		metrics.NopSink{},
	)
	require.NoError(t, err)

	return httpt.NewHandler(svc, &stubScheduler{}, stubWorkers{}, log, "medremind", "test"), clk
}

func doJSON(t *testing.T, h *httpt.Handler, method, path string, owner *uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if owner != nil {
		req.Header.Set("X-User-ID", owner.String())
	}

	rec := httptest.NewRecorder()
	h.Engine().ServeHTTP(rec, req)
	return rec
}

func createBody(at time.Time) map[string]any {
	return map[string]any{
		"type":           "medicine",
		"title":          "Aspirin",
		"scheduled_time": at.Format(time.RFC3339),
		"channels":       []string{"push"},
		"medicine":       map[string]any{"medicine_name": "Aspirin", "dosage": "100mg"},
	}
}

func TestMissingUserHeaderRejected(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodGet, "/reminders", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func mustCreate(t *testing.T, h *httpt.Handler, owner uuid.UUID, body map[string]any) httpt.CreateReminderResponse {
	t.Helper()

	rec := doJSON(t, h, http.MethodPost, "/reminders", &owner, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created httpt.CreateReminderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEqual(t, uuid.Nil, created.ReminderID)
	return created
}

func TestCreateAndGetReminder(t *testing.T) {
	h, clk := newTestHandler(t)
	owner := uuid.New()

	at := clk.Now().Add(time.Hour)
	created := mustCreate(t, h, owner, createBody(at))
	assert.True(t, created.ScheduledTime.Equal(at))
	assert.Nil(t, created.NextOccurrence, "one-off reminder has no next occurrence")

	rec := doJSON(t, h, http.MethodGet, "/reminders/"+created.ReminderID.String(), &owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rem entity.Reminder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rem))
	assert.True(t, rem.IsActive)
	assert.Equal(t, entity.PriorityMedium, rem.Priority, "defaulted")
}

func TestCreateRecurringReturnsNextOccurrence(t *testing.T) {
	h, clk := newTestHandler(t)
	owner := uuid.New()

	at := clk.Now().Add(time.Hour)
	body := createBody(at)
	body["recurrence"] = map[string]any{"frequency": "daily", "interval": 1}

	created := mustCreate(t, h, owner, body)
	require.NotNil(t, created.NextOccurrence)
	assert.True(t, created.NextOccurrence.Equal(at.Add(24*time.Hour)))
}

func TestCreatePastScheduleRejected(t *testing.T) {
	h, clk := newTestHandler(t)
	owner := uuid.New()

	rec := doJSON(t, h, http.MethodPost, "/reminders", &owner, createBody(clk.Now().Add(-time.Hour)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "past_schedule")
}

func TestGetForeignReminderForbidden(t *testing.T) {
	h, clk := newTestHandler(t)
	owner := uuid.New()
	stranger := uuid.New()

	created := mustCreate(t, h, owner, createBody(clk.Now().Add(time.Hour)))

	rec := doJSON(t, h, http.MethodGet, "/reminders/"+created.ReminderID.String(), &stranger, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetUnknownReminderNotFound(t *testing.T) {
	h, _ := newTestHandler(t)
	owner := uuid.New()

	rec := doJSON(t, h, http.MethodGet, "/reminders/"+uuid.NewString(), &owner, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/reminders/not-a-uuid", &owner, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSnoozeInactiveReminderBadRequest(t *testing.T) {
	h, clk := newTestHandler(t)
	owner := uuid.New()

	created := mustCreate(t, h, owner, createBody(clk.Now().Add(time.Hour)))

	rec := doJSON(t, h, http.MethodPut, "/reminders/"+created.ReminderID.String(), &owner,
		map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/reminders/"+created.ReminderID.String()+"/snooze", &owner,
		map[string]any{"duration_minutes": 30})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "inactive")
}

func TestSnoozeValidationRejectsNonPositiveDuration(t *testing.T) {
	h, clk := newTestHandler(t)
	owner := uuid.New()

	created := mustCreate(t, h, owner, createBody(clk.Now().Add(time.Hour)))

	rec := doJSON(t, h, http.MethodPost, "/reminders/"+created.ReminderID.String()+"/snooze", &owner,
		map[string]any{"duration_minutes": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRemindersWithFilter(t *testing.T) {
	h, clk := newTestHandler(t)
	owner := uuid.New()

	for i := 1; i <= 3; i++ {
		mustCreate(t, h, owner, createBody(clk.Now().Add(time.Duration(i)*time.Hour)))
	}

	rec := doJSON(t, h, http.MethodGet, "/reminders?type=medicine&limit=2&offset=1", &owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page httpt.ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 3, page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.Limit)
	assert.Equal(t, 1, page.Pagination.Offset)
	assert.Len(t, page.Reminders, 2)
	assert.False(t, page.Pagination.HasMore)

	rec = doJSON(t, h, http.MethodGet, "/reminders?type=appointment", &owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Zero(t, page.Pagination.Total)
}

func TestListRemindersDateWindow(t *testing.T) {
	h, clk := newTestHandler(t)
	owner := uuid.New()

	soon := mustCreate(t, h, owner, createBody(clk.Now().Add(time.Hour)))
	mustCreate(t, h, owner, createBody(clk.Now().Add(72*time.Hour)))

	end := clk.Now().Add(24 * time.Hour).Format(time.RFC3339)
	rec := doJSON(t, h, http.MethodGet, "/reminders?end_date="+end, &owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page httpt.ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 1, page.Pagination.Total)
	require.Len(t, page.Reminders, 1)
	assert.Equal(t, soon.ReminderID, page.Reminders[0].ID)

	start := clk.Now().Add(24 * time.Hour).Format(time.RFC3339)
	rec = doJSON(t, h, http.MethodGet, "/reminders?start_date="+start, &owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Pagination.Total)

	rec = doJSON(t, h, http.MethodGet, "/reminders?end_date=yesterday", &owner, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContactRoundtrip(t *testing.T) {
	h, _ := newTestHandler(t)
	owner := uuid.New()

	rec := doJSON(t, h, http.MethodGet, "/contacts", &owner, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodPut, "/contacts", &owner,
		map[string]any{"email": "pat@example.com", "push_token": "tok-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/contacts", &owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var contact entity.OwnerContact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &contact))
	assert.Equal(t, "pat@example.com", contact.Email)
	assert.Equal(t, owner, contact.OwnerID)
}

func TestSchedulerControlEndpoints(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodGet, "/scheduler/status", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status httpt.SchedulerStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Running)
	assert.Equal(t, 5, status.FreeWorkers)

	rec = doJSON(t, h, http.MethodPost, "/scheduler/start", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/scheduler/status", nil, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Running)

	rec = doJSON(t, h, http.MethodPost, "/scheduler/stop", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestDeadLettersEmpty(t *testing.T) {
	h, _ := newTestHandler(t)
	owner := uuid.New()

	rec := doJSON(t, h, http.MethodGet, "/reminders/deadletter", &owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", rec.Body.String())

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/reminders/deadletter?limit=%d", -1), &owner, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
