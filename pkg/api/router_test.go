package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/homai-scheduler/pkg/api/types"
	"github.com/urmzd/homai-scheduler/pkg/schedule"
	"github.com/urmzd/homai-scheduler/pkg/schedule/schema"
)

// Monday 2024-01-01 10:00 UTC
var monday10 = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

type recordingWriter struct {
	mu        sync.Mutex
	connected bool
	writes    [][2]string
}

func (w *recordingWriter) SetTagValue(_ context.Context, tagID, value string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = append(w.writes, [2]string{tagID, value})
	return true, nil
}

func (w *recordingWriter) IsConnected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}

func (w *recordingWriter) Close() error { return nil }

func (w *recordingWriter) last() [2]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.writes) == 0 {
		return [2]string{}
	}
	return w.writes[len(w.writes)-1]
}

func (w *recordingWriter) setConnected(v bool) {
	w.mu.Lock()
	w.connected = v
	w.mu.Unlock()
}

type testAPI struct {
	svc    *schedule.Service
	writer *recordingWriter
	router *Router
}

func newTestAPI(t *testing.T, schedulesPath string) *testAPI {
	t.Helper()
	if schedulesPath == "" {
		schedulesPath = filepath.Join(t.TempDir(), "schedules.json")
	}
	w := &recordingWriter{connected: true}
	svc := schedule.NewService(schedule.NewStore(schedulesPath), w, schedule.NewCron(time.UTC), schedule.Options{
		Location:        time.UTC,
		StartupDelay:    time.Hour,
		WritesPerSecond: -1,
		Now:             func() time.Time { return monday10 },
	})
	t.Cleanup(func() { svc.Stop(context.Background()) })
	return &testAPI{svc: svc, writer: w, router: NewRouter(svc, schema.NewValidator())}
}

func (a *testAPI) start(t *testing.T) {
	t.Helper()
	require.NoError(t, a.svc.Start(context.Background()))
}

func (a *testAPI) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	a.router.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const mondayT1 = `{
	"tagId": "T1",
	"periods": [{"dayOfWeek": "1", "startTime": "09:00", "endTime": "17:00"}],
	"onValue": "on",
	"offValue": "off",
	"timeFormat": "24h"
}`

func TestScheduleLifecycle(t *testing.T) {
	a := newTestAPI(t, "")
	a.start(t)

	rec := a.do(http.MethodPost, "/api/schedules", mondayT1)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode[types.ScheduleResponse](t, rec)
	assert.Equal(t, "Schedule created", created.Message)
	assert.Equal(t, "T1", created.Schedule.TagID)
	assert.Empty(t, created.Warning)
	assert.Equal(t, [2]string{"T1", "on"}, a.writer.last())
	assert.Len(t, a.svc.TriggerKeys("T1"), 2)

	rec = a.do(http.MethodPut, "/api/schedules/T1",
		`{"periods": [], "onValue": "on", "offValue": "off", "timeFormat": "24h"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[types.ScheduleResponse](t, rec)
	assert.Equal(t, "Schedule updated", updated.Message)
	assert.Equal(t, "T1", updated.Schedule.TagID)
	assert.Equal(t, [2]string{"T1", "off"}, a.writer.last())
	assert.Empty(t, a.svc.TriggerKeys("T1"))

	rec = a.do(http.MethodDelete, "/api/schedules/T1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	deleted := decode[types.DeleteResponse](t, rec)
	assert.Equal(t, "Schedule deleted", deleted.Message)
	assert.Equal(t, "T1", deleted.TagID)

	rec = a.do(http.MethodGet, "/api/schedules", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListSchedules_IncludesIsOn(t *testing.T) {
	a := newTestAPI(t, "")
	a.start(t)

	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/schedules", mondayT1).Code)
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/schedules",
		`{"tagId": "T2", "name": "Night", "periods": [{"dayOfWeek": 1, "startTime": "20:00", "endTime": "23:00"}], "onValue": "1", "offValue": "0", "timeFormat": "12h"}`).Code)

	rec := a.do(http.MethodGet, "/api/schedules", "")
	require.Equal(t, http.StatusOK, rec.Code)

	list := decode[[]map[string]any](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "T1", list[0]["tagId"])
	assert.Equal(t, true, list[0]["isOn"])
	assert.Equal(t, "", list[0]["name"])
	assert.Equal(t, "T2", list[1]["tagId"])
	assert.Equal(t, false, list[1]["isOn"])
	assert.Equal(t, "Night", list[1]["name"])

	rec = a.do(http.MethodGet, "/api/schedules/T2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[schedule.Status](t, rec)
	assert.False(t, st.IsOn)
	require.NotNil(t, st.LastWrite)
	assert.Equal(t, "0", st.LastWrite.Value)
}

func TestCreateSchedule_Validation(t *testing.T) {
	a := newTestAPI(t, "")
	a.start(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"tagId": `},
		{"missing tagId", `{"periods": [], "onValue": "on", "offValue": "off", "timeFormat": "24h"}`},
		{"missing periods", `{"tagId": "T1", "onValue": "on", "offValue": "off", "timeFormat": "24h"}`},
		{"periods not array", `{"tagId": "T1", "periods": {}, "onValue": "on", "offValue": "off", "timeFormat": "24h"}`},
		{"missing onValue", `{"tagId": "T1", "periods": [], "offValue": "off", "timeFormat": "24h"}`},
		{"missing offValue", `{"tagId": "T1", "periods": [], "onValue": "on", "timeFormat": "24h"}`},
		{"missing timeFormat", `{"tagId": "T1", "periods": [], "onValue": "on", "offValue": "off"}`},
		{"bad day", `{"tagId": "T1", "periods": [{"dayOfWeek": "8", "startTime": "09:00", "endTime": "17:00"}], "onValue": "on", "offValue": "off", "timeFormat": "24h"}`},
		{"bad time", `{"tagId": "T1", "periods": [{"dayOfWeek": "1", "startTime": "9am", "endTime": "17:00"}], "onValue": "on", "offValue": "off", "timeFormat": "24h"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(http.MethodPost, "/api/schedules", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			resp := decode[types.ErrorResponse](t, rec)
			assert.NotEmpty(t, resp.Error)
			assert.NotEmpty(t, resp.Message)
		})
	}

	assert.Empty(t, a.svc.List(), "rejected requests change nothing")
	assert.Equal(t, [2]string{}, a.writer.last())
}

func TestUpdateSchedule_Validation(t *testing.T) {
	a := newTestAPI(t, "")
	a.start(t)

	rec := a.do(http.MethodPut, "/api/schedules/T1", `{"periods": "all", "onValue": "on", "offValue": "off", "timeFormat": "24h"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPut, "/api/schedules/T1", `{"periods": [], "offValue": "off", "timeFormat": "24h"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateSchedule_PathWins(t *testing.T) {
	a := newTestAPI(t, "")
	a.start(t)

	rec := a.do(http.MethodPut, "/api/schedules/T7", mondayT1)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "T7", decode[types.ScheduleResponse](t, rec).Schedule.TagID)
	_, err := a.svc.Get("T1")
	assert.ErrorIs(t, err, schedule.ErrNotFound)
}

func TestGetSchedule_NotFound(t *testing.T) {
	a := newTestAPI(t, "")
	a.start(t)

	rec := a.do(http.MethodGet, "/api/schedules/T9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[types.ErrorResponse](t, rec).Error)
}

func TestDeleteSchedule_Unknown(t *testing.T) {
	a := newTestAPI(t, "")
	a.start(t)

	rec := a.do(http.MethodDelete, "/api/schedules/ghost", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMutations_WriterDisconnected(t *testing.T) {
	a := newTestAPI(t, "")
	a.start(t)
	a.writer.setConnected(false)

	rec := a.do(http.MethodPost, "/api/schedules", mondayT1)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "runtime_unavailable", decode[types.ErrorResponse](t, rec).Error)

	assert.Equal(t, http.StatusServiceUnavailable, a.do(http.MethodDelete, "/api/schedules/T1", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, a.do(http.MethodPost, "/api/schedules/reconcile", "").Code)

	// reads still work
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/schedules", "").Code)
}

func TestRoutes_NotFoundBeforeStart(t *testing.T) {
	a := newTestAPI(t, "")

	rec := a.do(http.MethodGet, "/api/schedules", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no_runtime", decode[types.ErrorResponse](t, rec).Error)

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, "/api/schedules", mondayT1).Code)
}

func TestCreateSchedule_PersistenceWarning(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	a := newTestAPI(t, filepath.Join(dataDir, "schedules.json"))
	a.start(t)

	// a file where the data directory should be makes every save fail
	require.NoError(t, os.RemoveAll(dataDir))
	require.NoError(t, os.WriteFile(dataDir, nil, 0644))

	rec := a.do(http.MethodPost, "/api/schedules", mondayT1)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[types.ScheduleResponse](t, rec)
	assert.NotEmpty(t, resp.Warning)
	assert.Equal(t, [2]string{"T1", "on"}, a.writer.last())

	rec = a.do(http.MethodDelete, "/api/schedules/T1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[types.DeleteResponse](t, rec).Warning)
}

func TestReconcileEndpoint(t *testing.T) {
	a := newTestAPI(t, "")
	a.start(t)
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/schedules", mondayT1).Code)

	rec := a.do(http.MethodPost, "/api/schedules/reconcile", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[types.ReconcileResponse](t, rec)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "T1", resp.Results[0].TagID)
	assert.Equal(t, "on", resp.Results[0].Value)
	assert.Equal(t, 0, resp.Failed)
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t, "")

	rec := a.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "stopped", decode[types.HealthResponse](t, rec).Scheduler)

	a.start(t)
	rec = a.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[types.HealthResponse](t, rec)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "connected", health.Writer)
	assert.Equal(t, "UTC", health.Timezone)
	assert.Equal(t, 0, health.Schedules)

	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/schedules", mondayT1).Code)
	health = decode[types.HealthResponse](t, a.do(http.MethodGet, "/health", ""))
	assert.Equal(t, 1, health.Schedules)
	assert.Equal(t, 1, health.ArmedTags)

	a.writer.setConnected(false)
	rec = a.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "disconnected", decode[types.HealthResponse](t, rec).Writer)
}

func TestRequestID(t *testing.T) {
	a := newTestAPI(t, "")

	rec := a.do(http.MethodGet, "/health", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	a.router.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
