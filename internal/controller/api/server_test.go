package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/queueless/booking/internal/model"
	"github.com/queueless/booking/internal/repository/memory"
	"github.com/queueless/booking/internal/service"
)

var monday = time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

type testEnv struct {
	handler http.Handler
	slots   *memory.SlotStore
	users   *service.UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	calendar := service.DefaultCalendar()

	slotStore := memory.NewSlotStore()
	apptStore := memory.NewAppointmentStore()

	users, err := service.NewUserService(memory.NewUserStore(), memory.NewSessionStore(), 16, service.TokenTTL{Access: time.Hour, Refresh: 24 * time.Hour}, logger)
	require.NoError(t, err)

	slots := service.NewSlotService(slotStore, calendar, logger)
	reservations := service.NewReservationService(slotStore, apptStore, users, nil, calendar, logger)

	srv := NewServer(users, slots, reservations, calendar, Options{FrontendURL: "http://localhost:3000"}, logger)
	return &testEnv{handler: srv.Router(), slots: slotStore, users: users}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, name string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": name, "email": name + "@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccessToken
}

func (e *testEnv) admin(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	_, err := e.users.EnsureAdmin(ctx, "Admin", "admin@example.com", "admin123")
	require.NoError(t, err)
	tokens, _, err := e.users.Login(ctx, "admin@example.com", "admin123")
	require.NoError(t, err)
	return tokens.Access
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Message
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"OK","message":"QueueLess API is running"}`, rec.Body.String())
}

func TestAuthFlow(t *testing.T) {
	e := newTestEnv(t)

	token := e.register(t, "jane")

	rec := e.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"jane@example.com"`)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = e.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "jane", "email": "jane@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "jane@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodPost, "/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodGet, "/appointments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func refreshCookieOf(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == refreshCookie {
			return c
		}
	}
	require.Fail(t, "refresh cookie not set")
	return nil
}

func (e *testEnv) refresh(t *testing.T, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	if cookie != nil {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestRefreshFlow(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "jane", "email": "jane@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"provider":"local"`)

	cookie := refreshCookieOf(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/auth", cookie.Path)
	assert.Positive(t, cookie.MaxAge)

	rec = e.refresh(t, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	rotated := refreshCookieOf(t, rec)
	assert.NotEqual(t, cookie.Value, rotated.Value)

	me := e.do(t, http.MethodGet, "/auth/me", resp.AccessToken, nil)
	assert.Equal(t, http.StatusOK, me.Code)

	// погашенный токен повторно не принимается
	rec = e.refresh(t, cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.refresh(t, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	req.AddCookie(&http.Cookie{Name: rotated.Name, Value: rotated.Value})
	out := httptest.NewRecorder()
	e.handler.ServeHTTP(out, req)
	require.Equal(t, http.StatusOK, out.Code)
	assert.Negative(t, refreshCookieOf(t, out).MaxAge)

	rec = e.refresh(t, rotated)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAppointmentLifecycle(t *testing.T) {
	e := newTestEnv(t)
	admin := e.admin(t)
	u1 := e.register(t, "u1")
	u2 := e.register(t, "u2")

	rec := e.do(t, http.MethodPost, "/slots", u1, map[string]string{"date": "2024-06-10", "timeSlot": "09:00 AM"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPost, "/slots", admin, map[string]string{"date": "2024-06-10", "timeSlot": "09:00 AM"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodGet, "/slots?date=2024-06-10", u1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"timeSlot":"09:00 AM"`)

	body := map[string]string{"date": "2024-06-10", "timeSlot": "09:00 AM", "reason": "checkup visit"}
	rec = e.do(t, http.MethodPost, "/appointments", u1, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var appt model.Appointment
	require.NoError(t, json.Unmarshal(decode(t, rec)["appointment"], &appt))
	assert.Equal(t, model.AppointmentStatusPending, appt.Status)

	rec = e.do(t, http.MethodPost, "/appointments", u2, body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, model.ErrSlotUnavailable.Error(), message(t, rec))

	path := "/appointments/" + appt.ID.String()

	rec = e.do(t, http.MethodGet, path, u2, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPut, path, admin, map[string]string{"status": "Approved"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"Approved"`)
	assert.Contains(t, rec.Body.String(), `"name":"u1"`)

	rec = e.do(t, http.MethodPut, path, u1, map[string]string{"reason": "new reason"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/appointments?status=Approved", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Appointments []model.Appointment `json:"appointments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Appointments, 1)

	rec = e.do(t, http.MethodDelete, path, u1, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodDelete, path, u1, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	slot, err := e.slots.FindByDateAndLabel(context.Background(), monday, "09:00 AM")
	require.NoError(t, err)
	assert.False(t, slot.IsBooked)
}

func TestErrorMapping(t *testing.T) {
	e := newTestEnv(t)
	admin := e.admin(t)
	u := e.register(t, "u1")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
	}{
		{
			name: "sunday", method: http.MethodPost, path: "/appointments", token: u,
			body:   map[string]string{"date": "2024-06-09", "timeSlot": "09:00 AM", "reason": "x"},
			status: http.StatusBadRequest,
		},
		{
			name: "missing reason", method: http.MethodPost, path: "/appointments", token: u,
			body:   map[string]string{"date": "2024-06-10", "timeSlot": "09:00 AM"},
			status: http.StatusBadRequest,
		},
		{
			name: "no slot", method: http.MethodPost, path: "/appointments", token: u,
			body:   map[string]string{"date": "2024-06-11", "timeSlot": "09:00 AM", "reason": "x"},
			status: http.StatusConflict,
		},
		{name: "bad id", method: http.MethodGet, path: "/appointments/not-a-uuid", token: u, status: http.StatusNotFound},
		{name: "bad status", method: http.MethodGet, path: "/appointments?status=Nope", token: u, status: http.StatusBadRequest},
		{name: "admin without status", method: http.MethodPut, path: "/appointments/00000000-0000-0000-0000-000000000001", token: admin, body: map[string]string{}, status: http.StatusBadRequest},
		{name: "malformed body", method: http.MethodPost, path: "/slots", token: admin, body: "[", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, message(t, rec))
		})
	}
}

func TestDistinctMessagesPerKind(t *testing.T) {
	kinds := []error{
		model.ErrSlotUnavailable, model.ErrDuplicateBooking, model.ErrNotFound,
		model.ErrAccessDenied, model.ErrSlotExists, model.ErrEmailTaken,
		model.ErrUnauthenticated, model.ErrInvalidCredentials,
	}
	seen := make(map[string]bool)
	for _, k := range kinds {
		assert.False(t, seen[k.Error()], k.Error())
		seen[k.Error()] = true
	}
}

func TestSlotAdministration(t *testing.T) {
	e := newTestEnv(t)
	admin := e.admin(t)
	u := e.register(t, "u1")

	rec := e.do(t, http.MethodPost, "/slots", admin, map[string]string{"date": "2024-06-10", "timeSlot": "09:00 AM"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var slot model.Slot
	require.NoError(t, json.Unmarshal(decode(t, rec)["slot"], &slot))

	rec = e.do(t, http.MethodPost, "/slots", admin, map[string]string{"date": "2024-06-10", "timeSlot": "09:00 AM"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(t, http.MethodPost, "/appointments", u, map[string]string{"date": "2024-06-10", "timeSlot": "09:00 AM", "reason": "x"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, http.MethodDelete, "/slots/"+slot.ID.String(), admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, model.ErrSlotBooked.Error(), message(t, rec))

	rec = e.do(t, http.MethodGet, "/slots/week.png?date=2024-06-12", u, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestCORS(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/appointments", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
