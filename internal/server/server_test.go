package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/servicebook/internal/config"
	"github.com/jwalitptl/servicebook/internal/model"
	"github.com/jwalitptl/servicebook/internal/repository/sqlstore/sqlstoretest"
	"github.com/jwalitptl/servicebook/pkg/auth"
	"github.com/jwalitptl/servicebook/pkg/logger"
)

type envelope struct {
	Status  string            `json:"status"`
	Kind    model.MessageKind `json:"kind"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.RateLimit.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	return New(cfg, sqlstoretest.New(t), logger.Nop(), nil)
}

func do(t *testing.T, s *Server, method, path string, body interface{}, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.Router.Engine().ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func TestBookingFlow(t *testing.T) {
	s := newTestServer(t, nil)

	w, env := do(t, s, http.MethodPost, "/api/v1/providers", map[string]interface{}{
		"name":         "Alice",
		"service_type": "cleaning",
		"contact_info": "a@x.com",
		"availability": []uint64{100, 200},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var provider model.ServiceProvider
	require.NoError(t, json.Unmarshal(env.Data, &provider))
	assert.Equal(t, uint64(1), provider.ID)
	assert.Equal(t, "success", env.Status)

	w, env = do(t, s, http.MethodPost, "/api/v1/bookings", map[string]interface{}{
		"service_provider_id": 1,
		"client_id":           5,
		"service_date":        100,
		"service_type":        "cleaning",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var booking model.Booking
	require.NoError(t, json.Unmarshal(env.Data, &booking))
	assert.Equal(t, uint64(2), booking.ID)
	assert.Equal(t, model.BookingStatusPending, booking.Status)

	w, env = do(t, s, http.MethodPut, "/api/v1/bookings/2/reschedule", map[string]interface{}{"new_date": 200})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.MessageSuccess, env.Kind)
	assert.Equal(t, "Booking rescheduled.", env.Message)

	w, env = do(t, s, http.MethodPost, "/api/v1/bookings/2/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Booking confirmed.", env.Message)

	w, env = do(t, s, http.MethodPost, "/api/v1/bookings/2/confirm", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, model.MessageError, env.Kind)
	assert.Equal(t, "Booking is already confirmed.", env.Message)

	w, env = do(t, s, http.MethodPost, "/api/v1/bookings/2/reviews", map[string]interface{}{"rating": 5, "comment": "ok"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Only completed bookings can be reviewed.", env.Message)

	w, env = do(t, s, http.MethodGet, "/api/v1/providers/1/bookings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []model.Booking
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, uint64(200), history[0].ServiceDate)
	assert.Equal(t, model.BookingStatusConfirmed, history[0].Status)

	w, env = do(t, s, http.MethodGet, "/api/v1/clients/5/bookings", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = do(t, s, http.MethodGet, "/api/v1/bookings/2", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestErrorStatusMapping(t *testing.T) {
	s := newTestServer(t, nil)

	_, _ = do(t, s, http.MethodPost, "/api/v1/providers", map[string]interface{}{
		"name": "Alice", "service_type": "cleaning", "contact_info": "a@x.com", "availability": []uint64{100},
	})

	tests := []struct {
		name    string
		method  string
		path    string
		body    interface{}
		status  int
		kind    model.MessageKind
		message string
	}{
		{
			name: "missing provider fields", method: http.MethodPost, path: "/api/v1/providers",
			body:   map[string]interface{}{"name": "Bob"},
			status: http.StatusBadRequest, kind: model.MessageInvalidPayload,
			message: "Ensure 'name', 'service_type', and 'contact_info' are provided.",
		},
		{
			name: "missing client fields", method: http.MethodPost, path: "/api/v1/clients",
			body:   map[string]interface{}{"name": "Bob"},
			status: http.StatusBadRequest, kind: model.MessageInvalidPayload,
			message: "Ensure 'name' and 'contact_info' are provided.",
		},
		{
			name: "zero service date", method: http.MethodPost, path: "/api/v1/bookings",
			body:   map[string]interface{}{"service_provider_id": 1, "service_date": 0},
			status: http.StatusBadRequest, kind: model.MessageInvalidPayload,
			message: "Invalid service date.",
		},
		{
			name: "unknown provider", method: http.MethodPost, path: "/api/v1/bookings",
			body:   map[string]interface{}{"service_provider_id": 9, "service_date": 100},
			status: http.StatusBadRequest, kind: model.MessageInvalidPayload,
			message: "Invalid service_provider_id provided.",
		},
		{
			name: "unavailable date", method: http.MethodPost, path: "/api/v1/bookings",
			body:   map[string]interface{}{"service_provider_id": 1, "service_date": 5},
			status: http.StatusConflict, kind: model.MessageError,
			message: "Service provider is not available on the selected date.",
		},
		{
			name: "negative date", method: http.MethodPost, path: "/api/v1/bookings",
			body:   map[string]interface{}{"service_provider_id": 1, "service_date": -1},
			status: http.StatusBadRequest, kind: model.MessageInvalidPayload,
			message: "Field 'service_date' must be a uint64.",
		},
		{
			name: "search without match", method: http.MethodGet, path: "/api/v1/providers/search?query=plumb",
			status: http.StatusNotFound, kind: model.MessageNotFound,
			message: "No service providers found",
		},
		{
			name: "missing booking", method: http.MethodPost, path: "/api/v1/bookings/77/cancel",
			status: http.StatusNotFound, kind: model.MessageNotFound,
			message: "Booking not found",
		},
		{
			name: "missing review booking", method: http.MethodPost, path: "/api/v1/bookings/77/reviews",
			body:   map[string]interface{}{"rating": 3},
			status: http.StatusNotFound, kind: model.MessageNotFound,
			message: "Booking not found.",
		},
		{
			name: "non numeric id", method: http.MethodGet, path: "/api/v1/bookings/abc",
			status: http.StatusBadRequest, kind: model.MessageInvalidPayload,
			message: "invalid id",
		},
		{
			name: "no client bookings", method: http.MethodGet, path: "/api/v1/clients/3/bookings",
			status: http.StatusNotFound, kind: model.MessageNotFound,
			message: "No bookings found for this client.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, s, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, "error", env.Status)
			assert.Equal(t, tt.kind, env.Kind)
			assert.Equal(t, tt.message, env.Message)
		})
	}
}

func TestSearchWithFilter(t *testing.T) {
	s := newTestServer(t, nil)

	for _, p := range []map[string]interface{}{
		{"name": "Alice", "service_type": "deep cleaning", "contact_info": "a@x.com"},
		{"name": "Clean Co", "service_type": "windows", "contact_info": "c@x.com"},
	} {
		w, _ := do(t, s, http.MethodPost, "/api/v1/providers", p)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, env := do(t, s, http.MethodGet, "/api/v1/providers/search?query=lean", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var providers []model.ServiceProvider
	require.NoError(t, json.Unmarshal(env.Data, &providers))
	assert.Len(t, providers, 2)

	w, env = do(t, s, http.MethodGet, "/api/v1/providers/search?query=lean&filter=deep", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &providers))
	require.Len(t, providers, 1)
	assert.Equal(t, "Alice", providers[0].Name)
}

func TestAuthGuardsWrites(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Auth.Secret = "s3cret"
		cfg.Auth.Issuer = "servicebook"
	})
	body := map[string]interface{}{"name": "Bob", "contact_info": "b@x.com"}

	w, env := do(t, s, http.MethodPost, "/api/v1/clients", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, model.MessageError, env.Kind)

	w, _ = do(t, s, http.MethodPost, "/api/v1/clients", body, "Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := auth.NewJWTService("s3cret", "servicebook").GenerateToken("ops", nil, time.Hour)
	require.NoError(t, err)

	w, _ = do(t, s, http.MethodPost, "/api/v1/clients", body, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, _ = do(t, s, http.MethodGet, "/api/v1/clients/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.RequestsPerSecond = 0.001
		cfg.RateLimit.Burst = 2
	})

	for i := 0; i < 2; i++ {
		w, _ := do(t, s, http.MethodGet, "/api/v1/health/live", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w, _ := do(t, s, http.MethodGet, "/api/v1/health/live", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	w, _ := do(t, s, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	_, _ = do(t, s, http.MethodGet, "/api/v1/providers/search?query=x", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Router.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `servicebook_operations_total{operation="search_service_providers",outcome="not_found"} 1`)
	assert.Contains(t, rec.Body.String(), "servicebook_http_requests_total")
}

func TestRequestIDPropagated(t *testing.T) {
	s := newTestServer(t, nil)

	w, _ := do(t, s, http.MethodGet, "/api/v1/health/live", nil, "X-Request-ID", "abc-123")
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))

	w, _ = do(t, s, http.MethodGet, "/api/v1/health/live", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/bookings", nil)
	req.Header.Set("Origin", "http://client.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Router.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCreateAcceptsUnboundedFields(t *testing.T) {
	s := newTestServer(t, nil)

	dates := make([]uint64, 400)
	for i := range dates {
		dates[i] = uint64(i + 1)
	}
	long := strings.Repeat("n", 1000)

	w, env := do(t, s, http.MethodPost, "/api/v1/providers", map[string]interface{}{
		"name":         long,
		"service_type": long,
		"contact_info": long,
		"availability": dates,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var provider model.ServiceProvider
	require.NoError(t, json.Unmarshal(env.Data, &provider))
	assert.Len(t, provider.Availability, 400)
	assert.Equal(t, long, provider.Name)

	w, _ = do(t, s, http.MethodPost, "/api/v1/clients", map[string]interface{}{
		"name":         strings.Repeat("c", 256),
		"contact_info": long,
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}
