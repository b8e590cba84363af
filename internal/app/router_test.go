package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking/internal/config"
	"parking/internal/domain"
	"parking/internal/middleware"
	"parking/internal/repository/memory"
	"parking/internal/service"
)

type apiClient struct {
	t      *testing.T
	router *gin.Engine
	auth   *middleware.Authenticator
}

func newAPIClient(t *testing.T) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)

	services := NewServices(memory.NewStore(), nil, nil, config.BookingConfig{}, service.SystemClock{}, nil)
	auth := middleware.NewAuthenticator("test-secret")
	router := NewRouter(RouterDeps{
		Handlers:      services.Handlers(nil),
		Authenticator: auth,
	})
	return &apiClient{t: t, router: router, auth: auth}
}

func (a *apiClient) token(identity domain.Identity) string {
	a.t.Helper()
	token, err := a.auth.Sign(identity, time.Hour)
	require.NoError(a.t, err)
	return token
}

func (a *apiClient) do(method, path string, identity *domain.Identity, body any) (int, map[string]any) {
	a.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if identity != nil {
		req.Header.Set("Authorization", "Bearer "+a.token(*identity))
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func TestAPI_BookingFlow(t *testing.T) {
	api := newAPIClient(t)
	staff := &domain.Identity{UserID: "staff-1", IsStaff: true}
	alice := &domain.Identity{UserID: "alice"}
	bob := &domain.Identity{UserID: "bob"}

	code, _ := api.do(http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, code)

	code, body := api.do(http.MethodPost, "/v1/admin/seed", staff, nil)
	require.Equal(t, http.StatusCreated, code)
	assert.EqualValues(t, 4, body["count"])

	code, _ = api.do(http.MethodPost, "/v1/admin/seed", alice, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = api.do(http.MethodGet, "/v1/slots?floor=G", nil, nil)
	require.Equal(t, http.StatusOK, code)
	slots := body["slots"].([]any)
	require.Len(t, slots, 2)
	slotID := slots[0].(map[string]any)["id"].(string)

	code, _ = api.do(http.MethodPost, "/v1/bookings", nil, map[string]any{"slot_id": slotID})
	assert.Equal(t, http.StatusUnauthorized, code)

	end := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)
	code, body = api.do(http.MethodPost, "/v1/bookings", alice, map[string]any{
		"slot_id":           slotID,
		"expected_end_time": end,
		"vehicle_number":    "ab123",
	})
	require.Equal(t, http.StatusCreated, code, body)
	bookingID := body["id"].(string)
	assert.Equal(t, "confirmed", body["status"])
	assert.Equal(t, "AB123", body["vehicle"].(map[string]any)["number"])
	assert.Regexp(t, `^BK\d{8}$`, body["booking_reference"])
	assert.Equal(t, "pending", body["payment"].(map[string]any)["status"])

	code, body = api.do(http.MethodPost, "/v1/bookings", bob, map[string]any{
		"slot_id":           slotID,
		"expected_end_time": end,
		"vehicle_number":    "B0B",
	})
	assert.Equal(t, http.StatusConflict, code, body)

	code, _ = api.do(http.MethodGet, "/v1/bookings/"+bookingID, bob, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = api.do(http.MethodGet, "/v1/bookings/active", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])

	code, body = api.do(http.MethodPost, "/v1/bookings/"+bookingID+"/check-out", alice, nil)
	assert.Equal(t, http.StatusConflict, code, body)

	code, body = api.do(http.MethodPost, "/v1/bookings/"+bookingID+"/check-in", alice, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "active", body["status"])

	code, body = api.do(http.MethodPost, "/v1/bookings/"+bookingID+"/payments", alice, map[string]any{
		"payment_method": "cash",
	})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "paid", body["payment_status"])
	assert.Equal(t, body["total_amount"], body["amount_paid"])

	code, _ = api.do(http.MethodPost, "/v1/bookings/"+bookingID+"/payments", alice, map[string]any{
		"payment_method": "cash",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, body = api.do(http.MethodPost, "/v1/bookings/"+bookingID+"/check-out", alice, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "completed", body["status"])
	require.NotNil(t, body["history"])

	code, body = api.do(http.MethodGet, "/v1/bookings/history", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])

	code, body = api.do(http.MethodGet, "/v1/me/stats", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["completed_bookings"])

	code, body = api.do(http.MethodGet, "/v1/bookings/"+bookingID+"/payments", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["count"])

	code, body = api.do(http.MethodGet, "/v1/admin/dashboard", staff, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.EqualValues(t, 1, body["revenue"].(map[string]any)["paid_bookings"])

	code, _ = api.do(http.MethodGet, "/v1/admin/dashboard", alice, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestAPI_AdminSlots(t *testing.T) {
	api := newAPIClient(t)
	staff := &domain.Identity{UserID: "staff-1", IsStaff: true}

	code, body := api.do(http.MethodPost, "/v1/admin/slots", staff, map[string]any{
		"slot_number":           "2-C-301",
		"floor":                 "2",
		"zone":                  "C",
		"premium_rate_per_hour": "1.50",
		"features":              map[string]any{"ev_charging": true},
	})
	require.Equal(t, http.StatusCreated, code, body)
	slotID := body["id"].(string)
	assert.Equal(t, "4.50", body["hourly_rate"])

	code, _ = api.do(http.MethodPost, "/v1/admin/slots", staff, map[string]any{"slot_number": "2-C-301", "floor": "2"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = api.do(http.MethodPost, "/v1/admin/slots", staff, map[string]any{"slot_number": "X", "floor": "9"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = api.do(http.MethodPatch, "/v1/admin/slots/"+slotID, staff, map[string]any{"base_rate_per_hour": "4"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "5.50", body["hourly_rate"])

	code, body = api.do(http.MethodPost, "/v1/admin/slots/"+slotID+"/maintenance", staff, map[string]any{"duration_hours": 2})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "maintenance", body["status"])
	assert.NotEmpty(t, body["maintenance_until"])

	code, body = api.do(http.MethodGet, "/v1/parking-info", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, body["available_slots"])

	code, body = api.do(http.MethodPost, "/v1/admin/slots/"+slotID+"/status", staff, map[string]any{"status": "occupied"})
	assert.Equal(t, http.StatusBadRequest, code, body)

	code, body = api.do(http.MethodDelete, "/v1/admin/slots/"+slotID+"/maintenance", staff, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "available", body["status"])

	code, _ = api.do(http.MethodDelete, "/v1/admin/slots/"+slotID, staff, nil)
	assert.Equal(t, http.StatusNoContent, code)

	code, body = api.do(http.MethodGet, "/v1/admin/slots", staff, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])
	assert.Equal(t, false, body["slots"].([]any)[0].(map[string]any)["is_active"])

	code, _ = api.do(http.MethodGet, "/v1/slots/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
}
