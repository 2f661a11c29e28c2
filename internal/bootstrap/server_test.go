package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Domenick1991/hotelbooking/config"
	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/Domenick1991/hotelbooking/internal/repository"
	"github.com/Domenick1991/hotelbooking/internal/service/booking"
	"github.com/Domenick1991/hotelbooking/internal/service/rooms"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health"
)

func newTestRouter(t *testing.T) (*gin.Engine, *repository.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	l, _ := test.NewNullLogger()
	store := repository.NewMemoryStore()
	cfg := &config.Config{Booking: config.BookingConfig{MaxCreateAttempts: 3}}
	svc := Services{
		Bookings: booking.NewBookingService(store, nil, "", booking.WithLogger(l)),
		Rooms:    rooms.NewRoomService(store, rooms.WithLogger(l)),
	}
	return NewRouter(cfg, l, svc), store
}

func TestRouter_RoomsAndDocs(t *testing.T) {
	router, store := newTestRouter(t)
	require.NoError(t, store.CreateRoom(context.Background(), &domain.Room{Name: "Suite", TotalUnits: 1, Capacity: 2, Active: true}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/rooms", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Suite")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Hotel booking API")
}

func TestRouter_AdminRoomThenGuestSearch(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	body := `{"name":"Twin","total_units":2,"capacity":2,"price_per_night_cents":9000}`
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/rooms", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/availability/quantity?check_in=2030-05-01&check_out=2030-05-03&guests=2", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Nights int `json:"nights"`
		Rooms  []struct {
			Name     string `json:"name"`
			Quantity int    `json:"quantity"`
		} `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 2, response.Nights)
	require.Len(t, response.Rooms, 1)
	assert.Equal(t, 2, response.Rooms[0].Quantity)
}

func TestHealthGateway(t *testing.T) {
	hs := health.NewServer()
	l, _ := test.NewNullLogger()
	handler, err := healthGateway(hs, healthPath)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"SERVING"}`, w.Body.String())

	updateHealth(context.Background(), hs, map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}, l)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"NOT_SERVING"}`, w.Body.String())
}

func TestHealthGateway_InvalidPath(t *testing.T) {
	handler, err := healthGateway(health.NewServer(), "healthz")

	require.Error(t, err)
	assert.Nil(t, handler)
	assert.Contains(t, err.Error(), "register healthz")
}
