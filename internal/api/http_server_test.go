package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"agenda/internal/config"
	"agenda/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	professionals []models.Professional
	services      map[int64][]models.Service
	err           error
}

func (f *fakeCatalog) ListActiveProfessionals(ctx context.Context) ([]models.Professional, error) {
	return f.professionals, f.err
}

func (f *fakeCatalog) ListActiveServices(ctx context.Context, professionalID int64) ([]models.Service, error) {
	return f.services[professionalID], f.err
}

func newCatalog() *fakeCatalog {
	return &fakeCatalog{
		professionals: []models.Professional{
			{ID: 1, Name: "Ana Souza", Specialty: "Cabeleireira", IsActive: true},
		},
		services: map[int64][]models.Service{
			1: {{ID: 11, Name: "Corte", DurationMinutes: 60, PriceCents: 4500, ProfessionalID: 1, IsActive: true}},
		},
	}
}

func openConfig() *config.APIConfig {
	return &config.APIConfig{Enabled: true, HTTP: config.APIHTTPConfig{Enabled: true}}
}

func serve(t *testing.T, srv *HTTPServer, method, path string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHTTPServer_Professionals(t *testing.T) {
	srv := NewHTTPServer(openConfig(), newCatalog(), nil, nil)

	rec := serve(t, srv, http.MethodGet, "/api/v1/professionals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Professionals []models.Professional `json:"professionals"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Professionals, 1)
	assert.Equal(t, "Ana Souza", body.Professionals[0].Name)
}

func TestHTTPServer_ProfessionalsEmptyList(t *testing.T) {
	srv := NewHTTPServer(openConfig(), &fakeCatalog{}, nil, nil)

	rec := serve(t, srv, http.MethodGet, "/api/v1/professionals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"professionals":[]}`, rec.Body.String())
}

func TestHTTPServer_Services(t *testing.T) {
	srv := NewHTTPServer(openConfig(), newCatalog(), nil, nil)

	rec := serve(t, srv, http.MethodGet, "/api/v1/professionals/1/services", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		ProfessionalID int64 `json:"professional_id"`
		Services       []struct {
			ID       int64  `json:"id"`
			Name     string `json:"name"`
			Price    string `json:"price"`
			Duration string `json:"duration"`
		} `json:"services"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, int64(1), body.ProfessionalID)
	require.Len(t, body.Services, 1)
	assert.Equal(t, "R$ 45,00", body.Services[0].Price)
	assert.Equal(t, "60 min", body.Services[0].Duration)

	rec = serve(t, srv, http.MethodGet, "/api/v1/professionals/9/services", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"professional_id":9,"services":[]}`, rec.Body.String())

	rec = serve(t, srv, http.MethodGet, "/api/v1/professionals/abc/services", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPServer_StoreFailure(t *testing.T) {
	srv := NewHTTPServer(openConfig(), &fakeCatalog{err: errors.New("db down")}, nil, nil)

	rec := serve(t, srv, http.MethodGet, "/api/v1/professionals", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestHTTPServer_TimeSlots(t *testing.T) {
	srv := NewHTTPServer(openConfig(), newCatalog(), nil, nil)

	rec := serve(t, srv, http.MethodGet, "/api/v1/time-slots", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		TimeSlots []string `json:"time_slots"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, models.TimeSlots, body.TimeSlots)
}

func TestHTTPServer_MethodNotAllowed(t *testing.T) {
	srv := NewHTTPServer(openConfig(), newCatalog(), nil, nil)
	rec := serve(t, srv, http.MethodPost, "/api/v1/professionals", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHTTPServer_Health(t *testing.T) {
	var dbErr error
	checks := []Check{
		{Name: "database", Ping: func(context.Context) error { return dbErr }},
		{Name: "redis", Ping: func(context.Context) error { return nil }},
	}
	srv := NewHTTPServer(openConfig(), newCatalog(), checks, nil)

	rec := serve(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, srv, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready","checks":{"database":"ok","redis":"ok"}}`, rec.Body.String())

	dbErr = errors.New("connection refused")
	rec = serve(t, srv, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"not_ready","checks":{"database":"error","redis":"ok"}}`, rec.Body.String())
}

func TestHTTPServer_Metrics(t *testing.T) {
	srv := NewHTTPServer(openConfig(), newCatalog(), nil, nil)
	rec := serve(t, srv, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
