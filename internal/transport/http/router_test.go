package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clave/internal/auth"
	authhandler "clave/internal/auth/handler"
	"clave/internal/auth/revocation"
	"clave/internal/contacts"
	evalhandler "clave/internal/evaluation/handler"
	evalservice "clave/internal/evaluation/service"
	evalstore "clave/internal/evaluation/store"
	"clave/internal/jwttoken"
)

func newTestStack(t *testing.T) (http.Handler, *auth.Service) {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	tokens := jwttoken.NewJWTService("router-test-key", "clave-test")
	trl := revocation.NewInMemoryTRL()
	authSvc := auth.NewService(auth.NewInMemoryUserStore(), trl, tokens, log)

	_, err := authSvc.SeedUser(context.Background(), "admin", "admin-password", auth.RoleAdministrator)
	require.NoError(t, err)

	evalSvc := evalservice.New(evalstore.NewInMemory(), nil, log)
	contactSvc := contacts.NewService(contacts.NewInMemoryStore(), log)

	router := NewRouter(Deps{
		Logger:      log,
		JWT:         tokens,
		TRL:         trl,
		Auth:        authhandler.New(authSvc, log),
		Evaluations: evalhandler.New(evalSvc, log),
		Contacts:    contacts.NewHandler(contactSvc, log),
	})
	return router, authSvc
}

func login(t *testing.T, router http.Handler, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/auth/token", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func authedRequest(router http.Handler, method, path, token string, payload any) *httptest.ResponseRecorder {
	var body []byte
	if payload != nil {
		body, _ = json.Marshal(payload)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	router, _ := newTestStack(t)

	rec := authedRequest(router, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = authedRequest(router, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRequiresToken(t *testing.T) {
	router, _ := newTestStack(t)

	rec := authedRequest(router, http.MethodGet, "/evaluations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = authedRequest(router, http.MethodGet, "/evaluations", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginAndAuthenticatedFlow(t *testing.T) {
	router, _ := newTestStack(t)
	token := login(t, router, "admin", "admin-password")

	rec := authedRequest(router, http.MethodGet, "/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me auth.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&me))
	assert.Equal(t, "admin", me.Username)
	assert.Equal(t, auth.RoleAdministrator, me.Role)

	rec = authedRequest(router, http.MethodGet, "/evaluations", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogoutRevokesAccess(t *testing.T) {
	router, _ := newTestStack(t)
	token := login(t, router, "admin", "admin-password")

	rec := authedRequest(router, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = authedRequest(router, http.MethodGet, "/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserManagementFlow(t *testing.T) {
	router, _ := newTestStack(t)
	adminToken := login(t, router, "admin", "admin-password")

	rec := authedRequest(router, http.MethodPost, "/users", adminToken, map[string]string{
		"username": "dr.vega",
		"password": "vega-password",
		"role":     "viewer",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	viewerToken := login(t, router, "dr.vega", "vega-password")

	t.Run("viewer cannot create users", func(t *testing.T) {
		rec := authedRequest(router, http.MethodPost, "/users", viewerToken, map[string]string{
			"username": "dr.other",
			"password": "other-password",
			"role":     "viewer",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("viewer cannot activate protocols", func(t *testing.T) {
		rec := authedRequest(router, http.MethodPost, "/evaluations", viewerToken, map[string]any{
			"scenario":                   "reduced_capacity",
			"hospitalized_patients":      60,
			"esi_c2_patients":            0,
			"resuscitation_patients":     0,
			"critical_patients_protocol": "none",
			"waiting_72h_patients":       0,
			"sar_active":                 false,
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestReportTokenScope(t *testing.T) {
	router, _ := newTestStack(t)
	adminToken := login(t, router, "admin", "admin-password")

	rec := authedRequest(router, http.MethodPost, "/evaluations", adminToken, map[string]any{
		"scenario":                   "reduced_capacity",
		"hospitalized_patients":      60,
		"esi_c2_patients":            0,
		"resuscitation_patients":     0,
		"critical_patients_protocol": "none",
		"waiting_72h_patients":       0,
		"sar_active":                 false,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	rec = authedRequest(router, http.MethodGet, "/evaluations/"+created.ID+"/temp-token", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var minted struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&minted))

	t.Run("report token reaches its evaluation's report", func(t *testing.T) {
		rec := authedRequest(router, http.MethodGet, "/reports/evaluations/"+created.ID, minted.Token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("report token denied on another evaluation", func(t *testing.T) {
		rec := authedRequest(router, http.MethodGet, "/reports/evaluations/"+uuid.NewString(), minted.Token, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("report token rejected on the full API", func(t *testing.T) {
		rec := authedRequest(router, http.MethodGet, "/evaluations", minted.Token, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("full token may read reports too", func(t *testing.T) {
		rec := authedRequest(router, http.MethodGet, "/reports/evaluations/"+created.ID, adminToken, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestContactDirectoryFlow(t *testing.T) {
	router, _ := newTestStack(t)
	adminToken := login(t, router, "admin", "admin-password")

	rec := authedRequest(router, http.MethodPost, "/contacts", adminToken, map[string]string{
		"name":    "Dra. Rojas",
		"channel": "email",
		"address": "rojas@hospital.test",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = authedRequest(router, http.MethodGet, "/contacts?channel=email", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []contacts.Contact
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "rojas@hospital.test", listed[0].Address)

	rec = authedRequest(router, http.MethodPost, "/distribution-lists", adminToken, map[string]any{
		"name":        "Turno noche",
		"contact_ids": []string{listed[0].ID.String()},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = authedRequest(router, http.MethodGet, "/distribution-lists", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var lists []contacts.DistributionList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&lists))
	require.Len(t, lists, 1)
	assert.Equal(t, listed[0].ID, lists[0].ContactIDs[0])

	rec = authedRequest(router, http.MethodDelete, "/distribution-lists/"+lists[0].ID.String(), adminToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
