package user

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"workorder-autopilot/pkg/config"
	"workorder-autopilot/pkg/middleware"
	"workorder-autopilot/pkg/session"
	"workorder-autopilot/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, *session.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(t, &User{}, &testCron{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := &config.Config{AdminRegistrationKey: testRegistrationKey}
	cfg.Session.Secret = "0123456789abcdef0123456789abcdef"
	cfg.Session.CookieName = "autopilot_session"
	cfg.Session.TTL = time.Hour

	sessions, err := session.NewManager(cfg)
	require.NoError(t, err)

	svc := NewService(ServiceParams{DB: db, Node: node, Config: cfg})
	h := NewHandler(svc, sessions)

	engine := gin.New()
	engine.Use(middleware.Error())
	h.Register(engine.Group("/api/v1/admin"))
	return engine, sessions
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestRegisterAdminHandlerSetsSessionCookie(t *testing.T) {
	engine, sessions := newTestRouter(t)

	rec := doJSON(t, engine, http.MethodPost, "/api/v1/admin",
		`{"name":"Admin","email":"admin@example.com","password":"s3cret-pass","adminRegistrationKey":"`+testRegistrationKey+`"}`)

	require.Equal(t, http.StatusCreated, rec.Code)

	// Exactly one JSON document in the body.
	var body map[string]any
	dec := json.NewDecoder(strings.NewReader(rec.Body.String()))
	require.NoError(t, dec.Decode(&body))
	require.False(t, dec.More(), "response body must contain a single JSON document")
	require.Equal(t, "admin@example.com", body["email"])

	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessions.CookieName() && c.Value != "" {
			found = true
		}
	}
	require.True(t, found, "first admin gets a session cookie")
}

func TestAuthenticateHandlerRejectsBadCredentials(t *testing.T) {
	engine, sessions := newTestRouter(t)

	rec := doJSON(t, engine, http.MethodPost, "/api/v1/admin",
		`{"name":"Admin","email":"admin@example.com","password":"s3cret-pass","adminRegistrationKey":"`+testRegistrationKey+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, engine, http.MethodPost, "/api/v1/admin/auth",
		`{"email":"admin@example.com","password":"wrong-pass"}`)

	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// A failed login yields the error envelope only, no cookie.
	var body map[string]any
	dec := json.NewDecoder(strings.NewReader(rec.Body.String()))
	require.NoError(t, dec.Decode(&body))
	require.False(t, dec.More(), "error response must contain a single JSON document")
	require.Contains(t, body, "error")
	require.NotContains(t, body, "email")

	for _, c := range rec.Result().Cookies() {
		require.NotEqual(t, sessions.CookieName(), c.Name)
	}
}

func TestAuthenticateHandlerSuccess(t *testing.T) {
	engine, sessions := newTestRouter(t)

	rec := doJSON(t, engine, http.MethodPost, "/api/v1/admin",
		`{"name":"Admin","email":"admin@example.com","password":"s3cret-pass","adminRegistrationKey":"`+testRegistrationKey+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, engine, http.MethodPost, "/api/v1/admin/auth",
		`{"email":"admin@example.com","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var token string
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessions.CookieName() {
			token = c.Value
		}
	}
	require.NotEmpty(t, token)

	claims, err := sessions.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "admin@example.com", claims.Email)
	require.True(t, claims.IsAdmin)
}
