package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/longform-writer/internal/config"
	"github.com/jonathan/longform-writer/internal/server/ratelimit"
)

const testPassword = "correct horse battery staple"

// newTestServer builds a server without a database connection. Handlers that
// reach the store are not exercised here; they need a live Postgres.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv("BCRYPT_COST", "10")
	t.Setenv("PASSWORD_PEPPER", "")

	passwords, err := config.NewPasswordConfig()
	require.NoError(t, err)
	hash, err := passwords.HashPassword(testPassword)
	require.NoError(t, err)

	return &Server{
		rateLimiter: ratelimit.NewLimiter(&ratelimit.Config{Enabled: false}),
		jwtService: NewJWTService(&config.JWTConfig{
			Secret:          "test-secret",
			ExpirationHours: 1,
		}),
		admin: &adminCredentials{
			Email:        "admin@example.com",
			PasswordHash: hash,
			passwords:    passwords,
		},
		validator: validator.New(),
	}
}

func doRequest(s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHandleLogin_Success(t *testing.T) {
	s := newTestServer(t)
	body := `{"email":"admin@example.com","password":"` + testPassword + `"}`
	rec := doRequest(s, http.MethodPost, "/auth/login", body, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token":`)
	assert.Contains(t, rec.Body.String(), `"email":"admin@example.com"`)
}

func TestHandleLogin_WrongPassword(t *testing.T) {
	s := newTestServer(t)
	body := `{"email":"admin@example.com","password":"nope"}`
	rec := doRequest(s, http.MethodPost, "/auth/login", body, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid email or password")
}

func TestHandleLogin_UnknownEmail(t *testing.T) {
	s := newTestServer(t)
	body := `{"email":"other@example.com","password":"` + testPassword + `"}`
	rec := doRequest(s, http.MethodPost, "/auth/login", body, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleLogin_ValidationFailure(t *testing.T) {
	s := newTestServer(t)
	body := `{"email":"not-an-email","password":"x"}`
	rec := doRequest(s, http.MethodPost, "/auth/login", body, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation failed")
}

func TestRequireAuth_MissingToken(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/runs", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_GarbageToken(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/runs", "", "not.a.token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_ValidTokenReachesHandler(t *testing.T) {
	s := newTestServer(t)
	token, err := s.jwtService.GenerateToken("admin@example.com")
	require.NoError(t, err)

	var gotEmail string
	handler := s.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEmail, _ = AccountEmail(r)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin@example.com", gotEmail)
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(&config.JWTConfig{Secret: "s1", ExpirationHours: 1})
	token, err := svc.GenerateToken("admin@example.com")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, "admin@example.com", claims.Subject)
}

func TestJWTService_WrongSecret(t *testing.T) {
	issuer := NewJWTService(&config.JWTConfig{Secret: "s1", ExpirationHours: 1})
	verifier := NewJWTService(&config.JWTConfig{Secret: "s2", ExpirationHours: 1})

	token, err := issuer.GenerateToken("admin@example.com")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_ExpiredToken(t *testing.T) {
	svc := NewJWTService(&config.JWTConfig{Secret: "s1", ExpirationHours: -1})
	token, err := svc.GenerateToken("admin@example.com")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestHandleSubmitRun_InvalidBody(t *testing.T) {
	s := newTestServer(t)
	token, err := s.jwtService.GenerateToken("admin@example.com")
	require.NoError(t, err)

	rec := doRequest(s, http.MethodPost, "/runs", "{not json", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSubmitRun_ValidationFailure(t *testing.T) {
	s := newTestServer(t)
	token, err := s.jwtService.GenerateToken("admin@example.com")
	require.NoError(t, err)

	body := `{"topic":"AI","target_words":50,"kind":"essay","level":"general"}`
	rec := doRequest(s, http.MethodPost, "/runs", body, token)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "TargetWords")
}

func TestHandleGetRun_InvalidID(t *testing.T) {
	s := newTestServer(t)
	token, err := s.jwtService.GenerateToken("admin@example.com")
	require.NoError(t, err)

	rec := doRequest(s, http.MethodGet, "/runs/not-a-uuid", "", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid run ID format")
}

func TestWithRateLimit_Rejects(t *testing.T) {
	s := newTestServer(t)
	s.rateLimiter = ratelimit.NewLimiter(&ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		Routes: []ratelimit.RouteLimit{
			{Prefix: "/auth/login", Method: "POST", Limit: 1, Window: time.Hour, Burst: 1},
		},
	})
	defer s.rateLimiter.Stop()

	body := `{"email":"admin@example.com","password":"nope"}`
	first := doRequest(s, http.MethodPost, "/auth/login", body, "")
	assert.Equal(t, http.StatusUnauthorized, first.Code)

	second := doRequest(s, http.MethodPost, "/auth/login", body, "")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", clientIP(req))
}

func TestLoadAdminCredentials_Missing(t *testing.T) {
	t.Setenv("ADMIN_EMAIL", "")
	t.Setenv("ADMIN_PASSWORD_HASH", "")

	_, err := loadAdminCredentials()
	assert.Error(t, err)
}
