package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpctx "github.com/dtroode/medisupply-security/internal/api/http/context"
	"github.com/dtroode/medisupply-security/internal/api/http/handler"
	"github.com/dtroode/medisupply-security/internal/api/http/middleware"
	"github.com/dtroode/medisupply-security/internal/bootstrap"
	"github.com/dtroode/medisupply-security/internal/fieldcipher"
	"github.com/dtroode/medisupply-security/internal/metrics"
	"github.com/dtroode/medisupply-security/internal/model"
	"github.com/dtroode/medisupply-security/internal/password"
	"github.com/dtroode/medisupply-security/internal/repository/memory"
	"github.com/dtroode/medisupply-security/internal/service"
	"github.com/dtroode/medisupply-security/internal/testutil"
	"github.com/dtroode/medisupply-security/internal/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	engine  *gin.Engine
	users   *memory.UserRepository
	records *memory.RecordRepository
}

type serverOptions struct {
	assumeMFA      bool
	loginPerMin    int
	trustedProxies []string
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()
	ctx := context.Background()
	log := testutil.MakeNoopLogger()
	hasher := password.NewHasher(password.Params{Time: 1, MemKiB: 1024, Par: 1})

	users := memory.NewUserRepository()
	records := memory.NewRecordRepository()
	_, err := bootstrap.Seed(ctx, users, hasher, bootstrap.DemoAccounts, log)
	require.NoError(t, err)

	jwt, err := token.NewJWT(bytes.Repeat([]byte{0x11}, 64), token.WithIssuer("medisupply-security"))
	require.NoError(t, err)
	cipher, err := fieldcipher.New(bytes.Repeat([]byte{0x22}, fieldcipher.KeySize))
	require.NoError(t, err)

	ttl := service.TokenTTL{Access: 30 * time.Minute, Refresh: 7 * 24 * time.Hour}
	creds, err := service.NewCredentials(users, hasher, log)
	require.NoError(t, err)
	tokenService := service.NewTokenService(jwt, memory.NewRefreshTokenRepository(), memory.NewRevocationList(), users, ttl, log)

	health := service.NewHealth("test", time.Second, log)
	health.AddStatic("encryption", "active")
	health.AddStatic("jwt", "configured")

	r := New(
		Services{
			Auth:      service.NewAuth(creds, tokenService, opts.assumeMFA, log),
			Customers: service.NewCustomers(service.NewRecords(records, cipher, log), log),
			Tokens:    tokenService,
			Health:    health,
			Users:     users,
		},
		httpctx.NewManager(),
		metrics.New(),
		middleware.NewRateLimiter(opts.loginPerMin),
		opts.trustedProxies,
		handler.BuildInfo{Version: "test", Date: "today", Commit: "abc"},
		ttl,
		log,
	)

	engine, err := r.Register()
	require.NoError(t, err)

	return &testServer{engine: engine, users: users, records: records}
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

type tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (s *testServer) login(t *testing.T, username, pass string) tokens {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": username, "password": pass})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tok tokens
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	return tok
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code"`
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	assert.Equal(t, code, decode[errorBody](t, rec).ErrorCode)
}

var alice = map[string]string{"name": "Alice", "email": "alice@example.com", "phone": "+1-555-0100"}

func TestScenarioA_LoginAndProfile(t *testing.T) {
	s := newTestServer(t, serverOptions{assumeMFA: true})

	tok := s.login(t, "admin", "admin123")
	assert.NotEmpty(t, tok.AccessToken)
	assert.NotEmpty(t, tok.RefreshToken)
	assert.Equal(t, "bearer", tok.TokenType)
	assert.Equal(t, int64(1800), tok.ExpiresIn)

	rec := s.do(t, http.MethodGet, "/auth/me", tok.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	me := decode[map[string]any](t, rec)
	assert.Equal(t, "admin", me["username"])
	assert.Equal(t, "admin@medisupply.com", me["email"])
	assert.Equal(t, "Administrator", me["full_name"])
	assert.Equal(t, []any{"admin", "user"}, me["roles"])
	assert.Equal(t, true, me["is_active"])
	assert.NotContains(t, rec.Body.String(), "argon2")
}

func TestScenarioB_WrongPassword(t *testing.T) {
	s := newTestServer(t, serverOptions{assumeMFA: true})

	rec := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "admin", "password": "wrongpass"})
	assertError(t, rec, http.StatusUnauthorized, "authentication_failed")
	assert.NotContains(t, rec.Body.String(), "access_token")

	rec = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "ghost", "password": "admin123"})
	assertError(t, rec, http.StatusUnauthorized, "authentication_failed")
}

func TestScenarioC_CustomerEncryptedAtRest(t *testing.T) {
	s := newTestServer(t, serverOptions{assumeMFA: true})
	tok := s.login(t, "admin", "admin123")

	rec := s.do(t, http.MethodPost, "/customers", tok.AccessToken, alice)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.Equal(t, true, created["ok"])
	assert.Equal(t, "Customer created by admin", created["message"])
	assert.Equal(t, "alice@example.com", created["customer_email"])

	stored, err := s.records.GetByID(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice", stored.PlainFields["name"])
	assert.NotEqual(t, "alice@example.com", stored.CipherFields["email"])
	assert.NotEqual(t, "+1-555-0100", stored.CipherFields["phone"])
	assert.NotContains(t, stored.CipherFields["phone"], "555")

	rec = s.do(t, http.MethodGet, "/customers/alice@example.com", tok.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[map[string]string](t, rec)
	assert.Equal(t, "Alice", got["name"])
	assert.Equal(t, "alice@example.com", got["email"])
	assert.Equal(t, "+1-555-0100", got["phone"])
	assert.Equal(t, "admin", got["created_by"])
	_, err = time.Parse(time.RFC3339, got["created_at"])
	assert.NoError(t, err)
}

func TestScenarioD_DeleteRequiresAdmin(t *testing.T) {
	s := newTestServer(t, serverOptions{assumeMFA: true})
	admin := s.login(t, "admin", "admin123")
	user := s.login(t, "user1", "user123")

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/customers", admin.AccessToken, alice).Code)

	rec := s.do(t, http.MethodDelete, "/customers/alice@example.com", user.AccessToken, nil)
	assertError(t, rec, http.StatusForbidden, "forbidden")

	rec = s.do(t, http.MethodDelete, "/customers/alice@example.com", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	deleted := decode[map[string]any](t, rec)
	assert.Equal(t, true, deleted["ok"])
	assert.Equal(t, "Customer alice@example.com deleted by admin", deleted["message"])

	rec = s.do(t, http.MethodGet, "/customers/alice@example.com", admin.AccessToken, nil)
	assertError(t, rec, http.StatusNotFound, "not_found")

	rec = s.do(t, http.MethodDelete, "/customers/alice@example.com", admin.AccessToken, nil)
	assertError(t, rec, http.StatusNotFound, "not_found")
}

func TestCustomers_OverwriteAndList(t *testing.T) {
	s := newTestServer(t, serverOptions{assumeMFA: true})
	admin := s.login(t, "admin", "admin123")
	user := s.login(t, "user1", "user123")

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/customers", admin.AccessToken, alice).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/customers", admin.AccessToken,
		map[string]string{"name": "Bob", "email": "bob@example.com", "phone": "5550101"}).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/customers", user.AccessToken,
		map[string]string{"name": "Alice Smith", "email": "alice@example.com", "phone": "+44 20 7946 0000"}).Code)

	rec := s.do(t, http.MethodGet, "/customers", user.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	type listBody struct {
		Customers []map[string]string `json:"customers"`
		Total     int                 `json:"total"`
		Requested string              `json:"requested_by"`
	}
	list := decode[listBody](t, rec)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, "user1", list.Requested)
	require.Len(t, list.Customers, 2)
	assert.Equal(t, "Alice Smith", list.Customers[0]["name"])
	assert.Equal(t, "+44 20 7946 0000", list.Customers[0]["phone"])
	assert.Equal(t, "user1", list.Customers[0]["created_by"])
	assert.Equal(t, "Bob", list.Customers[1]["name"])
}

func TestCustomers_Validation(t *testing.T) {
	s := newTestServer(t, serverOptions{assumeMFA: true})
	tok := s.login(t, "admin", "admin123")

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"bad phone", map[string]string{"name": "Alice", "email": "alice@example.com", "phone": "call me"}, "phone"},
		{"missing email", map[string]string{"name": "Alice", "phone": "5550100"}, "email"},
		{"bad email", map[string]string{"name": "Alice", "email": "alice", "phone": "5550100"}, "email"},
		{"short name", map[string]string{"name": "A", "email": "alice@example.com", "phone": "5550100"}, "name"},
		{"not json", "{", "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/customers", tok.AccessToken, tt.body)
			assertError(t, rec, http.StatusUnprocessableEntity, "validation_error")
			assert.Contains(t, decode[errorBody](t, rec).Detail, tt.field)
		})
	}

	list := decode[map[string]any](t, s.do(t, http.MethodGet, "/customers", tok.AccessToken, nil))
	assert.Equal(t, float64(0), list["total"])
}

func TestCustomers_RequireMFA(t *testing.T) {
	s := newTestServer(t, serverOptions{assumeMFA: false})
	tok := s.login(t, "admin", "admin123")

	rec := s.do(t, http.MethodPost, "/customers", tok.AccessToken, alice)
	assertError(t, rec, http.StatusForbidden, "mfa_required")

	// Deletion is gated on role only.
	rec = s.do(t, http.MethodDelete, "/customers/alice@example.com", tok.AccessToken, nil)
	assertError(t, rec, http.StatusNotFound, "not_found")
}

func TestAuth_TokenRejections(t *testing.T) {
	s := newTestServer(t, serverOptions{assumeMFA: true})
	tok := s.login(t, "user1", "user123")

	assertError(t, s.do(t, http.MethodGet, "/customers", "", nil), http.StatusUnauthorized, "missing_token")
	assertError(t, s.do(t, http.MethodGet, "/customers", "garbage", nil), http.StatusUnauthorized, "malformed_token")

	// Refresh token where an access token is required.
	assertError(t, s.do(t, http.MethodGet, "/auth/me", tok.RefreshToken, nil), http.StatusUnauthorized, "wrong_token_type")
	// And the reverse.
	assertError(t, s.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": tok.AccessToken}),
		http.StatusUnauthorized, "wrong_token_type")

	parts := strings.Split(tok.AccessToken, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	forged := parts[0] + "." + parts[1] + "." + string(sig)
	assertError(t, s.do(t, http.MethodGet, "/auth/me", forged, nil), http.StatusUnauthorized, "invalid_signature")

	rec := s.do(t, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
}

func TestAuth_RefreshRotationAndReplay(t *testing.T) {
	s := newTestServer(t, serverOptions{assumeMFA: true})
	first := s.login(t, "user1", "user123")

	rec := s.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": first.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decode[tokens](t, rec)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/auth/me", second.AccessToken, nil).Code)

	rec = s.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": first.RefreshToken})
	assertError(t, rec, http.StatusUnauthorized, "token_revoked")

	// Replay revoked the whole session family.
	rec = s.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": second.RefreshToken})
	assertError(t, rec, http.StatusUnauthorized, "token_revoked")

	assertError(t, s.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{}), http.StatusUnprocessableEntity, "validation_error")
}

func TestAuth_Logout(t *testing.T) {
	s := newTestServer(t, serverOptions{assumeMFA: true})
	tok := s.login(t, "user1", "user123")

	rec := s.do(t, http.MethodPost, "/auth/logout", tok.AccessToken, map[string]string{"refresh_token": tok.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assertError(t, s.do(t, http.MethodGet, "/auth/me", tok.AccessToken, nil), http.StatusUnauthorized, "token_revoked")
	assertError(t, s.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": tok.RefreshToken}),
		http.StatusUnauthorized, "token_revoked")
}

func TestAuth_RefreshAfterLogoutKeepsOtherSessions(t *testing.T) {
	s := newTestServer(t, serverOptions{assumeMFA: true})
	laptop := s.login(t, "user1", "user123")
	phone := s.login(t, "user1", "user123")

	rec := s.do(t, http.MethodPost, "/auth/logout", laptop.AccessToken, map[string]string{"refresh_token": laptop.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assertError(t, s.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": laptop.RefreshToken}),
		http.StatusUnauthorized, "token_revoked")

	rec = s.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": phone.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/auth/me", decode[tokens](t, rec).AccessToken, nil).Code)
}

func TestAuth_LogoutWithoutBody(t *testing.T) {
	s := newTestServer(t, serverOptions{assumeMFA: true})
	tok := s.login(t, "user1", "user123")

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/auth/logout", tok.AccessToken, nil).Code)
	assertError(t, s.do(t, http.MethodGet, "/auth/me", tok.AccessToken, nil), http.StatusUnauthorized, "token_revoked")

	// The refresh token survives an access-only logout.
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": tok.RefreshToken}).Code)
}

func TestAuth_DeactivatedUser(t *testing.T) {
	s := newTestServer(t, serverOptions{assumeMFA: true})
	tok := s.login(t, "user1", "user123")

	require.NoError(t, s.users.SetActive(context.Background(), "user1", false))

	assertError(t, s.do(t, http.MethodGet, "/auth/me", tok.AccessToken, nil), http.StatusForbidden, "inactive_user")
	assertError(t, s.do(t, http.MethodGet, "/customers", tok.AccessToken, nil), http.StatusForbidden, "inactive_user")
	assertError(t, s.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": tok.RefreshToken}),
		http.StatusForbidden, "inactive_user")
	assertError(t, s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "user1", "password": "user123"}),
		http.StatusForbidden, "inactive_user")
}

func TestAuth_LoginRateLimited(t *testing.T) {
	s := newTestServer(t, serverOptions{assumeMFA: true, loginPerMin: 10})

	s.login(t, "user1", "user123")
	rec := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "user1", "password": "user123"})
	assertError(t, rec, http.StatusTooManyRequests, "rate_limited")
}

func (s *testServer) loginFrom(t *testing.T, remoteAddr, forwardedFor string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(map[string]string{"username": "user1", "password": "user123"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr
	req.Header.Set("X-Forwarded-For", forwardedFor)
	req.Header.Set("X-Real-IP", forwardedFor)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func TestAuth_LoginRateLimit_IgnoresSpoofedForwarding(t *testing.T) {
	s := newTestServer(t, serverOptions{assumeMFA: true, loginPerMin: 10})

	statuses := map[int]int{}
	for i := range 20 {
		rec := s.loginFrom(t, "203.0.113.7:40000", fmt.Sprintf("198.51.100.%d", i+1))
		statuses[rec.Code]++
	}

	assert.Equal(t, 1, statuses[http.StatusOK])
	assert.Equal(t, 19, statuses[http.StatusTooManyRequests])
}

func TestAuth_LoginRateLimit_TrustedProxy(t *testing.T) {
	s := newTestServer(t, serverOptions{assumeMFA: true, loginPerMin: 10, trustedProxies: []string{"10.0.0.0/8"}})

	assert.Equal(t, http.StatusOK, s.loginFrom(t, "10.1.2.3:40000", "198.51.100.1").Code)
	assert.Equal(t, http.StatusOK, s.loginFrom(t, "10.1.2.3:40000", "198.51.100.2").Code)
	assertError(t, s.loginFrom(t, "10.1.2.3:40000", "198.51.100.1"), http.StatusTooManyRequests, "rate_limited")
}

func TestRegister_InvalidTrustedProxy(t *testing.T) {
	r := New(Services{}, httpctx.NewManager(), metrics.New(), nil, []string{"not-an-ip"}, handler.BuildInfo{}, service.TokenTTL{}, testutil.MakeNoopLogger())
	_, err := r.Register()
	require.Error(t, err)
}

func TestMonitoringEndpoints(t *testing.T) {
	s := newTestServer(t, serverOptions{assumeMFA: true})
	s.login(t, "admin", "admin123")
	assertError(t, s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "admin", "password": "nope"}),
		http.StatusUnauthorized, "authentication_failed")

	rec := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[map[string]any](t, rec)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "test", health["version"])
	assert.Equal(t, map[string]any{"encryption": "active", "jwt": "configured"}, health["services"])

	rec = s.do(t, http.MethodGet, "/info", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[map[string]any](t, rec)
	assert.Equal(t, "test", info["version"])
	assert.Equal(t, "abc", info["build_commit"])

	rec = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `medisupply_security_tokens_issued_total{kind="access"} 1`)
	assert.Contains(t, body, `medisupply_security_auth_failures_total{reason="authentication_failed"} 1`)
	assert.Contains(t, body, `route="/auth/login"`)

	assertError(t, s.do(t, http.MethodGet, "/nowhere", "", nil), http.StatusNotFound, "not_found")
}

func TestHealth_Degraded(t *testing.T) {
	log := testutil.MakeNoopLogger()
	health := service.NewHealth("test", 50*time.Millisecond, log)
	health.AddPinger("database", pingerFunc(func(context.Context) error { return model.ErrStoreUnavailable }))

	r := New(Services{Health: health}, httpctx.NewManager(), metrics.New(), nil, nil, handler.BuildInfo{}, service.TokenTTL{}, log)
	engine, err := r.Register()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, map[string]any{"database": "down"}, body["services"])
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }
