package handler_test

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"domus-api/internal/config"
	"domus-api/internal/event"
	"domus-api/internal/handler"
	"domus-api/internal/middleware"
	"domus-api/internal/model"
	"domus-api/internal/router"
	"domus-api/internal/security"
	"domus-api/internal/service"
)

type memUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
}

func (m *memUserStore) FindByID(_ context.Context, id uuid.UUID) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return user, nil
}

func (m *memUserStore) FindByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (m *memUserStore) Create(_ context.Context, u model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return model.ErrUserAlreadyExists
		}
	}
	m.users[u.ID] = u
	return nil
}

type memTokenStore struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]model.RefreshToken
}

func (m *memTokenStore) Issue(_ context.Context, userID uuid.UUID, ttl time.Duration) (model.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, token := range m.tokens {
		if token.UserID == userID {
			delete(m.tokens, id)
		}
	}
	token := model.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(ttl),
		CreatedAt: time.Now().UTC(),
	}
	m.tokens[token.ID] = token
	return token, nil
}

func (m *memTokenStore) Get(_ context.Context, id uuid.UUID) (model.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[id]
	if !ok {
		return model.RefreshToken{}, model.ErrTokenNotFound
	}
	return token, nil
}

func (m *memTokenStore) DeleteForUser(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, token := range m.tokens {
		if token.UserID == userID {
			delete(m.tokens, id)
		}
	}
	return nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	users := &memUserStore{users: map[uuid.UUID]model.User{}}
	tokens := &memTokenStore{tokens: map[uuid.UUID]model.RefreshToken{}}

	hasher := security.NewPasswordHasher()
	signer := security.NewTokenSigner(privateKey, "api.domus.jacksonc.dev", "domus.jacksonc.dev", 30*time.Minute)
	verifier := security.NewTokenVerifier(publicKey, "api.domus.jacksonc.dev", "domus.jacksonc.dev")

	authService := service.NewAuthService(users, tokens, hasher, signer, event.NewBus(), 30*time.Minute, 720*time.Hour)
	authMiddleware := middleware.NewAuthMiddleware(verifier)
	authHandler := handler.NewAuthHandler(authService)

	cfg := &config.Config{
		ServerPort:       "8080",
		RequestTimeout:   30 * time.Second,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     1000,
		AuthRateLimitRPM: 1000,
	}

	server := httptest.NewServer(router.New(cfg, authMiddleware, authHandler))
	t.Cleanup(server.Close)
	return server
}

type authResponse struct {
	Success bool `json:"success"`
	Data    struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int64  `json:"expires_in"`
		User         struct {
			ID        string `json:"id"`
			Email     string `json:"email"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
		} `json:"user"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

func postJSON(t *testing.T, url string, payload any) (*http.Response, authResponse) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var parsed authResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	return resp, parsed
}

func register(t *testing.T, serverURL string) authResponse {
	t.Helper()

	resp, parsed := postJSON(t, serverURL+"/api/v1/auth/register", map[string]string{
		"email":      "a@x.com",
		"first_name": "A",
		"last_name":  "B",
		"password":   "password1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, parsed.Success)
	return parsed
}

func TestRegisterEndpoint(t *testing.T) {
	server := newTestServer(t)

	parsed := register(t, server.URL)
	require.NotEmpty(t, parsed.Data.AccessToken)
	require.NotEmpty(t, parsed.Data.RefreshToken)
	require.Equal(t, "Bearer", parsed.Data.TokenType)
	require.Equal(t, "a@x.com", parsed.Data.User.Email)

	// Same email again conflicts; the response names the condition, not the
	// storage constraint.
	resp, dup := postJSON(t, server.URL+"/api/v1/auth/register", map[string]string{
		"email":      "a@x.com",
		"first_name": "A",
		"last_name":  "B",
		"password":   "password1",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NotNil(t, dup.Error)
	require.Equal(t, "ALREADY_EXISTS", dup.Error.Code)
}

func TestRegisterValidation(t *testing.T) {
	server := newTestServer(t)

	resp, parsed := postJSON(t, server.URL+"/api/v1/auth/register", map[string]string{
		"email":      "not-an-email",
		"first_name": "A",
		"last_name":  "B",
		"password":   "pw",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, parsed.Error)
	require.Equal(t, "VALIDATION_FAILED", parsed.Error.Code)
	require.Contains(t, parsed.Error.Details, "email")
	require.Contains(t, parsed.Error.Details, "password")
}

func TestLoginEndpoint(t *testing.T) {
	server := newTestServer(t)
	register(t, server.URL)

	resp, parsed := postJSON(t, server.URL+"/api/v1/auth/login", map[string]string{
		"email":    "a@x.com",
		"password": "password1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, parsed.Data.AccessToken)

	// Wrong password and unknown email return identical error shapes.
	respWrong, wrong := postJSON(t, server.URL+"/api/v1/auth/login", map[string]string{
		"email":    "a@x.com",
		"password": "wrong-password",
	})
	respUnknown, unknown := postJSON(t, server.URL+"/api/v1/auth/login", map[string]string{
		"email":    "nobody@x.com",
		"password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, respWrong.StatusCode)
	require.Equal(t, http.StatusUnauthorized, respUnknown.StatusCode)
	require.Equal(t, wrong.Error.Code, unknown.Error.Code)
	require.Equal(t, wrong.Error.Message, unknown.Error.Message)
}

func TestRefreshEndpoint(t *testing.T) {
	server := newTestServer(t)
	registered := register(t, server.URL)

	resp, refreshed := postJSON(t, server.URL+"/api/v1/auth/refresh", map[string]string{
		"refresh_token": registered.Data.RefreshToken,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, refreshed.Data.AccessToken)
	require.NotEqual(t, registered.Data.RefreshToken, refreshed.Data.RefreshToken)

	// The redeemed id was rotated out.
	respReuse, reuse := postJSON(t, server.URL+"/api/v1/auth/refresh", map[string]string{
		"refresh_token": registered.Data.RefreshToken,
	})
	require.Equal(t, http.StatusUnauthorized, respReuse.StatusCode)
	require.Equal(t, "UNAUTHORIZED", reuse.Error.Code)
}

func TestMeAndLogoutEndpoints(t *testing.T) {
	server := newTestServer(t)
	registered := register(t, server.URL)

	me := doAuthRequest(t, http.MethodGet, server.URL+"/api/v1/auth/me", registered.Data.AccessToken)
	require.Equal(t, http.StatusOK, me.StatusCode)

	var profile struct {
		Data struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(me.Body).Decode(&profile))
	require.Equal(t, registered.Data.User.ID, profile.Data.ID)
	require.Equal(t, "a@x.com", profile.Data.Email)

	logout := doAuthRequest(t, http.MethodPost, server.URL+"/api/v1/auth/logout", registered.Data.AccessToken)
	require.Equal(t, http.StatusNoContent, logout.StatusCode)

	// Refresh token is dead after logout; the access token keeps working
	// until its TTL expires.
	respRefresh, _ := postJSON(t, server.URL+"/api/v1/auth/refresh", map[string]string{
		"refresh_token": registered.Data.RefreshToken,
	})
	require.Equal(t, http.StatusUnauthorized, respRefresh.StatusCode)

	meAgain := doAuthRequest(t, http.MethodGet, server.URL+"/api/v1/auth/me", registered.Data.AccessToken)
	require.Equal(t, http.StatusOK, meAgain.StatusCode)
}

func TestProtectedEndpointsRejectMissingToken(t *testing.T) {
	server := newTestServer(t)

	me := doAuthRequest(t, http.MethodGet, server.URL+"/api/v1/auth/me", "")
	require.Equal(t, http.StatusUnauthorized, me.StatusCode)

	garbage := doAuthRequest(t, http.MethodGet, server.URL+"/api/v1/auth/me", "garbage-token")
	require.Equal(t, http.StatusUnauthorized, garbage.StatusCode)
}

func doAuthRequest(t *testing.T, method string, url string, accessToken string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}
