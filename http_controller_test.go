package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-org-auth"
)

func newTestApp(t *testing.T) (*fiber.App, *testEnv) {
	t.Helper()

	env := newTestEnv(t)

	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		return fiber.New(fiber.Config{
			ErrorHandler: auth.ErrorHandler(auth.NoopLogger{}),
		})
	})

	app := srv.WrappedRouter()
	app.Get("/metrics", auth.MetricsHandler(env.registry))

	auth.RegisterAuthRoutes(srv.Router(), env.service,
		auth.WithControllerLogger(auth.NoopLogger{}),
	)

	return app, env
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &out))
	}

	return resp, out
}

func registerPayload(email string) map[string]string {
	return map[string]string{
		"email":      email,
		"first_name": "Grace",
		"last_name":  "Hopper",
		"password":   "pw1",
	}
}

func TestHTTPRegisterAndLogin(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/auth/register", registerPayload("grace@x.com"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "grace@x.com", body["email"])
	assert.NotEmpty(t, body["user_id"])
	assert.Len(t, body["organizations"], 1)
	assert.NotContains(t, body, "password_hash")

	resp, body = doJSON(t, app, http.MethodPost, "/auth/register", registerPayload("grace@x.com"), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Email already registered", body["detail"])
	assert.Equal(t, auth.TextCodeDuplicateEmail, body["code"])

	resp, body = doJSON(t, app, http.MethodPost, "/auth/login", map[string]string{
		"email":    "grace@x.com",
		"password": "pw1",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "api_key", body["token_type"])
	assert.NotEmpty(t, body["api_key"])

	resp, body = doJSON(t, app, http.MethodPost, "/auth/login", map[string]string{
		"email":    "grace@x.com",
		"password": "nope",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Incorrect email or password", body["detail"])
	assert.Empty(t, resp.Header.Get(fiber.HeaderWWWAuthenticate))
}

func TestHTTPLoginInactiveHasNoBearerChallenge(t *testing.T) {
	app, env := newTestApp(t)

	identity := env.register(t, "idle@x.com", "pw1", "Idle")
	_, err := env.repo.Users().SetActive(context.Background(), identity.ID, false)
	require.NoError(t, err)

	resp, body := doJSON(t, app, http.MethodPost, "/auth/login", map[string]string{
		"email":    "idle@x.com",
		"password": "pw1",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, auth.TextCodeInactiveUser, body["code"])
	assert.Empty(t, resp.Header.Get(fiber.HeaderWWWAuthenticate))
}

func TestHTTPRegisterValidation(t *testing.T) {
	app, _ := newTestApp(t)

	payload := registerPayload("not-an-email")
	resp, _ := doJSON(t, app, http.MethodPost, "/auth/register", payload, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader("{"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	raw, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestHTTPMeAndAccessToken(t *testing.T) {
	app, _ := newTestApp(t)

	_, registered := doJSON(t, app, http.MethodPost, "/auth/register", registerPayload("me@x.com"), nil)
	_, login := doJSON(t, app, http.MethodPost, "/auth/login", map[string]string{
		"email":    "me@x.com",
		"password": "pw1",
	}, nil)
	apiKey, _ := login["api_key"].(string)
	require.NotEmpty(t, apiKey)

	t.Run("me without key", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodGet, "/auth/me", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, auth.TextCodeMissingAPIKey, body["code"])
	})

	t.Run("me with bad key", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodGet, "/auth/me", nil, map[string]string{"x-api-key": "garbage"})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "Could not validate credentials", body["detail"])
	})

	t.Run("me", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodGet, "/auth/me", nil, map[string]string{"x-api-key": apiKey})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, registered["user_id"], body["user_id"])
		assert.Equal(t, registered["organizations"], body["organizations"])
	})

	t.Run("bearer flow", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodPost, "/auth/access-token", nil, map[string]string{"x-api-key": apiKey})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "bearer", body["token_type"])

		token, _ := body["access_token"].(string)
		require.NotEmpty(t, token)

		resp, body = doJSON(t, app, http.MethodGet, "/auth/users/me", nil, map[string]string{"Authorization": bearer(token)})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "me@x.com", body["email"])

		orgs, _ := registered["organizations"].([]any)
		require.Len(t, orgs, 1)
		orgID, _ := orgs[0].(string)

		resp, body = doJSON(t, app, http.MethodGet, "/auth/organizations/"+orgID, nil, map[string]string{"Authorization": bearer(token)})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Grace's Organization", body["organization_name"])

		resp, body = doJSON(t, app, http.MethodPatch, "/auth/users/me", map[string]string{"last_name": "Murray"}, map[string]string{"Authorization": bearer(token)})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Murray", body["last_name"])
	})
}

func TestHTTPBearerFailures(t *testing.T) {
	app, _ := newTestApp(t)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", auth.TextCodeNotAuthenticated},
		{"basic scheme", "Basic xyz", auth.TextCodeInvalidScheme},
		{"garbage token", "Bearer garbage", auth.TextCodeInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}

			resp, body := doJSON(t, app, http.MethodGet, "/auth/users/me", nil, headers)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "Bearer", resp.Header.Get(fiber.HeaderWWWAuthenticate))
			assert.Equal(t, tt.code, body["code"])
		})
	}
}

func TestHTTPOrganizationNotMember(t *testing.T) {
	app, env := newTestApp(t)

	alice := env.register(t, "alice@x.com", "pw", "Alice")
	bob := env.register(t, "bob@x.com", "pw", "Bob")

	access, err := env.service.IssueAccessToken(context.Background(), alice.ID.String(), alice.Organizations[0])
	require.NoError(t, err)

	resp, body := doJSON(t, app, http.MethodGet, "/auth/organizations/"+bob.Organizations[0], nil,
		map[string]string{"Authorization": bearer(access.AccessToken)})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, auth.TextCodeOrgNotAuthorized, body["code"])
}

func TestHTTPInactiveBearer(t *testing.T) {
	app, env := newTestApp(t)

	identity := env.register(t, "sleepy@x.com", "pw", "S")
	access, err := env.service.IssueAccessToken(context.Background(), identity.ID.String(), identity.Organizations[0])
	require.NoError(t, err)

	_, err = env.repo.Users().SetActive(context.Background(), identity.ID, false)
	require.NoError(t, err)

	resp, body := doJSON(t, app, http.MethodGet, "/auth/users/me", nil, map[string]string{"Authorization": bearer(access.AccessToken)})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Inactive user", body["detail"])
}

func TestHTTPMetrics(t *testing.T) {
	app, _ := newTestApp(t)

	doJSON(t, app, http.MethodPost, "/auth/register", registerPayload("prom@x.com"), nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `auth_register_total{outcome="success"} 1`)
}
