package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adoptify-web/internal/config"
	"adoptify-web/internal/fakeapi"
	"adoptify-web/internal/model"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *model.APIError `json:"error"`
}

type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func testConfig(apiURL string) *config.Config {
	return &config.Config{
		APIBaseURL:           apiURL,
		APITimeout:           5 * time.Second,
		ServerPort:           "0",
		RequestTimeout:       10 * time.Second,
		SessionCookieName:    "adoptify_session",
		SessionIdleTTL:       time.Hour,
		SessionSweepSchedule: "@every 15m",
		CORSOrigins:          []string{"http://localhost:3000"},
		RateLimitRPM:         0,
		AuthRateLimitRPM:     1000,
		LogLevel:             "error",
	}
}

func newTestApp(t *testing.T) (*fakeapi.Server, *browser) {
	t.Helper()

	api, apiSrv := fakeapi.Start(t)
	api.AddUser("alice", "wonderland", "admin")
	api.AddUser("bob", "builder", "user")

	application, err := NewWithConfig(context.Background(), testConfig(apiSrv.URL))
	require.NoError(t, err)
	t.Cleanup(application.cleanup)

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(srv.Close)

	return api, newBrowser(t, srv.URL)
}

func newBrowser(t *testing.T, base string) *browser {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &browser{
		t:    t,
		base: base,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) do(method string, path string, body any) (*http.Response, envelope) {
	b.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(b.t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, b.base+path, reader)
	require.NoError(b.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)

	var env envelope
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(b.t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp, env
}

func (b *browser) login(username string, password string) *http.Response {
	b.t.Helper()
	resp, _ := b.do(http.MethodPost, "/login", model.LoginRequest{Username: username, Password: password})
	return resp
}

func (b *browser) summary() model.SessionSummary {
	b.t.Helper()
	resp, env := b.do(http.MethodGet, "/", nil)
	require.Equal(b.t, http.StatusOK, resp.StatusCode)

	var page model.HomePage
	require.NoError(b.t, json.Unmarshal(env.Data, &page))
	return page.Session
}

func requireRedirect(t *testing.T, resp *http.Response, env envelope, target string) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, target, resp.Header.Get("Location"))
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"redirect_to":"`+target+`"}`, string(env.Data))
}

func TestAdminLoginRedirectsToDashboard(t *testing.T) {
	t.Parallel()
	_, b := newTestApp(t)

	resp, env := b.do(http.MethodPost, "/login", model.LoginRequest{Username: "alice", Password: "wonderland"})
	requireRedirect(t, resp, env, "/admin-dashboard")

	assert.Equal(t, model.SessionSummary{Authenticated: true, Username: "alice", Role: "admin"}, b.summary())

	resp, env = b.do(http.MethodGet, "/admin-dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page model.AdminDashboardPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Contains(t, page.Links, "/admin/pets")
	assert.Equal(t, "admin", page.Session.Role)
}

func TestUserLoginRedirectsHome(t *testing.T) {
	t.Parallel()
	_, b := newTestApp(t)

	resp, env := b.do(http.MethodPost, "/login", model.LoginRequest{Username: "bob", Password: "builder"})
	requireRedirect(t, resp, env, "/")
	assert.Equal(t, "user", b.summary().Role)
}

func TestUserOnAdminRouteGoesHomeWithoutCallingAPI(t *testing.T) {
	t.Parallel()
	api, b := newTestApp(t)
	require.Equal(t, http.StatusSeeOther, b.login("bob", "builder").StatusCode)

	before := api.TotalCalls()
	for _, path := range []string{"/admin-dashboard", "/admin/pets", "/admin/applications"} {
		resp, env := b.do(http.MethodGet, path, nil)
		requireRedirect(t, resp, env, "/")
	}
	assert.Equal(t, before, api.TotalCalls())

	assert.True(t, b.summary().Authenticated, "denial must not sign the user out")
}

func TestAnonymousVisitorIsSentToLogin(t *testing.T) {
	t.Parallel()
	api, b := newTestApp(t)

	for _, path := range []string{"/profile", "/shelters", "/admin-dashboard", "/pets/1"} {
		resp, env := b.do(http.MethodGet, path, nil)
		requireRedirect(t, resp, env, "/login")
	}
	assert.Zero(t, api.TotalCalls())
}

func TestInvalidCredentialsStayOnLoginPage(t *testing.T) {
	t.Parallel()
	_, b := newTestApp(t)

	resp, env := b.do(http.MethodPost, "/login", model.LoginRequest{Username: "alice", Password: "nope"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)
	assert.Equal(t, "No active account found with the given credentials", env.Error.Details)

	assert.False(t, b.summary().Authenticated)
}

func TestLoginWhenAPIIsDownAsksToRetry(t *testing.T) {
	t.Parallel()

	dead := httptest.NewServer(http.NotFoundHandler())
	url := dead.URL
	dead.Close()

	application, err := NewWithConfig(context.Background(), testConfig(url))
	require.NoError(t, err)
	t.Cleanup(application.cleanup)
	srv := httptest.NewServer(application.Handler())
	t.Cleanup(srv.Close)
	b := newBrowser(t, srv.URL)

	resp, env := b.do(http.MethodPost, "/login", model.LoginRequest{Username: "alice", Password: "wonderland"})
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", env.Error.Code)
}

func TestProfileFailureKeepsVisitorSignedOut(t *testing.T) {
	t.Parallel()
	api, b := newTestApp(t)
	api.FailProfile(http.StatusInternalServerError)

	resp, env := b.do(http.MethodPost, "/login", model.LoginRequest{Username: "bob", Password: "builder"})
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "PROFILE_FETCH_FAILED", env.Error.Code)
	assert.False(t, b.summary().Authenticated)
}

func TestLogoutClearsSessionAndGoesHome(t *testing.T) {
	t.Parallel()
	_, b := newTestApp(t)
	require.Equal(t, http.StatusSeeOther, b.login("alice", "wonderland").StatusCode)

	resp, env := b.do(http.MethodPost, "/logout", nil)
	requireRedirect(t, resp, env, "/")
	assert.False(t, b.summary().Authenticated)

	resp, env = b.do(http.MethodGet, "/profile", nil)
	requireRedirect(t, resp, env, "/login")

	// A second logout on an empty session is harmless.
	resp, env = b.do(http.MethodGet, "/logout", nil)
	requireRedirect(t, resp, env, "/")
}

func TestRevokedAccessTokenIsRefreshedTransparently(t *testing.T) {
	t.Parallel()
	api, b := newTestApp(t)
	require.Equal(t, http.StatusSeeOther, b.login("bob", "builder").StatusCode)

	api.RevokeAccessTokens()

	resp, env := b.do(http.MethodGet, "/profile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page model.ProfilePage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, "bob", page.Profile.Username)
	assert.Empty(t, page.Favourites)
	assert.Empty(t, page.Applications)
	assert.Equal(t, 1, api.Calls(http.MethodPost, "/api/token/refresh/"))

	resp, _ = b.do(http.MethodGet, "/profile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, api.Calls(http.MethodPost, "/api/token/refresh/"), "refreshed token is persisted")
}

func TestExpiredSessionRedirectsToLogin(t *testing.T) {
	t.Parallel()
	api, b := newTestApp(t)
	require.Equal(t, http.StatusSeeOther, b.login("bob", "builder").StatusCode)

	api.RevokeAccessTokens()
	api.FailRefresh(http.StatusUnauthorized)

	resp, env := b.do(http.MethodGet, "/profile", nil)
	requireRedirect(t, resp, env, "/login")
	assert.False(t, b.summary().Authenticated)
}

func TestSessionsAreIsolatedPerBrowser(t *testing.T) {
	t.Parallel()
	_, alice := newTestApp(t)
	bob := newBrowser(t, alice.base)

	require.Equal(t, http.StatusSeeOther, alice.login("alice", "wonderland").StatusCode)

	assert.True(t, alice.summary().Authenticated)
	assert.False(t, bob.summary().Authenticated)
}

func (b *browser) sessionCookie() string {
	b.t.Helper()
	u, err := url.Parse(b.base)
	require.NoError(b.t, err)
	for _, c := range b.client.Jar.Cookies(u) {
		if c.Name == "adoptify_session" {
			return c.Value
		}
	}
	return ""
}

func TestLoginIssuesFreshSessionID(t *testing.T) {
	t.Parallel()
	_, victim := newTestApp(t)

	attacker := newBrowser(t, victim.base)
	require.False(t, attacker.summary().Authenticated)
	planted := attacker.sessionCookie()
	require.NotEmpty(t, planted)

	u, err := url.Parse(victim.base)
	require.NoError(t, err)
	victim.client.Jar.SetCookies(u, []*http.Cookie{{Name: "adoptify_session", Value: planted, Path: "/"}})

	require.Equal(t, http.StatusSeeOther, victim.login("bob", "builder").StatusCode)

	assert.NotEqual(t, planted, victim.sessionCookie())
	assert.True(t, victim.summary().Authenticated)
	assert.False(t, attacker.summary().Authenticated)
}

func TestSignupThenLogin(t *testing.T) {
	t.Parallel()
	_, b := newTestApp(t)

	resp, env := b.do(http.MethodPost, "/signup", model.RegisterRequest{
		Username:  "carol",
		Email:     "carol@adoptify.test",
		Password:  "s3cret",
		FirstName: "Carol",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, env.Success)
	assert.False(t, b.summary().Authenticated, "signup does not sign in")

	resp, env = b.do(http.MethodPost, "/signup", model.RegisterRequest{Username: "carol", Password: "again"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "UPSTREAM_REJECTED", env.Error.Code)

	resp, env = b.do(http.MethodPost, "/signup", model.RegisterRequest{Username: "dave", Password: "x", PhoneNumber: "55-12"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)

	resp, env = b.do(http.MethodPost, "/login", model.LoginRequest{Username: "carol", Password: "s3cret"})
	requireRedirect(t, resp, env, "/")
}

func TestAdoptionFlow(t *testing.T) {
	t.Parallel()
	api, admin := newTestApp(t)
	user := newBrowser(t, admin.base)

	shelter := api.AddShelter(model.Shelter{Name: "Happy Tails", Address: "1 Main St", PhoneNumber: "5550000"})
	api.AddPet(model.Pet{Name: "Rex", PetType: "Dog", Gender: "Male", ShelterID: shelter.ID})
	cat := api.AddPet(model.Pet{Name: "Tom", PetType: "Cat", Gender: "Male", ShelterID: shelter.ID})

	resp, env := user.do(http.MethodGet, "/pets?pet_type=cat", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pets []model.Pet
	require.NoError(t, json.Unmarshal(env.Data, &pets))
	require.Len(t, pets, 1)
	assert.Equal(t, "Tom", pets[0].Name)

	require.Equal(t, http.StatusSeeOther, user.login("bob", "builder").StatusCode)

	resp, _ = user.do(http.MethodPost, "/favourites/"+strconv.Itoa(cat.ID), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env = user.do(http.MethodPost, "/apply/"+strconv.Itoa(cat.ID), map[string]string{"message": "I love cats"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var app model.Application
	require.NoError(t, json.Unmarshal(env.Data, &app))
	assert.Equal(t, model.ApplicationPending, app.Status)

	resp, env = user.do(http.MethodGet, "/profile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page model.ProfilePage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Favourites, 1)
	require.Len(t, page.Applications, 1)

	require.Equal(t, http.StatusSeeOther, admin.login("alice", "wonderland").StatusCode)
	resp, env = admin.do(http.MethodPatch, "/admin/applications/"+strconv.Itoa(app.ID), model.ApplicationStatusPatch{Status: model.ApplicationApproved})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(env.Data, &app))
	assert.Equal(t, model.ApplicationApproved, app.Status)

	adopted, ok := api.Pet(cat.ID)
	require.True(t, ok)
	assert.Equal(t, model.PetStatusAdopted, adopted.AdoptionStatus)

	resp, env = user.do(http.MethodPost, "/donate", model.DonationRequest{ShelterID: shelter.ID, Amount: 10, PaymentMethodID: "pm_card_visa"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, env.Success)
	require.Len(t, api.Donations(), 1)
}

func TestAdminManagesShelters(t *testing.T) {
	t.Parallel()
	_, b := newTestApp(t)
	require.Equal(t, http.StatusSeeOther, b.login("alice", "wonderland").StatusCode)

	resp, env := b.do(http.MethodPost, "/admin/shelters", model.ShelterRequest{Name: "Paws", Address: "2 Side St"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var shelter model.Shelter
	require.NoError(t, json.Unmarshal(env.Data, &shelter))

	resp, env = b.do(http.MethodPut, "/admin/shelters/"+strconv.Itoa(shelter.ID), model.ShelterRequest{Name: "Paws & Claws", Address: "2 Side St"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(env.Data, &shelter))
	assert.Equal(t, "Paws & Claws", shelter.Name)

	resp, _ = b.do(http.MethodDelete, "/admin/shelters/"+strconv.Itoa(shelter.ID), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, env = b.do(http.MethodGet, "/admin/shelters/"+strconv.Itoa(shelter.ID), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "UPSTREAM_REJECTED", env.Error.Code)

	resp, env = b.do(http.MethodGet, "/admin/shelters/abc", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()
	_, b := newTestApp(t)

	resp, err := b.client.Get(b.base + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
	assert.Empty(t, resp.Cookies(), "health checks do not start sessions")

	b.login("alice", "wonderland")

	resp, err = b.client.Get(b.base + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "adoptify_web_logins_total")
}

func TestOtherTabsHearAboutLogout(t *testing.T) {
	t.Parallel()
	_, b := newTestApp(t)
	require.Equal(t, http.StatusSeeOther, b.login("bob", "builder").StatusCode)

	dialer := websocket.Dialer{Jar: b.client.Jar}
	conn, _, err := dialer.Dial("ws"+strings.TrimPrefix(b.base, "http")+"/events", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	type tabMessage struct {
		Type       string `json:"type"`
		RedirectTo string `json:"redirect_to"`
	}
	received := make(chan tabMessage, 1)
	go func() {
		var msg tabMessage
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if conn.ReadJSON(&msg) == nil {
			received <- msg
		}
	}()

	// The upgrade has completed but registration can trail it, so keep
	// logging out until the tab hears about it.
	var msg tabMessage
	require.Eventually(t, func() bool {
		resp, _ := b.do(http.MethodPost, "/logout", nil)
		if resp.StatusCode != http.StatusSeeOther {
			return false
		}
		select {
		case msg = <-received:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 50*time.Millisecond)

	assert.Equal(t, "session.logout", msg.Type)
	assert.Equal(t, "/", msg.RedirectTo)
}
