package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"guild-dashboard/internal/config"
	"guild-dashboard/internal/discord"
	"guild-dashboard/internal/guildconfig"
	"guild-dashboard/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSessions struct {
	records map[string]session.Record
	states  map[string]bool
	created int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		records: map[string]session.Record{},
		states:  map[string]bool{},
	}
}

func (f *fakeSessions) Create(ctx context.Context, rec session.Record) (string, error) {
	f.created++
	id := "sess-1"
	f.records[id] = rec
	return id, nil
}

func (f *fakeSessions) Get(ctx context.Context, id string) (session.Record, error) {
	rec, ok := f.records[id]
	if !ok {
		return session.Record{}, session.ErrNotFound
	}
	return rec, nil
}

func (f *fakeSessions) Delete(ctx context.Context, id string) error {
	delete(f.records, id)
	return nil
}

func (f *fakeSessions) NewState(ctx context.Context) (string, error) {
	f.states["state-1"] = true
	return "state-1", nil
}

func (f *fakeSessions) ConsumeState(ctx context.Context, state string) bool {
	ok := f.states[state]
	delete(f.states, state)
	return ok
}

type fakeConfigs struct {
	prefixes map[string]string
	commands map[string]map[string]bool
	modules  map[string]map[string]bool
	getCalls int
}

func newFakeConfigs() *fakeConfigs {
	return &fakeConfigs{
		prefixes: map[string]string{},
		commands: map[string]map[string]bool{},
		modules:  map[string]map[string]bool{},
	}
}

func (f *fakeConfigs) Get(ctx context.Context, guildID string) (guildconfig.Config, error) {
	f.getCalls++
	cfg := guildconfig.Config{
		Prefix:   f.prefixes[guildID],
		Commands: map[string]guildconfig.Toggle{},
		Modules:  map[string]guildconfig.Toggle{},
	}
	if cfg.Prefix == "" {
		cfg.Prefix = guildconfig.DefaultPrefix
	}
	for k, v := range f.commands[guildID] {
		cfg.Commands[k] = guildconfig.Toggle{Enabled: v}
	}
	for k, v := range f.modules[guildID] {
		cfg.Modules[k] = guildconfig.Toggle{Enabled: v}
	}
	return cfg, nil
}

func (f *fakeConfigs) SetPrefix(ctx context.Context, guildID, prefix string) (string, error) {
	p := guildconfig.NormalizePrefix(prefix)
	f.prefixes[guildID] = p
	return p, nil
}

func (f *fakeConfigs) SetCommand(ctx context.Context, guildID, fullName string, enabled bool) error {
	if f.commands[guildID] == nil {
		f.commands[guildID] = map[string]bool{}
	}
	f.commands[guildID][fullName] = enabled
	return nil
}

func (f *fakeConfigs) SetModule(ctx context.Context, guildID, module string, enabled bool) error {
	if f.modules[guildID] == nil {
		f.modules[guildID] = map[string]bool{}
	}
	f.modules[guildID][module] = enabled
	return nil
}

type fakeAuth struct {
	rec session.Record
	err error
}

func (f *fakeAuth) Login(ctx context.Context, code string) (session.Record, error) {
	if f.err != nil {
		return session.Record{}, f.err
	}
	return f.rec, nil
}

type fakeAuthURL struct{}

func (fakeAuthURL) AuthorizeURL(state string) string {
	return "https://discord.com/oauth2/authorize?state=" + state
}

func testServer(t *testing.T, sessions *fakeSessions, configs *fakeConfigs, auth *fakeAuth) *Server {
	t.Helper()
	cfg := config.Config{BotName: "Anomaly", SessionTTL: time.Hour}
	return NewServer(slog.New(slog.NewTextHandler(io.Discard, nil)), cfg, nil, nil, sessions, configs, auth, fakeAuthURL{}, nil)
}

func loggedIn(sessions *fakeSessions, rec session.Record) *http.Cookie {
	sessions.records["sess-0"] = rec
	return &http.Cookie{Name: session.CookieName, Value: "sess-0"}
}

func TestCallback_MissingCodeRedirectsToLogin(t *testing.T) {
	srv := testServer(t, newFakeSessions(), newFakeConfigs(), &fakeAuth{})

	req, _ := http.NewRequest("GET", "/auth/callback", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login" {
		t.Errorf("redirect to %q, want /login", loc)
	}
}

func TestCallback_BadStateRedirectsToLogin(t *testing.T) {
	sessions := newFakeSessions()
	srv := testServer(t, sessions, newFakeConfigs(), &fakeAuth{})

	req, _ := http.NewRequest("GET", "/auth/callback?code=abc&state=forged", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
		t.Errorf("forged state should bounce to login, got %d %q", w.Code, w.Header().Get("Location"))
	}
	if sessions.created != 0 {
		t.Error("no session may be created for a forged callback")
	}
}

func TestCallback_UpstreamFailureCommitsNothing(t *testing.T) {
	sessions := newFakeSessions()
	sessions.states["state-1"] = true
	auth := &fakeAuth{err: &discord.UpstreamError{Status: 400, Body: "invalid_grant"}}
	srv := testServer(t, sessions, newFakeConfigs(), auth)

	req, _ := http.NewRequest("GET", "/auth/callback?code=abc&state=state-1", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "invalid_grant") {
		t.Error("provider error body must not reach the browser")
	}
	if sessions.created != 0 {
		t.Error("failed reconciliation must not commit a session")
	}

	// and the browser stays logged out
	req2, _ := http.NewRequest("GET", "/guilds", nil)
	w2 := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w2, req2)
	if w2.Code != http.StatusFound || w2.Header().Get("Location") != "/login" {
		t.Errorf("subsequent /guilds should redirect to login, got %d", w2.Code)
	}
}

func TestCallback_SuccessCommitsSessionAndRedirects(t *testing.T) {
	sessions := newFakeSessions()
	sessions.states["state-1"] = true
	auth := &fakeAuth{rec: session.Record{
		User:   session.User{ID: "1", Username: "u"},
		Guilds: []session.GuildEntry{{ID: "g1", CanInvite: true, BotPresent: true}},
	}}
	srv := testServer(t, sessions, newFakeConfigs(), auth)

	req, _ := http.NewRequest("GET", "/auth/callback?code=abc&state=state-1", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusFound || w.Header().Get("Location") != "/guilds" {
		t.Fatalf("got %d -> %q, want 302 -> /guilds", w.Code, w.Header().Get("Location"))
	}
	if sessions.created != 1 {
		t.Errorf("sessions created = %d, want 1", sessions.created)
	}

	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName && c.Value != "" {
			found = true
			if !c.HttpOnly {
				t.Error("session cookie must be HttpOnly")
			}
		}
	}
	if !found {
		t.Error("success must set the session cookie")
	}
}

func TestGuildPage_ForbiddenWithoutBotPresence(t *testing.T) {
	sessions := newFakeSessions()
	configs := newFakeConfigs()
	srv := testServer(t, sessions, configs, &fakeAuth{})

	rec := session.Record{Guilds: []session.GuildEntry{
		{ID: "g1", BotPresent: true},
		{ID: "g2", BotPresent: false},
	}}
	cookie := loggedIn(sessions, rec)

	tests := []struct {
		name    string
		guildID string
		want    int
	}{
		{"guild not in session", "g9", http.StatusForbidden},
		{"bot absent", "g2", http.StatusForbidden},
		{"bot present", "g1", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := configs.getCalls
			req, _ := http.NewRequest("GET", "/guild/"+tt.guildID, nil)
			req.AddCookie(cookie)
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusForbidden && configs.getCalls != before {
				t.Error("403 must short-circuit before the config store is read")
			}
		})
	}
}

func TestSetPrefix_TruncatesAndRoundTrips(t *testing.T) {
	sessions := newFakeSessions()
	configs := newFakeConfigs()
	srv := testServer(t, sessions, configs, &fakeAuth{})
	cookie := loggedIn(sessions, session.Record{User: session.User{ID: "1"}})

	body := strings.NewReader(`{"prefix":"longprefix"}`)
	req, _ := http.NewRequest("POST", "/api/guild/123456789012345678/prefix", body)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		OK     bool   `json:"ok"`
		Prefix string `json:"prefix"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if !resp.OK || resp.Prefix != "longp" {
		t.Errorf("resp = %+v, want ok with prefix longp", resp)
	}

	cfg, _ := configs.Get(context.Background(), "123456789012345678")
	if cfg.Prefix != "longp" {
		t.Errorf("stored prefix = %q, want longp", cfg.Prefix)
	}
}

func TestSetPrefix_EmptyCoercesToDefault(t *testing.T) {
	sessions := newFakeSessions()
	configs := newFakeConfigs()
	srv := testServer(t, sessions, configs, &fakeAuth{})
	cookie := loggedIn(sessions, session.Record{})

	req, _ := http.NewRequest("POST", "/api/guild/123456789012345678/prefix", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"prefix":"+"`) {
		t.Errorf("got %d %s, want default prefix +", w.Code, w.Body.String())
	}
}

func TestSetCommand_IdempotentAndValidated(t *testing.T) {
	sessions := newFakeSessions()
	configs := newFakeConfigs()
	srv := testServer(t, sessions, configs, &fakeAuth{})
	cookie := loggedIn(sessions, session.Record{})

	post := func(body string) *httptest.ResponseRecorder {
		req, _ := http.NewRequest("POST", "/api/guild/123456789012345678/command", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(cookie)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		return w
	}

	// enabling twice leaves exactly one enabled entry
	for i := 0; i < 2; i++ {
		if w := post(`{"fullName":"moderation.ban","enabled":true}`); w.Code != http.StatusOK {
			t.Fatalf("attempt %d: status = %d", i, w.Code)
		}
	}
	cfg, _ := configs.Get(context.Background(), "123456789012345678")
	if len(cfg.Commands) != 1 || !cfg.Commands["moderation.ban"].Enabled {
		t.Errorf("commands = %+v, want single enabled moderation.ban", cfg.Commands)
	}

	if w := post(`{"enabled":true}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing fullName should 400, got %d", w.Code)
	}
}

func TestSetModule_RequiresSession(t *testing.T) {
	srv := testServer(t, newFakeSessions(), newFakeConfigs(), &fakeAuth{})

	req, _ := http.NewRequest("POST", "/api/guild/123456789012345678/module", strings.NewReader(`{"module":"fun","enabled":false}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if !strings.Contains(w.Body.String(), "unauthenticated") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestMutations_RejectNonSnowflakeGuildID(t *testing.T) {
	sessions := newFakeSessions()
	srv := testServer(t, sessions, newFakeConfigs(), &fakeAuth{})
	cookie := loggedIn(sessions, session.Record{})

	req, _ := http.NewRequest("POST", "/api/guild/not-a-snowflake/prefix", strings.NewReader(`{"prefix":"!"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestLogout_DestroysSession(t *testing.T) {
	sessions := newFakeSessions()
	srv := testServer(t, sessions, newFakeConfigs(), &fakeAuth{})
	cookie := loggedIn(sessions, session.Record{User: session.User{ID: "1"}})

	req, _ := http.NewRequest("GET", "/logout", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
		t.Fatalf("got %d -> %q", w.Code, w.Header().Get("Location"))
	}
	if _, err := sessions.Get(context.Background(), "sess-0"); !errors.Is(err, session.ErrNotFound) {
		t.Error("logout must delete the stored session")
	}
}

func TestRoot_RedirectsByAuthState(t *testing.T) {
	sessions := newFakeSessions()
	srv := testServer(t, sessions, newFakeConfigs(), &fakeAuth{})

	req, _ := http.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Header().Get("Location") != "/login" {
		t.Errorf("anonymous / should go to /login, got %q", w.Header().Get("Location"))
	}

	cookie := loggedIn(sessions, session.Record{User: session.User{ID: "1"}})
	req2, _ := http.NewRequest("GET", "/", nil)
	req2.AddCookie(cookie)
	w2 := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w2, req2)
	if w2.Header().Get("Location") != "/guilds" {
		t.Errorf("authenticated / should go to /guilds, got %q", w2.Header().Get("Location"))
	}
}

func TestLogin_RendersAuthorizeURL(t *testing.T) {
	sessions := newFakeSessions()
	srv := testServer(t, sessions, newFakeConfigs(), &fakeAuth{})

	req, _ := http.NewRequest("GET", "/login", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "state=state-1") {
		t.Error("login page should embed the authorize url with a fresh state")
	}
}
