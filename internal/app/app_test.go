package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admbtski/miglee-sub001/internal/config"
	internaldb "github.com/admbtski/miglee-sub001/internal/db"
	"github.com/admbtski/miglee-sub001/internal/domain"
)

func testConfig(sink string) *config.Config {
	return &config.Config{
		TxMaxAttempts:      5,
		CORSAllowedOrigins: []string{"*"},
		Auth:               config.AuthConfig{JWTSecret: "app-test-secret"},
		Notify: config.NotifyConfig{
			Sink:          sink,
			RelaySchedule: "@every 1h",
		},
	}
}

func newTestApp(t *testing.T, sink string) *App {
	t.Helper()
	writeDB, readDB := internaldb.OpenTestSQLite(t)
	a, err := New(context.Background(), Deps{
		Cfg:     testConfig(sink),
		WriteDB: writeDB,
		ReadDB:  readDB,
		Logger:  slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func bearer(user string) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": user})
	signed, _ := tok.SignedString([]byte("app-test-secret"))
	return "Bearer " + signed
}

func TestNew_RejectsMissingPolicyFile(t *testing.T) {
	writeDB, readDB := internaldb.OpenTestSQLite(t)
	cfg := testConfig(config.SinkLog)
	cfg.PolicyFile = "/nonexistent/policy.yaml"
	_, err := New(context.Background(), Deps{Cfg: cfg, WriteDB: writeDB, ReadDB: readDB, Logger: slog.New(slog.DiscardHandler)})
	require.Error(t, err)
}

func TestRouter_HealthAndAuth(t *testing.T) {
	a := newTestApp(t, config.SinkLog)
	srv := httptest.NewServer(a.Router())
	t.Cleanup(srv.Close)

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, err = srv.Client().Get(srv.URL + "/v1/groups/nope")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/groups/nope", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", bearer("alice"))
	resp, err = srv.Client().Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSeedDemo_InboxSink(t *testing.T) {
	a := newTestApp(t, config.SinkInbox)
	ctx := context.Background()

	g, err := SeedDemo(ctx, a.Service, time.Now())
	require.NoError(t, err)

	joined := domain.StatusJoined
	_, total, err := a.Service.ListMembers(ctx, g.ID, &joined, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	m, err := a.Service.GetMembership(ctx, g.ID, DemoModerator)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleModerator, m.Role)

	m, err = a.Service.GetMembership(ctx, g.ID, DemoInvitee)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInvited, m.Status)

	// The applicant's request reached the owner and the moderator.
	notes, _, err := a.Inbox.ListForRecipient(ctx, DemoModerator, domain.PageRequest{})
	require.NoError(t, err)
	var sawApplicant bool
	for _, n := range notes {
		if n.Transition == domain.TransitionJoinRequested && n.UserID == DemoApplicant {
			sawApplicant = true
		}
	}
	assert.True(t, sawApplicant)

	// Everything was delivered inline, so the relay has nothing to do.
	n, err := a.Relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	srv := httptest.NewServer(a.Router())
	t.Cleanup(srv.Close)
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/me/notifications", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", bearer(DemoInvitee))
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data []struct {
			Transition string `json:"transition"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "INVITED", body.Data[0].Transition)
}
