package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "github.com/admbtski/miglee-sub001/internal/db"
	"github.com/admbtski/miglee-sub001/internal/db/repository"
	"github.com/admbtski/miglee-sub001/internal/middleware"
	"github.com/admbtski/miglee-sub001/internal/service/membership"
	"github.com/admbtski/miglee-sub001/internal/service/notification"
)

const testSecret = "api-test-secret"

// setupTestServer wires the full stack over a temp SQLite file.
func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	writeDB, readDB := internaldb.OpenTestSQLite(t)
	logger := slog.New(slog.DiscardHandler)

	groups := repository.NewGroupRepo(writeDB)
	queries := repository.NewMembershipQueryRepo(readDB)
	inbox := repository.NewInboxRepo(writeDB)
	outbox := repository.NewOutboxRepo(writeDB)

	emitter := notification.NewEmitter(queries, groups, notification.NewInboxPublisher(inbox, logger), outbox, nil, logger)
	engine := membership.NewEngine(repository.NewMembershipStore(writeDB), nil, membership.EngineConfig{}, logger)
	svc := membership.NewService(engine, groups, queries, nil, emitter, logger)

	validator, err := middleware.NewHS256Validator(testSecret)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Authenticate(validator, logger))
	NewHandler(svc, inbox, logger).Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func tokenFor(user string) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, _ := tok.SignedString([]byte(testSecret))
	return signed
}

// doRequest sends a request as user ("" sends no token) and decodes the JSON
// response into out when out is non-nil.
func doRequest(t *testing.T, srv *httptest.Server, user, method, path string, body interface{}, out interface{}) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(user))
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func createGroup(t *testing.T, srv *httptest.Server, owner string, body map[string]interface{}) Group {
	t.Helper()
	if _, ok := body["startAt"]; !ok {
		body["startAt"] = time.Now().Add(24 * time.Hour).UTC()
	}
	var created createGroupResponse
	status := doRequest(t, srv, owner, http.MethodPost, "/groups", body, &created)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "OWNER", created.Owner.Role)
	assert.Equal(t, "JOINED", created.Owner.Status)
	return created.Group
}

func TestAPI_RequiresToken(t *testing.T) {
	srv := setupTestServer(t)

	var body Error
	status := doRequest(t, srv, "", http.MethodPost, "/groups/g1/join", nil, &body)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "NOT_AUTHENTICATED", body.Kind)
}

func TestAPI_RequestApproveFlow(t *testing.T) {
	srv := setupTestServer(t)
	g := createGroup(t, srv, "owner", map[string]interface{}{
		"title":           "Board games",
		"maxParticipants": 2,
		"joinMode":        "REQUEST",
	})
	base := "/groups/" + g.ID

	var m Membership
	require.Equal(t, http.StatusOK, doRequest(t, srv, "alice", http.MethodPost, base+"/join", nil, &m))
	assert.Equal(t, "PENDING", m.Status)

	var apiErr Error
	require.Equal(t, http.StatusForbidden, doRequest(t, srv, "alice", http.MethodPost, base+"/members/alice/approve", nil, &apiErr))
	assert.Equal(t, "FORBIDDEN", apiErr.Kind)

	require.Equal(t, http.StatusOK, doRequest(t, srv, "owner", http.MethodPost, base+"/members/alice/approve", nil, &m))
	assert.Equal(t, "JOINED", m.Status)
	assert.NotNil(t, m.JoinedAt)

	require.Equal(t, http.StatusOK, doRequest(t, srv, "bob", http.MethodPost, base+"/join", nil, &m))
	apiErr = Error{}
	require.Equal(t, http.StatusConflict, doRequest(t, srv, "owner", http.MethodPost, base+"/members/bob/approve", nil, &apiErr))
	assert.Equal(t, "CAPACITY_REACHED", apiErr.Kind)
	assert.Equal(t, "maxParticipants", apiErr.Field)

	reason := map[string]string{"reason": "full"}
	require.Equal(t, http.StatusOK, doRequest(t, srv, "owner", http.MethodPost, base+"/members/bob/reject", reason, &m))
	assert.Equal(t, "REJECTED", m.Status)
	require.NotNil(t, m.RejectReason)
	assert.Equal(t, "full", *m.RejectReason)

	var list listResponse[Membership]
	require.Equal(t, http.StatusOK, doRequest(t, srv, "owner", http.MethodGet, base+"/members?status=JOINED", nil, &list))
	assert.Len(t, list.Data, 2)

	var notes listResponse[Notification]
	require.Equal(t, http.StatusOK, doRequest(t, srv, "alice", http.MethodGet, "/me/notifications", nil, &notes))
	require.Len(t, notes.Data, 1)
	assert.Equal(t, "APPROVED", notes.Data[0].Transition)

	notes = listResponse[Notification]{}
	require.Equal(t, http.StatusOK, doRequest(t, srv, "owner", http.MethodGet, "/me/notifications", nil, &notes))
	assert.Len(t, notes.Data, 2, "owner hears about both join requests")
}

func TestAPI_CancelOwnRequest(t *testing.T) {
	srv := setupTestServer(t)
	g := createGroup(t, srv, "owner", map[string]interface{}{"title": "Run club", "joinMode": "REQUEST"})
	base := "/groups/" + g.ID

	var m Membership
	require.Equal(t, http.StatusOK, doRequest(t, srv, "alice", http.MethodPost, base+"/join", nil, &m))

	var res cancelResponse
	require.Equal(t, http.StatusOK, doRequest(t, srv, "alice", http.MethodDelete, base+"/join", nil, &res))
	assert.True(t, res.Cancelled)

	res = cancelResponse{}
	require.Equal(t, http.StatusOK, doRequest(t, srv, "alice", http.MethodDelete, base+"/join", nil, &res))
	assert.False(t, res.Cancelled)
}

func TestAPI_InviteKickRoleBan(t *testing.T) {
	srv := setupTestServer(t)
	g := createGroup(t, srv, "owner", map[string]interface{}{"title": "Choir", "joinMode": "INVITE_ONLY"})
	base := "/groups/" + g.ID

	var apiErr Error
	require.Equal(t, http.StatusForbidden, doRequest(t, srv, "alice", http.MethodPost, base+"/join", nil, &apiErr))

	var m Membership
	require.Equal(t, http.StatusOK, doRequest(t, srv, "owner", http.MethodPost, base+"/members/alice/invite", nil, &m))
	assert.Equal(t, "INVITED", m.Status)
	require.Equal(t, http.StatusOK, doRequest(t, srv, "alice", http.MethodPost, base+"/accept", nil, &m))
	assert.Equal(t, "JOINED", m.Status)

	require.Equal(t, http.StatusOK, doRequest(t, srv, "owner", http.MethodPut, base+"/members/alice/role", map[string]string{"role": "MODERATOR"}, &m))
	assert.Equal(t, "MODERATOR", m.Role)

	apiErr = Error{}
	require.Equal(t, http.StatusBadRequest, doRequest(t, srv, "owner", http.MethodPut, base+"/members/alice/role", map[string]string{"role": "ADMIN"}, &apiErr))
	assert.Equal(t, "INVALID_ARGUMENT", apiErr.Kind)
	assert.Equal(t, "role", apiErr.Field)

	apiErr = Error{}
	require.Equal(t, http.StatusUnprocessableEntity, doRequest(t, srv, "alice", http.MethodPost, base+"/members/owner/kick", nil, &apiErr))
	assert.Equal(t, "INVALID_TARGET", apiErr.Kind)

	require.Equal(t, http.StatusOK, doRequest(t, srv, "owner", http.MethodPost, base+"/members/alice/kick", map[string]string{"note": "spam"}, &m))
	assert.Equal(t, "KICKED", m.Status)
	require.NotNil(t, m.Note)
	assert.Equal(t, "spam", *m.Note)

	require.Equal(t, http.StatusOK, doRequest(t, srv, "owner", http.MethodPost, base+"/members/alice/ban", nil, &m))
	assert.Equal(t, "BANNED", m.Status)

	require.Equal(t, http.StatusOK, doRequest(t, srv, "owner", http.MethodGet, base+"/members/alice", nil, &m))
	assert.Equal(t, "BANNED", m.Status)
}

func TestAPI_CancelledGroupIsReadOnly(t *testing.T) {
	srv := setupTestServer(t)
	g := createGroup(t, srv, "owner", map[string]interface{}{"title": "Picnic"})
	base := "/groups/" + g.ID

	var m Membership
	require.Equal(t, http.StatusOK, doRequest(t, srv, "alice", http.MethodPost, base+"/join", nil, &m))
	assert.Equal(t, "JOINED", m.Status)

	var apiErr Error
	require.Equal(t, http.StatusForbidden, doRequest(t, srv, "alice", http.MethodPost, base+"/cancel", nil, &apiErr))
	require.Equal(t, http.StatusNoContent, doRequest(t, srv, "owner", http.MethodPost, base+"/cancel", nil, nil))

	apiErr = Error{}
	require.Equal(t, http.StatusConflict, doRequest(t, srv, "alice", http.MethodPost, base+"/leave", nil, &apiErr))
	assert.Equal(t, "GROUP_READ_ONLY", apiErr.Kind)
	assert.Equal(t, "canceledAt", apiErr.Field)

	var got Group
	require.Equal(t, http.StatusOK, doRequest(t, srv, "alice", http.MethodGet, base, nil, &got))
	assert.NotNil(t, got.CanceledAt)
}

func TestAPI_BadRequests(t *testing.T) {
	srv := setupTestServer(t)
	g := createGroup(t, srv, "owner", map[string]interface{}{"title": "Chess"})
	base := "/groups/" + g.ID

	var apiErr Error
	assert.Equal(t, http.StatusNotFound, doRequest(t, srv, "owner", http.MethodGet, "/groups/missing", nil, &apiErr))
	assert.Equal(t, "NOT_FOUND", apiErr.Kind)

	apiErr = Error{}
	assert.Equal(t, http.StatusBadRequest, doRequest(t, srv, "owner", http.MethodGet, base+"/members?status=MAYBE", nil, &apiErr))
	apiErr = Error{}
	assert.Equal(t, http.StatusBadRequest, doRequest(t, srv, "owner", http.MethodGet, base+"/members?max_results=lots", nil, &apiErr))
	apiErr = Error{}
	assert.Equal(t, http.StatusBadRequest, doRequest(t, srv, "owner", http.MethodPost, "/groups", map[string]interface{}{"title": "x", "color": "red"}, &apiErr))
	apiErr = Error{}
	assert.Equal(t, http.StatusBadRequest, doRequest(t, srv, "owner", http.MethodPost, "/groups", map[string]interface{}{"flavor": "PARTY", "title": "x"}, &apiErr))
	assert.Equal(t, "flavor", apiErr.Field)
}

func TestErrorFromDomain_HidesInternalErrors(t *testing.T) {
	status, body := errorFromDomain(io.ErrUnexpectedEOF)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "INTERNAL", body.Kind)
	assert.Equal(t, "internal error", body.Message)
}
