package api

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"prism/entity"
	"prism/impl/core"
	"prism/internal/database/memstore"
	"prism/internal/http-server/middleware/ratelimit"
	"prism/internal/service/auth"
	"prism/internal/service/escalation"
	"prism/internal/service/restore"
	"prism/internal/service/status"
	"testing"
	"time"
)

const masterKey = "master-key"

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, entity.Event) {}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

type testAPI struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memstore.New()

	statuses := status.NewService(store, nopPublisher{}, log)
	restores := restore.NewService(store, statuses, nopPublisher{}, log)
	engine := escalation.NewEngine(store, nopPublisher{}, log, time.Second)

	authService := auth.NewAuthService(log, "test-secret", time.Hour)
	authService.SetRepository(store)
	authService.SetMasterKey(masterKey)

	c := core.New(log)
	c.SetRepository(store)
	c.SetStatusService(statuses)
	c.SetRestoreService(restores)
	c.SetChatEngine(engine)
	c.SetAuthService(authService)

	limiter := ratelimit.New(60, 1, log)
	srv := httptest.NewServer(NewRouter(log, c, nil, limiter))
	t.Cleanup(srv.Close)
	return &testAPI{t: t, srv: srv}
}

func (a *testAPI) do(method, path, token string, body any) (int, envelope) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, reader)
	require.NoError(a.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(a.t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (a *testAPI) token(user map[string]string) string {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/v1/auth/token", masterKey, user)
	require.Equal(a.t, http.StatusOK, code, env.Message)
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &out))
	return out.Token
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestAuthRequired(t *testing.T) {
	a := newTestAPI(t)

	code, env := a.do(http.MethodGet, "/api/v1/opportunities", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)

	code, _ = a.do(http.MethodGet, "/api/v1/opportunities", "garbage.token.value", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	staff := a.token(map[string]string{"user_id": "aopr-1", "role": "aopr", "agency_id": "agency-1"})
	code, _ = a.do(http.MethodPost, "/api/v1/auth/token", staff, map[string]string{"user_id": "x", "role": "admin", "agency_id": "agency-1"})
	assert.Equal(t, http.StatusForbidden, code, "only service keys mint tokens")
}

func TestResponseAndRestoreFlow(t *testing.T) {
	a := newTestAPI(t)
	staff := a.token(map[string]string{"user_id": "aopr-1", "role": "aopr", "agency_id": "agency-1"})

	code, env := a.do(http.MethodPost, "/api/v1/clients", staff, map[string]string{"name": "Alice", "email": "alice@example.com"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	alice := decode[entity.Client](t, env)

	deadline := time.Now().UTC().Add(72 * time.Hour)
	code, env = a.do(http.MethodPost, "/api/v1/opportunities", staff, map[string]any{
		"title": "Morning show", "media_type": "broadcast", "deadline": deadline,
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	opp := decode[entity.Opportunity](t, env)

	code, env = a.do(http.MethodPost, "/api/v1/opportunities/"+opp.ID+"/assign", staff, map[string]any{"client_ids": []string{alice.ID}})
	require.Equal(t, http.StatusOK, code, env.Message)
	statuses := decode[[]entity.ClientOpportunityStatus](t, env)
	require.Len(t, statuses, 1)
	st := statuses[0]

	client := a.token(map[string]string{"user_id": "user-alice", "role": "client", "agency_id": "agency-1", "client_id": alice.ID})

	code, env = a.do(http.MethodPost, "/api/v1/statuses/"+st.ID+"/transition", client, map[string]string{"target": "declined", "decline_reason": "busy"})
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, entity.StateDeclined, decode[entity.ClientOpportunityStatus](t, env).ResponseState)

	code, env = a.do(http.MethodPost, "/api/v1/statuses/"+st.ID+"/transition", client, map[string]string{"target": "accepted"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_transition", env.Code)
	details := decode[map[string]string](t, env)
	assert.Equal(t, "declined", details["current_state"])
	assert.Equal(t, "accepted", details["attempted_state"])

	code, env = a.do(http.MethodPost, "/api/v1/restore-requests", client, map[string]string{"opportunity_id": opp.ID, "reason": "free now"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	rr := decode[entity.RestoreRequest](t, env)

	code, env = a.do(http.MethodPost, "/api/v1/restore-requests", client, map[string]string{"opportunity_id": opp.ID})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "duplicate_request", env.Code)

	code, _ = a.do(http.MethodPost, "/api/v1/restore-requests/"+rr.ID+"/approve", client, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = a.do(http.MethodPost, "/api/v1/restore-requests/"+rr.ID+"/approve", staff, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, entity.RestoreApproved, decode[entity.RestoreRequest](t, env).Status)

	code, env = a.do(http.MethodPost, "/api/v1/restore-requests/"+rr.ID+"/deny", staff, map[string]string{"notes": "late"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "request_resolved", env.Code)

	code, env = a.do(http.MethodGet, "/api/v1/statuses/"+st.ID, client, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, entity.StatePending, decode[entity.ClientOpportunityStatus](t, env).ResponseState)

	code, env = a.do(http.MethodGet, "/api/v1/activity?limit=50", staff, nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, decode[[]entity.ActivityEntry](t, env))
}

func TestChatEscalatesAndRateLimits(t *testing.T) {
	a := newTestAPI(t)
	staff := a.token(map[string]string{"user_id": "aopr-1", "role": "aopr", "agency_id": "agency-1"})

	_, env := a.do(http.MethodPost, "/api/v1/clients", staff, map[string]string{"name": "Alice"})
	alice := decode[entity.Client](t, env)
	_, env = a.do(http.MethodPost, "/api/v1/opportunities", staff, map[string]any{"title": "Podcast", "media_type": "podcast"})
	opp := decode[entity.Opportunity](t, env)
	a.do(http.MethodPost, "/api/v1/opportunities/"+opp.ID+"/assign", staff, map[string]any{"client_ids": []string{alice.ID}})

	client := a.token(map[string]string{"user_id": "user-alice", "role": "client", "agency_id": "agency-1", "client_id": alice.ID})
	path := "/api/v1/chat/" + opp.ID + "/" + alice.ID

	code, env := a.do(http.MethodPost, path+"/questions", client, map[string]string{"text": "Who is the host?"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	result := decode[escalation.QuestionResult](t, env)
	assert.True(t, result.Escalated, "no responder configured")

	code, env = a.do(http.MethodPost, path+"/questions", client, map[string]string{"text": "Anyone?"})
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "rate_limited", env.Code)

	code, env = a.do(http.MethodGet, "/api/v1/chat/escalations", staff, nil)
	require.Equal(t, http.StatusOK, code)
	threads := decode[[]entity.ChatThread](t, env)
	require.Len(t, threads, 1)

	code, env = a.do(http.MethodPost, "/api/v1/chat/threads/"+threads[0].ID+"/responses", staff, map[string]string{"text": "Jane Doe hosts."})
	require.Equal(t, http.StatusCreated, code, env.Message)

	code, env = a.do(http.MethodGet, path+"/messages?after_seq=1", client, nil)
	require.Equal(t, http.StatusOK, code)
	view := decode[entity.ThreadView](t, env)
	require.Len(t, view.Messages, 2)
	assert.Equal(t, entity.MessageSystem, view.Messages[0].Type)
	assert.Equal(t, entity.MessageAoprResponse, view.Messages[1].Type)
	assert.False(t, view.Thread.IsEscalated)

	code, _ = a.do(http.MethodGet, path+"/messages?after_seq=abc", client, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUnknownRoute(t *testing.T) {
	a := newTestAPI(t)
	code, env := a.do(http.MethodGet, "/nowhere", masterKey, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
}
