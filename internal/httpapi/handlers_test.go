package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/rap-battle-backend/internal/battle"
	"github.com/DoyleJ11/rap-battle-backend/internal/hub"
	"github.com/DoyleJ11/rap-battle-backend/internal/verse"
	"github.com/DoyleJ11/rap-battle-backend/pkg/types"
)

func newTestServer(t *testing.T, gen verse.Generator) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.NewHub(ctx)
	log := zaptest.NewLogger(t)
	svc := battle.NewService(h, gen, log)

	srv := httptest.NewServer(SetupRoutes(svc, log, Options{AllowedOrigins: []string{"*"}, Feed: h}))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path string, body any) (int, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(srv.URL+path, "application/json", &buf)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func start(t *testing.T, srv *httptest.Server, a, b string) string {
	t.Helper()
	status, data := post(t, srv, "/api/start", types.StartRequest{AgentA: types.Agent{Name: a}, AgentB: types.Agent{Name: b}})
	require.Equal(t, http.StatusOK, status, string(data))

	var resp types.StartResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func TestEndToEndBattle(t *testing.T) {
	srv := newTestServer(t, verse.NewMock())
	tok := start(t, srv, "Ann", "Bob")

	for round := 1; round <= 3; round++ {
		status, data := post(t, srv, "/api/round", types.RoundRequest{SessionID: tok, Round: round})
		require.Equal(t, http.StatusOK, status, string(data))

		var r types.RoundResponse
		require.NoError(t, json.Unmarshal(data, &r))
		assert.Contains(t, r.VerseA, "Ann in Round")
		assert.Contains(t, r.VerseB, "Bob in Round")

		status, data = post(t, srv, "/api/vote", types.VoteRequest{SessionID: tok, Round: round, Winner: "A"})
		require.Equal(t, http.StatusOK, status, string(data))
		assert.JSONEq(t, `{"ok":true}`, string(data))
	}

	status, data := post(t, srv, "/api/result", types.ResultRequest{SessionID: tok})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"scoreA":3,"scoreB":0,"winner":"A","complete":true}`, string(data))
}

func TestErrorStatuses(t *testing.T) {
	srv := newTestServer(t, verse.NewMock())
	tok := start(t, srv, "Ann", "Bob")

	status, _ := post(t, srv, "/api/vote", types.VoteRequest{SessionID: tok, Round: 1, Winner: "B"})
	require.Equal(t, http.StatusOK, status)

	cases := []struct {
		name   string
		path   string
		body   any
		status int
		text   string
	}{
		{"round unknown session", "/api/round", types.RoundRequest{SessionID: "nope", Round: 1}, http.StatusNotFound, "Unknown sessionId"},
		{"round unknown session bad round", "/api/round", types.RoundRequest{SessionID: "nope", Round: 7}, http.StatusNotFound, "Unknown sessionId"},
		{"round out of range", "/api/round", types.RoundRequest{SessionID: tok, Round: 0}, http.StatusBadRequest, "round must be 1..3"},
		{"vote unknown session", "/api/vote", types.VoteRequest{SessionID: "nope", Round: 1, Winner: "A"}, http.StatusNotFound, "Unknown sessionId"},
		{"vote round 4", "/api/vote", types.VoteRequest{SessionID: tok, Round: 4, Winner: "A"}, http.StatusBadRequest, "round must be 1..3"},
		{"vote winner C", "/api/vote", types.VoteRequest{SessionID: tok, Round: 2, Winner: "C"}, http.StatusBadRequest, "winner must be A or B"},
		{"vote twice", "/api/vote", types.VoteRequest{SessionID: tok, Round: 1, Winner: "A"}, http.StatusConflict, "Already voted this round"},
		{"result unknown session", "/api/result", types.ResultRequest{SessionID: "nope"}, http.StatusNotFound, "Unknown sessionId"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, data := post(t, srv, tc.path, tc.body)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.text, strings.TrimSpace(string(data)))
		})
	}

	// Rejections above must not have touched the session.
	status, data := post(t, srv, "/api/result", types.ResultRequest{SessionID: tok})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"scoreA":0,"scoreB":1,"winner":"B","complete":false}`, string(data))
}

func TestPartialResultIsTie(t *testing.T) {
	srv := newTestServer(t, verse.NewMock())
	tok := start(t, srv, "Ann", "Bob")

	post(t, srv, "/api/vote", types.VoteRequest{SessionID: tok, Round: 1, Winner: "A"})
	post(t, srv, "/api/vote", types.VoteRequest{SessionID: tok, Round: 2, Winner: "B"})

	status, data := post(t, srv, "/api/result", types.ResultRequest{SessionID: tok})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"scoreA":1,"scoreB":1,"winner":"TIE","complete":false}`, string(data))
}

func TestStartWithEmptyBodyDefaultsNames(t *testing.T) {
	srv := newTestServer(t, verse.NewMockWithPicker(func(int) int { return 0 }))

	status, data := post(t, srv, "/api/start", nil)
	require.Equal(t, http.StatusOK, status, string(data))

	var resp types.StartResponse
	require.NoError(t, json.Unmarshal(data, &resp))

	status, data = post(t, srv, "/api/round", types.RoundRequest{SessionID: resp.SessionID, Round: 1})
	require.Equal(t, http.StatusOK, status)

	var r types.RoundResponse
	require.NoError(t, json.Unmarshal(data, &r))
	assert.Contains(t, r.VerseA, "Agent A in Round 1:")
	assert.Contains(t, r.VerseB, "Agent B in Round 1:")
}

func TestMalformedBody(t *testing.T) {
	srv := newTestServer(t, verse.NewMock())

	resp, err := http.Post(srv.URL+"/api/vote", "application/json", strings.NewReader(`{"round":"one"`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGeneratorFailureIsBadGateway(t *testing.T) {
	gen := verse.Func(func(context.Context, string, int) (string, error) {
		return "", errors.New("agent offline")
	})
	srv := newTestServer(t, gen)
	tok := start(t, srv, "Ann", "Bob")

	status, _ := post(t, srv, "/api/round", types.RoundRequest{SessionID: tok, Round: 1})
	assert.Equal(t, http.StatusBadGateway, status)
}

func TestLivenessAndCORS(t *testing.T) {
	srv := newTestServer(t, verse.NewMock())

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Rap Battle API is alive.", string(body))

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/start", nil)
	req.Header.Set("Origin", "https://battle.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestOriginPatterns(t *testing.T) {
	assert.Equal(t, []string{"*"}, originPatterns([]string{"https://a.example", "*"}))
	assert.Equal(t, []string{"a.example", "localhost:5173"}, originPatterns([]string{"https://a.example", "http://localhost:5173"}))
}

func postRaw(t *testing.T, srv *httptest.Server, path, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, strings.TrimSpace(string(data))
}

func TestOddlyTypedFieldsFollowBattleRules(t *testing.T) {
	srv := newTestServer(t, verse.NewMock())
	tok := start(t, srv, "Ann", "Bob")

	cases := []struct {
		name   string
		path   string
		body   string
		status int
		text   string
	}{
		{"round as string, unknown session", "/api/round", `{"sessionId":"nope","round":"1"}`, http.StatusNotFound, "Unknown sessionId"},
		{"fractional round, unknown session", "/api/round", `{"sessionId":"nope","round":1.5}`, http.StatusNotFound, "Unknown sessionId"},
		{"round 2.0, unknown session", "/api/round", `{"sessionId":"nope","round":2.0}`, http.StatusNotFound, "Unknown sessionId"},
		{"numeric session id", "/api/round", `{"sessionId":42,"round":1}`, http.StatusNotFound, "Unknown sessionId"},
		{"numeric winner, unknown session", "/api/vote", `{"sessionId":"nope","round":1,"winner":1}`, http.StatusNotFound, "Unknown sessionId"},
		{"round as string", "/api/round", `{"sessionId":"` + tok + `","round":"1"}`, http.StatusBadRequest, "round must be 1..3"},
		{"fractional round", "/api/round", `{"sessionId":"` + tok + `","round":1.5}`, http.StatusBadRequest, "round must be 1..3"},
		{"vote round as string", "/api/vote", `{"sessionId":"` + tok + `","round":"1","winner":"A"}`, http.StatusBadRequest, "round must be 1..3"},
		{"vote missing round", "/api/vote", `{"sessionId":"` + tok + `","winner":"A"}`, http.StatusBadRequest, "round must be 1..3"},
		{"numeric winner", "/api/vote", `{"sessionId":"` + tok + `","round":1,"winner":1}`, http.StatusBadRequest, "winner must be A or B"},
		{"result with array body", "/api/result", `[1,2]`, http.StatusNotFound, "Unknown sessionId"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, text := postRaw(t, srv, tc.path, tc.body)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.text, text)
		})
	}

	// round 2.0 is round 2
	status, _ := postRaw(t, srv, "/api/round", `{"sessionId":"`+tok+`","round":2.0}`)
	assert.Equal(t, http.StatusOK, status)
	status, _ = postRaw(t, srv, "/api/vote", `{"sessionId":"`+tok+`","round":2.0,"winner":"B"}`)
	require.Equal(t, http.StatusOK, status)

	status, data := post(t, srv, "/api/result", types.ResultRequest{SessionID: tok})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"scoreA":0,"scoreB":1,"winner":"B","complete":false}`, string(data))
}

func TestStartDefaultsMalformedAgents(t *testing.T) {
	srv := newTestServer(t, verse.NewMockWithPicker(func(int) int { return 0 }))

	bodies := []string{
		`{"agentA":"Ann","agentB":"Bob"}`,
		`{"agentA":{"name":7},"agentB":{"name":null}}`,
		`{"agentA":[],"agentB":true}`,
		`["Ann","Bob"]`,
		`{"agentA":{"name":"Ann"`,
	}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			status, text := postRaw(t, srv, "/api/start", body)
			require.Equal(t, http.StatusOK, status, text)

			var resp types.StartResponse
			require.NoError(t, json.Unmarshal([]byte(text), &resp))

			status, data := post(t, srv, "/api/round", types.RoundRequest{SessionID: resp.SessionID, Round: 1})
			require.Equal(t, http.StatusOK, status)
			var r types.RoundResponse
			require.NoError(t, json.Unmarshal(data, &r))
			assert.Contains(t, r.VerseA, "Agent A in Round 1:")
			assert.Contains(t, r.VerseB, "Agent B in Round 1:")
		})
	}

	// A well-formed name on one side still counts.
	status, text := postRaw(t, srv, "/api/start", `{"agentA":{"name":"Ann"},"agentB":"Bob"}`)
	require.Equal(t, http.StatusOK, status)
	var resp types.StartResponse
	require.NoError(t, json.Unmarshal([]byte(text), &resp))
	_, data := post(t, srv, "/api/round", types.RoundRequest{SessionID: resp.SessionID, Round: 1})
	var r types.RoundResponse
	require.NoError(t, json.Unmarshal(data, &r))
	assert.Contains(t, r.VerseA, "Ann in Round 1:")
	assert.Contains(t, r.VerseB, "Agent B in Round 1:")
}
