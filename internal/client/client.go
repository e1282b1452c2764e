// Package client calls the battle API over JSON POSTs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/DoyleJ11/rap-battle-backend/pkg/types"
)

// APIError is any non-2xx answer. Body is the server's plain-text message.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, e.Body)
}

type Client struct {
	base string
	http *http.Client
}

// New returns a client for base; a nil hc means http.DefaultClient.
func New(base string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{base: NormalizeBaseURL(base), http: hc}
}

// NormalizeBaseURL trims whitespace and trailing slashes.
func NormalizeBaseURL(base string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/")
}

func (c *Client) Start(ctx context.Context, agentA, agentB string) (string, error) {
	var resp types.StartResponse
	err := c.post(ctx, "/api/start", types.StartRequest{
		AgentA: types.Agent{Name: agentA},
		AgentB: types.Agent{Name: agentB},
	}, &resp)
	return resp.SessionID, err
}

func (c *Client) Round(ctx context.Context, sessionID string, round int) (types.RoundResponse, error) {
	var resp types.RoundResponse
	err := c.post(ctx, "/api/round", types.RoundRequest{SessionID: sessionID, Round: round}, &resp)
	return resp, err
}

func (c *Client) Vote(ctx context.Context, sessionID string, round int, winner string) error {
	var resp types.VoteResponse
	return c.post(ctx, "/api/vote", types.VoteRequest{SessionID: sessionID, Round: round, Winner: winner}, &resp)
}

func (c *Client) Result(ctx context.Context, sessionID string) (types.ResultResponse, error) {
	var resp types.ResultResponse
	err := c.post(ctx, "/api/result", types.ResultRequest{SessionID: sessionID}, &resp)
	return resp, err
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
